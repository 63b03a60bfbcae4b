package cli

import (
	"context"
)

func (a *App) Register(ctx context.Context) error {
	userName, err := GetSimpleText(a.reader, "Enter user name", a.out)
	if err != nil {
		printlnFn(err.Error())
		return err
	}

	password, err := GetPassword(a.out)
	if err != nil {
		printlnFn(err.Error())
		return err
	}

	if err := a.client.Register(userName, password); err != nil {
		printlnFn(err.Error())
		return err
	}

	a.userName = userName
	printlnFn("Success!")
	return nil
}

func (a *App) Login(ctx context.Context) error {
	userName, err := GetSimpleText(a.reader, "Enter user name", a.out)
	if err != nil {
		printlnFn(err.Error())
		return err
	}

	password, err := GetPassword(a.out)
	if err != nil {
		printlnFn(err.Error())
		return err
	}

	if err := a.client.Login(userName, password); err != nil {
		printlnFn(err.Error())
		return err
	}

	a.userName = userName
	printlnFn("Success!")
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	if err := a.client.Logout(); err != nil {
		printlnFn(err.Error())
		return err
	}
	a.userName = ""
	printlnFn("Logged out")
	return nil
}
