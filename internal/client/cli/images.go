package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

func (a *App) AddImage(ctx context.Context) error {
	path, err := GetSimpleText(a.reader, "Enter image file path", a.out)
	if err != nil {
		printlnFn(err.Error())
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		printlnFn(err.Error())
		return err
	}

	priceCents, err := GetInt(a.reader, "Enter price, cents", a.out)
	if err != nil {
		printlnFn(err.Error())
		return err
	}

	quantity, err := GetInt(a.reader, "Enter quantity", a.out)
	if err != nil {
		printlnFn(err.Error())
		return err
	}

	tags, err := GetIntList(a.reader, "Enter tag ids (space separated, empty for none)", a.out)
	if err != nil {
		printlnFn(err.Error())
		return err
	}

	imageID, err := a.client.AddImage(filepath.Base(path), data, int64(priceCents), quantity, tags)
	if err != nil {
		printlnFn(err.Error())
		return err
	}

	printlnFn("Added image " + imageID)
	return nil
}

func (a *App) UpdateImage(ctx context.Context) error {
	imageID, err := GetSimpleText(a.reader, "Enter image id", a.out)
	if err != nil {
		printlnFn(err.Error())
		return err
	}

	priceCents, err := GetInt(a.reader, "Enter new price, cents", a.out)
	if err != nil {
		printlnFn(err.Error())
		return err
	}

	quantity, err := GetInt(a.reader, "Enter new quantity", a.out)
	if err != nil {
		printlnFn(err.Error())
		return err
	}

	tags, err := GetIntList(a.reader, "Enter tag ids (space separated, empty for none)", a.out)
	if err != nil {
		printlnFn(err.Error())
		return err
	}

	if err := a.client.UpdateImage(imageID, int64(priceCents), quantity, tags); err != nil {
		printlnFn(err.Error())
		return err
	}

	printlnFn("Success!")
	return nil
}

func (a *App) DeleteImage(ctx context.Context) error {
	imageID, err := GetSimpleText(a.reader, "Enter image id", a.out)
	if err != nil {
		printlnFn(err.Error())
		return err
	}

	if err := a.client.DeleteImage(imageID); err != nil {
		printlnFn(err.Error())
		return err
	}

	printlnFn("Success!")
	return nil
}

func formatPrice(cents int64) string {
	return fmt.Sprintf("%d.%02d", cents/100, cents%100)
}
