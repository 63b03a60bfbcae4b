package cli

import (
	"context"
	"fmt"
)

func (a *App) CartAdd(ctx context.Context) error {
	imageID, err := GetSimpleText(a.reader, "Enter image id", a.out)
	if err != nil {
		printlnFn(err.Error())
		return err
	}

	quantity, err := GetInt(a.reader, "Enter quantity", a.out)
	if err != nil {
		printlnFn(err.Error())
		return err
	}

	if err := a.client.CartAdd(imageID, quantity); err != nil {
		printlnFn(err.Error())
		return err
	}

	printlnFn("Success!")
	return nil
}

func (a *App) CartUpdate(ctx context.Context) error {
	imageID, err := GetSimpleText(a.reader, "Enter image id", a.out)
	if err != nil {
		printlnFn(err.Error())
		return err
	}

	quantity, err := GetInt(a.reader, "Enter new quantity (0 removes the line)", a.out)
	if err != nil {
		printlnFn(err.Error())
		return err
	}

	if err := a.client.CartUpdate(imageID, quantity); err != nil {
		printlnFn(err.Error())
		return err
	}

	printlnFn("Success!")
	return nil
}

func (a *App) CartRemove(ctx context.Context) error {
	imageID, err := GetSimpleText(a.reader, "Enter image id", a.out)
	if err != nil {
		printlnFn(err.Error())
		return err
	}

	if err := a.client.CartRemove(imageID); err != nil {
		printlnFn(err.Error())
		return err
	}

	printlnFn("Success!")
	return nil
}

func (a *App) CartView(ctx context.Context) error {
	cart, err := a.client.CartView()
	if err != nil {
		printlnFn(err.Error())
		return err
	}

	if len(cart.Lines) == 0 {
		printlnFn("Cart is empty")
		return nil
	}
	for _, line := range cart.Lines {
		printlnFn(fmt.Sprintf("%s  %s  price=%s  qty=%d",
			line.ImageID, line.Name, formatPrice(line.PriceCents), line.Quantity))
	}
	printlnFn("Total: " + formatPrice(cart.TotalCents))
	return nil
}
