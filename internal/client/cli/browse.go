package cli

import (
	"context"
	"fmt"
	"os"
)

const pullBatchSize = 10

func (a *App) Browse(ctx context.Context) error {
	tags, err := GetIntList(a.reader, "Enter tag ids to filter by (empty for all)", a.out)
	if err != nil {
		printlnFn(err.Error())
		return err
	}

	total, err := a.client.Browse(tags)
	if err != nil {
		printlnFn(err.Error())
		return err
	}
	printlnFn(fmt.Sprintf("%d image(s) found", total))

	return a.pullAndPrint(false)
}

func (a *App) Search(ctx context.Context) error {
	path, err := GetSimpleText(a.reader, "Enter query image file path", a.out)
	if err != nil {
		printlnFn(err.Error())
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		printlnFn(err.Error())
		return err
	}

	limit, err := GetInt(a.reader, "Enter result limit (0 for all)", a.out)
	if err != nil {
		printlnFn(err.Error())
		return err
	}

	total, err := a.client.Search(data, limit)
	if err != nil {
		printlnFn(err.Error())
		return err
	}
	printlnFn(fmt.Sprintf("%d image(s) ranked", total))

	return a.pullAndPrint(true)
}

func (a *App) pullAndPrint(withScore bool) error {
	images, err := a.client.Pull(pullBatchSize)
	if err != nil {
		printlnFn(err.Error())
		return err
	}

	for _, img := range images {
		line := fmt.Sprintf("%s  %s  price=%s  qty=%d  tags=%v",
			img.ID, img.Name, formatPrice(img.PriceCents), img.Quantity, img.Tags)
		if withScore {
			line += fmt.Sprintf("  score=%.4f", img.Score)
		}
		printlnFn(line)
	}
	return nil
}
