package main

import (
	"context"
	"fmt"

	"assettrack/internal/store"

	"github.com/k0kubun/pp/v3"
	"github.com/urfave/cli/v2"
)

var requestCommand = &cli.Command{
	Name:  "request",
	Usage: "Inspect asset requests",
	Subcommands: []*cli.Command{
		{
			Name:      "show",
			Usage:     "Print a request with its items and attachments",
			ArgsUsage: "<id>",
			Action:    showRequest,
		},
		{
			Name:   "pending",
			Usage:  "Print the number of pending requests",
			Action: pendingRequests,
		},
	},
}

func showRequest(c *cli.Context) error {
	id := c.Args().First()
	if id == "" {
		return fmt.Errorf("usage: request show <id>")
	}

	ctx := context.Background()

	_, _, pool, err := connect(ctx, c)
	if err != nil {
		return err
	}
	defer pool.Close()

	detail, err := store.NewRequestRepository(pool).RequestDetail(ctx, id)
	if err != nil {
		return err
	}

	_, err = pp.Println(detail)
	return err
}

func pendingRequests(c *cli.Context) error {
	ctx := context.Background()

	_, _, pool, err := connect(ctx, c)
	if err != nil {
		return err
	}
	defer pool.Close()

	count, err := store.NewRequestRepository(pool).PendingCount(ctx)
	if err != nil {
		return err
	}

	fmt.Println(count)
	return nil
}
