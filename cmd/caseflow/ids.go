package main

import (
	"caseflow/internal/utils"
	"fmt"

	"github.com/urfave/cli/v2"
)

var idsCommand = &cli.Command{
	Name:  "ids",
	Usage: "Generate NanoIDs for fixtures and manual inserts",
	Flags: []cli.Flag{
		&cli.IntFlag{
			Name:    "count",
			Aliases: []string{"c"},
			Usage:   "Number of IDs to generate",
			Value:   1,
		},
		&cli.IntFlag{
			Name:    "size",
			Aliases: []string{"s"},
			Usage:   "Length of each ID",
			Value:   utils.NanoidSize,
		},
	},
	Action: func(c *cli.Context) error {
		for _, id := range utils.NanoIDs(c.Int("count"), c.Int("size")) {
			fmt.Println(id)
		}
		return nil
	},
}
