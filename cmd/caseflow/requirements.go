package main

import (
	"context"
	"fmt"

	"caseflow/internal/db"
	"caseflow/internal/intake"
	"caseflow/internal/store"
	"caseflow/pkg/types"

	"github.com/k0kubun/pp/v3"
	"github.com/urfave/cli/v2"
)

var requirementsCommand = &cli.Command{
	Name:  "requirements",
	Usage: "Print the document checklist of a category",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "category",
			Aliases: []string{"c"},
			Usage:   "Category name or alias; all categories when empty",
		},
		&cli.BoolFlag{
			Name:  "no-color",
			Usage: "Disable colored output",
		},
		&cli.BoolFlag{
			Name:  "db",
			Usage: "Read the checklist from Postgres instead of the built-in rules",
		},
	},
	Action: func(c *cli.Context) error {
		ctx := context.Background()

		categories := types.AllCategories
		if raw := c.String("category"); raw != "" {
			category, err := intake.ParseCategory(raw)
			if err != nil {
				return err
			}
			categories = []types.Category{category}
		}

		var source intake.RequirementSource = intake.StaticRequirements{}
		if c.Bool("db") {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			pool, err := db.Connect(ctx, cfg)
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer pool.Close()

			source = store.NewRequirementRepository(pool)
		}

		printer := pp.New()
		printer.SetOutput(c.App.Writer)
		printer.SetColoringEnabled(!c.Bool("no-color"))

		for _, category := range categories {
			reqs, err := source.Requirements(ctx, category)
			if err != nil {
				return fmt.Errorf("failed to load requirements for %s: %w", category, err)
			}

			rules := intake.RulesFor(category)
			_, _ = printer.Println(map[string]any{
				"category":                   category,
				"requiresImmigrationDetails": rules.RequiresImmigrationDetails,
				"requirements":               reqs,
			})
		}

		return nil
	},
}
