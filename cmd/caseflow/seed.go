package main

import (
	"caseflow/internal/db"
	"caseflow/internal/seed"
	"caseflow/internal/store"
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var seedCommand = &cli.Command{
	Name:  "seed",
	Usage: "Sync the document requirement table with the built-in category rules",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "migrate",
			Usage: "Apply the schema before seeding",
		},
	},
	Action: func(c *cli.Context) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		ctx := context.Background()

		pool, err := db.Connect(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer pool.Close()

		logrus.Info("Connected to database")

		if c.Bool("migrate") {
			if err := db.Migrate(ctx, pool); err != nil {
				return err
			}
			logrus.Info("Schema applied")
		}

		requirementRepo := store.NewRequirementRepository(pool)

		logrus.Info("Seeding document requirements...")
		if err := seed.SeedRequirements(ctx, requirementRepo, logrus.StandardLogger()); err != nil {
			return fmt.Errorf("failed to seed requirements: %w", err)
		}

		logrus.Info("Document requirements seeded successfully; send SIGHUP to running servers to refresh their cache")

		return nil
	},
}
