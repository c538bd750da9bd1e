package seed

import (
	"caseflow/internal/intake"
	"caseflow/pkg/types"
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

// RequirementSyncer replaces a category's checklist rows.
type RequirementSyncer interface {
	Sync(ctx context.Context, category types.Category, reqs []types.DocumentRequirement) error
}

// SeedRequirements syncs the database with the built-in category rules.
// The rules table in internal/intake is the source of truth:
// - Inserts requirements that don't exist
// - Updates display names, required flags and ordering that changed
// - Deletes requirements no longer listed for a category
//
// Requirement ids are "<category slug>:<document type>", so renaming a
// document type is a delete plus an insert.
func SeedRequirements(ctx context.Context, repo RequirementSyncer, logger logrus.FieldLogger) error {
	for _, category := range types.AllCategories {
		reqs := intake.RulesFor(category).Documents
		if err := repo.Sync(ctx, category, reqs); err != nil {
			return fmt.Errorf("failed to sync requirements for %s: %w", category, err)
		}

		logger.WithFields(logrus.Fields{
			"category":     category,
			"requirements": len(reqs),
		}).Info("requirements synced")
	}

	return nil
}
