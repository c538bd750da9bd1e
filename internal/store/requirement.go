package store

import (
	"caseflow/internal/utils"
	"caseflow/pkg/types"
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
)

const requirementTableName = "caseflow.document_requirements"

var requirementColumns = utils.StructTagValues(types.DocumentRequirement{})

// RequirementRepository serves the document checklist from Postgres.
type RequirementRepository struct {
	db DB
}

func NewRequirementRepository(db DB) *RequirementRepository {
	return &RequirementRepository{db: db}
}

func (r *RequirementRepository) Requirements(ctx context.Context, category types.Category) ([]types.DocumentRequirement, error) {
	query, args, err := psql().
		Select(requirementColumns...).
		From(requirementTableName).
		Where(sq.Eq{"category": category}).
		OrderBy("display_order ASC", "document_type_id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate requirements query: %w", err)
	}

	var reqs []types.DocumentRequirement
	err = pgxscan.Select(ctx, r.db, &reqs, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch requirements for %s: %w", category, err)
	}

	return reqs, nil
}

// Sync makes the table for category match reqs exactly: rows are upserted by
// id and rows no longer listed are removed, all in one transaction.
func (r *RequirementRepository) Sync(ctx context.Context, category types.Category, reqs []types.DocumentRequirement) (err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin requirement sync: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	ids := make([]string, 0, len(reqs))
	for _, req := range reqs {
		ids = append(ids, req.ID)

		query, args, err := psql().
			Insert(requirementTableName).
			SetMap(utils.StructToMap(req)).
			Suffix("ON CONFLICT (id) DO UPDATE SET display_name = EXCLUDED.display_name, required = EXCLUDED.required, display_order = EXCLUDED.display_order").
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to generate upsert requirement query: %w", err)
		}

		if _, err := tx.Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to upsert requirement %s: %w", req.ID, err)
		}
	}

	del := psql().Delete(requirementTableName).Where(sq.Eq{"category": category})
	if len(ids) > 0 {
		del = del.Where(sq.NotEq{"id": ids})
	}

	query, args, err := del.ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate prune requirements query: %w", err)
	}

	if _, err = tx.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to prune requirements for %s: %w", category, err)
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit requirement sync: %w", err)
	}

	return nil
}
