package store

import (
	"caseflow/internal/utils"
	"caseflow/pkg/types"
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
)

const caseTableName = "caseflow.cases"

var caseColumns = utils.StructTagValues(types.Case{})

type CaseRepository struct {
	db DB
}

func NewCaseRepository(db DB) *CaseRepository {
	return &CaseRepository{db: db}
}

func (r *CaseRepository) CreateCase(ctx context.Context, c *types.Case) error {

	now := time.Now()
	if c.ID == "" {
		c.ID = utils.NanoID()
	}
	if c.SubmittedAt.IsZero() {
		c.SubmittedAt = now
	}
	c.CreatedAt = now
	c.UpdatedAt = now

	query, args, err := psql().Insert(caseTableName).SetMap(utils.StructToMap(c)).ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate insert case query: %w", err)
	}

	_, err = r.db.Exec(ctx, query, args...)
	return utils.ErrorWrapOrNil(err, "failed to create case")

}

// UpdateCasePhoto points the case at its stored profile photo.
func (r *CaseRepository) UpdateCasePhoto(ctx context.Context, caseID, photoPath string) error {

	query, args, err := psql().
		Update(caseTableName).
		Set("photo_path", photoPath).
		Set("updated_at", time.Now()).
		Where(sq.Eq{"id": caseID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate update case photo query for case %s: %w", caseID, err)
	}

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update case photo: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrCaseNotFound
	}

	return nil

}


// CaseByUserAndID scopes the lookup to the owner so users cannot read each
// other's files.
func (r *CaseRepository) CaseByUserAndID(ctx context.Context, userID, caseID string) (*types.Case, error) {

	query, args, err := psql().Select(caseColumns...).From(caseTableName).
		Where(sq.Eq{"id": caseID, "user_id": userID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate case query: %w", err)
	}

	var c = new(types.Case)
	err = pgxscan.Get(ctx, r.db, c, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, types.ErrCaseNotFound
		}
		return nil, fmt.Errorf("failed to fetch case: %w", err)
	}

	return c, nil

}

func (r *CaseRepository) CasesByUser(ctx context.Context, userID string) ([]*types.Case, error) {

	query, args, err := psql().Select(caseColumns...).From(caseTableName).
		Where(sq.Eq{"user_id": userID}).
		OrderBy("submitted_at desc").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate cases by user query: %w", err)
	}

	var cases = make([]*types.Case, 0)
	err = pgxscan.Select(ctx, r.db, &cases, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch cases: %w", err)
	}

	return cases, nil

}
