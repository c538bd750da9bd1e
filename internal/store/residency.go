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

const (
	residencyTableName    = "caseflow.residency_details"
	familyMemberTableName = "caseflow.family_members"
)

var (
	residencyColumns    = utils.StructTagValues(types.ResidencyDetails{})
	familyMemberColumns = utils.StructTagValues(types.FamilyMember{})
)

type ResidencyRepository struct {
	db DB
}

func NewResidencyRepository(db DB) *ResidencyRepository {
	return &ResidencyRepository{db: db}
}

func (r *ResidencyRepository) CreateResidencyDetails(ctx context.Context, details *types.ResidencyDetails) error {

	if details.ID == "" {
		details.ID = utils.NanoID()
	}
	if details.CreatedAt.IsZero() {
		details.CreatedAt = time.Now()
	}

	query, args, err := psql().Insert(residencyTableName).SetMap(utils.StructToMap(details)).ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate insert residency details query: %w", err)
	}

	_, err = r.db.Exec(ctx, query, args...)
	return utils.ErrorWrapOrNil(err, "failed to create residency details")

}

// CreateFamilyMembers inserts the whole batch with a single statement, so
// either every member is stored or none is.
func (r *ResidencyRepository) CreateFamilyMembers(ctx context.Context, members []*types.FamilyMember) error {
	if len(members) == 0 {
		return nil
	}

	now := time.Now()
	insert := psql().Insert(familyMemberTableName).Columns(familyMemberColumns...)
	for _, m := range members {
		if m.ID == "" {
			m.ID = utils.NanoID()
		}
		if m.CreatedAt.IsZero() {
			m.CreatedAt = now
		}
		insert = insert.Values(m.ID, m.ResidencyDetailsID, m.LastName, m.FirstName, m.Age, m.CreatedAt)
	}

	query, args, err := insert.ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate insert family members query: %w", err)
	}

	_, err = r.db.Exec(ctx, query, args...)
	return utils.ErrorWrapOrNil(err, "failed to create family members")
}

// ResidencyByCaseID returns nil without error when the case has none.
func (r *ResidencyRepository) ResidencyByCaseID(ctx context.Context, caseID string) (*types.ResidencyDetails, error) {
	query, args, err := psql().
		Select(residencyColumns...).
		From(residencyTableName).
		Where(sq.Eq{"case_id": caseID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate residency details query: %w", err)
	}

	var details types.ResidencyDetails
	err = pgxscan.Get(ctx, r.db, &details, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch residency details: %w", err)
	}

	return &details, nil
}

func (r *ResidencyRepository) FamilyMembers(ctx context.Context, residencyDetailsID string) ([]*types.FamilyMember, error) {
	query, args, err := psql().
		Select(familyMemberColumns...).
		From(familyMemberTableName).
		Where(sq.Eq{"residency_details_id": residencyDetailsID}).
		OrderBy("created_at ASC", "first_name ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate family members query: %w", err)
	}

	var members []*types.FamilyMember
	err = pgxscan.Select(ctx, r.db, &members, query, args...)
	if err != nil {
		return nil, utils.ErrorWrapOrNil(err, "failed to fetch family members")
	}

	return members, nil
}
