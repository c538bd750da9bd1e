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

const historyTableName = "caseflow.case_history"

var historyColumns = utils.StructTagValues(types.HistoryEntry{})

type HistoryRepository struct {
	db DB
}

func NewHistoryRepository(db DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// CreateHistoryEntry appends an audit row. Entries are never updated.
func (r *HistoryRepository) CreateHistoryEntry(ctx context.Context, entry *types.HistoryEntry) error {
	if entry.ID == "" {
		entry.ID = utils.NanoID()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	query, args, err := psql().
		Insert(historyTableName).
		Columns(historyColumns...).
		Values(entry.ID, entry.CaseID, entry.Action, entry.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate insert history query: %w", err)
	}

	_, err = r.db.Exec(ctx, query, args...)
	return utils.ErrorWrapOrNil(err, "failed to record history entry")
}

// HistoryByCaseID returns a case's entries, oldest first.
func (r *HistoryRepository) HistoryByCaseID(ctx context.Context, caseID string) ([]*types.HistoryEntry, error) {
	query, args, err := psql().
		Select(historyColumns...).
		From(historyTableName).
		Where(sq.Eq{"case_id": caseID}).
		OrderBy("created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate history query: %w", err)
	}

	var entries []*types.HistoryEntry
	err = pgxscan.Select(ctx, r.db, &entries, query, args...)
	if err != nil {
		return nil, utils.ErrorWrapOrNil(err, "failed to fetch history")
	}

	return entries, nil
}
