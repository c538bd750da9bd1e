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

const flightTableName = "caseflow.flight_details"

var flightColumns = utils.StructTagValues(types.FlightDetails{})

type FlightRepository struct {
	db DB
}

func NewFlightRepository(db DB) *FlightRepository {
	return &FlightRepository{db: db}
}

func (r *FlightRepository) CreateFlightDetails(ctx context.Context, flight *types.FlightDetails) error {
	if flight.ID == "" {
		flight.ID = utils.NanoID()
	}
	if flight.CreatedAt.IsZero() {
		flight.CreatedAt = time.Now()
	}

	query, args, err := psql().Insert(flightTableName).SetMap(utils.StructToMap(flight)).ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate insert flight details query: %w", err)
	}

	_, err = r.db.Exec(ctx, query, args...)
	return utils.ErrorWrapOrNil(err, "failed to create flight details")
}

func (r *FlightRepository) FlightByCaseID(ctx context.Context, caseID string) (*types.FlightDetails, error) {
	query, args, err := psql().
		Select(flightColumns...).
		From(flightTableName).
		Where(sq.Eq{"case_id": caseID}).
		OrderBy("created_at DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate flight details query: %w", err)
	}

	var flight types.FlightDetails
	err = pgxscan.Get(ctx, r.db, &flight, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch flight details: %w", err)
	}

	return &flight, nil
}
