package db

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemaDeclaresTables(t *testing.T) {
	for _, table := range []string{
		"caseflow.cases",
		"caseflow.case_documents",
		"caseflow.document_requirements",
		"caseflow.residency_details",
		"caseflow.family_members",
		"caseflow.case_history",
		"caseflow.flight_details",
	} {
		assert.Contains(t, Schema(), "CREATE TABLE IF NOT EXISTS "+table+" (")
	}
}

func TestMigrate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(regexp.QuoteMeta("CREATE SCHEMA IF NOT EXISTS caseflow;")).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	require.NoError(t, Migrate(context.Background(), mock))

	mock.ExpectExec("CREATE SCHEMA").WillReturnError(errors.New("permission denied"))
	require.Error(t, Migrate(context.Background(), mock))

	require.NoError(t, mock.ExpectationsWereMet())
}
