package store

import (
	"caseflow/internal/utils"
	"caseflow/pkg/types"
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
)

const documentTableName = "caseflow.case_documents"

var documentColumns = utils.StructTagValues(types.CaseDocument{})

type DocumentRepository struct {
	db DB
}

func NewDocumentRepository(db DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// CreateDocument records a file that already reached blob storage.
func (r *DocumentRepository) CreateDocument(ctx context.Context, doc *types.CaseDocument) error {
	if doc.ID == "" {
		doc.ID = utils.NanoID()
	}

	query, args, err := psql().
		Insert(documentTableName).
		Columns(documentColumns...).
		Values(
			doc.ID,
			doc.CaseID,
			doc.DocumentTypeID,
			doc.StoragePath,
			doc.OriginalFilename,
			doc.SizeBytes,
			doc.MimeType,
			doc.UploadStatus,
			doc.UploadedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate insert document query: %w", err)
	}

	_, err = r.db.Exec(ctx, query, args...)
	return utils.ErrorWrapOrNil(err, "failed to create document")
}

// DocumentsByCaseID returns a case's documents, newest first.
func (r *DocumentRepository) DocumentsByCaseID(ctx context.Context, caseID string) ([]types.CaseDocument, error) {
	query, args, err := psql().
		Select(documentColumns...).
		From(documentTableName).
		Where(sq.Eq{"case_id": caseID}).
		OrderBy("uploaded_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate documents query: %w", err)
	}

	var docs []types.CaseDocument
	err = pgxscan.Select(ctx, r.db, &docs, query, args...)
	if err != nil {
		return nil, utils.ErrorWrapOrNil(err, "failed to fetch documents")
	}
	return docs, nil
}

// DocumentsByCaseIDs groups the documents of several cases by case id, for
// list pages that compute progress per row.
func (r *DocumentRepository) DocumentsByCaseIDs(ctx context.Context, caseIDs []string) (map[string][]types.CaseDocument, error) {
	out := make(map[string][]types.CaseDocument, len(caseIDs))
	if len(caseIDs) == 0 {
		return out, nil
	}

	query, args, err := psql().
		Select(documentColumns...).
		From(documentTableName).
		Where(sq.Eq{"case_id": caseIDs}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate documents query: %w", err)
	}

	var docs []types.CaseDocument
	err = pgxscan.Select(ctx, r.db, &docs, query, args...)
	if err != nil {
		return nil, utils.ErrorWrapOrNil(err, "failed to fetch documents")
	}

	for _, doc := range docs {
		out[doc.CaseID] = append(out[doc.CaseID], doc)
	}
	return out, nil
}
