package intake

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"time"

	"caseflow/internal/utils"
	"caseflow/pkg/types"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// BlobStore is durable file storage keyed by path. A failed upload is never
// resumed; the caller starts over.
type BlobStore interface {
	Upload(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
}

// BlobRemover is implemented by blob stores that can delete objects. The
// uploader uses it to drop blobs whose database record could not be written.
type BlobRemover interface {
	Delete(ctx context.Context, key string) error
}

type DocumentRecorder interface {
	CreateDocument(ctx context.Context, doc *types.CaseDocument) error
}

type PhotoRecorder interface {
	UpdateCasePhoto(ctx context.Context, caseID, photoPath string) error
}

// File is an attachment ready to be transferred.
type File struct {
	DocumentTypeID string
	Filename       string
	ContentType    string
	Size           int64
	Open           func() (io.ReadCloser, error)
}

type Artifact string

const (
	ArtifactPhoto     Artifact = "photo"
	ArtifactHistory   Artifact = "history"
	ArtifactResidency Artifact = "residency details"
	ArtifactFamily    Artifact = "family members"
	ArtifactFlight    Artifact = "flight details"
	ArtifactDocument  Artifact = "document"
)

// Warning is a non-fatal failure of one post-case artifact. Subject names
// the file or record affected so the user can retry that piece later.
type Warning struct {
	Artifact Artifact
	Subject  string
	Err      error
}

func (w Warning) Error() string {
	if w.Subject == "" {
		return fmt.Sprintf("%s: %v", w.Artifact, w.Err)
	}
	return fmt.Sprintf("%s %q: %v", w.Artifact, w.Subject, w.Err)
}

func (w Warning) Unwrap() error {
	return w.Err
}

// UploadReport is the outcome of a document batch. Documents holds one
// record per successfully transferred file.
type UploadReport struct {
	Documents []types.CaseDocument
	Warnings  []Warning
}

type UploaderConfig struct {
	Concurrency int
	Timeout     time.Duration
}

type Uploader struct {
	blobs  BlobStore
	docs   DocumentRecorder
	photos PhotoRecorder
	logger logrus.FieldLogger

	concurrency int
	timeout     time.Duration
	now         func() time.Time
}

func NewUploader(blobs BlobStore, docs DocumentRecorder, photos PhotoRecorder, logger logrus.FieldLogger, cfg UploaderConfig) *Uploader {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = time.Minute
	}

	return &Uploader{
		blobs:       blobs,
		docs:        docs,
		photos:      photos,
		logger:      logger,
		concurrency: cfg.Concurrency,
		timeout:     cfg.Timeout,
		now:         time.Now,
	}
}

type uploadOutcome struct {
	doc     *types.CaseDocument
	warning *Warning
}

// UploadDocuments transfers every file concurrently and records a document
// for each success. It always waits for all transfers and never stops early;
// failures come back as warnings.
func (u *Uploader) UploadDocuments(ctx context.Context, caseID string, files map[string]File) UploadReport {
	typeIDs := make([]string, 0, len(files))
	for typeID := range files {
		typeIDs = append(typeIDs, typeID)
	}
	sort.Strings(typeIDs)

	outcomes := make([]uploadOutcome, len(typeIDs))

	var g errgroup.Group
	g.SetLimit(u.concurrency)

	for i, typeID := range typeIDs {
		file := files[typeID]
		if file.DocumentTypeID == "" {
			file.DocumentTypeID = typeID
		}

		g.Go(func() error {
			doc, err := u.uploadDocument(ctx, caseID, file)
			if err != nil {
				u.logger.WithError(err).WithFields(logrus.Fields{
					"case_id":       caseID,
					"document_type": file.DocumentTypeID,
					"filename":      file.Filename,
				}).Warn("document upload failed")
				outcomes[i] = uploadOutcome{warning: &Warning{Artifact: ArtifactDocument, Subject: file.Filename, Err: err}}
				return nil
			}
			outcomes[i] = uploadOutcome{doc: doc}
			return nil
		})
	}

	_ = g.Wait()

	var report UploadReport
	for _, o := range outcomes {
		if o.doc != nil {
			report.Documents = append(report.Documents, *o.doc)
		}
		if o.warning != nil {
			report.Warnings = append(report.Warnings, *o.warning)
		}
	}

	return report
}

func (u *Uploader) uploadDocument(ctx context.Context, caseID string, file File) (*types.CaseDocument, error) {
	key := DocumentStorageKey(caseID, file.DocumentTypeID, file.Filename)

	if err := u.transfer(ctx, key, file); err != nil {
		return nil, err
	}

	doc := &types.CaseDocument{
		ID:               utils.NanoID(),
		CaseID:           caseID,
		DocumentTypeID:   file.DocumentTypeID,
		StoragePath:      key,
		OriginalFilename: file.Filename,
		SizeBytes:        file.Size,
		MimeType:         contentTypeOrDefault(file.ContentType),
		UploadStatus:     types.UploadStatusUploaded,
		UploadedAt:       u.now(),
	}

	if err := u.docs.CreateDocument(ctx, doc); err != nil {
		u.removeOrphan(ctx, key)
		return nil, fmt.Errorf("failed to record document %s: %w", key, err)
	}

	return doc, nil
}

// UploadPhoto stores the profile image and points the case at it. The case
// stays valid without a photo, so failures are warnings.
func (u *Uploader) UploadPhoto(ctx context.Context, caseID string, file File) (string, *Warning) {
	key := PhotoStorageKey(caseID, file.Filename)

	if err := u.transfer(ctx, key, file); err != nil {
		u.logger.WithError(err).WithField("case_id", caseID).Warn("profile photo upload failed")
		return "", &Warning{Artifact: ArtifactPhoto, Subject: file.Filename, Err: err}
	}

	if err := u.photos.UpdateCasePhoto(ctx, caseID, key); err != nil {
		u.removeOrphan(ctx, key)
		u.logger.WithError(err).WithFields(logrus.Fields{
			"case_id":     caseID,
			"storage_key": key,
		}).Warn("failed to attach uploaded photo to case")
		return "", &Warning{Artifact: ArtifactPhoto, Subject: file.Filename, Err: fmt.Errorf("failed to update case photo: %w", err)}
	}

	return key, nil
}

// removeOrphan deletes a transferred blob that no record points at.
func (u *Uploader) removeOrphan(ctx context.Context, key string) {
	remover, ok := u.blobs.(BlobRemover)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), u.timeout)
	defer cancel()

	if err := remover.Delete(ctx, key); err != nil {
		u.logger.WithError(err).WithField("storage_key", key).Warn("failed to remove orphaned blob")
	}
}

// transfer uploads one file under its own deadline. If the blob client does
// not honour the deadline the transfer is abandoned and reported failed.
func (u *Uploader) transfer(ctx context.Context, key string, file File) error {
	if file.Open == nil {
		return errors.New("attachment has no content")
	}

	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	body, err := file.Open()
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", file.Filename, err)
	}

	errCh := make(chan error, 1)
	go func() {
		defer body.Close()
		errCh <- u.blobs.Upload(ctx, key, body, file.Size, contentTypeOrDefault(file.ContentType))
	}()

	select {
	case err := <-errCh:
		return utils.ErrorWrapOrNil(err, fmt.Sprintf("failed to upload %s", key))
	case <-ctx.Done():
		return fmt.Errorf("upload of %s abandoned: %w", key, ctx.Err())
	}
}

// DocumentStorageKey scopes a document under its case and type. The random
// segment keeps repeated uploads of the same filename apart.
func DocumentStorageKey(caseID, documentTypeID, filename string) string {
	return path.Join("cases", caseID, documentTypeID, utils.NanoIDSize(12)+"-"+SafeFilename(filename))
}

// PhotoStorageKey places profile images in their own namespace per case.
func PhotoStorageKey(caseID, filename string) string {
	ext := strings.ToLower(path.Ext(SafeFilename(filename)))
	return path.Join("photos", caseID, utils.NanoIDSize(12)+ext)
}

const maxFilenameLen = 100

// SafeFilename keeps letters, digits, dot, dash and underscore.
func SafeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))

	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}

	out := strings.Trim(b.String(), "._")
	if len(out) > maxFilenameLen {
		out = out[len(out)-maxFilenameLen:]
	}
	if out == "" {
		return "file"
	}
	return out
}

func contentTypeOrDefault(ct string) string {
	if strings.TrimSpace(ct) == "" {
		return "application/octet-stream"
	}
	return ct
}
