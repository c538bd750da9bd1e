package spool

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"caseflow/internal/utils"
)

var ErrInvalidKey = errors.New("invalid spool key")

// Dir stages uploaded attachments on local disk until the draft is
// submitted. Keys are "<draftID>/<random>-<name>" relative to the root.
type Dir struct {
	root    string
	maxSize int64
}

// New creates root if needed. maxSize <= 0 disables the size limit.
func New(root string, maxSize int64) (*Dir, error) {
	if root == "" {
		root = filepath.Join(os.TempDir(), "caseflow-spool")
	}
	if err := os.MkdirAll(root, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create spool dir %s: %w", root, err)
	}
	return &Dir{root: root, maxSize: maxSize}, nil
}

func (d *Dir) Put(draftID, name string, r io.Reader) (string, int64, error) {
	if !validSegment(draftID) {
		return "", 0, fmt.Errorf("%w: draft id %q", ErrInvalidKey, draftID)
	}

	dir := filepath.Join(d.root, draftID)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", 0, fmt.Errorf("failed to create draft spool dir: %w", err)
	}

	key := draftID + "/" + utils.NanoIDSize(10) + "-" + filepath.Base(name)
	path := filepath.Join(d.root, filepath.FromSlash(key))

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create spool file: %w", err)
	}

	src := r
	if d.maxSize > 0 {
		src = io.LimitReader(r, d.maxSize+1)
	}

	n, err := io.Copy(f, src)
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err == nil && d.maxSize > 0 && n > d.maxSize {
		err = fmt.Errorf("file exceeds %d bytes", d.maxSize)
	}
	if err != nil {
		_ = os.Remove(path)
		return "", 0, fmt.Errorf("failed to write spool file: %w", err)
	}

	return key, n, nil
}

func (d *Dir) Open(key string) (io.ReadCloser, error) {
	path, err := d.resolve(key)
	if err != nil {
		return nil, err
	}
	return os.Open(path)
}

// Remove deletes a staged file. A missing file is not an error.
func (d *Dir) Remove(key string) error {
	path, err := d.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// RemoveDraft deletes everything staged for a draft.
func (d *Dir) RemoveDraft(draftID string) error {
	if !validSegment(draftID) {
		return fmt.Errorf("%w: draft id %q", ErrInvalidKey, draftID)
	}
	return os.RemoveAll(filepath.Join(d.root, draftID))
}

func (d *Dir) resolve(key string) (string, error) {
	parts := strings.Split(key, "/")
	if len(parts) != 2 || !validSegment(parts[0]) || !validSegment(parts[1]) {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return filepath.Join(d.root, parts[0], parts[1]), nil
}

func validSegment(s string) bool {
	return s != "" && s != "." && s != ".." && !strings.ContainsAny(s, `/\`)
}
