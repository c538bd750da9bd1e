package intake

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"caseflow/pkg/types"
)

var errBoom = errors.New("boom")

type fakeBlobs struct {
	mu      sync.Mutex
	objects map[string][]byte
	failOn  map[string]error
	hang    map[string]bool
	deleted []string
}

func newFakeBlobs() *fakeBlobs {
	return &fakeBlobs{
		objects: make(map[string][]byte),
		failOn:  make(map[string]error),
		hang:    make(map[string]bool),
	}
}

// Upload fails or blocks when the key contains a configured fragment. A
// hanging upload ignores ctx to mimic a client without deadline support.
func (f *fakeBlobs) Upload(_ context.Context, key string, body io.Reader, _ int64, _ string) error {
	for fragment := range f.hang {
		if strings.Contains(key, fragment) {
			select {}
		}
	}
	for fragment, err := range f.failOn {
		if strings.Contains(key, fragment) {
			return err
		}
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = data
	return nil
}

func (f *fakeBlobs) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeBlobs) keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.objects))
	for k := range f.objects {
		out = append(out, k)
	}
	return out
}

type fakeStores struct {
	mu sync.Mutex

	cases     []*types.Case
	photos    map[string]string
	documents []*types.CaseDocument
	history   []*types.HistoryEntry
	residency []*types.ResidencyDetails
	families  [][]*types.FamilyMember
	flights   []*types.FlightDetails

	caseErr      error
	photoErr     error
	documentErr  error
	historyErr   error
	residencyErr error
	familyErr    error
	flightErr    error

	familyCalls int
}

func newFakeStores() *fakeStores {
	return &fakeStores{photos: make(map[string]string)}
}

func (f *fakeStores) stores() Stores {
	return Stores{Cases: f, History: f, Residency: f, Family: f, Flights: f}
}

func (f *fakeStores) CreateCase(_ context.Context, c *types.Case) error {
	if f.caseErr != nil {
		return f.caseErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cases = append(f.cases, c)
	return nil
}

func (f *fakeStores) UpdateCasePhoto(_ context.Context, caseID, photoPath string) error {
	if f.photoErr != nil {
		return f.photoErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.photos[caseID] = photoPath
	return nil
}

func (f *fakeStores) CreateDocument(_ context.Context, doc *types.CaseDocument) error {
	if f.documentErr != nil {
		return f.documentErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.documents = append(f.documents, doc)
	return nil
}

func (f *fakeStores) CreateHistoryEntry(_ context.Context, entry *types.HistoryEntry) error {
	if f.historyErr != nil {
		return f.historyErr
	}
	f.history = append(f.history, entry)
	return nil
}

func (f *fakeStores) CreateResidencyDetails(_ context.Context, details *types.ResidencyDetails) error {
	if f.residencyErr != nil {
		return f.residencyErr
	}
	f.residency = append(f.residency, details)
	return nil
}

func (f *fakeStores) CreateFamilyMembers(_ context.Context, members []*types.FamilyMember) error {
	f.familyCalls++
	if f.familyErr != nil {
		return f.familyErr
	}
	f.families = append(f.families, members)
	return nil
}

func (f *fakeStores) CreateFlightDetails(_ context.Context, flight *types.FlightDetails) error {
	if f.flightErr != nil {
		return f.flightErr
	}
	f.flights = append(f.flights, flight)
	return nil
}

// writesAfterCase counts every record written by a post-case step.
func (f *fakeStores) writesAfterCase() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.photos) + len(f.documents) + len(f.history) + len(f.residency) + f.familyCalls + len(f.flights)
}

func memFile(typeID, name, content string) File {
	return File{
		DocumentTypeID: typeID,
		Filename:       name,
		ContentType:    "application/pdf",
		Size:           int64(len(content)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader(content)), nil
		},
	}
}

type memSpool struct {
	mu      sync.Mutex
	files   map[string][]byte
	removed []string
	seq     int
}

func newMemSpool() *memSpool {
	return &memSpool{files: make(map[string][]byte)}
}

func (m *memSpool) Put(draftID, name string, r io.Reader) (string, int64, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	key := fmt.Sprintf("%s/%d-%s", draftID, m.seq, name)
	m.files[key] = data
	return key, int64(len(data)), nil
}

func (m *memSpool) Open(key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[key]
	if !ok {
		return nil, fmt.Errorf("spool key %s not found", key)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memSpool) Remove(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, key)
	m.removed = append(m.removed, key)
	return nil
}

type funcSource func(ctx context.Context, category types.Category) ([]types.DocumentRequirement, error)

func (f funcSource) Requirements(ctx context.Context, category types.Category) ([]types.DocumentRequirement, error) {
	return f(ctx, category)
}
