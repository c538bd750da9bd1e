package server

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"time"

	"caseflow/pkg/types"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	cognitotypes "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
)

type fakeAuth struct {
	token string
	err   error
	calls int

	signUpErr  error
	confirmErr error
	signUps    []*cognitoidentityprovider.SignUpInput
	confirms   []*cognitoidentityprovider.ConfirmSignUpInput
}

func (f *fakeAuth) SignUp(_ context.Context, params *cognitoidentityprovider.SignUpInput, _ ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.SignUpOutput, error) {
	f.signUps = append(f.signUps, params)
	if f.signUpErr != nil {
		return nil, f.signUpErr
	}
	return &cognitoidentityprovider.SignUpOutput{UserConfirmed: false}, nil
}

func (f *fakeAuth) ConfirmSignUp(_ context.Context, params *cognitoidentityprovider.ConfirmSignUpInput, _ ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.ConfirmSignUpOutput, error) {
	f.confirms = append(f.confirms, params)
	if f.confirmErr != nil {
		return nil, f.confirmErr
	}
	return &cognitoidentityprovider.ConfirmSignUpOutput{}, nil
}

func (f *fakeAuth) InitiateAuth(_ context.Context, params *cognitoidentityprovider.InitiateAuthInput, _ ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.InitiateAuthOutput, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &cognitoidentityprovider.InitiateAuthOutput{
		AuthenticationResult: &cognitotypes.AuthenticationResultType{
			AccessToken: aws.String(f.token),
			ExpiresIn:   3600,
		},
	}, nil
}

type fakeVerifier struct {
	identities map[string]Identity
}

func (f *fakeVerifier) Verify(_ context.Context, token string) (Identity, error) {
	identity, ok := f.identities[token]
	if !ok {
		return Identity{}, errors.New("token rejected")
	}
	return identity, nil
}

// memStore is an in-memory stand-in for every Postgres repository the
// server reads from and the submitter writes to.
type memStore struct {
	mu        sync.Mutex
	cases     map[string]*types.Case
	documents map[string][]types.CaseDocument
	history   map[string][]*types.HistoryEntry
	residency map[string]*types.ResidencyDetails
	family    map[string][]*types.FamilyMember
	flights   map[string]*types.FlightDetails

	createCaseErr error
	historyErr    error
}

func newMemStore() *memStore {
	return &memStore{
		cases:     make(map[string]*types.Case),
		documents: make(map[string][]types.CaseDocument),
		history:   make(map[string][]*types.HistoryEntry),
		residency: make(map[string]*types.ResidencyDetails),
		family:    make(map[string][]*types.FamilyMember),
		flights:   make(map[string]*types.FlightDetails),
	}
}

func (m *memStore) CreateCase(_ context.Context, c *types.Case) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createCaseErr != nil {
		return m.createCaseErr
	}
	cp := *c
	m.cases[c.ID] = &cp
	return nil
}

func (m *memStore) UpdateCasePhoto(_ context.Context, caseID, photoPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cases[caseID]
	if !ok {
		return types.ErrCaseNotFound
	}
	c.PhotoPath = &photoPath
	return nil
}

func (m *memStore) CreateHistoryEntry(_ context.Context, entry *types.HistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.historyErr != nil {
		return m.historyErr
	}
	m.history[entry.CaseID] = append(m.history[entry.CaseID], entry)
	return nil
}

func (m *memStore) CreateResidencyDetails(_ context.Context, details *types.ResidencyDetails) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.residency[details.CaseID] = details
	return nil
}

func (m *memStore) CreateFamilyMembers(_ context.Context, members []*types.FamilyMember) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, member := range members {
		m.family[member.ResidencyDetailsID] = append(m.family[member.ResidencyDetailsID], member)
	}
	return nil
}

func (m *memStore) CreateFlightDetails(_ context.Context, flight *types.FlightDetails) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.flights[flight.CaseID] = flight
	return nil
}

func (m *memStore) CreateDocument(_ context.Context, doc *types.CaseDocument) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.documents[doc.CaseID] = append(m.documents[doc.CaseID], *doc)
	return nil
}

func (m *memStore) CasesByUser(_ context.Context, userID string) ([]*types.Case, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*types.Case
	for _, c := range m.cases {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) CaseByUserAndID(_ context.Context, userID, caseID string) (*types.Case, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cases[caseID]
	if !ok || c.UserID != userID {
		return nil, types.ErrCaseNotFound
	}
	return c, nil
}

func (m *memStore) DocumentsByCaseID(_ context.Context, caseID string) ([]types.CaseDocument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.documents[caseID], nil
}

func (m *memStore) DocumentsByCaseIDs(_ context.Context, caseIDs []string) (map[string][]types.CaseDocument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string][]types.CaseDocument, len(caseIDs))
	for _, id := range caseIDs {
		out[id] = m.documents[id]
	}
	return out, nil
}

func (m *memStore) HistoryByCaseID(_ context.Context, caseID string) ([]*types.HistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.history[caseID], nil
}

func (m *memStore) ResidencyByCaseID(_ context.Context, caseID string) (*types.ResidencyDetails, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.residency[caseID], nil
}

func (m *memStore) FamilyMembers(_ context.Context, residencyDetailsID string) ([]*types.FamilyMember, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.family[residencyDetailsID], nil
}

func (m *memStore) FlightByCaseID(_ context.Context, caseID string) (*types.FlightDetails, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.flights[caseID], nil
}

func (m *memStore) onlyCase() *types.Case {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.cases {
		return c
	}
	return nil
}

type memBlobs struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemBlobs() *memBlobs {
	return &memBlobs{objects: make(map[string][]byte)}
}

func (b *memBlobs) Upload(_ context.Context, key string, body io.Reader, _ int64, _ string) error {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, body); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[key] = buf.Bytes()
	return nil
}

func (b *memBlobs) keys() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.objects))
	for k := range b.objects {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// submittedElsewhere deletes the draft just before the submit guard is taken,
// as if a parallel request had finished submitting it.
type submittedElsewhere struct {
	DraftStore
	userID string
}

func (d *submittedElsewhere) AcquireSubmit(ctx context.Context, id string, ttl time.Duration) (bool, error) {
	if err := d.DraftStore.Delete(ctx, d.userID, id); err != nil {
		return false, err
	}
	return d.DraftStore.AcquireSubmit(ctx, id, ttl)
}
