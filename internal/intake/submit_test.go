package intake

import (
	"context"
	"testing"
	"time"

	"caseflow/internal/utils"
	"caseflow/pkg/types"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSubmitter(t *testing.T, stores *fakeStores, blobs *fakeBlobs) *Submitter {
	t.Helper()
	logger, _ := test.NewNullLogger()
	uploader := NewUploader(blobs, stores, stores, logger, UploaderConfig{Concurrency: 2, Timeout: time.Second})
	return NewSubmitter(stores.stores(), uploader, logger)
}

func visitorSubmission() Submission {
	return Submission{
		Case: &types.Case{
			UserID:         "user1",
			FirstName:      "Lina",
			LastName:       "Haddad",
			PassportNumber: "P998877",
			Email:          "lina@example.com",
			Category:       types.CategoryVisitor,
		},
		Documents: map[string]File{
			DocTypePassport:      memFile(DocTypePassport, "passport.pdf", "p"),
			DocTypeBankStatement: memFile(DocTypeBankStatement, "bank.pdf", "b"),
		},
	}
}

func TestSubmitVisitor(t *testing.T) {
	stores := newFakeStores()
	s := newTestSubmitter(t, stores, newFakeBlobs())

	result, err := s.Submit(context.Background(), visitorSubmission())
	require.NoError(t, err)
	assert.False(t, result.Degraded())

	require.Len(t, stores.cases, 1)
	c := stores.cases[0]
	assert.NotEmpty(t, c.ID)
	assert.Equal(t, types.CaseStatusPending, c.Status)

	require.Len(t, stores.history, 1)
	assert.Equal(t, types.HistoryActionCaseCreated, stores.history[0].Action)
	assert.Equal(t, c.ID, stores.history[0].CaseID)

	assert.Empty(t, stores.residency)
	assert.Zero(t, stores.familyCalls)
	assert.Empty(t, stores.flights)

	assert.Len(t, stores.documents, 2)
	assert.Equal(t, 80, Progress(c.Status, RulesFor(c.Category).Documents, result.Documents))
}

func TestSubmitCaseFailureWritesNothingElse(t *testing.T) {
	stores := newFakeStores()
	stores.caseErr = errBoom
	blobs := newFakeBlobs()
	s := newTestSubmitter(t, stores, blobs)

	sub := visitorSubmission()
	photo := memFile("", "me.jpg", "img")
	sub.Photo = &photo

	result, err := s.Submit(context.Background(), sub)
	require.ErrorIs(t, err, ErrCaseCreation)
	require.ErrorIs(t, err, errBoom)
	assert.Nil(t, result)
	assert.Zero(t, stores.writesAfterCase())
	assert.Empty(t, blobs.keys())
}

func permanentResidenceSubmission() Submission {
	return Submission{
		Case: &types.Case{
			UserID:    "user2",
			FirstName: "Karim",
			LastName:  "Benali",
			Category:  types.CategoryPermanentResidence,
		},
		Residency: &types.ResidencyDetails{Program: "Express Entry", NumberOfPersons: 3},
		Children: []types.FamilyMember{
			{FirstName: "Sara", LastName: "Benali", Age: 8},
			{FirstName: "Adam", LastName: "Benali", Age: 5},
		},
	}
}

func TestSubmitPermanentResidence(t *testing.T) {
	stores := newFakeStores()
	s := newTestSubmitter(t, stores, newFakeBlobs())

	result, err := s.Submit(context.Background(), permanentResidenceSubmission())
	require.NoError(t, err)
	assert.Empty(t, result.Warnings)

	require.Len(t, stores.residency, 1)
	residencyID := stores.residency[0].ID
	assert.Equal(t, result.Case.ID, stores.residency[0].CaseID)

	require.Len(t, stores.families, 1)
	require.Len(t, stores.families[0], 2)
	for _, member := range stores.families[0] {
		assert.Equal(t, residencyID, member.ResidencyDetailsID)
	}
}

func TestSubmitResidencyFailureSkipsFamily(t *testing.T) {
	stores := newFakeStores()
	stores.residencyErr = errBoom
	s := newTestSubmitter(t, stores, newFakeBlobs())

	result, err := s.Submit(context.Background(), permanentResidenceSubmission())
	require.NoError(t, err)
	require.Len(t, stores.cases, 1)
	assert.Zero(t, stores.familyCalls)

	require.Len(t, result.Warnings, 2)
	assert.Equal(t, ArtifactResidency, result.Warnings[0].Artifact)
	assert.Equal(t, ArtifactFamily, result.Warnings[1].Artifact)
}

func TestSubmitFamilyFailureIsWarning(t *testing.T) {
	stores := newFakeStores()
	stores.familyErr = errBoom
	s := newTestSubmitter(t, stores, newFakeBlobs())

	result, err := s.Submit(context.Background(), permanentResidenceSubmission())
	require.NoError(t, err)
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, ArtifactFamily, result.Warnings[0].Artifact)
	assert.Equal(t, "Sara Benali, Adam Benali", result.Warnings[0].Subject)
	assert.NotNil(t, result.Residency)
}

func TestSubmitDegradedStepsAreIndependent(t *testing.T) {
	stores := newFakeStores()
	stores.historyErr = errBoom
	stores.flightErr = errBoom
	blobs := newFakeBlobs()
	blobs.failOn["photos/"] = errBoom
	s := newTestSubmitter(t, stores, blobs)

	sub := visitorSubmission()
	photo := memFile("", "me.jpg", "img")
	sub.Photo = &photo
	sub.Flight = &types.FlightDetails{FlightNumber: utils.NonEmptyPtr("AC870")}

	result, err := s.Submit(context.Background(), sub)
	require.NoError(t, err)
	assert.True(t, result.Degraded())

	artifacts := make([]Artifact, 0, len(result.Warnings))
	for _, w := range result.Warnings {
		artifacts = append(artifacts, w.Artifact)
	}
	assert.Equal(t, []Artifact{ArtifactPhoto, ArtifactHistory, ArtifactFlight}, artifacts)
	assert.Empty(t, result.PhotoPath)
	assert.Nil(t, result.Case.PhotoPath)
	assert.Len(t, stores.documents, 2)
}

func TestSubmitIgnoresResidencyForOtherCategories(t *testing.T) {
	stores := newFakeStores()
	s := newTestSubmitter(t, stores, newFakeBlobs())

	sub := visitorSubmission()
	sub.Residency = &types.ResidencyDetails{Program: "x"}

	_, err := s.Submit(context.Background(), sub)
	require.NoError(t, err)
	assert.Empty(t, stores.residency)
}

func TestBuildSubmission(t *testing.T) {
	form := &FormState{
		PersonalInfo: PersonalInfo{
			FirstName:      " Karim ",
			LastName:       "Benali",
			BirthDate:      "1985-01-20",
			Nationality:    "Algerian",
			PassportNumber: "ab123456",
			Email:          "karim@example.com",
		},
		ProfessionalInfo: ProfessionalInfo{Category: "permanent-residence", Office: "Paris"},
		ImmigrationDetails: ImmigrationDetails{
			Program:          "Express Entry",
			HasSpouse:        true,
			NumberOfChildren: 1,
		},
		FamilyDetails: FamilyDetails{
			SpouseFirstName: "Nadia",
			SpouseLastName:  "Benali",
			SpouseAge:       36,
			Children:        []Child{{FirstName: "Sara", LastName: "Benali", Age: 8}},
		},
		PhotoUpload: PhotoUpload{FlightNumber: "af344", DepartureDate: "2026-11-02"},
	}

	sub, err := BuildSubmission("user2", form, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, "Karim", sub.Case.FirstName)
	assert.Equal(t, "AB123456", sub.Case.PassportNumber)
	assert.Equal(t, types.CategoryPermanentResidence, sub.Case.Category)
	require.NotNil(t, sub.Case.BirthDate)
	assert.Equal(t, 1985, sub.Case.BirthDate.Year())

	require.NotNil(t, sub.Residency)
	assert.Equal(t, 3, sub.Residency.NumberOfPersons)
	assert.Equal(t, "Nadia", utils.PtrString(sub.Residency.SpouseFirstName))
	require.NotNil(t, sub.Residency.SpouseAge)
	assert.Equal(t, 36, *sub.Residency.SpouseAge)
	assert.Len(t, sub.Children, 1)

	require.NotNil(t, sub.Flight)
	assert.Equal(t, "AF344", utils.PtrString(sub.Flight.FlightNumber))
}

func TestBuildSubmissionVisitorHasNoResidency(t *testing.T) {
	form := &FormState{
		PersonalInfo:     PersonalInfo{FirstName: "Lina", LastName: "Haddad", BirthDate: "1990-05-05"},
		ProfessionalInfo: ProfessionalInfo{Category: "Visitor"},
		ImmigrationDetails: ImmigrationDetails{
			Program:          "stale",
			NumberOfChildren: 2,
		},
	}

	sub, err := BuildSubmission("user1", form, nil, nil)
	require.NoError(t, err)
	assert.Nil(t, sub.Residency)
	assert.Empty(t, sub.Children)
	assert.Nil(t, sub.Flight)
}
