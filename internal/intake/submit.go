package intake

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"caseflow/internal/utils"
	"caseflow/pkg/types"

	"github.com/sirupsen/logrus"
)

var ErrCaseCreation = errors.New("failed to create case")

type CaseStore interface {
	CreateCase(ctx context.Context, c *types.Case) error
	UpdateCasePhoto(ctx context.Context, caseID, photoPath string) error
}

type HistoryStore interface {
	CreateHistoryEntry(ctx context.Context, entry *types.HistoryEntry) error
}

type ResidencyStore interface {
	CreateResidencyDetails(ctx context.Context, details *types.ResidencyDetails) error
}

type FamilyStore interface {
	CreateFamilyMembers(ctx context.Context, members []*types.FamilyMember) error
}

type FlightStore interface {
	CreateFlightDetails(ctx context.Context, flight *types.FlightDetails) error
}

// Stores groups the persistent store ports the submitter writes to. None of
// them share a transaction.
type Stores struct {
	Cases     CaseStore
	History   HistoryStore
	Residency ResidencyStore
	Family    FamilyStore
	Flights   FlightStore
}

// Submission is a validated application ready to be written.
type Submission struct {
	Case      *types.Case
	Residency *types.ResidencyDetails
	Children  []types.FamilyMember
	Flight    *types.FlightDetails
	Photo     *File
	Documents map[string]File
}

type SubmitResult struct {
	Case          *types.Case
	PhotoPath     string
	Residency     *types.ResidencyDetails
	FamilyMembers []*types.FamilyMember
	Documents     []types.CaseDocument
	Warnings      []Warning
}

// Degraded reports whether any post-case step failed.
func (r *SubmitResult) Degraded() bool {
	return len(r.Warnings) > 0
}

// Submitter writes a submission as an ordered series of independent writes.
// Only the case insert is fatal; everything after it degrades to warnings and
// nothing is rolled back.
type Submitter struct {
	stores   Stores
	uploader *Uploader
	logger   logrus.FieldLogger
	now      func() time.Time
}

func NewSubmitter(stores Stores, uploader *Uploader, logger logrus.FieldLogger) *Submitter {
	return &Submitter{
		stores:   stores,
		uploader: uploader,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *Submitter) Submit(ctx context.Context, sub Submission) (*SubmitResult, error) {
	if sub.Case == nil {
		return nil, fmt.Errorf("%w: submission has no case", ErrCaseCreation)
	}

	now := s.now()
	c := sub.Case
	if c.ID == "" {
		c.ID = utils.NanoID()
	}
	if c.Status == "" {
		c.Status = types.CaseStatusPending
	}
	c.SubmittedAt = now

	if err := s.stores.Cases.CreateCase(ctx, c); err != nil {
		s.logger.WithError(err).WithField("user_id", c.UserID).Error("failed to create case")
		return nil, fmt.Errorf("%w: %w", ErrCaseCreation, err)
	}

	logger := s.logger.WithField("case_id", c.ID)
	result := &SubmitResult{Case: c}

	if sub.Photo != nil {
		photoPath, warning := s.uploader.UploadPhoto(ctx, c.ID, *sub.Photo)
		if warning != nil {
			result.Warnings = append(result.Warnings, *warning)
		} else {
			result.PhotoPath = photoPath
			c.PhotoPath = &photoPath
		}
	}

	entry := &types.HistoryEntry{
		ID:        utils.NanoID(),
		CaseID:    c.ID,
		Action:    types.HistoryActionCaseCreated,
		CreatedAt: now,
	}
	if err := s.stores.History.CreateHistoryEntry(ctx, entry); err != nil {
		logger.WithError(err).Warn("failed to write case history entry")
		result.Warnings = append(result.Warnings, Warning{Artifact: ArtifactHistory, Subject: entry.Action, Err: err})
	}

	if c.Category.IsPermanentResidence() && sub.Residency != nil {
		s.writeResidency(ctx, logger, c, sub, result)
	} else if sub.Residency != nil {
		logger.WithField("category", c.Category).Warn("ignoring residency details for non permanent residence case")
	}

	if sub.Flight != nil {
		flight := *sub.Flight
		flight.ID = utils.NanoID()
		flight.CaseID = c.ID
		flight.CreatedAt = now
		if err := s.stores.Flights.CreateFlightDetails(ctx, &flight); err != nil {
			logger.WithError(err).Warn("failed to write flight details")
			result.Warnings = append(result.Warnings, Warning{Artifact: ArtifactFlight, Subject: utils.PtrString(flight.FlightNumber), Err: err})
		}
	}

	if len(sub.Documents) > 0 {
		report := s.uploader.UploadDocuments(ctx, c.ID, sub.Documents)
		result.Documents = report.Documents
		result.Warnings = append(result.Warnings, report.Warnings...)
	}

	logger.WithFields(logrus.Fields{
		"documents": len(result.Documents),
		"warnings":  len(result.Warnings),
	}).Info("case submitted")

	return result, nil
}

// writeResidency creates the residency row and, only once its id exists,
// the family member batch that references it.
func (s *Submitter) writeResidency(ctx context.Context, logger logrus.FieldLogger, c *types.Case, sub Submission, result *SubmitResult) {
	now := s.now()

	residency := *sub.Residency
	residency.ID = utils.NanoID()
	residency.CaseID = c.ID
	residency.CreatedAt = now

	if err := s.stores.Residency.CreateResidencyDetails(ctx, &residency); err != nil {
		logger.WithError(err).Warn("failed to write residency details")
		result.Warnings = append(result.Warnings, Warning{Artifact: ArtifactResidency, Subject: residency.Program, Err: err})
		if len(sub.Children) > 0 {
			result.Warnings = append(result.Warnings, Warning{
				Artifact: ArtifactFamily,
				Subject:  fmt.Sprintf("%d children", len(sub.Children)),
				Err:      errors.New("skipped because residency details were not saved"),
			})
		}
		return
	}
	result.Residency = &residency

	if len(sub.Children) == 0 {
		return
	}

	members := make([]*types.FamilyMember, 0, len(sub.Children))
	for _, child := range sub.Children {
		member := child
		member.ID = utils.NanoID()
		member.ResidencyDetailsID = residency.ID
		member.CreatedAt = now
		members = append(members, &member)
	}

	if err := s.stores.Family.CreateFamilyMembers(ctx, members); err != nil {
		logger.WithError(err).WithField("residency_details_id", residency.ID).Warn("failed to write family members")
		result.Warnings = append(result.Warnings, Warning{Artifact: ArtifactFamily, Subject: familySubject(members), Err: err})
		return
	}
	result.FamilyMembers = members
}

func familySubject(members []*types.FamilyMember) string {
	names := make([]string, 0, len(members))
	for _, m := range members {
		names = append(names, strings.TrimSpace(m.FirstName+" "+m.LastName))
	}
	return strings.Join(names, ", ")
}

// BuildSubmission converts a completed form and its opened attachments into
// a submission for userID.
func BuildSubmission(userID string, form *FormState, documents map[string]File, photo *File) (Submission, error) {
	personal := form.PersonalInfo
	professional := form.ProfessionalInfo

	category, err := ParseCategory(professional.Category)
	if err != nil {
		return Submission{}, err
	}

	birthDate, err := personal.BirthDate.Time()
	if err != nil {
		return Submission{}, err
	}

	travelDate, err := professional.TravelDate.Time()
	if err != nil {
		return Submission{}, err
	}

	c := &types.Case{
		UserID:         userID,
		FirstName:      strings.TrimSpace(personal.FirstName),
		LastName:       strings.TrimSpace(personal.LastName),
		BirthDate:      birthDate,
		BirthPlace:     utils.NonEmptyPtr(personal.BirthPlace),
		Nationality:    utils.NonEmptyPtr(personal.Nationality),
		PassportNumber: strings.ToUpper(strings.TrimSpace(personal.PassportNumber)),
		Email:          strings.TrimSpace(personal.Email),
		Phone:          utils.NonEmptyPtr(personal.Phone),
		Address:        utils.NonEmptyPtr(personal.Address),
		Category:       category,
		Status:         types.CaseStatusPending,
		Office:         utils.NonEmptyPtr(professional.Office),
		Profession:     utils.NonEmptyPtr(professional.Profession),
		Education:      utils.NonEmptyPtr(professional.Education),
		Notes:          utils.NonEmptyPtr(form.PhotoUpload.Notes),
		TravelDate:     travelDate,
	}

	sub := Submission{
		Case:      c,
		Photo:     photo,
		Documents: documents,
	}

	if category.IsPermanentResidence() {
		immigration := form.ImmigrationDetails
		family := form.FamilyDetails

		residency := &types.ResidencyDetails{
			Program:         strings.TrimSpace(immigration.Program),
			NumberOfPersons: 1 + immigration.NumberOfChildren,
			HasSpouse:       immigration.HasSpouse,
		}
		if immigration.HasSpouse {
			residency.NumberOfPersons++
			residency.SpouseFirstName = utils.NonEmptyPtr(family.SpouseFirstName)
			residency.SpouseLastName = utils.NonEmptyPtr(family.SpouseLastName)
			if family.SpouseAge > 0 {
				residency.SpouseAge = utils.IntPtr(family.SpouseAge)
			}
		}
		sub.Residency = residency

		if immigration.NumberOfChildren > 0 {
			for _, child := range family.Children {
				sub.Children = append(sub.Children, types.FamilyMember{
					FirstName: strings.TrimSpace(child.FirstName),
					LastName:  strings.TrimSpace(child.LastName),
					Age:       child.Age,
				})
			}
		}
	}

	if form.PhotoUpload.HasFlight() {
		departure, err := form.PhotoUpload.DepartureDate.Time()
		if err != nil {
			return Submission{}, err
		}
		sub.Flight = &types.FlightDetails{
			Airline:         utils.NonEmptyPtr(form.PhotoUpload.Airline),
			FlightNumber:    utils.NonEmptyPtr(strings.ToUpper(form.PhotoUpload.FlightNumber)),
			DepartureDate:   departure,
			TicketReference: utils.NonEmptyPtr(form.PhotoUpload.TicketReference),
		}
	}

	return sub, nil
}
