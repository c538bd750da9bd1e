package types

import (
	"errors"
	"time"
)

var (
	ErrCaseNotFound  = errors.New("case not found")
	ErrDraftNotFound = errors.New("draft not found")
)

type CaseStatus string

const (
	CaseStatusPending    CaseStatus = "pending"
	CaseStatusInProgress CaseStatus = "in_progress"
	CaseStatusApproved   CaseStatus = "approved"
	CaseStatusRejected   CaseStatus = "rejected"
	CaseStatusCompleted  CaseStatus = "completed"
	CaseStatusExpired    CaseStatus = "expired"
)

// IsTerminal reports whether staff processing of the case is over.
func (s CaseStatus) IsTerminal() bool {
	switch s {
	case CaseStatusApproved, CaseStatusRejected, CaseStatusCompleted, CaseStatusExpired:
		return true
	}
	return false
}

// Case is created once at submission. Only Status and PhotoPath change afterwards.
type Case struct {
	ID     string `db:"id"`
	UserID string `db:"user_id"`

	FirstName      string     `db:"first_name"`
	LastName       string     `db:"last_name"`
	BirthDate      *time.Time `db:"birth_date"`
	BirthPlace     *string    `db:"birth_place"`
	Nationality    *string    `db:"nationality"`
	PassportNumber string     `db:"passport_number"`
	Email          string     `db:"email"`
	Phone          *string    `db:"phone"`
	Address        *string    `db:"address"`

	Category   Category   `db:"category"`
	Status     CaseStatus `db:"status"`
	Office     *string    `db:"office"`
	Profession *string    `db:"profession"`
	Education  *string    `db:"education"`
	Notes      *string    `db:"notes"`
	PhotoPath  *string    `db:"photo_path"`

	TravelDate  *time.Time `db:"travel_date"`
	SubmittedAt time.Time  `db:"submitted_at"`
	CreatedAt   time.Time  `db:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at"`
}

func (c *Case) FullName() string {
	if c.FirstName == "" {
		return c.LastName
	}
	if c.LastName == "" {
		return c.FirstName
	}
	return c.FirstName + " " + c.LastName
}

// ResidencyDetails only exists for permanent residence cases, at most one per case.
type ResidencyDetails struct {
	ID              string    `db:"id"`
	CaseID          string    `db:"case_id"`
	Program         string    `db:"program"`
	NumberOfPersons int       `db:"number_of_persons"`
	HasSpouse       bool      `db:"has_spouse"`
	SpouseFirstName *string   `db:"spouse_first_name"`
	SpouseLastName  *string   `db:"spouse_last_name"`
	SpouseAge       *int      `db:"spouse_age"`
	CreatedAt       time.Time `db:"created_at"`
}

// FamilyMember is a child row owned by a ResidencyDetails record.
type FamilyMember struct {
	ID                 string    `db:"id"`
	ResidencyDetailsID string    `db:"residency_details_id"`
	LastName           string    `db:"last_name"`
	FirstName          string    `db:"first_name"`
	Age                int       `db:"age"`
	CreatedAt          time.Time `db:"created_at"`
}

type FlightDetails struct {
	ID              string     `db:"id"`
	CaseID          string     `db:"case_id"`
	Airline         *string    `db:"airline"`
	FlightNumber    *string    `db:"flight_number"`
	DepartureDate   *time.Time `db:"departure_date"`
	TicketReference *string    `db:"ticket_reference"`
	CreatedAt       time.Time  `db:"created_at"`
}

const HistoryActionCaseCreated = "file created"

// HistoryEntry is an append-only audit row.
type HistoryEntry struct {
	ID        string    `db:"id"`
	CaseID    string    `db:"case_id"`
	Action    string    `db:"action"`
	CreatedAt time.Time `db:"created_at"`
}
