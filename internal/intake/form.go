package intake

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"sort"
	"strings"
	"time"

	"caseflow/pkg/types"

	"github.com/go-playground/form/v4"
	"github.com/go-playground/validator/v10"
)

var (
	decoder  = form.NewDecoder()
	validate = newValidator()
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("form"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("category", func(fl validator.FieldLevel) bool {
		_, err := ParseCategory(fl.Field().String())
		return err == nil
	})
	return v
}

// Date is a calendar date submitted as YYYY-MM-DD.
type Date string

const dateLayout = "2006-01-02"

func (d Date) Time() (*time.Time, error) {
	if strings.TrimSpace(string(d)) == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, strings.TrimSpace(string(d)))
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", string(d), err)
	}
	return &t, nil
}

type PersonalInfo struct {
	FirstName      string `form:"first_name" json:"firstName" validate:"required,max=100"`
	LastName       string `form:"last_name" json:"lastName" validate:"required,max=100"`
	BirthDate      Date   `form:"birth_date" json:"birthDate" validate:"required,datetime=2006-01-02"`
	BirthPlace     string `form:"birth_place" json:"birthPlace" validate:"max=120"`
	Nationality    string `form:"nationality" json:"nationality" validate:"required,max=80"`
	PassportNumber string `form:"passport_number" json:"passportNumber" validate:"required,alphanum,min=6,max=12"`
	Email          string `form:"email" json:"email" validate:"required,email"`
	Phone          string `form:"phone" json:"phone" validate:"omitempty,e164"`
	Address        string `form:"address" json:"address" validate:"max=255"`
}

type ProfessionalInfo struct {
	Category   string `form:"category" json:"category" validate:"required,category"`
	Profession string `form:"profession" json:"profession" validate:"max=120"`
	Education  string `form:"education" json:"education" validate:"max=120"`
	Office     string `form:"office" json:"office" validate:"required,max=80"`
	TravelDate Date   `form:"travel_date" json:"travelDate" validate:"omitempty,datetime=2006-01-02"`
}

type ImmigrationDetails struct {
	Program          string `form:"program" json:"program" validate:"required,max=120"`
	HasSpouse        bool   `form:"has_spouse" json:"hasSpouse"`
	NumberOfChildren int    `form:"number_of_children" json:"numberOfChildren" validate:"min=0,max=15"`
}

type Child struct {
	FirstName string `form:"first_name" json:"firstName" validate:"required,max=100"`
	LastName  string `form:"last_name" json:"lastName" validate:"required,max=100"`
	Age       int    `form:"age" json:"age" validate:"min=0,max=30"`
}

type FamilyDetails struct {
	SpouseFirstName string  `form:"spouse_first_name" json:"spouseFirstName" validate:"max=100"`
	SpouseLastName  string  `form:"spouse_last_name" json:"spouseLastName" validate:"max=100"`
	SpouseAge       int     `form:"spouse_age" json:"spouseAge" validate:"omitempty,min=16,max=120"`
	Children        []Child `form:"children" json:"children" validate:"dive"`
}

type PhotoUpload struct {
	Airline         string `form:"airline" json:"airline" validate:"max=80"`
	FlightNumber    string `form:"flight_number" json:"flightNumber" validate:"omitempty,max=12"`
	DepartureDate   Date   `form:"departure_date" json:"departureDate" validate:"omitempty,datetime=2006-01-02"`
	TicketReference string `form:"ticket_reference" json:"ticketReference" validate:"max=40"`
	Notes           string `form:"notes" json:"notes" validate:"max=2000"`
}

// HasFlight reports whether any of the optional travel fields were filled.
func (p PhotoUpload) HasFlight() bool {
	return strings.TrimSpace(p.Airline) != "" ||
		strings.TrimSpace(p.FlightNumber) != "" ||
		strings.TrimSpace(string(p.DepartureDate)) != "" ||
		strings.TrimSpace(p.TicketReference) != ""
}

// Attachment is a file staged for a document type, not yet in blob storage.
type Attachment struct {
	DocumentTypeID string `json:"documentTypeId"`
	Filename       string `json:"filename"`
	ContentType    string `json:"contentType"`
	SizeBytes      int64  `json:"sizeBytes"`
	SpoolKey       string `json:"spoolKey"`
}

// FormState is the transient answer set of one intake session.
type FormState struct {
	PersonalInfo       PersonalInfo       `json:"personalInfo"`
	ProfessionalInfo   ProfessionalInfo   `json:"professionalInfo"`
	ImmigrationDetails ImmigrationDetails `json:"immigrationDetails"`
	FamilyDetails      FamilyDetails      `json:"familyDetails"`
	PhotoUpload        PhotoUpload        `json:"photoUpload"`

	Attachments       map[string]Attachment `json:"attachments,omitempty"`
	ActiveDocumentTab string                `json:"activeDocumentTab,omitempty"`
}

// Category returns the parsed category or "" while none is chosen.
func (f *FormState) Category() types.Category {
	c, err := ParseCategory(f.ProfessionalInfo.Category)
	if err != nil {
		return ""
	}
	return c
}

func (f *FormState) Answers() Answers {
	return Answers{
		Category:         f.Category(),
		HasSpouse:        f.ImmigrationDetails.HasSpouse,
		NumberOfChildren: f.ImmigrationDetails.NumberOfChildren,
	}
}

// SortedAttachments returns attachments ordered by document type for stable output.
func (f *FormState) SortedAttachments() []Attachment {
	out := make([]Attachment, 0, len(f.Attachments))
	for _, a := range f.Attachments {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DocumentTypeID < out[j].DocumentTypeID })
	return out
}

// ValidationError carries field level messages keyed by form field name.
type ValidationError struct {
	Step   types.Step
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return fmt.Sprintf("validation failed for %s: %s", e.Step, strings.Join(keys, ", "))
}

// IsValidationError unwraps err into a ValidationError.
func IsValidationError(err error) (*ValidationError, bool) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr, true
	}
	return nil, false
}

// DecodeSection decodes url values onto the section struct of step.
func DecodeSection(step types.Step, values url.Values) (any, error) {
	var section any
	switch step {
	case types.StepPersonalInfo:
		section = new(PersonalInfo)
	case types.StepProfessionalInfo:
		section = new(ProfessionalInfo)
	case types.StepImmigrationDetails:
		section = new(ImmigrationDetails)
	case types.StepFamilyDetails:
		section = new(FamilyDetails)
	case types.StepPhotoUpload:
		section = new(PhotoUpload)
	default:
		return nil, fmt.Errorf("%w: %s", ErrTerminalStep, step)
	}

	if err := decoder.Decode(section, values); err != nil {
		return nil, fmt.Errorf("failed to decode %s form: %w", step, err)
	}

	return section, nil
}

// ValidateSection runs struct validation and maps failures to field errors.
func ValidateSection(step types.Step, section any) error {
	err := validate.Struct(section)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("failed to validate %s: %w", step, err)
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fieldPath(fe)] = fieldMessage(fe)
	}

	return &ValidationError{Step: step, Fields: fields}
}

// fieldPath turns "FamilyDetails.children[1].first_name" into "children[1].first_name".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if idx := strings.Index(ns, "."); idx >= 0 {
		return ns[idx+1:]
	}
	return fe.Field()
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "email":
		return "Enter a valid email address."
	case "e164":
		return "Enter the phone number in international format, e.g. +15145550123."
	case "datetime":
		return "Enter a date as YYYY-MM-DD."
	case "alphanum":
		return "Only letters and digits are allowed."
	case "category":
		return "Choose a category from the list."
	case "min":
		return fmt.Sprintf("Must be at least %s.", fe.Param())
	case "max":
		return fmt.Sprintf("Must be at most %s.", fe.Param())
	default:
		return "Invalid value."
	}
}
