package intake

import (
	"errors"
	"fmt"
	"strings"

	"caseflow/pkg/types"
)

var ErrUnknownCategory = errors.New("unknown category")

// Document type identifiers shared by every category table.
const (
	DocTypePassport          = "passport"
	DocTypeBankStatement     = "bank_statement"
	DocTypeInvitationLetter  = "invitation_letter"
	DocTypeAdmissionLetter   = "admission_letter"
	DocTypeTuitionReceipt    = "tuition_receipt"
	DocTypeJobOffer          = "job_offer"
	DocTypeResume            = "resume"
	DocTypeBirthCertificate  = "birth_certificate"
	DocTypeMarriageCert      = "marriage_certificate"
	DocTypePoliceCertificate = "police_certificate"
	DocTypeLanguageTest      = "language_test"
)

// CategoryRules describes what the form asks for a given category.
type CategoryRules struct {
	Category                   types.Category
	RequiresImmigrationDetails bool
	Documents                  []types.DocumentRequirement
}

type ruleDoc struct {
	typeID   string
	name     string
	required bool
}

var categoryDocuments = map[types.Category][]ruleDoc{
	types.CategoryVisitor: {
		{DocTypePassport, "Passport", true},
		{DocTypeBankStatement, "Bank statement (last 3 months)", true},
		{DocTypeInvitationLetter, "Invitation letter", false},
	},
	types.CategoryStudent: {
		{DocTypePassport, "Passport", true},
		{DocTypeAdmissionLetter, "Letter of acceptance", true},
		{DocTypeBankStatement, "Proof of funds", true},
		{DocTypeTuitionReceipt, "Tuition payment receipt", false},
	},
	types.CategoryWorker: {
		{DocTypePassport, "Passport", true},
		{DocTypeJobOffer, "Job offer", true},
		{DocTypeResume, "Resume", false},
	},
	types.CategoryPermanentResidence: {
		{DocTypeBirthCertificate, "Birth certificate", true},
		{DocTypePoliceCertificate, "Police certificate", true},
		{DocTypeLanguageTest, "Language test results", false},
		{DocTypeMarriageCert, "Marriage certificate", false},
	},
}

// RulesFor returns the static rules for a category. Unknown categories get
// empty rules rather than an error so callers can stay total.
func RulesFor(category types.Category) CategoryRules {
	rules := CategoryRules{
		Category:                   category,
		RequiresImmigrationDetails: category.IsPermanentResidence(),
	}

	docs := categoryDocuments[category]
	rules.Documents = make([]types.DocumentRequirement, 0, len(docs))
	for i, doc := range docs {
		rules.Documents = append(rules.Documents, types.DocumentRequirement{
			ID:             requirementID(category, doc.typeID),
			Category:       category,
			DocumentTypeID: doc.typeID,
			DisplayName:    doc.name,
			Required:       doc.required,
			DisplayOrder:   i + 1,
		})
	}

	return rules
}

func requirementID(category types.Category, typeID string) string {
	return fmt.Sprintf("%s:%s", categorySlug(category), typeID)
}

func categorySlug(category types.Category) string {
	switch category {
	case types.CategoryVisitor:
		return "visitor"
	case types.CategoryStudent:
		return "student"
	case types.CategoryWorker:
		return "worker"
	case types.CategoryPermanentResidence:
		return "permanent-residence"
	default:
		return strings.ToLower(strings.ReplaceAll(string(category), " ", "-"))
	}
}

var categoryAliases = map[string]types.Category{
	"visitor":              types.CategoryVisitor,
	"visiteur":             types.CategoryVisitor,
	"student":              types.CategoryStudent,
	"etudiant":             types.CategoryStudent,
	"étudiant":             types.CategoryStudent,
	"worker":               types.CategoryWorker,
	"travailleur":          types.CategoryWorker,
	"permanent-residence":  types.CategoryPermanentResidence,
	"permanent residence":  types.CategoryPermanentResidence,
	"résidence permanente": types.CategoryPermanentResidence,
	"residence permanente": types.CategoryPermanentResidence,
}

// ParseCategory accepts the canonical category value or one of its aliases.
func ParseCategory(raw string) (types.Category, error) {
	trimmed := strings.TrimSpace(raw)
	for _, c := range types.AllCategories {
		if string(c) == trimmed {
			return c, nil
		}
	}

	if c, ok := categoryAliases[strings.ToLower(trimmed)]; ok {
		return c, nil
	}

	return "", fmt.Errorf("%w: %q", ErrUnknownCategory, raw)
}
