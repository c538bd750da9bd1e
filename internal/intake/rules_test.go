package intake

import (
	"testing"

	"caseflow/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requiredTypes(docs []types.DocumentRequirement) []string {
	var out []string
	for _, doc := range docs {
		if doc.Required {
			out = append(out, doc.DocumentTypeID)
		}
	}
	return out
}

func TestRulesFor(t *testing.T) {
	visitor := RulesFor(types.CategoryVisitor)
	assert.False(t, visitor.RequiresImmigrationDetails)
	assert.Equal(t, []string{DocTypePassport, DocTypeBankStatement}, requiredTypes(visitor.Documents))
	require.Len(t, visitor.Documents, 3)
	assert.Equal(t, "visitor:passport", visitor.Documents[0].ID)
	assert.Equal(t, 1, visitor.Documents[0].DisplayOrder)

	pr := RulesFor(types.CategoryPermanentResidence)
	assert.True(t, pr.RequiresImmigrationDetails)
	assert.Equal(t, []string{DocTypeBirthCertificate, DocTypePoliceCertificate}, requiredTypes(pr.Documents))

	unknown := RulesFor("Diplomat")
	assert.False(t, unknown.RequiresImmigrationDetails)
	assert.Empty(t, unknown.Documents)
}

func TestRulesForReturnsFreshSlices(t *testing.T) {
	first := RulesFor(types.CategoryStudent)
	first.Documents[0].DisplayName = "changed"

	second := RulesFor(types.CategoryStudent)
	assert.Equal(t, "Passport", second.Documents[0].DisplayName)
}

func TestParseCategory(t *testing.T) {
	tests := map[string]types.Category{
		"Visitor":              types.CategoryVisitor,
		" student ":            types.CategoryStudent,
		"travailleur":          types.CategoryWorker,
		"permanent-residence":  types.CategoryPermanentResidence,
		"Résidence Permanente": types.CategoryPermanentResidence,
	}

	for raw, want := range tests {
		got, err := ParseCategory(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}

	_, err := ParseCategory("astronaut")
	require.ErrorIs(t, err, ErrUnknownCategory)

	_, err = ParseCategory("")
	require.ErrorIs(t, err, ErrUnknownCategory)
}
