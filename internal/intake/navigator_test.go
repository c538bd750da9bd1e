package intake

import (
	"testing"

	"caseflow/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextStep(t *testing.T) {
	pr := types.CategoryPermanentResidence

	tests := []struct {
		name    string
		step    types.Step
		answers Answers
		want    types.Step
	}{
		{"personal to professional", types.StepPersonalInfo, Answers{}, types.StepProfessionalInfo},
		{"visitor skips immigration", types.StepProfessionalInfo, Answers{Category: types.CategoryVisitor}, types.StepPhotoUpload},
		{"worker skips immigration", types.StepProfessionalInfo, Answers{Category: types.CategoryWorker}, types.StepPhotoUpload},
		{"no category skips immigration", types.StepProfessionalInfo, Answers{}, types.StepPhotoUpload},
		{"permanent residence to immigration", types.StepProfessionalInfo, Answers{Category: pr}, types.StepImmigrationDetails},
		{"single applicant skips family", types.StepImmigrationDetails, Answers{Category: pr}, types.StepPhotoUpload},
		{"spouse needs family", types.StepImmigrationDetails, Answers{Category: pr, HasSpouse: true}, types.StepFamilyDetails},
		{"children need family", types.StepImmigrationDetails, Answers{Category: pr, NumberOfChildren: 2}, types.StepFamilyDetails},
		{"family to photo", types.StepFamilyDetails, Answers{Category: pr, HasSpouse: true}, types.StepPhotoUpload},
		{"photo to submitted", types.StepPhotoUpload, Answers{}, types.StepSubmitted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NextStep(tt.step, tt.answers)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNextStepTerminal(t *testing.T) {
	_, err := NextStep(types.StepSubmitted, Answers{})
	require.ErrorIs(t, err, ErrTerminalStep)

	_, err = NextStep(types.Step("bogus"), Answers{})
	require.ErrorIs(t, err, ErrTerminalStep)

	_, err = PreviousStep(types.StepPersonalInfo, Answers{})
	require.ErrorIs(t, err, ErrTerminalStep)
}

func TestPreviousStepInvertsNextStep(t *testing.T) {
	answerSets := []Answers{
		{},
		{Category: types.CategoryVisitor},
		{Category: types.CategoryStudent},
		{Category: types.CategoryPermanentResidence},
		{Category: types.CategoryPermanentResidence, HasSpouse: true},
		{Category: types.CategoryPermanentResidence, NumberOfChildren: 3},
		{Category: types.CategoryPermanentResidence, HasSpouse: true, NumberOfChildren: 1},
	}

	for _, answers := range answerSets {
		visible := VisibleSteps(answers)
		for i := 1; i < len(visible); i++ {
			prev, err := PreviousStep(visible[i], answers)
			require.NoError(t, err)
			assert.Equal(t, visible[i-1], prev, "answers %+v step %s", answers, visible[i])
		}
	}
}

func TestVisibleSteps(t *testing.T) {
	assert.Equal(t, []types.Step{
		types.StepPersonalInfo,
		types.StepProfessionalInfo,
		types.StepPhotoUpload,
	}, VisibleSteps(Answers{Category: types.CategoryVisitor}))

	assert.Equal(t, []types.Step{
		types.StepPersonalInfo,
		types.StepProfessionalInfo,
		types.StepImmigrationDetails,
		types.StepFamilyDetails,
		types.StepPhotoUpload,
	}, VisibleSteps(Answers{Category: types.CategoryPermanentResidence, NumberOfChildren: 2}))
}

func TestNonPermanentCategoriesNeverReachImmigration(t *testing.T) {
	for _, c := range types.AllCategories {
		if c.IsPermanentResidence() {
			continue
		}
		for _, answers := range []Answers{
			{Category: c},
			{Category: c, HasSpouse: true, NumberOfChildren: 4},
		} {
			steps := VisibleSteps(answers)
			assert.NotContains(t, steps, types.StepImmigrationDetails, c)
			assert.NotContains(t, steps, types.StepFamilyDetails, c)
		}
	}
}

func TestIsStep(t *testing.T) {
	assert.True(t, IsStep(types.StepFamilyDetails))
	assert.False(t, IsStep(types.StepSubmitted))
	assert.False(t, IsStep("other"))
}
