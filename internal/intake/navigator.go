package intake

import (
	"errors"

	"caseflow/pkg/types"
)

var ErrTerminalStep = errors.New("no transition from step")

// Answers are the upstream values that decide which sections are visible.
type Answers struct {
	Category         types.Category
	HasSpouse        bool
	NumberOfChildren int
}

func (a Answers) needsFamilyDetails() bool {
	return a.HasSpouse || a.NumberOfChildren > 0
}

// Steps lists the sections in display order.
var Steps = []types.Step{
	types.StepPersonalInfo,
	types.StepProfessionalInfo,
	types.StepImmigrationDetails,
	types.StepFamilyDetails,
	types.StepPhotoUpload,
}

// InitialStep is where every session starts.
const InitialStep = types.StepPersonalInfo

// NextStep returns the section following step. PhotoUpload leads to the
// terminal Submitted step. Unknown steps and Submitted return ErrTerminalStep.
func NextStep(step types.Step, answers Answers) (types.Step, error) {
	switch step {
	case types.StepPersonalInfo:
		return types.StepProfessionalInfo, nil
	case types.StepProfessionalInfo:
		if RulesFor(answers.Category).RequiresImmigrationDetails {
			return types.StepImmigrationDetails, nil
		}
		return types.StepPhotoUpload, nil
	case types.StepImmigrationDetails:
		if answers.needsFamilyDetails() {
			return types.StepFamilyDetails, nil
		}
		return types.StepPhotoUpload, nil
	case types.StepFamilyDetails:
		return types.StepPhotoUpload, nil
	case types.StepPhotoUpload:
		return types.StepSubmitted, nil
	}
	return step, ErrTerminalStep
}

// PreviousStep is the structural inverse of NextStep, computed from the
// current answers. There is no history stack: if an upstream answer changed
// after moving forward, going back skips sections that no longer apply.
func PreviousStep(step types.Step, answers Answers) (types.Step, error) {
	switch step {
	case types.StepProfessionalInfo:
		return types.StepPersonalInfo, nil
	case types.StepImmigrationDetails:
		return types.StepProfessionalInfo, nil
	case types.StepFamilyDetails:
		return types.StepImmigrationDetails, nil
	case types.StepPhotoUpload:
		if !RulesFor(answers.Category).RequiresImmigrationDetails {
			return types.StepProfessionalInfo, nil
		}
		if answers.needsFamilyDetails() {
			return types.StepFamilyDetails, nil
		}
		return types.StepImmigrationDetails, nil
	}
	return step, ErrTerminalStep
}

// VisibleSteps walks NextStep from the initial step and returns the sections
// the current answers make applicable, in order.
func VisibleSteps(answers Answers) []types.Step {
	out := []types.Step{InitialStep}
	step := InitialStep
	for {
		next, err := NextStep(step, answers)
		if err != nil || next == types.StepSubmitted {
			return out
		}
		out = append(out, next)
		step = next
	}
}

// IsStep reports whether s names one of the form sections.
func IsStep(s types.Step) bool {
	for _, step := range Steps {
		if step == s {
			return true
		}
	}
	return false
}
