package intake

import (
	"math"

	"caseflow/pkg/types"
)

const (
	documentWeight   = 80
	inProgressBonus  = 15
	approvedProgress = 95
	finishedProgress = 100
	expiredProgress  = 0
)

// DocumentRatio is the share of required requirements that have at least one
// uploaded document. With nothing required the ratio is 0.
func DocumentRatio(requirements []types.DocumentRequirement, documents []types.CaseDocument) float64 {
	uploaded := make(map[string]bool, len(documents))
	for _, doc := range documents {
		if doc.UploadStatus == types.UploadStatusUploaded {
			uploaded[doc.DocumentTypeID] = true
		}
	}

	seen := make(map[string]bool, len(requirements))
	var required, satisfied int
	for _, req := range requirements {
		if !req.Required || seen[req.DocumentTypeID] {
			continue
		}
		seen[req.DocumentTypeID] = true
		required++
		if uploaded[req.DocumentTypeID] {
			satisfied++
		}
	}

	if required == 0 {
		return 0
	}

	return float64(satisfied) / float64(required)
}

// MissingDocuments lists required requirements with no uploaded document.
func MissingDocuments(requirements []types.DocumentRequirement, documents []types.CaseDocument) []types.DocumentRequirement {
	uploaded := make(map[string]bool, len(documents))
	for _, doc := range documents {
		if doc.UploadStatus == types.UploadStatusUploaded {
			uploaded[doc.DocumentTypeID] = true
		}
	}

	var missing []types.DocumentRequirement
	for _, req := range requirements {
		if req.Required && !uploaded[req.DocumentTypeID] {
			missing = append(missing, req)
		}
	}
	return missing
}

// Progress maps a case status and its documents to a 0-100 completion value.
// Terminal statuses have fixed values; otherwise the document ratio drives it.
func Progress(status types.CaseStatus, requirements []types.DocumentRequirement, documents []types.CaseDocument) int {
	return ProgressFromRatio(status, DocumentRatio(requirements, documents))
}

// ProgressFromRatio applies the non-terminal rule to an already computed ratio.
func ProgressFromRatio(status types.CaseStatus, ratio float64) int {
	if status.IsTerminal() {
		return terminalProgress(status)
	}

	if math.IsNaN(ratio) || ratio < 0 {
		ratio = 0
	}
	if ratio > 1 {
		ratio = 1
	}

	value := int(math.Round(ratio * documentWeight))
	if status == types.CaseStatusInProgress {
		value += inProgressBonus
	}

	return clamp(value, 0, 100)
}

// terminalProgress is the fixed display value of a finished case. Approval
// matches the in-progress ceiling so approving never lowers the bar.
func terminalProgress(status types.CaseStatus) int {
	switch status {
	case types.CaseStatusApproved:
		return approvedProgress
	case types.CaseStatusExpired:
		return expiredProgress
	}
	return finishedProgress
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
