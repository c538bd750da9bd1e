package types

import "time"

type UploadStatus string

const (
	UploadStatusUploaded UploadStatus = "uploaded"
	UploadStatusFailed   UploadStatus = "failed"
)

// CaseDocument is only written after its file reached blob storage.
type CaseDocument struct {
	ID               string       `db:"id" json:"id"`
	CaseID           string       `db:"case_id" json:"caseId"`
	DocumentTypeID   string       `db:"document_type_id" json:"documentTypeId"`
	StoragePath      string       `db:"storage_path" json:"storagePath"`
	OriginalFilename string       `db:"original_filename" json:"originalFilename"`
	SizeBytes        int64        `db:"size_bytes" json:"sizeBytes"`
	MimeType         string       `db:"mime_type" json:"mimeType"`
	UploadStatus     UploadStatus `db:"upload_status" json:"uploadStatus"`
	UploadedAt       time.Time    `db:"uploaded_at" json:"uploadedAt"`
}

// Step is a section of the intake form.
type Step string

const (
	StepPersonalInfo       Step = "personal-info"
	StepProfessionalInfo   Step = "professional-info"
	StepImmigrationDetails Step = "immigration-details"
	StepFamilyDetails      Step = "family-details"
	StepPhotoUpload        Step = "photo-upload"
	StepSubmitted          Step = "submitted"
)

func (s Step) Label() string {
	switch s {
	case StepPersonalInfo:
		return "Personal Information"
	case StepProfessionalInfo:
		return "Professional Information"
	case StepImmigrationDetails:
		return "Immigration Details"
	case StepFamilyDetails:
		return "Family Details"
	case StepPhotoUpload:
		return "Photo & Travel"
	case StepSubmitted:
		return "Submitted"
	default:
		return "Unknown"
	}
}
