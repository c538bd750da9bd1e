package types

type Category string

const (
	CategoryVisitor            Category = "Visitor"
	CategoryStudent            Category = "Student"
	CategoryWorker             Category = "Worker"
	CategoryPermanentResidence Category = "Résidence Permanente"
)

var AllCategories = []Category{
	CategoryVisitor,
	CategoryStudent,
	CategoryWorker,
	CategoryPermanentResidence,
}

func (c Category) String() string {
	return string(c)
}

func (c Category) IsPermanentResidence() bool {
	return c == CategoryPermanentResidence
}

// DocumentRequirement is read-only reference data scoped to a category.
type DocumentRequirement struct {
	ID             string   `db:"id" json:"id"`
	Category       Category `db:"category" json:"category"`
	DocumentTypeID string   `db:"document_type_id" json:"documentTypeId"`
	DisplayName    string   `db:"display_name" json:"displayName"`
	Required       bool     `db:"required" json:"required"`
	DisplayOrder   int      `db:"display_order" json:"displayOrder"`
}
