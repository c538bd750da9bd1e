package types

type NavbarData struct {
	IsAuthenticated bool
	UserID          string
	UserEmail       string
}

type NavbarDataSetter interface {
	SetNavbarData(data NavbarData)
}

type BasePageData struct {
	Title  string
	Notice string
	Error  string
	Navbar NavbarData
}

func (d *BasePageData) SetNavbarData(data NavbarData) {
	d.Navbar = data
}

type HomePageData struct {
	BasePageData
	Categories []Category
}

type LoginPageData struct {
	BasePageData
	Email     string
	Confirmed bool
}

// CaseSummary is one row of the case list.
type CaseSummary struct {
	Case     *Case
	Progress int
	Missing  int
}

type CaseListPageData struct {
	BasePageData
	Cases    []CaseSummary
	HasDraft bool
	DraftID  string
}

// ChecklistItem pairs a requirement with whether an uploaded document covers it.
type ChecklistItem struct {
	Requirement DocumentRequirement
	Satisfied   bool
}

type CaseDetailPageData struct {
	BasePageData
	Case          *Case
	Progress      int
	Checklist     []ChecklistItem
	Documents     []CaseDocument
	History       []*HistoryEntry
	Residency     *ResidencyDetails
	FamilyMembers []*FamilyMember
	Flight        *FlightDetails
}

type RegisterPageData struct {
	BasePageData
	GivenName   string
	FamilyName  string
	Email       string
	FieldErrors map[string]string
}

type ConfirmRegisterPageData struct {
	BasePageData
	Email string
}
