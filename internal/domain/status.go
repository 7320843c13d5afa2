package domain

// Status is the stored status of a document, and also the display status
// computed for a viewer.
type Status string

const (
	StatusDraft    Status = "draft"
	StatusTodo     Status = "todo"
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// FilterAll is the document filter that matches every status
const FilterAll = "all"

func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusTodo, StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Matches reports whether a document with status s belongs in a view
// filtered by filter.
func (s Status) Matches(filter string) bool {
	return filter == FilterAll || filter == "" || string(s) == filter
}

type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// DisplayStatus maps the stored document status plus its approval row to
// what viewerID should see. It never changes stored data.
func DisplayStatus(doc Document, approval *Approval, viewerID uint64) Status {
	if approval == nil {
		return doc.Status
	}
	if approval.Status != ApprovalPending {
		return Status(approval.Status)
	}
	if approval.AssignedTo == viewerID {
		return StatusTodo
	}
	return StatusPending
}
