package domain

// Request payloads shared by the HTTP handlers and the Go client.

type LoginRequest struct {
	Email        string `json:"email" binding:"required"`
	Username     string `json:"username,omitempty"`
	Organization string `json:"organization,omitempty"`
}

type CreateDocumentRequest struct {
	Title        string `json:"title" binding:"required,max=255"`
	Excerpt      string `json:"excerpt,omitempty"`
	Content      string `json:"content,omitempty"`
	Type         string `json:"type,omitempty"`
	Email        string `json:"email" binding:"required"`
	Organization string `json:"organization" binding:"required"`
}

// UpdateDocumentRequest merges only the non-nil fields into the stored row
type UpdateDocumentRequest struct {
	ID           string  `json:"id" binding:"required"`
	Organization string  `json:"organization" binding:"required"`
	Title        *string `json:"title,omitempty" binding:"omitempty,min=1,max=255"`
	Excerpt      *string `json:"excerpt,omitempty"`
	Content      *string `json:"content,omitempty"`
	Status       *Status `json:"status,omitempty" binding:"omitempty,oneof=draft todo pending approved rejected"`
	Type         *string `json:"type,omitempty"`
	// AssignedTo is the user id of the approver to assign
	AssignedTo *string `json:"assignedTo,omitempty"`
}

type DeleteDocumentRequest struct {
	Organization string `json:"organization" binding:"required"`
	Email        string `json:"email" binding:"required"`
}

// DecisionRequest approves or rejects a document
type DecisionRequest struct {
	Organization string `json:"organization" binding:"required"`
	Email        string `json:"email" binding:"required"`
	Rating       *int   `json:"rating,omitempty" binding:"omitempty,min=1,max=5"`
	Feedback     string `json:"feedback,omitempty"`
}

type AssignRequest struct {
	Organization string `json:"organization" binding:"required"`
	AssigneeID   string `json:"assigneeId" binding:"required"`
}

type CommentRequest struct {
	Organization string `json:"organization" binding:"required"`
	Email        string `json:"email" binding:"required"`
	Content      string `json:"content" binding:"required"`
}
