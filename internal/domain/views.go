package domain

import (
	"strconv"
	"time"
)

const placeholderAvatar = "/placeholder.svg?height=40&width=40"

// PersonView is how users are embedded in other responses
type PersonView struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email,omitempty"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

// DocumentView is the JSON shape of a document returned to clients and
// carried by broadcast messages.
type DocumentView struct {
	ID           string        `json:"id"`
	Title        string        `json:"title"`
	Excerpt      string        `json:"excerpt"`
	Content      string        `json:"content"`
	Status       Status        `json:"status"`
	Type         string        `json:"type"`
	Organization string        `json:"organization"`
	Author       PersonView    `json:"author"`
	AssignedTo   *PersonView   `json:"assignedTo,omitempty"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
	Comments     []CommentView `json:"comments"`
}

type CommentView struct {
	ID        string     `json:"id"`
	Content   string     `json:"content"`
	Author    PersonView `json:"author"`
	CreatedAt time.Time  `json:"createdAt"`
}

// UserView is a user as listed for an organization
type UserView struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	Username     string `json:"username"`
	Organization string `json:"organization"`
}

// SessionView is returned by login
type SessionView struct {
	Email        string `json:"email"`
	Username     string `json:"username"`
	Organization string `json:"organization"`
	Token        string `json:"token,omitempty"`
}

type WorkflowStepView struct {
	Role        string `json:"role"`
	Description string `json:"description"`
}

type WorkflowView struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Active      bool               `json:"active"`
	TeamID      string             `json:"teamId"`
	Team        string             `json:"team"`
	CreatedBy   PersonView         `json:"createdBy"`
	CreatedAt   time.Time          `json:"createdAt"`
	Steps       []WorkflowStepView `json:"steps"`
}

func FormatID(id uint64) string {
	return strconv.FormatUint(id, 10)
}

func authorView(u User, id uint64) PersonView {
	return PersonView{
		ID:        FormatID(id),
		Name:      u.Username,
		AvatarURL: placeholderAvatar,
	}
}

// NewDocumentView builds the response shape. status is passed separately
// because listings show the viewer's display status.
func NewDocumentView(doc Document, approval *Approval, status Status, comments []Comment) DocumentView {
	view := DocumentView{
		ID:           doc.ID,
		Title:        doc.Title,
		Excerpt:      doc.Excerpt,
		Content:      doc.Content,
		Status:       status,
		Type:         doc.Type,
		Organization: doc.Organization,
		Author:       authorView(doc.Author, doc.AuthorID),
		CreatedAt:    doc.CreatedAt,
		UpdatedAt:    doc.UpdatedAt,
		Comments:     make([]CommentView, 0, len(comments)),
	}
	if approval != nil {
		view.AssignedTo = &PersonView{
			ID:    FormatID(approval.AssignedTo),
			Name:  approval.Assignee.Username,
			Email: approval.Assignee.Email,
		}
	}
	for _, c := range comments {
		view.Comments = append(view.Comments, NewCommentView(c))
	}
	return view
}

func NewCommentView(c Comment) CommentView {
	return CommentView{
		ID:        c.ID,
		Content:   c.Content,
		Author:    authorView(c.Author, c.AuthorID),
		CreatedAt: c.CreatedAt,
	}
}

func NewChatView(m ChatMessage) CommentView {
	return CommentView{
		ID:        m.ID,
		Content:   m.Content,
		Author:    authorView(m.Author, m.AuthorID),
		CreatedAt: m.CreatedAt,
	}
}

func NewUserView(u User) UserView {
	return UserView{
		ID:           FormatID(u.ID),
		Email:        u.Email,
		Username:     u.Username,
		Organization: u.Organization,
	}
}

func NewWorkflowView(w Workflow) WorkflowView {
	steps := make([]WorkflowStepView, 0, len(w.Steps))
	for _, s := range w.Steps {
		steps = append(steps, WorkflowStepView{Role: s.Role, Description: s.Description})
	}
	return WorkflowView{
		ID:          w.ID,
		Name:        w.Name,
		Description: w.Description,
		Active:      w.Active,
		TeamID:      w.TeamID,
		Team:        w.Team,
		CreatedBy: PersonView{
			ID:        w.CreatedByID,
			Name:      w.CreatedByName,
			AvatarURL: placeholderAvatar,
		},
		CreatedAt: w.CreatedAt,
		Steps:     steps,
	}
}
