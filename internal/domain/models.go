package domain

import (
	"time"
)

// User is created on first successful login and never deleted
type User struct {
	ID           uint64    `gorm:"primaryKey"`
	Email        string    `gorm:"uniqueIndex;not null"`
	Username     string    `gorm:"not null"`
	Organization string    `gorm:"index;not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Document belongs to exactly one organization, the one of its author
type Document struct {
	ID           string `gorm:"primaryKey;type:varchar(36)"`
	Title        string `gorm:"not null"`
	Excerpt      string
	Content      string
	Status       Status `gorm:"type:varchar(16);not null"`
	Type         string
	Organization string `gorm:"index;not null"`
	AuthorID     uint64 `gorm:"not null"`
	Author       User   `gorm:"foreignKey:AuthorID"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Comment is append-only and removed together with its document
type Comment struct {
	ID         string `gorm:"primaryKey;type:varchar(36)"`
	DocumentID string `gorm:"type:varchar(36);index;not null"`
	Content    string `gorm:"not null"`
	AuthorID   uint64
	Author     User `gorm:"foreignKey:AuthorID"`
	CreatedAt  time.Time
}

// Approval is the single current approval of a document, not a history
type Approval struct {
	ID         string         `gorm:"primaryKey;type:varchar(36)"`
	DocumentID string         `gorm:"type:varchar(36);uniqueIndex;not null"`
	AssignedTo uint64         `gorm:"not null"`
	Assignee   User           `gorm:"foreignKey:AssignedTo"`
	Status     ApprovalStatus `gorm:"type:varchar(16);not null;default:pending"`
	Rating     *int
	Feedback   *string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ChatMessage is a per-document chat line
type ChatMessage struct {
	ID         string `gorm:"primaryKey;type:varchar(36)"`
	DocumentID string `gorm:"type:varchar(36);index;not null"`
	Content    string `gorm:"not null"`
	AuthorID   uint64
	Author     User `gorm:"foreignKey:AuthorID"`
	CreatedAt  time.Time
}

// Workflow is a read-only approval process template
type Workflow struct {
	ID            string `gorm:"primaryKey;type:varchar(36)"`
	Name          string `gorm:"not null"`
	Description   string
	Active        bool
	TeamID        string
	Team          string
	CreatedByID   string
	CreatedByName string
	CreatedAt     time.Time
	Steps         []WorkflowStep `gorm:"foreignKey:WorkflowID"`
}

type WorkflowStep struct {
	ID          uint64 `gorm:"primaryKey"`
	WorkflowID  string `gorm:"type:varchar(36);index;not null"`
	Position    int
	Role        string
	Description string
}
