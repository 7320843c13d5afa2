package document

import (
	"context"
	"docflow/internal/domain"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DocumentRepository interface {
	ListByOrganization(ctx context.Context, organization string) ([]domain.Document, error)
	ApprovalsFor(ctx context.Context, docIDs []string) (map[string]domain.Approval, error)
	FindByID(ctx context.Context, id, organization string) (*domain.Document, error)
	FindApproval(ctx context.Context, docID string) (*domain.Approval, error)
	Create(ctx context.Context, document *domain.Document) error
	Update(ctx context.Context, id, organization string, fields UpdateFields) (*domain.Document, error)
	AssignApprover(ctx context.Context, docID, organization string, assigneeID uint64) error
	Decide(ctx context.Context, docID, organization string, approverID uint64, decision Decision) error
	Delete(ctx context.Context, id, organization string) error
	AddComment(ctx context.Context, comment *domain.Comment) error
	ListComments(ctx context.Context, docID string) ([]domain.Comment, error)
	AddChatMessage(ctx context.Context, message *domain.ChatMessage) error
	ListChatMessages(ctx context.Context, docID string) ([]domain.ChatMessage, error)
}

// UpdateFields holds the columns an update may touch. Nil fields keep
// their stored value. A non-nil AssigneeID assigns the approver in the
// same transaction.
type UpdateFields struct {
	Title      *string
	Excerpt    *string
	Content    *string
	Status     *domain.Status
	Type       *string
	AssigneeID *uint64
}

// Decision is the outcome an approver records
type Decision struct {
	Status   domain.ApprovalStatus
	Rating   *int
	Feedback *string
}

type DocumentRepositoryImpl struct {
	db *gorm.DB
}

// NewRepository creates a new document repository
func NewRepository(db *gorm.DB) DocumentRepository {
	return &DocumentRepositoryImpl{db: db}
}

func (r *DocumentRepositoryImpl) ListByOrganization(ctx context.Context, organization string) ([]domain.Document, error) {
	documents := []domain.Document{}
	err := r.db.WithContext(ctx).
		Preload("Author").
		Where("organization = ?", organization).
		Order("created_at ASC").
		Find(&documents).Error
	return documents, err
}

// ApprovalsFor loads the approval rows of docIDs keyed by document id
func (r *DocumentRepositoryImpl) ApprovalsFor(ctx context.Context, docIDs []string) (map[string]domain.Approval, error) {
	result := make(map[string]domain.Approval, len(docIDs))
	if len(docIDs) == 0 {
		return result, nil
	}

	var approvals []domain.Approval
	err := r.db.WithContext(ctx).
		Preload("Assignee").
		Where("document_id IN ?", docIDs).
		Find(&approvals).Error
	if err != nil {
		return nil, err
	}
	for _, a := range approvals {
		result[a.DocumentID] = a
	}
	return result, nil
}

func (r *DocumentRepositoryImpl) FindByID(ctx context.Context, id, organization string) (*domain.Document, error) {
	var doc domain.Document
	err := r.db.WithContext(ctx).
		Preload("Author").
		Where("id = ? AND organization = ?", id, organization).
		First(&doc).Error
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// FindApproval returns nil without error when the document has no approval
func (r *DocumentRepositoryImpl) FindApproval(ctx context.Context, docID string) (*domain.Approval, error) {
	var approvals []domain.Approval
	err := r.db.WithContext(ctx).
		Preload("Assignee").
		Where("document_id = ?", docID).
		Limit(1).
		Find(&approvals).Error
	if err != nil || len(approvals) == 0 {
		return nil, err
	}
	return &approvals[0], nil
}

func (r *DocumentRepositoryImpl) Create(ctx context.Context, document *domain.Document) error {
	if document.ID == "" {
		document.ID = uuid.NewString()
	}
	now := time.Now().UTC() // Use UTC for consistency
	document.CreatedAt = now
	document.UpdatedAt = now
	return r.db.WithContext(ctx).Omit("Author").Create(document).Error
}

// Update merges fields into the stored row: only non-nil fields are written
func (r *DocumentRepositoryImpl) Update(ctx context.Context, id, organization string, fields UpdateFields) (*domain.Document, error) {
	var status *string
	if fields.Status != nil {
		s := string(*fields.Status)
		status = &s
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		result := tx.Exec(`
			UPDATE documents
			SET title = COALESCE(?, title),
			    excerpt = COALESCE(?, excerpt),
			    content = COALESCE(?, content),
			    status = COALESCE(?, status),
			    type = COALESCE(?, type),
			    updated_at = ?
			WHERE id = ? AND organization = ?
		`, fields.Title, fields.Excerpt, fields.Content, status, fields.Type, now, id, organization)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		if fields.AssigneeID == nil {
			return nil
		}
		return assign(tx, id, organization, *fields.AssigneeID, now)
	})
	if err != nil {
		return nil, err
	}

	return r.FindByID(ctx, id, organization)
}

// AssignApprover makes assigneeID the reviewer of the document. The single
// approval row is reset to pending and the document moves to todo.
func (r *DocumentRepositoryImpl) AssignApprover(ctx context.Context, docID, organization string, assigneeID uint64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return assign(tx, docID, organization, assigneeID, time.Now().UTC())
	})
}

func assign(tx *gorm.DB, docID, organization string, assigneeID uint64, now time.Time) error {
	// 1. document moves to todo
	result := tx.Model(&domain.Document{}).
		Where("id = ? AND organization = ?", docID, organization).
		Updates(map[string]any{"status": domain.StatusTodo, "updated_at": now})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	// 2. reset the existing approval or create the first one
	result = tx.Model(&domain.Approval{}).
		Where("document_id = ?", docID).
		Updates(map[string]any{
			"assigned_to": assigneeID,
			"status":      domain.ApprovalPending,
			"rating":      nil,
			"feedback":    nil,
			"updated_at":  now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}

	return tx.Omit("Assignee").Create(&domain.Approval{
		ID:         uuid.NewString(),
		DocumentID: docID,
		AssignedTo: assigneeID,
		Status:     domain.ApprovalPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}).Error
}

// Decide records the approver's decision on both the approval and the
// document. Either both rows change or neither does.
func (r *DocumentRepositoryImpl) Decide(ctx context.Context, docID, organization string, approverID uint64, decision Decision) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()

		// 1. the approval assigned to this approver
		result := tx.Model(&domain.Approval{}).
			Where("document_id = ? AND assigned_to = ?", docID, approverID).
			Updates(map[string]any{
				"status":     decision.Status,
				"rating":     decision.Rating,
				"feedback":   decision.Feedback,
				"updated_at": now,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		// 2. the document itself
		result = tx.Model(&domain.Document{}).
			Where("id = ? AND organization = ?", docID, organization).
			Updates(map[string]any{"status": domain.Status(decision.Status), "updated_at": now})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// Delete removes the document and everything hanging off it, comments first
func (r *DocumentRepositoryImpl) Delete(ctx context.Context, id, organization string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&domain.Document{}).
			Where("id = ? AND organization = ?", id, organization).
			Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return gorm.ErrRecordNotFound
		}

		if err := tx.Where("document_id = ?", id).Delete(&domain.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("document_id = ?", id).Delete(&domain.ChatMessage{}).Error; err != nil {
			return err
		}
		if err := tx.Where("document_id = ?", id).Delete(&domain.Approval{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ? AND organization = ?", id, organization).Delete(&domain.Document{}).Error
	})
}

func (r *DocumentRepositoryImpl) AddComment(ctx context.Context, comment *domain.Comment) error {
	if comment.ID == "" {
		comment.ID = uuid.NewString()
	}
	comment.CreatedAt = time.Now().UTC()
	return r.db.WithContext(ctx).Omit("Author").Create(comment).Error
}

func (r *DocumentRepositoryImpl) ListComments(ctx context.Context, docID string) ([]domain.Comment, error) {
	comments := []domain.Comment{}
	err := r.db.WithContext(ctx).
		Preload("Author").
		Where("document_id = ?", docID).
		Order("created_at ASC").
		Find(&comments).Error
	return comments, err
}

func (r *DocumentRepositoryImpl) AddChatMessage(ctx context.Context, message *domain.ChatMessage) error {
	if message.ID == "" {
		message.ID = uuid.NewString()
	}
	message.CreatedAt = time.Now().UTC()
	return r.db.WithContext(ctx).Omit("Author").Create(message).Error
}

func (r *DocumentRepositoryImpl) ListChatMessages(ctx context.Context, docID string) ([]domain.ChatMessage, error) {
	messages := []domain.ChatMessage{}
	err := r.db.WithContext(ctx).
		Preload("Author").
		Where("document_id = ?", docID).
		Order("created_at ASC").
		Find(&messages).Error
	return messages, err
}
