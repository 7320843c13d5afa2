package document

import (
	"context"
	"docflow/internal/broadcast"
	"docflow/internal/cache"
	"docflow/internal/domain"
	"docflow/internal/errors"
	"docflow/internal/utils"
	"docflow/internal/worker"
	defError "errors"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

type Service interface {
	ListDocuments(ctx context.Context, organization, viewerEmail string) ([]domain.DocumentView, error)
	GetDocument(ctx context.Context, id, organization string) (*domain.DocumentView, error)
	CreateDocument(ctx context.Context, req domain.CreateDocumentRequest) (*domain.DocumentView, error)
	UpdateDocument(ctx context.Context, req domain.UpdateDocumentRequest) (*domain.DocumentView, error)
	DeleteDocument(ctx context.Context, id string, req domain.DeleteDocumentRequest) error
	AssignApprover(ctx context.Context, id string, req domain.AssignRequest) (*domain.DocumentView, error)
	Approve(ctx context.Context, id string, req domain.DecisionRequest) (*domain.DocumentView, error)
	Reject(ctx context.Context, id string, req domain.DecisionRequest) (*domain.DocumentView, error)
	AddComment(ctx context.Context, id string, req domain.CommentRequest) (*domain.CommentView, error)
	ListChatMessages(ctx context.Context, id, organization string) ([]domain.CommentView, error)
	AddChatMessage(ctx context.Context, id string, req domain.CommentRequest) (*domain.CommentView, error)
}

type UserProvider interface {
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	GetUserByID(ctx context.Context, id uint64) (*domain.User, error)
}

// TaskRunner runs fire-and-forget side effects off the request path
type TaskRunner interface {
	Submit(t worker.Task) bool
}

type DefaultService struct {
	repository   DocumentRepository
	userProvider UserProvider
	cache        *cache.Cache
	cacheTTL     time.Duration
	bus          broadcast.Bus
	workers      TaskRunner
	log          zerolog.Logger
}

type Options struct {
	Cache    *cache.Cache
	CacheTTL time.Duration
	// Bus receives a re-sync notice whenever the display status of a
	// document may have changed for some viewer
	Bus     broadcast.Bus
	Workers TaskRunner
	Log     zerolog.Logger
}

func NewService(repository DocumentRepository, userProvider UserProvider, opts Options) Service {
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &DefaultService{
		repository:   repository,
		userProvider: userProvider,
		cache:        opts.Cache,
		cacheTTL:     ttl,
		bus:          opts.Bus,
		workers:      opts.Workers,
		log:          opts.Log,
	}
}

// ListDocuments returns every document of organization with the status
// viewerEmail should see
func (s *DefaultService) ListDocuments(ctx context.Context, organization, viewerEmail string) ([]domain.DocumentView, error) {
	if organization == "" || viewerEmail == "" {
		return nil, errors.BadRequest("Organization and email are required", nil)
	}

	viewer, err := s.userProvider.GetUserByEmail(ctx, viewerEmail)
	if err != nil {
		return nil, err
	}

	// Get the current data version for this organization's documents
	v := s.cache.GetVersion(ctx, cache.DocumentsVersionKey(organization))
	cacheKey := cache.DocumentsListKey(organization, v, viewer.Email)

	var result []domain.DocumentView
	// get data from cache
	if found, _ := s.cache.Get(ctx, cacheKey, &result); found {
		return result, nil
	}

	documents, err := s.repository.ListByOrganization(ctx, organization)
	if err != nil {
		return nil, storeError(err, "Document not found")
	}

	ids := make([]string, 0, len(documents))
	for _, d := range documents {
		ids = append(ids, d.ID)
	}
	approvals, err := s.repository.ApprovalsFor(ctx, ids)
	if err != nil {
		return nil, storeError(err, "Document not found")
	}

	result = make([]domain.DocumentView, 0, len(documents))
	for _, d := range documents {
		var approval *domain.Approval
		if a, ok := approvals[d.ID]; ok {
			approval = &a
		}
		status := domain.DisplayStatus(d, approval, viewer.ID)
		result = append(result, domain.NewDocumentView(d, approval, status, nil))
	}

	// set value to cache
	s.background(func(ctx context.Context) error {
		return s.cache.Set(ctx, cacheKey, result, s.cacheTTL)
	})

	return result, nil
}

func (s *DefaultService) GetDocument(ctx context.Context, id, organization string) (*domain.DocumentView, error) {
	if organization == "" {
		return nil, errors.BadRequest("Organization is required", nil)
	}

	doc, err := s.repository.FindByID(ctx, id, organization)
	if err != nil {
		return nil, storeError(err, "Document not found")
	}
	comments, err := s.repository.ListComments(ctx, id)
	if err != nil {
		return nil, storeError(err, "Document not found")
	}
	return s.view(ctx, doc, comments)
}

func (s *DefaultService) CreateDocument(ctx context.Context, req domain.CreateDocumentRequest) (*domain.DocumentView, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" || req.Organization == "" || req.Email == "" {
		return nil, errors.BadRequest("Title, organization, and user email are required", nil)
	}

	author, err := s.member(ctx, req.Email, req.Organization)
	if err != nil {
		return nil, err
	}

	excerpt := req.Excerpt
	if excerpt == "" {
		excerpt = utils.DeriveExcerpt(req.Content)
	}

	doc := &domain.Document{
		Title:        title,
		Excerpt:      excerpt,
		Content:      req.Content,
		Status:       domain.StatusDraft,
		Type:         req.Type,
		Organization: req.Organization,
		AuthorID:     author.ID,
	}
	if err := s.repository.Create(ctx, doc); err != nil {
		return nil, storeError(err, "Document not found")
	}
	doc.Author = *author

	// increase cache key, so any new fetch will get new version
	s.invalidate(ctx, req.Organization)

	view := domain.NewDocumentView(*doc, nil, doc.Status, nil)
	return &view, nil
}

// UpdateDocument merges the supplied fields into the stored document. When
// assignedTo is set the document is also routed to that approver.
func (s *DefaultService) UpdateDocument(ctx context.Context, req domain.UpdateDocumentRequest) (*domain.DocumentView, error) {
	if req.ID == "" || req.Organization == "" {
		return nil, errors.BadRequest("Document ID and organization are required", nil)
	}
	if req.Title != nil && strings.TrimSpace(*req.Title) == "" {
		return nil, errors.BadRequest("Title cannot be empty", nil)
	}
	if req.Status != nil && !req.Status.Valid() {
		return nil, errors.BadRequest("Invalid status", nil)
	}

	var assignee *domain.User
	if req.AssignedTo != nil && *req.AssignedTo != "" {
		var err error
		assignee, err = s.assignee(ctx, *req.AssignedTo, req.Organization)
		if err != nil {
			return nil, err
		}
	}

	fields := UpdateFields{
		Title:   req.Title,
		Excerpt: req.Excerpt,
		Content: req.Content,
		Status:  req.Status,
		Type:    req.Type,
	}
	if assignee != nil {
		fields.AssigneeID = &assignee.ID
	}
	doc, err := s.repository.Update(ctx, req.ID, req.Organization, fields)
	if err != nil {
		return nil, storeError(err, "Document not found")
	}
	if assignee != nil {
		s.resync(req.Organization)
	}

	s.invalidate(ctx, req.Organization)
	return s.view(ctx, doc, nil)
}

func (s *DefaultService) DeleteDocument(ctx context.Context, id string, req domain.DeleteDocumentRequest) error {
	if req.Organization == "" || req.Email == "" {
		return errors.BadRequest("Missing required fields", nil)
	}
	if _, err := s.member(ctx, req.Email, req.Organization); err != nil {
		return err
	}

	if err := s.repository.Delete(ctx, id, req.Organization); err != nil {
		return storeError(err, "Document not found")
	}

	s.invalidate(ctx, req.Organization)
	return nil
}

func (s *DefaultService) AssignApprover(ctx context.Context, id string, req domain.AssignRequest) (*domain.DocumentView, error) {
	if req.Organization == "" || req.AssigneeID == "" {
		return nil, errors.BadRequest("Organization and assignee are required", nil)
	}

	assignee, err := s.assignee(ctx, req.AssigneeID, req.Organization)
	if err != nil {
		return nil, err
	}
	if err := s.repository.AssignApprover(ctx, id, req.Organization, assignee.ID); err != nil {
		return nil, storeError(err, "Document not found")
	}

	s.invalidate(ctx, req.Organization)
	s.resync(req.Organization)
	return s.reload(ctx, id, req.Organization)
}

func (s *DefaultService) Approve(ctx context.Context, id string, req domain.DecisionRequest) (*domain.DocumentView, error) {
	return s.decide(ctx, id, req, domain.ApprovalApproved)
}

// Reject requires feedback explaining the rejection
func (s *DefaultService) Reject(ctx context.Context, id string, req domain.DecisionRequest) (*domain.DocumentView, error) {
	if strings.TrimSpace(req.Feedback) == "" {
		return nil, errors.BadRequest("Feedback is required to reject a document", nil)
	}
	return s.decide(ctx, id, req, domain.ApprovalRejected)
}

func (s *DefaultService) decide(ctx context.Context, id string, req domain.DecisionRequest, status domain.ApprovalStatus) (*domain.DocumentView, error) {
	if req.Organization == "" || req.Email == "" {
		return nil, errors.BadRequest("Organization and email are required", nil)
	}
	if req.Rating != nil && (*req.Rating < 1 || *req.Rating > 5) {
		return nil, errors.BadRequest("Rating must be between 1 and 5", nil)
	}

	approver, err := s.member(ctx, req.Email, req.Organization)
	if err != nil {
		return nil, err
	}

	decision := Decision{Status: status, Rating: req.Rating}
	if fb := strings.TrimSpace(req.Feedback); fb != "" {
		decision.Feedback = &fb
	}
	if err := s.repository.Decide(ctx, id, req.Organization, approver.ID, decision); err != nil {
		return nil, storeError(err, "No approval assigned to this user for the document")
	}

	s.invalidate(ctx, req.Organization)
	s.resync(req.Organization)
	return s.reload(ctx, id, req.Organization)
}

func (s *DefaultService) AddComment(ctx context.Context, id string, req domain.CommentRequest) (*domain.CommentView, error) {
	author, err := s.commentAuthor(ctx, id, req)
	if err != nil {
		return nil, err
	}

	comment := &domain.Comment{DocumentID: id, Content: strings.TrimSpace(req.Content), AuthorID: author.ID}
	if err := s.repository.AddComment(ctx, comment); err != nil {
		return nil, storeError(err, "Document not found")
	}
	comment.Author = *author

	view := domain.NewCommentView(*comment)
	return &view, nil
}

func (s *DefaultService) ListChatMessages(ctx context.Context, id, organization string) ([]domain.CommentView, error) {
	if organization == "" {
		return nil, errors.BadRequest("Organization is required", nil)
	}
	if _, err := s.repository.FindByID(ctx, id, organization); err != nil {
		return nil, storeError(err, "Document not found")
	}

	messages, err := s.repository.ListChatMessages(ctx, id)
	if err != nil {
		return nil, storeError(err, "Document not found")
	}
	views := make([]domain.CommentView, 0, len(messages))
	for _, m := range messages {
		views = append(views, domain.NewChatView(m))
	}
	return views, nil
}

func (s *DefaultService) AddChatMessage(ctx context.Context, id string, req domain.CommentRequest) (*domain.CommentView, error) {
	author, err := s.commentAuthor(ctx, id, req)
	if err != nil {
		return nil, err
	}

	message := &domain.ChatMessage{DocumentID: id, Content: strings.TrimSpace(req.Content), AuthorID: author.ID}
	if err := s.repository.AddChatMessage(ctx, message); err != nil {
		return nil, storeError(err, "Document not found")
	}
	message.Author = *author

	view := domain.NewChatView(*message)
	return &view, nil
}

// commentAuthor checks a comment or chat request and returns its author
func (s *DefaultService) commentAuthor(ctx context.Context, id string, req domain.CommentRequest) (*domain.User, error) {
	if req.Organization == "" || req.Email == "" || strings.TrimSpace(req.Content) == "" {
		return nil, errors.BadRequest("Organization, email and content are required", nil)
	}
	author, err := s.member(ctx, req.Email, req.Organization)
	if err != nil {
		return nil, err
	}
	if _, err := s.repository.FindByID(ctx, id, req.Organization); err != nil {
		return nil, storeError(err, "Document not found")
	}
	return author, nil
}

// member looks up email and checks it belongs to organization
func (s *DefaultService) member(ctx context.Context, email, organization string) (*domain.User, error) {
	user, err := s.userProvider.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user.Organization != organization {
		return nil, errors.Forbidden("User does not belong to this organization", nil)
	}
	return user, nil
}

func (s *DefaultService) assignee(ctx context.Context, rawID, organization string) (*domain.User, error) {
	id, err := strconv.ParseUint(rawID, 10, 64)
	if err != nil {
		return nil, errors.BadRequest("Invalid assignee id", err)
	}
	user, err := s.userProvider.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.Organization != organization {
		return nil, errors.Forbidden("Assignee does not belong to this organization", nil)
	}
	return user, nil
}

func (s *DefaultService) reload(ctx context.Context, id, organization string) (*domain.DocumentView, error) {
	doc, err := s.repository.FindByID(ctx, id, organization)
	if err != nil {
		return nil, storeError(err, "Document not found after update")
	}
	return s.view(ctx, doc, nil)
}

// view renders doc with its stored status and current approver
func (s *DefaultService) view(ctx context.Context, doc *domain.Document, comments []domain.Comment) (*domain.DocumentView, error) {
	approval, err := s.repository.FindApproval(ctx, doc.ID)
	if err != nil {
		return nil, storeError(err, "Document not found")
	}
	view := domain.NewDocumentView(*doc, approval, doc.Status, comments)
	return &view, nil
}

func (s *DefaultService) invalidate(ctx context.Context, organization string) {
	s.cache.IncrementVersion(ctx, cache.DocumentsVersionKey(organization))
}

// resync tells every client of organization to refetch, since assignment
// and decisions change the display status differently per viewer
func (s *DefaultService) resync(organization string) {
	if s.bus == nil {
		return
	}
	s.background(func(ctx context.Context) error {
		return s.bus.Publish(ctx, broadcast.NewResync(organization, ""))
	})
}

func (s *DefaultService) background(task worker.Task) {
	if s.workers != nil && s.workers.Submit(task) {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := task(ctx); err != nil {
		s.log.Warn().Err(err).Msg("background task failed")
	}
}

// storeError maps repository failures onto API errors
func storeError(err error, notFoundMsg string) error {
	if defError.Is(err, gorm.ErrRecordNotFound) {
		return errors.NotFound(notFoundMsg, err)
	}
	var appErr *errors.AppError
	if defError.As(err, &appErr) {
		return appErr
	}
	return errors.Unavailable("Service unavailable", err)
}
