package document

import (
	"context"
	"docflow/internal/broadcast"
	"docflow/internal/cache"
	"docflow/internal/domain"
	"docflow/internal/errors"
	"docflow/internal/user"
	"docflow/internal/worker"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type serviceFixture struct {
	db      *gorm.DB
	service Service
	cache   *cache.Cache
	bus     *broadcast.LocalBus
	alice   domain.User
	bob     domain.User
	gina    domain.User
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	gdb := newTestDB(t)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	c := cache.New(client, zerolog.Nop())

	bus := broadcast.NewLocalBus()
	t.Cleanup(func() { bus.Close() })

	workers := worker.NewWorkerPool(1, zerolog.Nop())
	t.Cleanup(workers.Shutdown)

	users := user.NewService(user.NewRepository(gdb))
	svc := NewService(NewRepository(gdb), users, Options{
		Cache:    c,
		CacheTTL: time.Minute,
		Bus:      bus,
		Workers:  workers,
		Log:      zerolog.Nop(),
	})

	return &serviceFixture{
		db:      gdb,
		service: svc,
		cache:   c,
		bus:     bus,
		alice:   createUser(t, gdb, "alice@acme.com", "acme"),
		bob:     createUser(t, gdb, "bob@acme.com", "acme"),
		gina:    createUser(t, gdb, "gina@globex.com", "globex"),
	}
}

func (f *serviceFixture) create(t *testing.T, title string) *domain.DocumentView {
	t.Helper()
	doc, err := f.service.CreateDocument(context.Background(), domain.CreateDocumentRequest{
		Title:        title,
		Content:      "content",
		Email:        f.alice.Email,
		Organization: "acme",
	})
	require.NoError(t, err)
	return doc
}

func statusOf(docs []domain.DocumentView, id string) domain.Status {
	for _, d := range docs {
		if d.ID == id {
			return d.Status
		}
	}
	return ""
}

func TestService_CreateDocument(t *testing.T) {
	f := newServiceFixture(t)

	doc := f.create(t, "Plan")
	assert.Equal(t, domain.StatusDraft, doc.Status)
	assert.Equal(t, "acme", doc.Organization)
	assert.Equal(t, domain.FormatID(f.alice.ID), doc.Author.ID)
	assert.Equal(t, "content", doc.Excerpt)
	assert.NotNil(t, doc.Comments)
}

func TestService_CreateDocument_DerivesExcerpt(t *testing.T) {
	f := newServiceFixture(t)
	content := strings.Repeat("a", 200)

	doc, err := f.service.CreateDocument(context.Background(), domain.CreateDocumentRequest{
		Title: "Long", Content: content, Email: f.alice.Email, Organization: "acme",
	})
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("a", 150)+"...", doc.Excerpt)

	explicit, err := f.service.CreateDocument(context.Background(), domain.CreateDocumentRequest{
		Title: "Long", Content: content, Excerpt: "mine", Email: f.alice.Email, Organization: "acme",
	})
	require.NoError(t, err)
	assert.Equal(t, "mine", explicit.Excerpt)
}

func TestService_CreateDocument_Errors(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	_, err := f.service.CreateDocument(ctx, domain.CreateDocumentRequest{Title: "  ", Email: f.alice.Email, Organization: "acme"})
	assert.Equal(t, http.StatusBadRequest, errors.StatusOf(err))

	_, err = f.service.CreateDocument(ctx, domain.CreateDocumentRequest{Title: "x", Email: "ghost@acme.com", Organization: "acme"})
	assert.Equal(t, http.StatusNotFound, errors.StatusOf(err))

	_, err = f.service.CreateDocument(ctx, domain.CreateDocumentRequest{Title: "x", Email: f.gina.Email, Organization: "acme"})
	assert.Equal(t, http.StatusForbidden, errors.StatusOf(err))
}

func TestService_ListDocuments_DisplayStatusPerViewer(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	draft := f.create(t, "Draft")
	assigned := f.create(t, "Assigned")
	_, err := f.service.AssignApprover(ctx, assigned.ID, domain.AssignRequest{
		Organization: "acme", AssigneeID: domain.FormatID(f.bob.ID),
	})
	require.NoError(t, err)

	forBob, err := f.service.ListDocuments(ctx, "acme", f.bob.Email)
	require.NoError(t, err)
	forAlice, err := f.service.ListDocuments(ctx, "acme", f.alice.Email)
	require.NoError(t, err)

	assert.Equal(t, domain.StatusDraft, statusOf(forBob, draft.ID))
	assert.Equal(t, domain.StatusTodo, statusOf(forBob, assigned.ID))
	assert.Equal(t, domain.StatusPending, statusOf(forAlice, assigned.ID))

	for _, d := range forAlice {
		assert.Empty(t, d.Comments)
		if d.ID == assigned.ID {
			require.NotNil(t, d.AssignedTo)
			assert.Equal(t, f.bob.Email, d.AssignedTo.Email)
		}
	}

	// display status never changes the stored row
	var stored domain.Document
	require.NoError(t, f.db.First(&stored, "id = ?", assigned.ID).Error)
	assert.Equal(t, domain.StatusTodo, stored.Status)
}

func TestService_ListDocuments_Errors(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	_, err := f.service.ListDocuments(ctx, "", f.alice.Email)
	assert.Equal(t, http.StatusBadRequest, errors.StatusOf(err))

	_, err = f.service.ListDocuments(ctx, "acme", "ghost@acme.com")
	assert.Equal(t, http.StatusNotFound, errors.StatusOf(err))
}

func TestService_ListDocuments_CacheInvalidatedOnMutation(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	f.create(t, "One")
	first, err := f.service.ListDocuments(ctx, "acme", f.alice.Email)
	require.NoError(t, err)
	require.Len(t, first, 1)

	versionBefore := f.cache.GetVersion(ctx, cache.DocumentsVersionKey("acme"))
	f.create(t, "Two")
	assert.Greater(t, f.cache.GetVersion(ctx, cache.DocumentsVersionKey("acme")), versionBefore)

	second, err := f.service.ListDocuments(ctx, "acme", f.alice.Email)
	require.NoError(t, err)
	assert.Len(t, second, 2)
}

func TestService_UpdateDocument_Merge(t *testing.T) {
	f := newServiceFixture(t)
	doc := f.create(t, "Plan")
	title := "Renamed"

	updated, err := f.service.UpdateDocument(context.Background(), domain.UpdateDocumentRequest{
		ID: doc.ID, Organization: "acme", Title: &title,
	})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Title)
	assert.Equal(t, "content", updated.Content)
	assert.Equal(t, domain.StatusDraft, updated.Status)
}

func TestService_UpdateDocument_WithAssignee(t *testing.T) {
	f := newServiceFixture(t)
	doc := f.create(t, "Plan")
	bobID := domain.FormatID(f.bob.ID)

	updated, err := f.service.UpdateDocument(context.Background(), domain.UpdateDocumentRequest{
		ID: doc.ID, Organization: "acme", AssignedTo: &bobID,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusTodo, updated.Status)
	require.NotNil(t, updated.AssignedTo)
	assert.Equal(t, bobID, updated.AssignedTo.ID)
}

func TestService_UpdateDocument_Errors(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	doc := f.create(t, "Plan")
	empty := ""
	ginaID := domain.FormatID(f.gina.ID)

	_, err := f.service.UpdateDocument(ctx, domain.UpdateDocumentRequest{ID: doc.ID, Organization: "acme", Title: &empty})
	assert.Equal(t, http.StatusBadRequest, errors.StatusOf(err))

	_, err = f.service.UpdateDocument(ctx, domain.UpdateDocumentRequest{ID: "missing", Organization: "acme"})
	assert.Equal(t, http.StatusNotFound, errors.StatusOf(err))

	_, err = f.service.UpdateDocument(ctx, domain.UpdateDocumentRequest{ID: doc.ID, Organization: "acme", AssignedTo: &ginaID})
	assert.Equal(t, http.StatusForbidden, errors.StatusOf(err))
}

func TestService_ApprovePublishesResync(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	doc := f.create(t, "Plan")
	_, err := f.service.AssignApprover(ctx, doc.ID, domain.AssignRequest{Organization: "acme", AssigneeID: domain.FormatID(f.bob.ID)})
	require.NoError(t, err)

	messages, err := f.bus.Subscribe(ctx)
	require.NoError(t, err)

	rating := 5
	approved, err := f.service.Approve(ctx, doc.ID, domain.DecisionRequest{
		Organization: "acme", Email: f.bob.Email, Rating: &rating, Feedback: "great",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, approved.Status)

	var approval domain.Approval
	require.NoError(t, f.db.First(&approval, "document_id = ?", doc.ID).Error)
	assert.Equal(t, domain.ApprovalApproved, approval.Status)

	select {
	case msg := <-messages:
		assert.Equal(t, broadcast.KindResync, msg.Data.Kind())
		assert.Equal(t, "acme", msg.Data.Organization)
	case <-time.After(2 * time.Second):
		t.Fatal("no resync published")
	}
}

func TestService_ApproveRequiresAssignment(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	doc := f.create(t, "Plan")

	_, err := f.service.Approve(ctx, doc.ID, domain.DecisionRequest{Organization: "acme", Email: f.bob.Email})
	assert.Equal(t, http.StatusNotFound, errors.StatusOf(err))

	var stored domain.Document
	require.NoError(t, f.db.First(&stored, "id = ?", doc.ID).Error)
	assert.Equal(t, domain.StatusDraft, stored.Status)
}

func TestService_Reject(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	doc := f.create(t, "Plan")
	_, err := f.service.AssignApprover(ctx, doc.ID, domain.AssignRequest{Organization: "acme", AssigneeID: domain.FormatID(f.bob.ID)})
	require.NoError(t, err)

	_, err = f.service.Reject(ctx, doc.ID, domain.DecisionRequest{Organization: "acme", Email: f.bob.Email, Feedback: "  "})
	assert.Equal(t, http.StatusBadRequest, errors.StatusOf(err))

	rejected, err := f.service.Reject(ctx, doc.ID, domain.DecisionRequest{Organization: "acme", Email: f.bob.Email, Feedback: "needs work"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRejected, rejected.Status)

	forAlice, err := f.service.ListDocuments(ctx, "acme", f.alice.Email)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRejected, statusOf(forAlice, doc.ID))
}

func TestService_DecisionRatingRange(t *testing.T) {
	f := newServiceFixture(t)
	rating := 9

	_, err := f.service.Approve(context.Background(), "any", domain.DecisionRequest{
		Organization: "acme", Email: f.bob.Email, Rating: &rating,
	})
	assert.Equal(t, http.StatusBadRequest, errors.StatusOf(err))
}

func TestService_DeleteDocument(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	doc := f.create(t, "Plan")
	_, err := f.service.AddComment(ctx, doc.ID, domain.CommentRequest{Organization: "acme", Email: f.bob.Email, Content: "nice"})
	require.NoError(t, err)

	require.NoError(t, f.service.DeleteDocument(ctx, doc.ID, domain.DeleteDocumentRequest{Organization: "acme", Email: f.alice.Email}))

	_, err = f.service.GetDocument(ctx, doc.ID, "acme")
	assert.True(t, errors.IsNotFound(err))

	err = f.service.DeleteDocument(ctx, doc.ID, domain.DeleteDocumentRequest{Organization: "acme", Email: f.alice.Email})
	assert.True(t, errors.IsNotFound(err))

	var comments int64
	f.db.Model(&domain.Comment{}).Where("document_id = ?", doc.ID).Count(&comments)
	assert.Zero(t, comments)
}

func TestService_GetDocumentWithComments(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	doc := f.create(t, "Plan")

	comment, err := f.service.AddComment(ctx, doc.ID, domain.CommentRequest{Organization: "acme", Email: f.bob.Email, Content: "nice"})
	require.NoError(t, err)
	assert.Equal(t, "b", comment.Author.Name)

	got, err := f.service.GetDocument(ctx, doc.ID, "acme")
	require.NoError(t, err)
	require.Len(t, got.Comments, 1)
	assert.Equal(t, "nice", got.Comments[0].Content)

	_, err = f.service.GetDocument(ctx, doc.ID, "globex")
	assert.True(t, errors.IsNotFound(err))
}

func TestService_Chat(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	doc := f.create(t, "Plan")

	_, err := f.service.AddChatMessage(ctx, doc.ID, domain.CommentRequest{Organization: "acme", Email: f.alice.Email, Content: "hello"})
	require.NoError(t, err)
	_, err = f.service.AddChatMessage(ctx, doc.ID, domain.CommentRequest{Organization: "acme", Email: f.gina.Email, Content: "intruder"})
	assert.Equal(t, http.StatusForbidden, errors.StatusOf(err))

	messages, err := f.service.ListChatMessages(ctx, doc.ID, "acme")
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "hello", messages[0].Content)

	_, err = f.service.ListChatMessages(ctx, "missing", "acme")
	assert.True(t, errors.IsNotFound(err))
}
