package doccache

import (
	"context"
	"docflow/internal/domain"
	"docflow/internal/errors"
	"fmt"
	"sync"
	"time"
)

// fakeAPI is an in-memory server shared by every cache in a test
type fakeAPI struct {
	mu    sync.Mutex
	docs  []domain.DocumentView
	next  int
	fail  error
	calls map[string]int
}

func newFakeAPI(docs ...domain.DocumentView) *fakeAPI {
	return &fakeAPI{docs: docs, calls: map[string]int{}}
}

func (f *fakeAPI) called(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeAPI) setFail(err error) {
	f.mu.Lock()
	f.fail = err
	f.mu.Unlock()
}

func (f *fakeAPI) enter(name string) error {
	f.calls[name]++
	return f.fail
}

func (f *fakeAPI) find(id, organization string) int {
	for i, d := range f.docs {
		if d.ID == id && d.Organization == organization {
			return i
		}
	}
	return -1
}

func (f *fakeAPI) ListDocuments(ctx context.Context, organization, email string) ([]domain.DocumentView, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("list"); err != nil {
		return nil, err
	}
	var out []domain.DocumentView
	for _, d := range f.docs {
		if d.Organization == organization {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakeAPI) CreateDocument(ctx context.Context, req domain.CreateDocumentRequest) (*domain.DocumentView, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("create"); err != nil {
		return nil, err
	}
	if req.Title == "" {
		return nil, errors.BadRequest("Title, organization, and user email are required", nil)
	}
	f.next++
	now := time.Now()
	doc := domain.DocumentView{
		ID:           fmt.Sprintf("doc-%d", f.next),
		Title:        req.Title,
		Excerpt:      req.Excerpt,
		Content:      req.Content,
		Status:       domain.StatusDraft,
		Organization: req.Organization,
		Author:       domain.PersonView{ID: req.Email, Name: req.Email},
		CreatedAt:    now,
		UpdatedAt:    now,
		Comments:     []domain.CommentView{},
	}
	f.docs = append(f.docs, doc)
	return &doc, nil
}

func (f *fakeAPI) UpdateDocument(ctx context.Context, req domain.UpdateDocumentRequest) (*domain.DocumentView, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("update"); err != nil {
		return nil, err
	}
	i := f.find(req.ID, req.Organization)
	if i < 0 {
		return nil, errors.NotFound("Document not found", nil)
	}
	doc := &f.docs[i]
	if req.Title != nil {
		doc.Title = *req.Title
	}
	if req.Content != nil {
		doc.Content = *req.Content
	}
	if req.Status != nil {
		doc.Status = *req.Status
	}
	out := *doc
	return &out, nil
}

func (f *fakeAPI) DeleteDocument(ctx context.Context, id string, req domain.DeleteDocumentRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("delete"); err != nil {
		return err
	}
	i := f.find(id, req.Organization)
	if i < 0 {
		return errors.NotFound("Document not found", nil)
	}
	f.docs = append(f.docs[:i], f.docs[i+1:]...)
	return nil
}

func (f *fakeAPI) decide(name, id string, req domain.DecisionRequest, status domain.Status) (*domain.DocumentView, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter(name); err != nil {
		return nil, err
	}
	i := f.find(id, req.Organization)
	if i < 0 {
		return nil, errors.NotFound("Document not found", nil)
	}
	f.docs[i].Status = status
	out := f.docs[i]
	return &out, nil
}

func (f *fakeAPI) Approve(ctx context.Context, id string, req domain.DecisionRequest) (*domain.DocumentView, error) {
	return f.decide("approve", id, req, domain.StatusApproved)
}

func (f *fakeAPI) Reject(ctx context.Context, id string, req domain.DecisionRequest) (*domain.DocumentView, error) {
	return f.decide("reject", id, req, domain.StatusRejected)
}
