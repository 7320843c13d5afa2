// Package doccache mirrors the documents of one organization on the client
// and keeps the mirror in step with other clients over a broadcast bus.
//
// Writes go to the server first. Local state only changes after the server
// confirmed the write, and every confirmed write is then broadcast so other
// clients of the same organization can reconcile without a full reload.
package doccache

import (
	"context"
	"docflow/internal/broadcast"
	"docflow/internal/domain"
	"docflow/internal/errors"
	"docflow/internal/session"
	"docflow/internal/utils"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type Options struct {
	API     API
	Bus     broadcast.Bus
	Session *session.Session
	// Filter is the initial status filter, "all" when empty
	Filter string
	Log    zerolog.Logger
}

type Cache struct {
	api      API
	bus      broadcast.Bus
	identity *session.Identity
	origin   string
	log      zerolog.Logger

	mu       sync.RWMutex
	all      []domain.DocumentView
	filtered []domain.DocumentView
	filter   string
	closed   bool
}

// CreateInput is what a user fills in for a new document
type CreateInput struct {
	Title   string
	Content string
	Excerpt string
	Type    string
}

// New mounts a cache. The identity, and so the organization, is read from
// the session once here and never again.
func New(opts Options) *Cache {
	c := &Cache{
		api:    opts.API,
		bus:    opts.Bus,
		origin: uuid.NewString(),
		log:    opts.Log,
		filter: opts.Filter,
	}
	if c.filter == "" {
		c.filter = domain.FilterAll
	}
	if opts.Session != nil {
		if id, ok := opts.Session.Current(); ok {
			c.identity = &id
		}
	}
	return c
}

// Origin identifies this cache on the bus
func (c *Cache) Origin() string {
	return c.origin
}

func (c *Cache) Organization() string {
	if c.identity == nil {
		return ""
	}
	return c.identity.Organization
}

func (c *Cache) requireIdentity() (session.Identity, error) {
	if c.identity == nil {
		return session.Identity{}, errors.Unauthorized("Not authenticated", session.ErrNotAuthenticated)
	}
	return *c.identity, nil
}

// Load replaces the mirror with the server's list. Failures are logged and
// leave the previous state in place.
func (c *Cache) Load(ctx context.Context) {
	id, err := c.requireIdentity()
	if err != nil {
		c.log.Debug().Msg("skipping load without a session")
		return
	}

	docs, err := c.api.ListDocuments(ctx, id.Organization, id.Email)
	if err != nil {
		c.log.Warn().Err(err).Str("organization", id.Organization).Msg("failed to load documents")
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.all = make([]domain.DocumentView, 0, len(docs))
	seen := make(map[string]bool, len(docs))
	for _, d := range docs {
		if seen[d.ID] {
			continue
		}
		seen[d.ID] = true
		c.all = append(c.all, d)
	}
	c.refilter()
}

func (c *Cache) Create(ctx context.Context, in CreateInput) (*domain.DocumentView, error) {
	id, err := c.requireIdentity()
	if err != nil {
		return nil, err
	}

	excerpt := in.Excerpt
	if excerpt == "" {
		excerpt = utils.DeriveExcerpt(in.Content)
	}

	doc, err := c.api.CreateDocument(ctx, domain.CreateDocumentRequest{
		Title:        in.Title,
		Excerpt:      excerpt,
		Content:      in.Content,
		Type:         in.Type,
		Email:        id.Email,
		Organization: id.Organization,
	})
	if err != nil {
		c.log.Error().Err(err).Msg("failed to create document")
		return nil, err
	}

	if c.withState(func() { c.upsert(*doc, false) }) {
		c.publish(ctx, broadcast.NewCreate(id.Organization, *doc, c.origin))
	}
	return doc, nil
}

// Update sends the non-nil fields of req to the server
func (c *Cache) Update(ctx context.Context, req domain.UpdateDocumentRequest) (*domain.DocumentView, error) {
	id, err := c.requireIdentity()
	if err != nil {
		return nil, err
	}
	if req.ID == "" {
		return nil, errors.BadRequest("Document id is required", nil)
	}
	req.Organization = id.Organization

	doc, err := c.api.UpdateDocument(ctx, req)
	if err != nil {
		c.log.Error().Err(err).Str("document", req.ID).Msg("failed to update document")
		return nil, err
	}

	if c.withState(func() { c.upsert(*doc, true) }) {
		c.publish(ctx, broadcast.NewUpdate(id.Organization, *doc, c.origin))
	}
	return doc, nil
}

func (c *Cache) Delete(ctx context.Context, docID string) error {
	id, err := c.requireIdentity()
	if err != nil {
		return err
	}

	err = c.api.DeleteDocument(ctx, docID, domain.DeleteDocumentRequest{
		Organization: id.Organization,
		Email:        id.Email,
	})
	if err != nil {
		c.log.Error().Err(err).Str("document", docID).Msg("failed to delete document")
		return err
	}

	if c.withState(func() { c.remove(docID) }) {
		c.publish(ctx, broadcast.NewDelete(id.Organization, docID, c.origin))
	}
	return nil
}

func (c *Cache) Approve(ctx context.Context, docID string, rating *int, feedback string) (*domain.DocumentView, error) {
	id, err := c.requireIdentity()
	if err != nil {
		return nil, err
	}
	return c.decide(ctx, c.api.Approve, docID, domain.DecisionRequest{
		Organization: id.Organization,
		Email:        id.Email,
		Rating:       rating,
		Feedback:     feedback,
	})
}

// Reject refuses to send a rejection without feedback
func (c *Cache) Reject(ctx context.Context, docID, feedback string) (*domain.DocumentView, error) {
	id, err := c.requireIdentity()
	if err != nil {
		return nil, err
	}
	feedback = strings.TrimSpace(feedback)
	if feedback == "" {
		return nil, errors.BadRequest("Feedback is required to reject a document", nil)
	}
	return c.decide(ctx, c.api.Reject, docID, domain.DecisionRequest{
		Organization: id.Organization,
		Email:        id.Email,
		Feedback:     feedback,
	})
}

type decideFunc func(ctx context.Context, id string, req domain.DecisionRequest) (*domain.DocumentView, error)

func (c *Cache) decide(ctx context.Context, call decideFunc, docID string, req domain.DecisionRequest) (*domain.DocumentView, error) {
	doc, err := call(ctx, docID, req)
	if err != nil {
		c.log.Error().Err(err).Str("document", docID).Msg("failed to record decision")
		return nil, err
	}

	if c.withState(func() { c.upsert(*doc, true) }) {
		c.publish(ctx, broadcast.NewUpdate(req.Organization, *doc, c.origin))
	}
	return doc, nil
}

// Apply reconciles one message from the bus. It reports whether the
// message was meant for this cache. Applying the same message twice leaves
// the same state as applying it once.
func (c *Cache) Apply(ctx context.Context, msg broadcast.Message) bool {
	if err := msg.Validate(); err != nil {
		c.log.Debug().Err(err).Msg("ignoring invalid broadcast")
		return false
	}
	data := msg.Data
	if c.identity == nil || data.Organization != c.identity.Organization {
		return false
	}
	if data.Origin != "" && data.Origin == c.origin {
		return false
	}

	switch data.Kind() {
	case broadcast.KindCreate:
		return c.withState(func() { c.upsert(*data.NewDocument, false) })
	case broadcast.KindUpdate:
		doc := *data.Document
		doc.ID = data.DocumentID
		return c.withState(func() { c.upsert(doc, true) })
	case broadcast.KindDelete:
		return c.withState(func() { c.remove(data.DocumentID) })
	default:
		c.Load(ctx)
		return true
	}
}

// Run applies bus messages until ctx is done or the bus closes
func (c *Cache) Run(ctx context.Context) error {
	ch, err := c.Listen(ctx)
	if err != nil {
		return err
	}
	return c.Consume(ctx, ch)
}

// Listen subscribes to the bus without applying anything yet, so callers
// can be sure no message published after it returns is missed.
func (c *Cache) Listen(ctx context.Context) (<-chan broadcast.Message, error) {
	if c.bus == nil {
		return nil, broadcast.ErrClosed
	}
	return c.bus.Subscribe(ctx)
}

// Consume applies messages from ch until ctx is done or ch closes
func (c *Cache) Consume(ctx context.Context, ch <-chan broadcast.Message) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			c.Apply(ctx, msg)
		}
	}
}

// Close unmounts the cache. Responses that arrive afterwards are dropped.
func (c *Cache) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

// Documents returns the documents matching the active filter
func (c *Cache) Documents() []domain.DocumentView {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]domain.DocumentView(nil), c.filtered...)
}

func (c *Cache) AllDocuments() []domain.DocumentView {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]domain.DocumentView(nil), c.all...)
}

func (c *Cache) Filter() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.filter
}

// SetFilter changes the active status filter, "all" shows everything
func (c *Cache) SetFilter(filter string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if filter == "" {
		filter = domain.FilterAll
	}
	c.filter = filter
	c.refilter()
}

// withState runs fn under the lock unless the cache is closed
func (c *Cache) withState(fn func()) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	fn()
	return true
}

func (c *Cache) publish(ctx context.Context, msg broadcast.Message) {
	if c.bus == nil {
		return
	}
	if err := c.bus.Publish(ctx, msg); err != nil {
		c.log.Warn().Err(err).Msg("failed to broadcast document change")
	}
}

func (c *Cache) indexOf(id string) int {
	for i := range c.all {
		if c.all[i].ID == id {
			return i
		}
	}
	return -1
}

// upsert appends doc when its id is new. An existing entry is replaced
// when replace is set and left alone otherwise.
func (c *Cache) upsert(doc domain.DocumentView, replace bool) {
	if i := c.indexOf(doc.ID); i >= 0 {
		if !replace {
			return
		}
		c.all[i] = doc
	} else {
		c.all = append(c.all, doc)
	}
	c.refilter()
}

func (c *Cache) remove(id string) {
	i := c.indexOf(id)
	if i < 0 {
		return
	}
	c.all = append(c.all[:i], c.all[i+1:]...)
	c.refilter()
}

// refilter rebuilds the filtered view in the order of the full list
func (c *Cache) refilter() {
	c.filtered = c.filtered[:0]
	for _, d := range c.all {
		if d.Status.Matches(c.filter) {
			c.filtered = append(c.filtered, d)
		}
	}
}
