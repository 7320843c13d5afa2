package doccache

import (
	"bytes"
	"context"
	"docflow/internal/domain"
	"docflow/internal/errors"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// API is the slice of the server the cache depends on
type API interface {
	ListDocuments(ctx context.Context, organization, email string) ([]domain.DocumentView, error)
	CreateDocument(ctx context.Context, req domain.CreateDocumentRequest) (*domain.DocumentView, error)
	UpdateDocument(ctx context.Context, req domain.UpdateDocumentRequest) (*domain.DocumentView, error)
	DeleteDocument(ctx context.Context, id string, req domain.DeleteDocumentRequest) error
	Approve(ctx context.Context, id string, req domain.DecisionRequest) (*domain.DocumentView, error)
	Reject(ctx context.Context, id string, req domain.DecisionRequest) (*domain.DocumentView, error)
}

// HTTPClient talks to the docflow server over its JSON routes
type HTTPClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewHTTPClient(baseURL, token string) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// WithToken returns a copy of the client that authenticates with token
func (c *HTTPClient) WithToken(token string) *HTTPClient {
	cp := *c
	cp.token = token
	return &cp
}

// do sends body as JSON and decodes the response into out. Non 2xx
// responses come back as *errors.AppError carrying the server's message.
func (c *HTTPClient) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Unavailable("Service unavailable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var payload errors.AppError
		b, _ := io.ReadAll(resp.Body)
		if json.Unmarshal(b, &payload) != nil || payload.Message == "" {
			payload.Message = http.StatusText(resp.StatusCode)
		}
		return errors.NewAppError(resp.StatusCode, payload.Message,
			fmt.Errorf("%s %s: status=%d", method, path, resp.StatusCode))
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *HTTPClient) Login(ctx context.Context, req domain.LoginRequest) (*domain.SessionView, error) {
	var out domain.SessionView
	if err := c.do(ctx, http.MethodPost, "/auth", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) ListDocuments(ctx context.Context, organization, email string) ([]domain.DocumentView, error) {
	var out []domain.DocumentView
	query := url.Values{"organization": {organization}, "email": {email}}
	if err := c.do(ctx, http.MethodGet, "/documents", query, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) GetDocument(ctx context.Context, id, organization string) (*domain.DocumentView, error) {
	var out domain.DocumentView
	query := url.Values{"organization": {organization}}
	if err := c.do(ctx, http.MethodGet, "/documents/"+url.PathEscape(id), query, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) CreateDocument(ctx context.Context, req domain.CreateDocumentRequest) (*domain.DocumentView, error) {
	var out domain.DocumentView
	if err := c.do(ctx, http.MethodPost, "/documents", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) UpdateDocument(ctx context.Context, req domain.UpdateDocumentRequest) (*domain.DocumentView, error) {
	var out domain.DocumentView
	if err := c.do(ctx, http.MethodPut, "/documents", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) DeleteDocument(ctx context.Context, id string, req domain.DeleteDocumentRequest) error {
	return c.do(ctx, http.MethodDelete, "/documents/"+url.PathEscape(id), nil, req, nil)
}

func (c *HTTPClient) Approve(ctx context.Context, id string, req domain.DecisionRequest) (*domain.DocumentView, error) {
	var out domain.DocumentView
	if err := c.do(ctx, http.MethodPost, "/documents/"+url.PathEscape(id)+"/approve", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) Reject(ctx context.Context, id string, req domain.DecisionRequest) (*domain.DocumentView, error) {
	var out domain.DocumentView
	if err := c.do(ctx, http.MethodPost, "/documents/"+url.PathEscape(id)+"/reject", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) ListUsers(ctx context.Context, organization string) ([]domain.UserView, error) {
	var out []domain.UserView
	query := url.Values{"organization": {organization}}
	if err := c.do(ctx, http.MethodGet, "/users", query, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
