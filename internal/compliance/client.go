package compliance

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"
)

const DefaultTopK = 5

// Analyzer runs a compliance check of a document against the regulation index
type Analyzer interface {
	Analyze(ctx context.Context, filename string, file io.Reader, query string, topK int) (json.RawMessage, error)
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			// report generation embeds and searches every chunk
			Timeout: 2 * time.Minute,
		},
	}
}

// Analyze posts the document to the audit service and returns its report untouched
func (c *Client) Analyze(ctx context.Context, filename string, file io.Reader, query string, topK int) (json.RawMessage, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	if err := form.WriteField("query", query); err != nil {
		return nil, err
	}
	if err := form.WriteField("top_k", strconv.Itoa(topK)); err != nil {
		return nil, err
	}
	if file != nil {
		part, err := form.CreateFormFile("file", filename)
		if err != nil {
			return nil, err
		}
		if _, err := io.Copy(part, file); err != nil {
			return nil, err
		}
	}
	if err := form.Close(); err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/api/audit/search", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf(
			"compliance service error: status=%d body=%s",
			resp.StatusCode,
			string(b),
		)
	}

	var report json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		return nil, err
	}
	return report, nil
}
