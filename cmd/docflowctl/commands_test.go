package main

import (
	"bytes"
	"docflow/internal/domain"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeServer answers the routes the CLI uses without realtime support
func fakeServer(t *testing.T, rejects *int32) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/auth", func(w http.ResponseWriter, r *http.Request) {
		var req domain.LoginRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		_ = json.NewEncoder(w).Encode(domain.SessionView{Email: req.Email, Username: "alice", Organization: "acme", Token: "tok"})
	})
	mux.HandleFunc("/documents", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode([]domain.DocumentView{
			{ID: "d1", Title: "Roadmap", Status: domain.StatusTodo, Author: domain.PersonView{Name: "bob"}},
			{ID: "d2", Title: "Budget", Status: domain.StatusDraft, Author: domain.PersonView{Name: "alice"}},
		})
	})
	mux.HandleFunc("/documents/d1/reject", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(rejects, 1)
		_ = json.NewEncoder(w).Encode(domain.DocumentView{ID: "d1", Status: domain.StatusRejected})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := rootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestLoginListLogout(t *testing.T) {
	var rejects int32
	srv := fakeServer(t, &rejects)
	file := filepath.Join(t.TempDir(), "session.gob")
	common := []string{"--server", srv.URL, "--session-file", file}

	out, err := run(t, append(common, "login", "alice@acme.com")...)
	require.NoError(t, err)
	assert.Contains(t, out, "Signed in as alice (acme)")

	// a new process picks the identity up from the session file
	out, err = run(t, append(common, "list", "--status", "todo")...)
	require.NoError(t, err)
	assert.Contains(t, out, "Roadmap")
	assert.NotContains(t, out, "Budget")

	_, err = run(t, append(common, "logout")...)
	require.NoError(t, err)

	_, err = run(t, append(common, "list")...)
	assert.Error(t, err)
}

func TestRejectNeedsFeedback(t *testing.T) {
	var rejects int32
	srv := fakeServer(t, &rejects)
	file := filepath.Join(t.TempDir(), "session.gob")
	common := []string{"--server", srv.URL, "--session-file", file}

	_, err := run(t, append(common, "login", "alice@acme.com")...)
	require.NoError(t, err)

	_, err = run(t, append(common, "reject", "d1")...)
	require.Error(t, err)
	assert.Zero(t, atomic.LoadInt32(&rejects))

	out, err := run(t, append(common, "reject", "d1", "--feedback", "too vague")...)
	require.NoError(t, err)
	assert.Contains(t, out, "d1 is rejected")
	assert.Equal(t, int32(1), atomic.LoadInt32(&rejects))
}

func TestUpdateRejectsUnknownStatus(t *testing.T) {
	_, err := run(t, "--session-file", filepath.Join(t.TempDir(), "s.gob"), "update", "d1", "--status", "archived")
	assert.Error(t, err)
}
