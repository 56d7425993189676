// Package testutil holds helpers shared by the package tests: a migrated
// template database, reading fixtures and JSON helpers for handlers.
package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/banshee-data/trainlog/internal/db"
)

// AssertStatus reports a status mismatch along with the response body.
func AssertStatus(t testing.TB, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Errorf("status = %d, want %d: %s", w.Code, want, w.Body.String())
	}
}

// DoJSON sends body, JSON encoded unless nil, to h.
func DoJSON(t testing.TB, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

// DecodeJSON decodes the response body into a T.
func DecodeJSON[T any](t testing.TB, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(w.Body).Decode(&v), w.Body.String())
	return v
}

// Template is a migrated database file. Tests copy it instead of running
// the migrations again.
type Template struct {
	dir  string
	path string
}

// NewTemplate migrates a fresh database in a temporary directory and
// checkpoints it so the main file holds the whole schema.
func NewTemplate() (*Template, error) {
	dir, err := os.MkdirTemp("", "trainlog-template-*")
	if err != nil {
		return nil, fmt.Errorf("create template dir: %w", err)
	}
	tp := &Template{dir: dir, path: filepath.Join(dir, "template.db")}
	if err := tp.build(); err != nil {
		tp.Remove()
		return nil, err
	}
	return tp, nil
}

func (tp *Template) build() error {
	d, err := db.NewDB(tp.path)
	if err != nil {
		return err
	}
	if _, err := d.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		d.Close()
		return fmt.Errorf("checkpoint template: %w", err)
	}
	return d.Close()
}

// Remove deletes the template directory.
func (tp *Template) Remove() { _ = os.RemoveAll(tp.dir) }

// Open copies the template under t.TempDir and opens the copy, closing it
// on cleanup.
func (tp *Template) Open(t testing.TB) *db.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "trainlog.db")
	require.NoError(t, copyFile(tp.path, path))
	d, err := db.NewDB(path)
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	return d
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
