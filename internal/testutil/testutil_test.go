package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingTB captures failures instead of failing the running test.
type recordingTB struct {
	testing.TB
	failures []string
}

func (r *recordingTB) Helper() {}

func (r *recordingTB) Name() string { return "recording" }

func (r *recordingTB) Errorf(format string, args ...any) {
	r.failures = append(r.failures, fmt.Sprintf(format, args...))
}

func (r *recordingTB) FailNow() { runtime.Goexit() }

// record runs fn against a recordingTB on its own goroutine so FailNow can
// exit it.
func record(fn func(tb testing.TB)) []string {
	r := &recordingTB{}
	done := make(chan struct{})
	go func() {
		defer close(done)
		fn(r)
	}()
	<-done
	return r.failures
}

func TestAssertStatus(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	w.WriteHeader(http.StatusConflict)
	w.WriteString(`{"error":"activity is recording"}`)

	assert.Empty(t, record(func(tb testing.TB) { AssertStatus(tb, w, http.StatusConflict) }))
	failures := record(func(tb testing.TB) { AssertStatus(tb, w, http.StatusOK) })
	require.Len(t, failures, 1)
	assert.Contains(t, failures[0], "activity is recording")
}

func TestDoJSON(t *testing.T) {
	t.Parallel()

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var in map[string]int
		if r.ContentLength > 0 {
			if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
		}
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(map[string]any{"method": r.Method, "n": in["n"], "type": r.Header.Get("Content-Type")})
	})

	w := DoJSON(t, h, http.MethodPost, "/api/live/readings", map[string]int{"n": 3})
	AssertStatus(t, w, http.StatusAccepted)
	got := DecodeJSON[map[string]any](t, w)
	assert.Equal(t, map[string]any{"method": "POST", "n": 3.0, "type": "application/json"}, got)

	w = DoJSON(t, h, http.MethodGet, "/api/activities", nil)
	got = DecodeJSON[map[string]any](t, w)
	assert.Equal(t, "", got["type"])
	assert.Equal(t, 0.0, got["n"])
}

func TestDecodeJSONFailsOnBadBody(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	w.WriteString("not json")
	failures := record(func(tb testing.TB) { DecodeJSON[map[string]int](tb, w) })
	assert.NotEmpty(t, failures)
}

func TestTemplateCopiesAreIndependent(t *testing.T) {
	tp, err := NewTemplate()
	require.NoError(t, err)
	t.Cleanup(tp.Remove)
	ctx := context.Background()

	a := tp.Open(t)
	b := tp.Open(t)
	CreateRun(t, a, Run{Type: "Running", Start: 1_700_000_000, Seconds: 60})

	na, err := a.ActivityCount(ctx)
	require.NoError(t, err)
	nb, err := b.ActivityCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, na)
	assert.Zero(t, nb)
}
