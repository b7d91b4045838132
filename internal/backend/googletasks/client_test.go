package googletasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
	tasks "google.golang.org/api/tasks/v1"

	"ltask/internal/service"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func jsonResponse(code int, body string) *http.Response {
	return &http.Response{
		StatusCode: code,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

// newTestClient wires the API client to a canned transport, with sleeps
// disabled so retry tests run instantly.
func newTestClient(t *testing.T, rt roundTripFunc) (*Client, *int) {
	t.Helper()
	c, err := NewWithHTTPClient(context.Background(), &http.Client{Transport: rt})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	slept := 0
	c.sleep = func(time.Duration) { slept++ }
	return c, &slept
}

func TestCreateRetriesTransientFailures(t *testing.T) {
	calls := 0
	c, slept := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		calls++
		if calls < 3 {
			return jsonResponse(http.StatusServiceUnavailable, `{}`), nil
		}
		return jsonResponse(http.StatusOK,
			`{"id":"r1","title":"hello","updated":"2026-08-24T10:00:00.000Z"}`), nil
	})

	got, err := c.Create(context.Background(), service.RemoteTask{Title: "hello"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if got.ID != "r1" || got.Title != "hello" {
		t.Errorf("created = %+v", got)
	}
	if got.Updated.IsZero() {
		t.Error("server updated timestamp not parsed")
	}
	if calls != 3 {
		t.Errorf("made %d calls, want 3", calls)
	}
	if *slept != 2 {
		t.Errorf("slept %d times, want 2", *slept)
	}
}

func TestRetryBudgetExhausted(t *testing.T) {
	calls := 0
	c, _ := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		calls++
		return jsonResponse(http.StatusServiceUnavailable, `{}`), nil
	})
	c.maxRetries = 2

	_, err := c.Create(context.Background(), service.RemoteTask{Title: "x"})
	if err == nil {
		t.Fatal("create succeeded against a dead server")
	}
	if !service.IsTransient(err) {
		t.Errorf("error not transient: %v", err)
	}
	if calls != 3 { // initial attempt plus two retries
		t.Errorf("made %d calls, want 3", calls)
	}
}

func TestFatalRequestIsNotRetried(t *testing.T) {
	calls := 0
	c, slept := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		calls++
		return jsonResponse(http.StatusBadRequest, `{}`), nil
	})

	_, err := c.Update(context.Background(), "r1", service.RemoteTask{Title: "x"})
	if !service.IsFatalRequest(err) {
		t.Errorf("error not fatal-request: %v", err)
	}
	if calls != 1 || *slept != 0 {
		t.Errorf("calls = %d, sleeps = %d, want 1 and 0", calls, *slept)
	}
}

func TestAuthErrorIsNotRetried(t *testing.T) {
	calls := 0
	c, _ := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		calls++
		return jsonResponse(http.StatusUnauthorized, `{}`), nil
	})

	_, err := c.Create(context.Background(), service.RemoteTask{Title: "x"})
	if !service.IsAuth(err) {
		t.Errorf("error not auth: %v", err)
	}
	if calls != 1 {
		t.Errorf("made %d calls, want 1", calls)
	}
}

func TestDeleteAlreadyGone(t *testing.T) {
	c, _ := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusNotFound, `{}`), nil
	})

	if err := c.Delete(context.Background(), "r-gone"); err != nil {
		t.Errorf("deleting an absent task failed: %v", err)
	}
}

func TestListChangedSincePaginates(t *testing.T) {
	var queries []string
	c, _ := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		queries = append(queries, r.URL.RawQuery)
		if r.URL.Query().Get("pageToken") == "" {
			return jsonResponse(http.StatusOK, `{
				"items": [
					{"id":"r1","title":"one","updated":"2026-08-24T10:00:00.000Z"},
					{"id":"r2","title":"two","updated":"2026-08-24T10:01:00.000Z","deleted":true}
				],
				"nextPageToken": "page2"
			}`), nil
		}
		return jsonResponse(http.StatusOK, `{
			"items": [
				{"id":"r3","title":"three","updated":"2026-08-24T10:02:00.000Z","status":"completed"}
			]
		}`), nil
	})

	since := time.Date(2026, 8, 24, 9, 0, 0, 0, time.UTC)
	seq := c.ListChangedSince(context.Background(), since)

	var got []service.RemoteTask
	for seq.Next() {
		got = append(got, seq.Task())
	}
	if err := seq.Err(); err != nil {
		t.Fatalf("seq: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d tasks, want 3", len(got))
	}
	if !got[1].Deleted {
		t.Error("tombstone flag lost")
	}
	if !got[2].Completed {
		t.Error("completed status lost")
	}

	if len(queries) != 2 {
		t.Fatalf("made %d list calls, want 2", len(queries))
	}
	for _, q := range queries {
		if !strings.Contains(q, "updatedMin=") {
			t.Errorf("query missing updatedMin: %s", q)
		}
		if !strings.Contains(q, "showDeleted=true") {
			t.Errorf("query missing showDeleted: %s", q)
		}
	}
}

func TestListFullWhenNoCheckpoint(t *testing.T) {
	c, _ := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		if r.URL.Query().Get("updatedMin") != "" {
			t.Error("first sync must not send updatedMin")
		}
		return jsonResponse(http.StatusOK, `{"items":[]}`), nil
	})

	seq := c.ListChangedSince(context.Background(), time.Time{})
	for seq.Next() {
	}
	if err := seq.Err(); err != nil {
		t.Fatalf("seq: %v", err)
	}
}

func TestListErrorPoisonsSequence(t *testing.T) {
	c, _ := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusForbidden, `{}`), nil
	})

	seq := c.ListChangedSince(context.Background(), time.Time{})
	if seq.Next() {
		t.Fatal("sequence yielded a task from a failed listing")
	}
	if err := seq.Err(); !service.IsAuth(err) {
		t.Errorf("err = %v, want auth", err)
	}
	// Poisoned for good: further Next calls stay false.
	if seq.Next() {
		t.Error("sequence recovered after an error")
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want service.Kind
	}{
		{"unauthorized", &googleapi.Error{Code: 401}, service.KindFatalAuth},
		{"forbidden", &googleapi.Error{Code: 403}, service.KindFatalAuth},
		{"rate limited", &googleapi.Error{Code: 429}, service.KindTransient},
		{"server error", &googleapi.Error{Code: 503}, service.KindTransient},
		{"bad request", &googleapi.Error{Code: 400}, service.KindFatalRequest},
		{"token refresh", &oauth2.RetrieveError{}, service.KindFatalAuth},
		{"plain network error", fmt.Errorf("connection reset"), service.KindTransient},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify("op", tt.err)
			if service.ErrorKind(got) != tt.want {
				t.Errorf("kind = %s, want %s", service.ErrorKind(got), tt.want)
			}
		})
	}

	// Already-classified errors pass through untouched.
	orig := service.NewError(service.KindFatalRequest, "create", errors.New("nope"))
	if got := classify("create", orig); got != orig {
		t.Errorf("reclassified an already classified error")
	}
}

func TestToAPIPayload(t *testing.T) {
	due := time.Date(2026, 12, 24, 0, 0, 0, 0, time.UTC)
	at := toAPI(service.RemoteTask{Title: "t", Due: due, Completed: true})
	if at.Due != "2026-12-24T00:00:00Z" {
		t.Errorf("due = %q", at.Due)
	}
	if at.Status != "completed" || at.Completed == nil {
		t.Errorf("completed payload = status %q, timestamp %v", at.Status, at.Completed)
	}

	// Cleared fields are sent as explicit nulls so the API unsets them.
	at = toAPI(service.RemoteTask{Title: "t"})
	if at.Status != "needsAction" {
		t.Errorf("status = %q", at.Status)
	}
	wantNull := map[string]bool{"Due": true, "Completed": true}
	for _, f := range at.NullFields {
		delete(wantNull, f)
	}
	if len(wantNull) != 0 {
		t.Errorf("missing null fields: %v", wantNull)
	}
}

func TestFromAPINormalization(t *testing.T) {
	rt := fromAPI(&tasks.Task{
		Id:      "r1",
		Title:   "x",
		Status:  "completed",
		Deleted: true,
		Updated: "2026-08-24T10:00:00.000Z",
		Due:     "2026-12-24T00:00:00.000Z",
	})
	if !rt.Completed || !rt.Deleted {
		t.Errorf("flags = completed %v deleted %v", rt.Completed, rt.Deleted)
	}
	if rt.Due.Format("2006-01-02") != "2026-12-24" {
		t.Errorf("due = %v", rt.Due)
	}
	if rt.Updated.IsZero() {
		t.Error("updated not parsed")
	}
}
