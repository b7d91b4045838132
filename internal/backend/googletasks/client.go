// Package googletasks implements the service.Remote contract using the
// Google Tasks API.
package googletasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	tasks "google.golang.org/api/tasks/v1"

	"ltask/internal/config"
	"ltask/internal/service"
)

const (
	// DefaultListID is the special ID for the default list. All tasks
	// live in the default list; local ordering is not mirrored remotely.
	DefaultListID = "@default"

	// PageSize is the number of tasks per page.
	PageSize = 100

	// APITimeout is the timeout for a single API call. Timeouts apply
	// per call, not per sync run.
	APITimeout = 10 * time.Second

	// DefaultMaxRetries caps retries of transient failures per call.
	DefaultMaxRetries = 4

	// retryBaseDelay is the first backoff interval; it doubles per
	// attempt up to retryMaxDelay, with jitter.
	retryBaseDelay = 500 * time.Millisecond
	retryMaxDelay  = 8 * time.Second

	// OAuth scope for Google Tasks
	tasksScope = "https://www.googleapis.com/auth/tasks"
)

// Client implements service.Remote using the Google Tasks API.
type Client struct {
	svc        *tasks.Service
	listID     string
	maxRetries int
	sleep      func(time.Duration) // replaced in tests
}

// New creates a new Google Tasks client.
// Requires oauth_client.json and token.json to exist; the token source
// refreshes the bearer credential transparently.
func New(ctx context.Context, cfg *config.Config) (*Client, error) {
	clientJSON, err := os.ReadFile(cfg.OAuthClientPath())
	if err != nil {
		return nil, fmt.Errorf("failed to read oauth_client.json: %w", err)
	}

	oauthConfig, err := google.ConfigFromJSON(clientJSON, tasksScope)
	if err != nil {
		return nil, fmt.Errorf("invalid oauth_client.json: %w", err)
	}

	tokenData, err := os.ReadFile(cfg.TokenPath())
	if err != nil {
		return nil, fmt.Errorf("failed to read token.json: %w", err)
	}

	var token oauth2.Token
	if err := json.Unmarshal(tokenData, &token); err != nil {
		return nil, fmt.Errorf("invalid token.json: %w", err)
	}

	tokenSource := oauthConfig.TokenSource(ctx, &token)
	httpClient := oauth2.NewClient(ctx, tokenSource)

	svc, err := tasks.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create tasks service: %w", err)
	}

	retries := cfg.Settings.MaxRetries
	if retries <= 0 {
		retries = DefaultMaxRetries
	}

	return &Client{
		svc:        svc,
		listID:     DefaultListID,
		maxRetries: retries,
		sleep:      time.Sleep,
	}, nil
}

// NewWithHTTPClient creates a client with a custom HTTP client (for testing).
func NewWithHTTPClient(ctx context.Context, httpClient *http.Client) (*Client, error) {
	svc, err := tasks.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, err
	}
	return &Client{
		svc:        svc,
		listID:     DefaultListID,
		maxRetries: DefaultMaxRetries,
		sleep:      time.Sleep,
	}, nil
}

// ListChangedSince returns a lazy sequence over all tasks modified after
// since, including completed, hidden and deleted ones. A zero since lists
// the entire remote state (first sync).
func (c *Client) ListChangedSince(ctx context.Context, since time.Time) service.TaskSeq {
	return &changeSeq{ctx: ctx, c: c, since: since}
}

// Create pushes a new task and returns the normalized task as the server
// stored it, including its assigned ID and updated timestamp.
func (c *Client) Create(ctx context.Context, t service.RemoteTask) (service.RemoteTask, error) {
	var resp *tasks.Task
	err := c.retry(ctx, "create", func(ctx context.Context) error {
		var err error
		resp, err = c.svc.Tasks.Insert(c.listID, toAPI(t)).Context(ctx).Do()
		return err
	})
	if err != nil {
		return service.RemoteTask{}, err
	}
	return fromAPI(resp), nil
}

// Update overwrites the remote task's fields and returns the normalized
// task as the server stored it.
func (c *Client) Update(ctx context.Context, id string, t service.RemoteTask) (service.RemoteTask, error) {
	var resp *tasks.Task
	err := c.retry(ctx, "update", func(ctx context.Context) error {
		var err error
		resp, err = c.svc.Tasks.Patch(c.listID, id, toAPI(t)).Context(ctx).Do()
		return err
	})
	if err != nil {
		return service.RemoteTask{}, err
	}
	return fromAPI(resp), nil
}

// Delete removes the remote task. A task that is already gone counts as
// deleted.
func (c *Client) Delete(ctx context.Context, id string) error {
	err := c.retry(ctx, "delete", func(ctx context.Context) error {
		err := c.svc.Tasks.Delete(c.listID, id).Context(ctx).Do()
		if isNotFound(err) {
			return nil // already gone is fine
		}
		return err
	})
	return err
}

// retry runs fn with a per-call timeout, retrying transient failures with
// capped exponential backoff plus jitter. Exhausting the retry budget
// surfaces the last transient error to the caller.
func (c *Client) retry(ctx context.Context, op string, fn func(context.Context) error) error {
	delay := retryBaseDelay
	for attempt := 0; ; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, APITimeout)
		err := fn(callCtx)
		cancel()
		if err == nil {
			return nil
		}

		werr := classify(op, err)
		if !service.IsTransient(werr) || attempt >= c.maxRetries {
			return werr
		}
		if ctx.Err() != nil {
			return service.NewError(service.KindTransient, op, ctx.Err())
		}

		// half the window fixed, half jittered
		c.sleep(delay/2 + time.Duration(rand.Int63n(int64(delay/2))))
		if delay < retryMaxDelay {
			delay *= 2
		}
	}
}

// classify maps an API error onto the Transient/FatalAuth/FatalRequest
// taxonomy. Anything unrecognized (DNS failures, resets, timeouts) is
// transient.
func classify(op string, err error) error {
	var se *service.Error
	if errors.As(err, &se) {
		return err
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch {
		case gerr.Code == http.StatusUnauthorized || gerr.Code == http.StatusForbidden:
			return service.NewError(service.KindFatalAuth, op, err)
		case gerr.Code == http.StatusTooManyRequests || gerr.Code >= 500:
			return service.NewError(service.KindTransient, op, err)
		default:
			return service.NewError(service.KindFatalRequest, op, err)
		}
	}

	// A failed token refresh means the credential is expired or revoked.
	var rerr *oauth2.RetrieveError
	if errors.As(err, &rerr) {
		return service.NewError(service.KindFatalAuth, op, err)
	}

	return service.NewError(service.KindTransient, op, err)
}

func isNotFound(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusNotFound
}

// changeSeq implements service.TaskSeq over paginated changed-since
// listings. Pages are fetched on demand; the first error poisons the
// sequence and Err reports it.
type changeSeq struct {
	ctx   context.Context
	c     *Client
	since time.Time

	items     []*tasks.Task
	pageToken string
	started   bool
	cur       service.RemoteTask
	err       error
}

func (s *changeSeq) Next() bool {
	if s.err != nil {
		return false
	}
	for len(s.items) == 0 {
		if s.started && s.pageToken == "" {
			return false
		}
		if !s.fetchPage() {
			return false
		}
	}
	s.cur = fromAPI(s.items[0])
	s.items = s.items[1:]
	return true
}

func (s *changeSeq) Task() service.RemoteTask { return s.cur }

func (s *changeSeq) Err() error { return s.err }

func (s *changeSeq) fetchPage() bool {
	var resp *tasks.Tasks
	err := s.c.retry(s.ctx, "list", func(ctx context.Context) error {
		call := s.c.svc.Tasks.List(s.c.listID).
			MaxResults(PageSize).
			ShowCompleted(true).
			ShowHidden(true).
			ShowDeleted(true).
			Context(ctx)
		if !s.since.IsZero() {
			call = call.UpdatedMin(s.since.UTC().Format(time.RFC3339))
		}
		if s.pageToken != "" {
			call = call.PageToken(s.pageToken)
		}
		var err error
		resp, err = call.Do()
		return err
	})
	if err != nil {
		s.err = err
		return false
	}
	s.started = true
	s.items = resp.Items
	s.pageToken = resp.NextPageToken
	return len(s.items) > 0 || s.pageToken != ""
}

// fromAPI normalizes an API task. The remote exposes deletion as a
// tombstone record rather than true removal; that flag carries straight
// into RemoteTask.Deleted.
func fromAPI(t *tasks.Task) service.RemoteTask {
	rt := service.RemoteTask{
		ID:        t.Id,
		Title:     t.Title,
		Notes:     t.Notes,
		Completed: t.Status == "completed",
		Deleted:   t.Deleted,
	}
	if t.Updated != "" {
		if ts, err := time.Parse(time.RFC3339, t.Updated); err == nil {
			rt.Updated = ts
		}
	}
	if t.Due != "" {
		if d, err := time.Parse(time.RFC3339, t.Due); err == nil {
			rt.Due = d.UTC().Truncate(24 * time.Hour)
		}
	}
	return rt
}

// toAPI builds the API payload. Due dates are sent as RFC3339 midnight
// UTC; the API only keeps day granularity.
func toAPI(t service.RemoteTask) *tasks.Task {
	at := &tasks.Task{
		Title: t.Title,
		Notes: t.Notes,
	}
	if !t.Due.IsZero() {
		due := time.Date(t.Due.Year(), t.Due.Month(), t.Due.Day(), 0, 0, 0, 0, time.UTC)
		at.Due = due.Format(time.RFC3339)
	} else {
		at.NullFields = append(at.NullFields, "Due")
	}
	if t.Completed {
		at.Status = "completed"
		completed := time.Now().UTC().Format(time.RFC3339)
		at.Completed = &completed
	} else {
		at.Status = "needsAction"
		at.NullFields = append(at.NullFields, "Completed")
	}
	return at
}
