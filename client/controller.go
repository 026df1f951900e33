package client

import (
	"context"
	"sync"
	"time"

	"noveldesk/internal/novel"
)

// SaveState is the controller's UI-facing persistence status. It lives only
// in memory and only the controller transitions it.
type SaveState string

const (
	StateIdle   SaveState = "idle"
	StateSaving SaveState = "saving"
	StateSaved  SaveState = "saved"
	StateError  SaveState = "error"
)

// API is the slice of the server the controller needs. *Client satisfies it.
type API interface {
	FetchNovel(ctx context.Context) (*novel.DocumentTree, error)
	SaveNovel(ctx context.Context, tree *novel.DocumentTree) error
}

const defaultDebounceWindow = time.Second

// Controller owns one logical document's lifecycle: initial load, edit
// intake, debounced persistence, save-state reporting, and teardown flush.
type Controller struct {
	api      API
	debounce *debouncer

	mu          sync.Mutex
	loaded      bool
	tree        *novel.DocumentTree
	fingerprint string
	state       SaveState
	lastSavedAt time.Time
}

// NewController builds a controller around an authenticated API client. A
// nil api means no identity yet: the controller stays inert and makes no
// network calls until recreated with one.
func NewController(api API, window time.Duration) *Controller {
	if window <= 0 {
		window = defaultDebounceWindow
	}
	c := &Controller{api: api, state: StateIdle}
	c.debounce = newDebouncer(window, c.persist)
	return c
}

// Attach issues the initial load. Without an identity it does nothing: an
// unauthenticated fetch could only produce a 401 loop. A load failure is
// terminal for the session; the caller surfaces it and the user reloads.
func (c *Controller) Attach(ctx context.Context) error {
	if c.api == nil {
		return nil
	}
	tree, err := c.api.FetchNovel(ctx)
	if err != nil {
		return err
	}
	novel.Normalize(tree)

	c.mu.Lock()
	c.tree = tree
	c.fingerprint = novel.Fingerprint(tree)
	c.loaded = true
	c.state = StateIdle
	c.mu.Unlock()
	return nil
}

// NotifyChange is called on every change to the authoritative tree, however
// small; calls within the debounce window collapse into one trailing save.
// Changes arriving before the initial load completes are dropped: saving the
// placeholder tree over real data is the one unrecoverable mistake here.
func (c *Controller) NotifyChange(tree *novel.DocumentTree) {
	c.mu.Lock()
	if !c.loaded {
		c.mu.Unlock()
		return
	}
	c.tree = novel.Clone(tree)
	c.state = StateSaving
	pending := c.tree
	c.mu.Unlock()

	c.debounce.schedule(pending)
}

// ApplyRemote reconciles a freshly fetched tree against local state.
// Remote wins whenever they differ (last-load-wins, no merge); the report
// tells the caller whether a re-render is needed. Equal trees change
// nothing, which preserves cursor position and undo history in the editor.
func (c *Controller) ApplyRemote(remote *novel.DocumentTree) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.loaded {
		return false
	}
	fp := novel.Fingerprint(remote)
	if fp == novel.Fingerprint(c.tree) {
		return false
	}
	c.tree = novel.Clone(remote)
	c.fingerprint = fp
	return true
}

// Detach flushes any pending debounced save so navigation or shutdown never
// drops the last second of edits, then cancels the timer. Run it as a
// guaranteed cleanup on every exit path.
func (c *Controller) Detach() {
	c.debounce.flush()
	c.debounce.cancel()
}

// Tree returns the controller's copy of the authoritative tree.
func (c *Controller) Tree() *novel.DocumentTree {
	c.mu.Lock()
	defer c.mu.Unlock()
	return novel.Clone(c.tree)
}

// State reports the save state and the time of the last successful save.
func (c *Controller) State() (SaveState, time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state, c.lastSavedAt
}

// persist is the debounced save path. The fingerprint comparison is the
// backpressure valve: a tree identical to the last persisted snapshot makes
// no network call at all.
func (c *Controller) persist(tree *novel.DocumentTree) {
	fp := novel.Fingerprint(tree)

	c.mu.Lock()
	if fp == c.fingerprint {
		if c.lastSavedAt.IsZero() {
			c.state = StateIdle
		} else {
			c.state = StateSaved
		}
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), defaultRequestTimeout)
	defer cancel()
	err := c.api.SaveNovel(ctx, tree)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		// No automatic retry: the next edit re-triggers NotifyChange,
		// which bounds retries to actual further edits.
		c.state = StateError
		return
	}
	c.fingerprint = fp
	c.state = StateSaved
	c.lastSavedAt = time.Now()
}
