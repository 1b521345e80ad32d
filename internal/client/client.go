// Package client is the reconciliation layer a Go consumer embeds to
// follow its notification feed: it merges transient push-delivered events
// with the authoritative paginated REST history, de-duplicating by
// notification identity, and keeps the push channel alive across
// disconnects with bounded exponential backoff.
//
// Push is strictly an enhancement. A client that never manages to connect
// the push channel stays fully functional through Refresh and pagination.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/jobpulse/notify/internal/domain"
	"github.com/jobpulse/notify/internal/ws"
)

// State is the push-channel connection state. The history overlay is
// independent of it: pages load and refresh whatever the channel does.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateRegistered   State = "registered"
)

// DefaultPushURL is the documented local default for the push endpoint,
// used when Config.PushURL is unset.
const DefaultPushURL = "ws://localhost:8080/ws"

// Config configures a Client.
type Config struct {
	// BaseURL of the notification REST API, e.g. "http://localhost:8080".
	BaseURL string
	// PushURL of the websocket endpoint; DefaultPushURL when empty.
	PushURL string
	// UserID is the identity announced over the push channel and sent as
	// X-User-ID on REST calls.
	UserID string
	// PageSize for history fetches; 10 when zero.
	PageSize int
	Backoff  BackoffPolicy
	// HTTPClient for REST calls; http.DefaultClient when nil.
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Client maintains the in-memory, newest-first notification view for one
// user session.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *zap.Logger

	mu         sync.RWMutex
	state      State
	items      []*domain.Notification
	seen       map[string]struct{}
	page       int
	totalPages int
	total      int
	unread     int
	pendingNew int
	historyErr error

	alerts chan *domain.Notification

	runMu     sync.Mutex
	running   bool
	cancelRun context.CancelFunc
	runDone   chan struct{}

	connMu sync.Mutex
	conn   *websocket.Conn
}

func New(cfg Config) *Client {
	if cfg.PushURL == "" {
		cfg.PushURL = DefaultPushURL
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 10
	}
	if cfg.Backoff == (BackoffPolicy{}) {
		cfg.Backoff = DefaultBackoff
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		cfg:        cfg,
		httpClient: httpClient,
		logger:     logger,
		state:      StateDisconnected,
		seen:       make(map[string]struct{}),
		page:       1,
		alerts:     make(chan *domain.Notification, 16),
	}
}

// State returns the current push-channel state.
func (c *Client) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Items returns a snapshot of the currently loaded page, newest first
// (with any pushes prepended while viewing page 1).
func (c *Client) Items() []*domain.Notification {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*domain.Notification, len(c.items))
	copy(out, c.items)
	return out
}

// Unread returns the unread count. Between refreshes the count is
// provisional: pushes increment it locally, and each Refresh re-derives
// it from the authoritative payload.
func (c *Client) Unread() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.unread
}

// Page returns the currently loaded page number and total page count.
func (c *Client) Page() (page, totalPages int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.page, c.totalPages
}

// Total returns the full history size as of the last fetch, adjusted
// for pushes merged since.
func (c *Client) Total() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.total
}

// PendingNewer reports how many pushed notifications arrived while a page
// other than 1 was displayed — a "new notifications available" affordance
// rather than a mutation of the visible page.
func (c *Client) PendingNewer() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.pendingNew
}

// HistoryErr returns the error of the last failed history fetch, or nil.
// A failed fetch is a retryable state, distinguished from the legitimate
// zero-notification empty state.
func (c *Client) HistoryErr() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.historyErr
}

// Alerts delivers each push-received notification once, for transient
// user-facing surfacing. The channel is buffered; alerts overflowing an
// inattentive consumer are dropped, never blocking the read loop.
func (c *Client) Alerts() <-chan *domain.Notification {
	return c.alerts
}

// LoadHistory fetches page 1 and populates the in-memory list.
func (c *Client) LoadHistory(ctx context.Context) error {
	return c.fetchPage(ctx, 1)
}

// Refresh re-fetches the current page and replaces its contents. This is
// the recovery path for anything missed by push: a disconnected window, a
// stale registration, or a silently failed push.
func (c *Client) Refresh(ctx context.Context) error {
	c.mu.RLock()
	page := c.page
	c.mu.RUnlock()
	return c.fetchPage(ctx, page)
}

// NextPage loads the following (older) page, delegating entirely to the
// store's paginated query.
func (c *Client) NextPage(ctx context.Context) error {
	c.mu.RLock()
	page, totalPages := c.page, c.totalPages
	c.mu.RUnlock()
	if totalPages > 0 && page >= totalPages {
		return nil
	}
	return c.fetchPage(ctx, page+1)
}

// PrevPage loads the preceding (newer) page.
func (c *Client) PrevPage(ctx context.Context) error {
	c.mu.RLock()
	page := c.page
	c.mu.RUnlock()
	if page <= 1 {
		return nil
	}
	return c.fetchPage(ctx, page-1)
}

func (c *Client) fetchPage(ctx context.Context, page int) error {
	url := fmt.Sprintf("%s/api/v1/notifications?page=%d&size=%d", c.cfg.BaseURL, page, c.cfg.PageSize)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("X-User-ID", c.cfg.UserID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.setHistoryErr(fmt.Errorf("fetch history: %w", err))
		return c.HistoryErr()
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.setHistoryErr(fmt.Errorf("fetch history: unexpected status %d", resp.StatusCode))
		return c.HistoryErr()
	}

	var payload domain.Page
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		c.setHistoryErr(fmt.Errorf("decode history: %w", err))
		return c.HistoryErr()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = payload.Items
	c.seen = make(map[string]struct{}, len(payload.Items))
	for _, n := range payload.Items {
		c.seen[n.ID] = struct{}{}
	}
	c.page = payload.Page
	c.totalPages = payload.TotalPages
	c.total = payload.Total
	c.unread = payload.Unread
	if payload.Page == 1 {
		c.pendingNew = 0
	}
	c.historyErr = nil
	return nil
}

func (c *Client) setHistoryErr(err error) {
	c.mu.Lock()
	c.historyErr = err
	c.mu.Unlock()
}

// Connect starts the push channel maintenance loop: dial, register,
// consume pushes, and on disconnect retry with bounded backoff. When the
// attempt cap is reached the client stays disconnected until Reconnect.
// Calling Connect while a loop is already running is a no-op.
func (c *Client) Connect(ctx context.Context) {
	c.runMu.Lock()
	defer c.runMu.Unlock()
	if c.running {
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	c.running = true
	c.cancelRun = cancel
	c.runDone = make(chan struct{})
	go c.run(runCtx)
}

// Reconnect resets the attempt counter and restarts the maintenance loop.
// This is the manual recovery action after the backoff cap was reached.
func (c *Client) Reconnect(ctx context.Context) {
	c.stopRun()
	c.Connect(ctx)
}

// Close tears down the push channel and stops all reconnect timers.
// The history remains readable; only live delivery stops.
func (c *Client) Close() {
	c.stopRun()
}

func (c *Client) stopRun() {
	c.runMu.Lock()
	cancel := c.cancelRun
	done := c.runDone
	c.runMu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	c.closeConn()
	if done != nil {
		<-done
	}
}

func (c *Client) run(ctx context.Context) {
	defer func() {
		c.setState(StateDisconnected)
		c.runMu.Lock()
		c.running = false
		close(c.runDone)
		c.runMu.Unlock()
	}()

	attempt := 0
	for {
		if ctx.Err() != nil {
			return
		}

		c.setState(StateConnecting)
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.cfg.PushURL, nil)
		if err != nil {
			c.setState(StateDisconnected)
			attempt++
			if !c.waitRetry(ctx, attempt, err) {
				return
			}
			continue
		}

		// Publish the handle before anything else so a concurrent Close
		// always finds a socket to tear down; then re-check cancellation
		// for the window where Close ran between dial and publish.
		c.setConn(conn)
		if ctx.Err() != nil {
			c.setConn(nil)
			_ = conn.Close()
			return
		}

		// Registration is a distinct step from the transport connection:
		// until this announcement lands, the session receives nothing.
		if err := conn.WriteJSON(ws.Envelope{Event: ws.EventRegister, UserID: c.cfg.UserID}); err != nil {
			c.setConn(nil)
			_ = conn.Close()
			c.setState(StateDisconnected)
			attempt++
			if !c.waitRetry(ctx, attempt, err) {
				return
			}
			continue
		}

		c.setState(StateRegistered)
		attempt = 0
		c.logger.Info("push channel registered", zap.String("user_id", c.cfg.UserID))

		c.readLoop(ctx, conn)

		c.setConn(nil)
		_ = conn.Close()
		c.setState(StateDisconnected)
		if ctx.Err() != nil {
			return
		}
		attempt++
		if !c.waitRetry(ctx, attempt, nil) {
			return
		}
	}
}

// waitRetry sleeps out the backoff delay for the given attempt number.
// Every retry path in the maintenance loop funnels through here so the
// attempt cap and the delay schedule apply uniformly, whatever stage of
// connection setup failed. Returns false when the cap is exhausted or
// the context was canceled, ending the loop.
func (c *Client) waitRetry(ctx context.Context, attempt int, cause error) bool {
	if c.cfg.Backoff.Exhausted(attempt) {
		c.logger.Warn("push channel: reconnect attempts exhausted",
			zap.Int("attempts", attempt-1))
		return false
	}
	delay := c.cfg.Backoff.Delay(attempt)
	c.logger.Debug("push channel: backing off before retry",
		zap.Duration("delay", delay), zap.Error(cause))
	select {
	case <-time.After(delay):
		return true
	case <-ctx.Done():
		return false
	}
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				c.logger.Debug("push channel read ended", zap.Error(err))
			}
			return
		}

		env, err := ws.DecodeEnvelope(raw)
		if err != nil {
			c.logger.Debug("ignoring malformed push frame", zap.Error(err))
			continue
		}
		if env.Event != ws.EventNotification || env.Data == nil {
			continue
		}
		c.applyPush(env.Data)
	}
}

// applyPush merges one push-delivered notification into the local view.
//
// De-duplication by identity guards the race where the history fetch and
// the push both deliver the same notification. Pushes are defined to be
// newer than anything loaded, so page 1 prepends without re-sorting;
// any other page keeps its contents and counts the arrival instead.
func (c *Client) applyPush(n *domain.Notification) {
	c.mu.Lock()
	if _, dup := c.seen[n.ID]; dup {
		c.mu.Unlock()
		return
	}
	c.seen[n.ID] = struct{}{}
	c.total++
	if !n.IsRead {
		c.unread++ // provisional until the next refresh
	}
	if c.page == 1 {
		c.items = append([]*domain.Notification{n}, c.items...)
	} else {
		c.pendingNew++
	}
	c.mu.Unlock()

	select {
	case c.alerts <- n:
	default:
		// Alert consumer is not keeping up; dropping the transient alert
		// is harmless, the notification itself is already merged.
	}
}

func (c *Client) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func (c *Client) setConn(conn *websocket.Conn) {
	c.connMu.Lock()
	c.conn = conn
	c.connMu.Unlock()
}

func (c *Client) closeConn() {
	c.connMu.Lock()
	if c.conn != nil {
		_ = c.conn.Close()
	}
	c.connMu.Unlock()
}
