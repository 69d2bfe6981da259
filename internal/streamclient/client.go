// Package streamclient keeps a local, deduplicated copy of a user's inbox in
// sync with the server. It follows the live event stream, reconnecting with
// linear backoff, and falls back to polling once reconnects are exhausted.
// A periodic reconciliation sync repairs events lost on a silently dropped
// connection or dropped by the server for a slow reader.
package streamclient

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/school-notify/internal/domain"
)

type State int

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	}
	return "disconnected"
}

// EventStream yields records from one live connection until it fails.
type EventStream interface {
	Next(ctx context.Context) (domain.NotificationRecord, error)
	Close() error
}

// Transport is the client side of the inbox endpoints.
type Transport interface {
	Connect(ctx context.Context) (EventStream, error)
	List(ctx context.Context, limit int) ([]domain.NotificationRecord, error)
	SyncSince(ctx context.Context, since time.Time) ([]domain.NotificationRecord, error)
	MarkAsRead(ctx context.Context, id string) error
	MarkAllAsRead(ctx context.Context) error
}

type Config struct {
	// ReconnectBase is multiplied by the attempt number between reconnects.
	ReconnectBase     time.Duration
	MaxAttempts       int
	PollInterval      time.Duration
	ReconcileInterval time.Duration
	// SyncOverlap is subtracted from the sync watermark so records committed
	// slightly out of creation order are still fetched. Duplicates are
	// dropped by id.
	SyncOverlap  time.Duration
	InitialLimit int
	// Significant decides which new records raise the "new notification"
	// signal. Defaults to records of important types.
	Significant func(domain.NotificationRecord) bool
	Logger      *slog.Logger
}

func (c Config) withDefaults() Config {
	if c.ReconnectBase <= 0 {
		c.ReconnectBase = 3 * time.Second
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 5
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 30 * time.Second
	}
	if c.ReconcileInterval <= 0 {
		c.ReconcileInterval = 5 * time.Minute
	}
	if c.SyncOverlap <= 0 {
		c.SyncOverlap = time.Minute
	}
	if c.InitialLimit <= 0 {
		c.InitialLimit = 50
	}
	if c.Significant == nil {
		c.Significant = func(r domain.NotificationRecord) bool { return r.Important }
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

type Client struct {
	transport Transport
	cfg       Config

	mu       sync.Mutex
	state    State
	polling  bool
	items    []domain.NotificationRecord // newest first
	index    map[string]struct{}
	unread   int
	lastSeen time.Time // newest record returned by List or SyncSince

	nextSub  int
	newSubs  map[int]func(domain.NotificationRecord)
	listSubs map[int]func([]domain.NotificationRecord, int)
	cancel   context.CancelFunc
	wg       sync.WaitGroup

	// Callbacks are delivered in order by at most one draining goroutine.
	qmu      sync.Mutex
	queue    []func()
	draining bool
}

func New(transport Transport, cfg Config) *Client {
	return &Client{
		transport: transport,
		cfg:       cfg.withDefaults(),
		index:     make(map[string]struct{}),
		newSubs:   make(map[int]func(domain.NotificationRecord)),
		listSubs:  make(map[int]func([]domain.NotificationRecord, int)),
	}
}

// Initialize loads the first page and starts the stream and reconciliation
// loops. Calling it on a running client does nothing.
func (c *Client) Initialize(ctx context.Context) {
	c.mu.Lock()
	if c.cancel != nil {
		c.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.mu.Unlock()

	if recs, err := c.transport.List(ctx, c.cfg.InitialLimit); err != nil {
		c.cfg.Logger.Debug("initial notification load failed", "err", err)
	} else {
		c.merge(recs, false)
	}

	c.wg.Add(2)
	go func() {
		defer c.wg.Done()
		c.connectLoop(ctx)
	}()
	go func() {
		defer c.wg.Done()
		c.reconcileLoop(ctx)
	}()
}

// Cleanup stops every loop and timer and waits for them to exit.
func (c *Client) Cleanup() {
	c.mu.Lock()
	cancel := c.cancel
	c.cancel = nil
	c.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	c.wg.Wait()

	c.mu.Lock()
	c.state = Disconnected
	c.polling = false
	c.mu.Unlock()
}

func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Polling reports whether reconnects were exhausted and the client fell back to polling.
func (c *Client) Polling() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.polling
}

// Notifications returns a copy of the local list, newest first.
func (c *Client) Notifications() []domain.NotificationRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.NotificationRecord(nil), c.items...)
}

func (c *Client) UnreadCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.unread
}

// SubscribeNew registers fn for significant new records and returns its unsubscribe func.
func (c *Client) SubscribeNew(fn func(domain.NotificationRecord)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextSub
	c.nextSub++
	c.newSubs[id] = fn
	return func() {
		c.mu.Lock()
		delete(c.newSubs, id)
		c.mu.Unlock()
	}
}

// SubscribeList registers fn for every change of the list or unread count.
func (c *Client) SubscribeList(fn func(items []domain.NotificationRecord, unread int)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextSub
	c.nextSub++
	c.listSubs[id] = fn
	return func() {
		c.mu.Lock()
		delete(c.listSubs, id)
		c.mu.Unlock()
	}
}

// MarkAsRead flags the record locally, then tells the server. A server error
// is returned but the local state is kept.
func (c *Client) MarkAsRead(ctx context.Context, id string) error {
	now := time.Now().UTC()
	c.mu.Lock()
	changed := false
	for i := range c.items {
		if c.items[i].ID == id && c.items[i].ReadAt == nil {
			c.items[i].ReadAt = &now
			c.unread--
			changed = true
			break
		}
	}
	c.mu.Unlock()
	if changed {
		c.emitList()
	}
	return c.transport.MarkAsRead(ctx, id)
}

// MarkAllAsRead is the bulk form of MarkAsRead.
func (c *Client) MarkAllAsRead(ctx context.Context) error {
	now := time.Now().UTC()
	c.mu.Lock()
	changed := c.unread > 0
	for i := range c.items {
		if c.items[i].ReadAt == nil {
			readAt := now
			c.items[i].ReadAt = &readAt
		}
	}
	c.unread = 0
	c.mu.Unlock()
	if changed {
		c.emitList()
	}
	return c.transport.MarkAllAsRead(ctx)
}

func (c *Client) connectLoop(ctx context.Context) {
	attempt := 0
	for {
		c.setState(Connecting)
		stream, err := c.transport.Connect(ctx)
		if err == nil {
			c.setState(Connected)
			attempt = 0
			c.sync(ctx)
			err = c.consume(ctx, stream)
			_ = stream.Close()
		}
		c.setState(Disconnected)
		if ctx.Err() != nil {
			return
		}
		c.cfg.Logger.Debug("notification stream lost", "err", err, "attempt", attempt+1)

		attempt++
		if attempt > c.cfg.MaxAttempts {
			c.pollLoop(ctx)
			return
		}
		if !sleep(ctx, c.cfg.ReconnectBase*time.Duration(attempt)) {
			return
		}
	}
}

func (c *Client) consume(ctx context.Context, stream EventStream) error {
	for {
		rec, err := stream.Next(ctx)
		if err != nil {
			return err
		}
		c.merge([]domain.NotificationRecord{rec}, true)
	}
}

func (c *Client) pollLoop(ctx context.Context) {
	c.mu.Lock()
	c.polling = true
	c.mu.Unlock()
	c.cfg.Logger.Info("notification stream unavailable, polling", "interval", c.cfg.PollInterval)

	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()
	for {
		c.sync(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (c *Client) reconcileLoop(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.ReconcileInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.sync(ctx)
		}
	}
}

// sync fetches everything created after the sync watermark, minus the overlap.
// Live events never move the watermark, so a record the stream skipped is
// still returned even when a newer one did arrive.
func (c *Client) sync(ctx context.Context) {
	c.mu.Lock()
	since := c.lastSeen
	c.mu.Unlock()
	if !since.IsZero() {
		since = since.Add(-c.cfg.SyncOverlap)
	}
	recs, err := c.transport.SyncSince(ctx, since)
	if err != nil {
		if ctx.Err() == nil {
			c.cfg.Logger.Debug("notification sync failed", "err", err)
		}
		return
	}
	c.merge(recs, false)
}

// merge folds records into the local list. Known ids only pick up a read_at
// they did not have; read state never goes back to unread. live marks
// records that arrived on the stream and may raise the new signal.
func (c *Client) merge(recs []domain.NotificationRecord, live bool) {
	if len(recs) == 0 {
		return
	}
	var fresh []domain.NotificationRecord
	changed := false

	c.mu.Lock()
	for _, rec := range recs {
		if !live && rec.CreatedAt.After(c.lastSeen) {
			c.lastSeen = rec.CreatedAt
		}
		if _, ok := c.index[rec.ID]; ok {
			if rec.ReadAt != nil {
				for i := range c.items {
					if c.items[i].ID == rec.ID && c.items[i].ReadAt == nil {
						c.items[i].ReadAt = rec.ReadAt
						c.unread--
						changed = true
					}
				}
			}
			continue
		}
		c.index[rec.ID] = struct{}{}
		c.insert(rec)
		if rec.ReadAt == nil {
			c.unread++
		}
		changed = true
		if live && c.cfg.Significant(rec) {
			fresh = append(fresh, rec)
		}
	}
	c.mu.Unlock()

	if changed {
		c.emitList()
	}
	for _, rec := range fresh {
		c.emitNew(rec)
	}
}

// insert keeps items ordered newest first. Must be called with mu held.
func (c *Client) insert(rec domain.NotificationRecord) {
	i := sort.Search(len(c.items), func(i int) bool {
		return !c.items[i].CreatedAt.After(rec.CreatedAt)
	})
	c.items = append(c.items, domain.NotificationRecord{})
	copy(c.items[i+1:], c.items[i:])
	c.items[i] = rec
}

func (c *Client) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// emitList snapshots the list now and hands it to the subscribers registered
// at delivery time. Callbacks run outside mu and may call back into the client.
func (c *Client) emitList() {
	c.mu.Lock()
	items := append([]domain.NotificationRecord(nil), c.items...)
	unread := c.unread
	c.mu.Unlock()

	c.enqueue(func() {
		c.mu.Lock()
		subs := make([]func([]domain.NotificationRecord, int), 0, len(c.listSubs))
		for _, fn := range c.listSubs {
			subs = append(subs, fn)
		}
		c.mu.Unlock()
		for _, fn := range subs {
			fn(items, unread)
		}
	})
}

func (c *Client) emitNew(rec domain.NotificationRecord) {
	c.enqueue(func() {
		c.mu.Lock()
		subs := make([]func(domain.NotificationRecord), 0, len(c.newSubs))
		for _, fn := range c.newSubs {
			subs = append(subs, fn)
		}
		c.mu.Unlock()
		for _, fn := range subs {
			fn(rec)
		}
	})
}

func (c *Client) enqueue(fn func()) {
	c.qmu.Lock()
	c.queue = append(c.queue, fn)
	if c.draining {
		c.qmu.Unlock()
		return
	}
	c.draining = true
	c.qmu.Unlock()
	go c.drain()
}

func (c *Client) drain() {
	for {
		c.qmu.Lock()
		if len(c.queue) == 0 {
			c.draining = false
			c.qmu.Unlock()
			return
		}
		fn := c.queue[0]
		c.queue[0] = nil
		c.queue = c.queue[1:]
		c.qmu.Unlock()
		fn()
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
