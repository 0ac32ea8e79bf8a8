package wallet

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/roach88/credwallet/internal/record"
)

// CredentialStore is the slice of the persistent store the cache depends on.
// *store.Store satisfies it.
type CredentialStore interface {
	PutCredential(ctx context.Context, c record.Credential) error
	DeleteCredential(ctx context.Context, id string) error
	GetCredential(ctx context.Context, id string) (record.Credential, bool, error)
	ListCredentials(ctx context.Context) ([]record.Credential, error)
}

// Snapshot is an immutable view of the cache state.
type Snapshot struct {
	Credentials        []record.Credential
	ActiveCredentialID *string
}

// Active returns the cached credential matching the active id, if any.
func (s Snapshot) Active() (record.Credential, bool) {
	if s.ActiveCredentialID == nil {
		return record.Credential{}, false
	}
	for _, c := range s.Credentials {
		if c.ID == *s.ActiveCredentialID {
			return c, true
		}
	}
	return record.Credential{}, false
}

// Option configures a Cache.
type Option func(*Cache)

// WithLogger sets the cache logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithValidator replaces the structural check run before AddCredential writes.
// Pass nil to accept any record.
func WithValidator(validate func(record.Credential) error) Option {
	return func(c *Cache) {
		c.validate = validate
	}
}

// Cache mirrors the store's credential collection for low-latency reads.
//
// Thread-safety: all methods are safe for concurrent use.
type Cache struct {
	store    CredentialStore
	validate func(record.Credential) error
	logger   *slog.Logger

	// tickets numbers refreshes in the order their reads start.
	tickets atomic.Uint64
	ready   chan struct{}

	mu          sync.RWMutex
	credentials []record.Credential
	active      *string
	applied     uint64 // ticket of the refresh currently shown
	subscribers map[int]chan Snapshot
	nextSubID   int
}

// New creates a cache over st and starts the initial asynchronous load.
func New(ctx context.Context, st CredentialStore, opts ...Option) *Cache {
	c := &Cache{
		store:       st,
		validate:    record.ValidateCredential,
		logger:      slog.Default(),
		ready:       make(chan struct{}),
		credentials: []record.Credential{},
		subscribers: make(map[int]chan Snapshot),
	}
	for _, opt := range opts {
		opt(c)
	}

	go func() {
		defer close(c.ready)
		if err := c.Refresh(ctx); err != nil {
			c.logger.Warn("initial credential load failed", "error", err)
		}
	}()

	return c
}

// Ready is closed once the initial load has finished, successfully or not.
func (c *Cache) Ready() <-chan struct{} {
	return c.ready
}

// Refresh reloads every credential from the store and replaces the cached list.
// On failure the previous list is kept and the store's error is returned.
func (c *Cache) Refresh(ctx context.Context) error {
	ticket := c.tickets.Add(1)

	creds, err := c.store.ListCredentials(ctx)
	if err != nil {
		c.logger.Warn("credential refresh failed, keeping cached state", "error", err)
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// A refresh whose read started later has already landed.
	if ticket < c.applied {
		c.logger.Debug("discarding superseded refresh", "ticket", ticket, "applied", c.applied)
		return nil
	}
	c.applied = ticket
	c.credentials = creds
	c.logger.Debug("credentials loaded", "count", len(creds))
	c.publishLocked()
	return nil
}

// AddCredential validates cred, writes it to the store, then refreshes.
// If validation or the write fails, the cache is unchanged and no refresh runs.
func (c *Cache) AddCredential(ctx context.Context, cred record.Credential) error {
	if c.validate != nil {
		if err := c.validate(cred); err != nil {
			return err
		}
	}
	if err := c.store.PutCredential(ctx, cred); err != nil {
		return err
	}
	return c.Refresh(ctx)
}

// RemoveCredential deletes id from the store, then refreshes.
// Removing an unknown id succeeds.
func (c *Cache) RemoveCredential(ctx context.Context, id string) error {
	if err := c.store.DeleteCredential(ctx, id); err != nil {
		return err
	}
	return c.Refresh(ctx)
}

// SetActiveCredential selects id (or clears the selection when id is nil).
// Touches neither the store nor the credential list.
func (c *Cache) SetActiveCredential(id *string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if id == nil {
		c.active = nil
	} else {
		v := *id
		c.active = &v
	}
	c.publishLocked()
}

// GetCredential reads id straight from the store, bypassing the cache.
func (c *Cache) GetCredential(ctx context.Context, id string) (record.Credential, bool, error) {
	return c.store.GetCredential(ctx, id)
}

// Credentials returns a copy of the cached credentials.
func (c *Cache) Credentials() []record.Credential {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return cloneCredentials(c.credentials)
}

// ActiveCredentialID returns the selected id, or nil.
func (c *Cache) ActiveCredentialID() *string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return cloneID(c.active)
}

// ActiveCredential returns the cached credential for the selected id.
// found is false when nothing is selected or the id is not cached.
func (c *Cache) ActiveCredential() (record.Credential, bool) {
	return c.Snapshot().Active()
}

// Snapshot returns the current state.
func (c *Cache) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshotLocked()
}

// Subscribe returns a channel that receives the latest Snapshot after every
// state change, and a function that stops delivery and closes the channel.
//
// Delivery never blocks the cache: a slow subscriber only sees the most
// recent snapshot.
func (c *Cache) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)

	c.mu.Lock()
	id := c.nextSubID
	c.nextSubID++
	c.subscribers[id] = ch
	c.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subscribers, id)
			c.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

func (c *Cache) snapshotLocked() Snapshot {
	return Snapshot{
		Credentials:        cloneCredentials(c.credentials),
		ActiveCredentialID: cloneID(c.active),
	}
}

// publishLocked hands the current state to every subscriber.
// Must be called with mu held so snapshots arrive in state order.
func (c *Cache) publishLocked() {
	if len(c.subscribers) == 0 {
		return
	}
	for _, ch := range c.subscribers {
		snap := c.snapshotLocked()
		select {
		case ch <- snap:
		default:
			// Replace the undelivered snapshot with the newer one.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}

func cloneCredentials(in []record.Credential) []record.Credential {
	out := make([]record.Credential, len(in))
	for i, c := range in {
		out[i] = c.Clone()
	}
	return out
}

func cloneID(id *string) *string {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
