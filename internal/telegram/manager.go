package telegram

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/celestix/gotgproto"
	"github.com/celestix/gotgproto/sessionMaker"
	"github.com/gotd/td/session"
	"github.com/gotd/td/telegram"
	"github.com/gotd/td/tg"
	"gorm.io/gorm"

	"github.com/blockedby/tgstats/internal/config"
	"github.com/blockedby/tgstats/internal/logger"
	"github.com/blockedby/tgstats/internal/models"
)

// Status represents the Telegram client status.
type Status string

// Status constants define the possible states of the Telegram client.
const (
	StatusInitializing Status = "INITIALIZING"
	StatusReady        Status = "READY"
	StatusUnauthorized Status = "UNAUTHORIZED"
	StatusError        Status = "ERROR"
)

// ErrNotAuthorized is returned while no authorized client is running.
var ErrNotAuthorized = errors.New("telegram client not authorized")

// ClientFactory is a function that creates a telegram client.
type ClientFactory func(ctx context.Context, cfg *config.Config, db *gorm.DB) (*gotgproto.Client, error)

// DCDialer opens an invoker bound to datacenter dc of client.
type DCDialer func(ctx context.Context, client *gotgproto.Client, dc int) (telegram.CloseInvoker, error)

// Manager handles Telegram client lifecycle and hands out per-shard invokers.
type Manager struct {
	client   *gotgproto.Client
	db       *gorm.DB
	cfg      *config.Config
	sessions *SessionStorage
	log      *logger.Logger

	status Status
	mu     sync.RWMutex

	clientFactory ClientFactory
	dialDC        DCDialer

	dcs     map[models.ShardID]telegram.CloseInvoker
	dcsMu   sync.Mutex
	closing sync.WaitGroup
}

var (
	_ InvokerSource = (*Manager)(nil)
	_ ShardReleaser = (*Manager)(nil)
)

// NewManager creates a new Telegram Manager.
func NewManager(cfg *config.Config, db *gorm.DB) (*Manager, error) {
	sessions, err := NewSessionStorage(db)
	if err != nil {
		return nil, err
	}
	return &Manager{
		db:            db,
		cfg:           cfg,
		sessions:      sessions,
		log:           logger.Get(),
		status:        StatusInitializing,
		clientFactory: NewPersistentClient,
		dialDC:        dialDC,
		dcs:           make(map[models.ShardID]telegram.CloseInvoker),
	}, nil
}

// NewPersistentClient creates a telegram client that keeps its session in the database.
func NewPersistentClient(ctx context.Context, cfg *config.Config, db *gorm.DB) (*gotgproto.Client, error) {
	clientOpts := &gotgproto.ClientOpts{
		Session:          sessionMaker.SqlSession(db.Dialector),
		DisableCopyright: true,
		InMemory:         false,
	}

	client, err := gotgproto.NewClient(
		cfg.TGApiID,
		cfg.TGApiHash,
		gotgproto.ClientTypePhone(""), // empty: use the stored session
		clientOpts,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram client: %w", err)
	}
	return client, nil
}

func dialDC(ctx context.Context, client *gotgproto.Client, dc int) (telegram.CloseInvoker, error) {
	return client.Client.DC(ctx, dc, 1)
}

// SetClientFactory allows overriding the client creation logic (e.g. for testing).
func (m *Manager) SetClientFactory(f ClientFactory) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clientFactory = f
}

// SetDCDialer allows overriding how stats shard connections are opened.
func (m *Manager) SetDCDialer(d DCDialer) {
	m.dcsMu.Lock()
	defer m.dcsMu.Unlock()
	m.dialDC = d
}

// GetStatus returns the current Telegram client status.
func (m *Manager) GetStatus() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// GetClient returns the underlying Telegram client.
func (m *Manager) GetClient() *gotgproto.Client {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.client
}

func (m *Manager) setStatus(s Status) {
	m.mu.Lock()
	m.status = s
	m.mu.Unlock()
}

// Init restores the stored session and starts the client. A missing or
// unusable session leaves the manager unauthorized without failing.
func (m *Manager) Init(ctx context.Context) error {
	m.setStatus(StatusInitializing)

	if _, err := m.sessions.Load(ctx); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			m.log.Info().Msg("telegram: no session in database")
			m.setStatus(StatusUnauthorized)
			return nil
		}
		m.log.Error().Err(err).Msg("telegram: failed to read stored session")
		m.setStatus(StatusError)
		return fmt.Errorf("read session: %w", err)
	}

	m.mu.RLock()
	factory := m.clientFactory
	m.mu.RUnlock()

	client, err := factory(ctx, m.cfg, m.db)
	if err != nil {
		m.log.Warn().Err(err).Msg("telegram: failed to initialize persistent client, switching to unauthorized mode")
		m.setStatus(StatusUnauthorized)
		return nil
	}

	m.mu.Lock()
	m.client = client
	m.status = StatusReady
	m.mu.Unlock()

	m.log.Info().Msg("telegram: client is ready")
	return nil
}

// Invoker returns the invoker serving shard. Shard 0 is the main connection;
// other shards get a dedicated connection to that datacenter, opened once.
func (m *Manager) Invoker(ctx context.Context, shard models.ShardID) (tg.Invoker, error) {
	client := m.GetClient()
	if client == nil {
		return nil, ErrNotAuthorized
	}
	if shard == 0 {
		return client.Client, nil
	}

	m.dcsMu.Lock()
	defer m.dcsMu.Unlock()

	if inv, ok := m.dcs[shard]; ok {
		return inv, nil
	}

	inv, err := m.dialDC(ctx, client, int(shard))
	if err != nil {
		return nil, fmt.Errorf("connect to dc %d: %w", shard, err)
	}
	m.dcs[shard] = inv
	m.log.Info().Int("shard", int(shard)).Msg("telegram: opened stats shard connection")
	return inv, nil
}

// ReleaseShard drops the connection of shard, if open. The next Invoker call
// for it dials again. The main connection is never released.
func (m *Manager) ReleaseShard(shard models.ShardID) {
	if shard == 0 {
		return
	}
	m.dcsMu.Lock()
	inv, ok := m.dcs[shard]
	delete(m.dcs, shard)
	m.dcsMu.Unlock()
	if !ok {
		return
	}

	m.closing.Add(1)
	go func() {
		defer m.closing.Done()
		if err := inv.Close(); err != nil {
			m.log.Warn().Err(err).Int("shard", int(shard)).Msg("telegram: failed to close shard connection")
			return
		}
		m.log.Info().Int("shard", int(shard)).Msg("telegram: released idle stats shard connection")
	}()
}

// Stop closes shard connections and stops the Telegram client.
func (m *Manager) Stop() {
	m.dcsMu.Lock()
	for shard, inv := range m.dcs {
		if err := inv.Close(); err != nil {
			m.log.Warn().Err(err).Int("shard", int(shard)).Msg("telegram: failed to close shard connection")
		}
		delete(m.dcs, shard)
	}
	m.dcsMu.Unlock()
	m.closing.Wait()

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.client != nil {
		m.client.Stop()
		m.client = nil
	}
}
