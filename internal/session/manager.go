// Package session manages the logical TDLib clients that share one engine
// and walks each of them through the authorization flow.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/flemzord/tgbridge/internal/bridge"
	"github.com/flemzord/tgbridge/internal/kvstore"
	"github.com/flemzord/tgbridge/internal/ratelimit"
	"github.com/flemzord/tgbridge/internal/tlrpc"
	"github.com/flemzord/tgbridge/internal/tlrpc/api"
)

// StoreNamespace is the kvstore namespace holding one Snapshot per session.
const StoreNamespace = "session"

var (
	// ErrUnknownSession is returned for a name that is not configured.
	ErrUnknownSession = errors.New("session: unknown session")

	// ErrNotAuthorized is returned by WaitReady when the login flow ended
	// without authorizing the session.
	ErrNotAuthorized = errors.New("session: not authorized")
)

// Manager owns the configured sessions.
type Manager struct {
	bridge  *bridge.Bridge
	store   kvstore.Store
	cfg     Config
	dataDir string
	logger  *slog.Logger
	now     func() time.Time

	mu       sync.RWMutex
	sessions []*Session
	byName   map[string]*Session
	removers []func()

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// NewManager creates a Manager. store may be nil, in which case nothing is
// persisted.
func NewManager(b *bridge.Bridge, store kvstore.Store, cfg Config, dataDir string, logger *slog.Logger) *Manager {
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		bridge:  b,
		store:   store,
		cfg:     cfg,
		dataDir: dataDir,
		logger:  logger,
		now:     time.Now,
		byName:  make(map[string]*Session),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start creates one TDLib client per configured session and starts it.
// The login flow then runs from authorization state updates.
func (m *Manager) Start(ctx context.Context) error {
	d := m.bridge.Dispatcher()
	for _, sc := range m.cfg.Sessions {
		clientID, err := m.bridge.CreateClient()
		if err != nil {
			return fmt.Errorf("session %s: %w", sc.Name, err)
		}
		s := newSession(sc, clientID)

		m.mu.Lock()
		m.sessions = append(m.sessions, s)
		m.byName[sc.Name] = s
		m.removers = append(m.removers, bridge.On(d, clientID,
			func(_ context.Context, _ int, ev *api.UpdateAuthorizationState) error {
				return m.onAuthorizationState(s, ev.AuthorizationState)
			}))
		m.mu.Unlock()

		m.restore(ctx, s)
		m.logger.Info("session created", "session", sc.Name, "client_id", clientID)

		// TDLib starts a client on its first request.
		m.spawn(func(ctx context.Context) {
			ctx, cancel := context.WithTimeout(ctx, m.cfg.AuthTimeout)
			defer cancel()
			v, err := bridge.Execute[api.OptionValueString](ctx, d, clientID, &api.GetOption{Name: "version"}, ratelimit.Key{})
			if err != nil {
				m.logger.Warn("reading tdlib version failed", "session", sc.Name, "error", err)
				return
			}
			m.logger.Info("tdlib client started", "session", sc.Name, "version", v.Value)
		})
	}
	return nil
}

// onAuthorizationState runs on the poll loop; every call it needs is
// issued from a separate goroutine.
func (m *Manager) onAuthorizationState(s *Session, state api.AuthorizationState) error {
	tdState := state.TypeName()
	m.logger.Debug("authorization state", "session", s.cfg.Name, "state", tdState)
	setTD := func(snap *Snapshot) { snap.TDState = tdState }

	switch st := state.(type) {
	case *api.AuthorizationStateWaitTdlibParameters:
		m.persist(s.update(m.now(), setTD))
		m.spawn(func(ctx context.Context) {
			m.expectOk(ctx, s, &api.SetTdlibParameters{Parameters: m.parameters(s)})
		})

	case *api.AuthorizationStateWaitEncryptionKey:
		m.persist(s.update(m.now(), setTD))
		m.spawn(func(ctx context.Context) {
			m.expectOk(ctx, s, &api.CheckDatabaseEncryptionKey{EncryptionKey: s.cfg.EncryptionKey})
		})

	case *api.AuthorizationStateWaitPhoneNumber:
		switch {
		case s.cfg.BotToken != "":
			m.persist(s.update(m.now(), func(snap *Snapshot) {
				setTD(snap)
				snap.State = StateWaitResponse
			}))
			m.spawn(func(ctx context.Context) {
				m.authenticate(ctx, s, &api.CheckAuthenticationBotToken{Token: s.cfg.BotToken}, StateWaitResponse)
			})
		case s.cfg.PhoneNumber != "":
			m.persist(s.update(m.now(), func(snap *Snapshot) {
				setTD(snap)
				snap.State = StateWaitResponse
			}))
			m.spawn(func(ctx context.Context) {
				m.authenticate(ctx, s, &api.SetAuthenticationPhoneNumber{PhoneNumber: s.cfg.PhoneNumber}, StateWaitCode)
			})
		default:
			m.persist(s.update(m.now(), func(snap *Snapshot) {
				setTD(snap)
				snap.State = StateWaitToken
			}))
		}

	case *api.AuthorizationStateWaitCode:
		m.persist(s.update(m.now(), func(snap *Snapshot) {
			setTD(snap)
			snap.State = StateWaitCode
		}))
		m.logger.Warn("login code required", "session", s.cfg.Name)

	case *api.AuthorizationStateWaitPassword:
		m.persist(s.update(m.now(), func(snap *Snapshot) {
			setTD(snap)
			snap.State = StateInvalidCredentials
			snap.Error = "two-step verification password required"
		}))
		m.logger.Error("two-step verification is not supported", "session", s.cfg.Name, "has_hint", st.PasswordHint != nil)

	case *api.AuthorizationStateReady:
		m.persist(s.update(m.now(), func(snap *Snapshot) {
			setTD(snap)
			snap.State = StateAuthorized
			snap.Error = ""
		}))
		m.logger.Info("session authorized", "session", s.cfg.Name)
		m.spawn(func(ctx context.Context) { m.fetchMe(ctx, s) })

	case *api.AuthorizationStateClosed:
		m.persist(s.update(m.now(), func(snap *Snapshot) {
			setTD(snap)
			snap.State = StateClosed
		}))

	default:
		m.persist(s.update(m.now(), setTD))
	}
	return nil
}

func (m *Manager) parameters(s *Session) *api.TdlibParameters {
	dir := s.cfg.DatabaseDir
	if dir == "" {
		dir = filepath.Join(m.dataDir, "tdlib", s.cfg.Name)
	}
	return &api.TdlibParameters{
		DatabaseDirectory:      dir,
		UseMessageDatabase:     true,
		UseSecretChats:         false,
		APIID:                  m.cfg.APIID,
		APIHash:                m.cfg.APIHash,
		SystemLanguageCode:     m.cfg.SystemLanguageCode,
		DeviceModel:            m.cfg.DeviceModel,
		ApplicationVersion:     m.cfg.ApplicationVersion,
		EnableStorageOptimizer: true,
		UseTestDC:              m.cfg.UseTestDC,
	}
}

// authenticate sends a credential and records the outcome: next on
// success, invalid credentials when TDLib rejects it.
func (m *Manager) authenticate(ctx context.Context, s *Session, req tlrpc.Object, next AuthState) {
	err := m.expectOk(ctx, s, req)
	if err != nil {
		m.persist(s.update(m.now(), func(snap *Snapshot) {
			snap.State = StateInvalidCredentials
			snap.Error = err.Error()
		}))
		return
	}
	m.persist(s.update(m.now(), func(snap *Snapshot) {
		// Ready may already have arrived through the poll loop.
		if snap.State == StateWaitResponse {
			snap.State = next
		}
	}))
}

func (m *Manager) expectOk(ctx context.Context, s *Session, req tlrpc.Object) error {
	ctx, cancel := context.WithTimeout(ctx, m.cfg.AuthTimeout)
	defer cancel()
	_, err := bridge.Execute[api.Ok](ctx, m.bridge.Dispatcher(), s.Snapshot().ClientID, req, ratelimit.Key{})
	if err != nil {
		m.logger.Error("authorization call failed", "session", s.cfg.Name, "method", req.TypeName(), "error", err)
	}
	return err
}

func (m *Manager) fetchMe(ctx context.Context, s *Session) {
	ctx, cancel := context.WithTimeout(ctx, m.cfg.AuthTimeout)
	defer cancel()
	me, err := bridge.Execute[api.User](ctx, m.bridge.Dispatcher(), s.Snapshot().ClientID, &api.GetMe{}, ratelimit.Key{})
	if err != nil {
		m.logger.Warn("getMe failed", "session", s.cfg.Name, "error", err)
		return
	}
	m.persist(s.update(m.now(), func(snap *Snapshot) { snap.UserID = me.ID }))
	m.logger.Info("session identity", "session", s.cfg.Name, "user_id", me.ID, "first_name", me.FirstName)
}

// persist writes snap to the store. Failures are logged; the in-memory
// state stays authoritative.
func (m *Manager) persist(snap Snapshot) {
	if m.store == nil {
		return
	}
	data, err := json.Marshal(snap)
	if err != nil {
		m.logger.Error("encoding session snapshot", "session", snap.Name, "error", err)
		return
	}
	ctx, cancel := context.WithTimeout(m.ctx, 5*time.Second)
	defer cancel()
	if err := m.store.Put(ctx, StoreNamespace, snap.Name, data); err != nil {
		m.logger.Error("persisting session state", "session", snap.Name, "error", err)
	}
}

func (m *Manager) restore(ctx context.Context, s *Session) {
	if m.store == nil {
		return
	}
	data, err := m.store.Get(ctx, StoreNamespace, s.cfg.Name)
	if errors.Is(err, kvstore.ErrNotFound) {
		return
	}
	if err != nil {
		m.logger.Warn("reading previous session state", "session", s.cfg.Name, "error", err)
		return
	}
	var prev Snapshot
	if err := json.Unmarshal(data, &prev); err != nil {
		m.logger.Warn("decoding previous session state", "session", s.cfg.Name, "error", err)
		return
	}
	s.seedIdentity(prev.UserID)
	m.logger.Info("previous session state",
		"session", s.cfg.Name,
		"state", prev.State,
		"user_id", prev.UserID,
		"updated_at", prev.UpdatedAt,
	)
}

func (m *Manager) spawn(fn func(ctx context.Context)) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		fn(m.ctx)
	}()
}

// Sessions returns a snapshot of every session, in configuration order.
func (m *Manager) Sessions() []Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Snapshot, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s.Snapshot())
	}
	return out
}

// ClientID returns the TDLib client id of the named session.
func (m *Manager) ClientID(name string) (int, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.byName[name]
	if !ok {
		return 0, false
	}
	return s.Snapshot().ClientID, true
}

// WaitReady blocks until the named session has left the login flow and
// reports whether it ended authorized.
func (m *Manager) WaitReady(ctx context.Context, name string) (Snapshot, error) {
	m.mu.RLock()
	s, ok := m.byName[name]
	m.mu.RUnlock()
	if !ok {
		return Snapshot{}, fmt.Errorf("%w: %s", ErrUnknownSession, name)
	}
	select {
	case <-s.ready:
	case <-ctx.Done():
		return s.Snapshot(), ctx.Err()
	}
	snap := s.Snapshot()
	if snap.State != StateAuthorized {
		return snap, fmt.Errorf("%w: %s is %s", ErrNotAuthorized, name, snap.State)
	}
	return snap, nil
}

// Stop closes every client that is still open, then waits for in-flight
// login calls.
func (m *Manager) Stop(ctx context.Context) error {
	m.mu.Lock()
	sessions := append([]*Session(nil), m.sessions...)
	removers := m.removers
	m.removers = nil
	m.mu.Unlock()

	var errs []error
	for _, s := range sessions {
		snap := s.Snapshot()
		if snap.State == StateClosed || snap.TDState == "" {
			continue
		}
		_, err := bridge.Execute[api.Ok](ctx, m.bridge.Dispatcher(), snap.ClientID, &api.Close{}, ratelimit.Key{})
		if err != nil {
			errs = append(errs, fmt.Errorf("closing session %s: %w", snap.Name, err))
		}
	}

	for _, remove := range removers {
		remove()
	}
	m.cancel()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		errs = append(errs, fmt.Errorf("waiting for session calls: %w", ctx.Err()))
	}
	return errors.Join(errs...)
}
