// Package app contains the top-level orchestration: login, catalog refresh,
// and running one session per selected character.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/1ureka/alclient/internal/api"
	"github.com/1ureka/alclient/internal/registry"
	"github.com/1ureka/alclient/internal/session"
	"github.com/1ureka/alclient/internal/transport"
	"github.com/1ureka/alclient/internal/util"
)

var (
	ErrUnknownCharacter = errors.New("app: unknown character")
	ErrUnknownServer    = errors.New("app: unknown server")
)

// DialFunc opens the transport for one session.
type DialFunc func(ctx context.Context, url string, cred api.Credential) (session.Conn, error)

// Target selects a character and the server key to play it on. An empty
// Server means the character's home server.
type Target struct {
	Character string
	Server    string
}

func (t Target) String() string {
	if t.Server == "" {
		return t.Character
	}
	return t.Character + "@" + t.Server
}

// Option configures a Game.
type Option func(*Game)

// WithSessionConfig sets the transport limits applied to every session.
func WithSessionConfig(cfg session.Config) Option {
	return func(g *Game) { g.cfg = cfg }
}

// WithDialer replaces the WebSocket dialer.
func WithDialer(d DialFunc) Option {
	return func(g *Game) { g.dial = d }
}

// WithHandlers registers a hook that runs on every new session before it
// starts reading, typically to attach event handlers to its dispatcher.
func WithHandlers(fn func(*session.Session)) Option {
	return func(g *Game) { g.setup = append(g.setup, fn) }
}

// Game owns the login credential, the server/character catalog and the
// registry of running sessions.
type Game struct {
	client   *api.Client
	cfg      session.Config
	dial     DialFunc
	setup    []func(*session.Session)
	sessions *registry.Registry

	mu      sync.RWMutex
	cred    *api.Credential
	catalog api.Catalog
}

// New creates a Game talking to the HTTP API through client.
func New(client *api.Client, opts ...Option) *Game {
	g := &Game{
		client:   client,
		cfg:      session.DefaultConfig(),
		dial:     dialWebSocket,
		sessions: registry.New(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func dialWebSocket(ctx context.Context, url string, cred api.Credential) (session.Conn, error) {
	conn, err := transport.Dial(ctx, url, cred)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// Login obtains and stores the credential used by every later session.
func (g *Game) Login(ctx context.Context, email, password string) error {
	cred, err := g.client.Login(ctx, email, password)
	if err != nil {
		return err
	}
	g.mu.Lock()
	g.cred = &cred
	g.mu.Unlock()
	util.LogSuccess("logged in as %s", email)
	return nil
}

// Refresh reloads the server and character listing.
func (g *Game) Refresh(ctx context.Context) error {
	catalog, err := g.client.ServersAndCharacters(ctx)
	if err != nil {
		return err
	}
	g.mu.Lock()
	g.catalog = catalog
	g.mu.Unlock()
	util.LogInfo("%d servers, %d characters", len(catalog.Servers), len(catalog.Characters))
	return nil
}

// Credential returns the stored credential, if any.
func (g *Game) Credential() (api.Credential, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.cred == nil {
		return api.Credential{}, false
	}
	return *g.cred, true
}

// Catalog returns the last listing fetched by Refresh.
func (g *Game) Catalog() api.Catalog {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.catalog
}

// Sessions returns the running sessions sorted by character name.
func (g *Game) Sessions() []registry.Entry {
	return g.sessions.Snapshot()
}

// resolve maps t onto catalog entries.
func (g *Game) resolve(t Target) (api.Character, api.Server, error) {
	catalog := g.Catalog()

	ch, ok := catalog.Characters[t.Character]
	if !ok {
		return api.Character{}, api.Server{}, fmt.Errorf("%w: %s", ErrUnknownCharacter, t.Character)
	}
	key := t.Server
	if key == "" {
		key = ch.Home
	}
	srv, ok := catalog.Servers[key]
	if !ok {
		return api.Character{}, api.Server{}, fmt.Errorf("%w: %q", ErrUnknownServer, key)
	}
	return ch, srv, nil
}

// Start runs one session for t and blocks until it ends:
//  1. Resolve the character and server from the catalog
//  2. Dial the server with the stored credential
//  3. Register the session under the character name
//  4. Run the handshake and the receive loop
//
// It fails with session.ErrNoCredential before Login has succeeded.
func (g *Game) Start(ctx context.Context, t Target) error {
	g.mu.RLock()
	cred := g.cred
	g.mu.RUnlock()
	if cred == nil {
		return session.ErrNoCredential
	}

	ch, srv, err := g.resolve(t)
	if err != nil {
		return err
	}
	if _, running := g.sessions.Get(ch.Name); running {
		return fmt.Errorf("%w: %s", registry.ErrDuplicate, ch.Name)
	}

	url := transport.Endpoint(srv.Addr, srv.Port)
	util.LogInfo("[%s] connecting to %s (%s)", ch.Name, srv.Key, url)
	conn, err := g.dial(ctx, url, *cred)
	if err != nil {
		return err
	}

	s, err := session.New(conn, session.Identity{Character: ch.Name, Server: srv.Key}, cred, g.cfg)
	if err != nil {
		conn.Close()
		return err
	}
	if err := g.sessions.Add(ch.Name, s); err != nil {
		s.Close()
		return err
	}
	defer g.sessions.Remove(ch.Name, s)

	for _, fn := range g.setup {
		fn(s)
	}
	return s.Run(ctx)
}

// Run starts every target concurrently and waits until all sessions have
// ended. Sessions are independent: one failing does not stop the others.
// Cancellation of ctx is a clean shutdown; the first other error is returned.
func (g *Game) Run(ctx context.Context, targets []Target) error {
	var eg errgroup.Group
	for _, t := range targets {
		eg.Go(func() error {
			err := g.Start(ctx, t)
			if err == nil || errors.Is(err, context.Canceled) {
				return nil
			}
			util.LogError("[%s] session ended: %v", t, err)
			return fmt.Errorf("%s: %w", t, err)
		})
	}
	return eg.Wait()
}
