package client

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/felixnatanaelbutarbutar/qubicball/internal/cache"
	"github.com/felixnatanaelbutarbutar/qubicball/internal/session"
)

// Config configures a Client.
type Config struct {
	// BaseURL is the API root, e.g. "http://localhost:8080/api".
	BaseURL string
	// HTTPClient defaults to a client with a 15s timeout.
	HTTPClient *http.Client
	// Cache defaults to a per-client in-memory store. qubicweb passes a
	// shared store so all browser sessions see the same invalidations;
	// qubictl passes its sqlite store.
	Cache cache.Store
	// Logger defaults to a no-op logger.
	Logger *zerolog.Logger
	// RequestsPerSecond throttles outgoing calls; 0 means the default of
	// 20 rps. Spreads bursts out instead of provoking 429s.
	RequestsPerSecond float64
}

// Client is the synchronization layer entry point. One Client is bound to
// at most one session; WithSession derives a bound copy cheaply, so a web
// process can share one transport and cache across all its users.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	cache   cache.Store
	limiter *rate.Limiter
	log     zerolog.Logger
	session *session.Session
}

// New creates an unauthenticated Client. Reads and writes will fail with
// Unauthorized until a session is attached via WithSession (or obtained
// through Auth().Login).
func New(cfg Config) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, newError(KindValidation, 0, "invalid base URL: "+cfg.BaseURL)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, newError(KindValidation, 0, "base URL must be absolute: "+cfg.BaseURL)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	store := cfg.Cache
	if store == nil {
		store = cache.NewMemory()
	}
	log := zerolog.Nop()
	if cfg.Logger != nil {
		log = *cfg.Logger
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 20
	}
	// A fractional rate would truncate to burst 0 and Wait would never
	// admit a request.
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}

	return &Client{
		baseURL: base,
		http:    httpClient,
		cache:   store,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		log:     log,
	}, nil
}

// WithSession returns a copy of c bound to s. The copy shares the
// transport, limiter, and cache with c.
func (c *Client) WithSession(s *session.Session) *Client {
	bound := *c
	bound.session = s
	return &bound
}

// Session returns the bound session, nil if unauthenticated.
func (c *Client) Session() *session.Session {
	return c.session
}

// Auth returns the authentication operations.
func (c *Client) Auth() *AuthService { return &AuthService{c: c} }

// Projects returns project CRUD operations.
func (c *Client) Projects() *ProjectService { return &ProjectService{c: c} }

// Tasks returns task CRUD operations.
func (c *Client) Tasks() *TaskService { return &TaskService{c: c} }

// Users returns user directory operations.
func (c *Client) Users() *UserService { return &UserService{c: c} }

// requireAuth returns an error when no usable credential is bound.
func (c *Client) requireAuth() *Error {
	if c.session == nil || !c.session.Active() {
		return newError(KindUnauthorized, 0, "not logged in")
	}
	return nil
}

// requireWriter enforces the client-side role gate: only admin and manager
// may issue writes. The check is advisory (the server enforces the real
// one) but guarantees member-role callers never reach the network.
func (c *Client) requireWriter() *Error {
	if err := c.requireAuth(); err != nil {
		return err
	}
	if !c.session.Role().CanWrite() {
		return newError(KindForbidden, 0, "role "+string(c.session.Role())+" is read-only")
	}
	return nil
}
