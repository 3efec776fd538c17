// Package ipc routes renderer invocations to handlers.
//
// Channels are named "<module>:<method>". Each channel is backed by an
// Endpoint, usually built with Typed, and is invoked through
// Registry.Dispatch, which applies the call timeout, recovers panics and
// turns errors into an Envelope.
//
// # Usage
//
//	reg := ipc.NewRegistry(ipc.Config{Timeout: 30 * time.Second, Logger: log})
//	err := reg.Handle("app:version", ipc.Typed(func(ctx context.Context, _ ipc.NoArgs) (string, error) {
//		return version, nil
//	}))
//	result, envelope := reg.Dispatch(ctx, "app:version", nil)
package ipc

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/mrlokans/lingua/internal/metrics"
)

var (
	ErrChannelExists  = errors.New("channel already registered")
	ErrInvalidChannel = errors.New("invalid channel name")
)

var namePattern = regexp.MustCompile(`^[a-z][a-zA-Z0-9]*$`)

// Module is a group of channels sharing the "<name>:" prefix.
type Module interface {
	Name() string
	Routes() []Route
}

// Route binds a method name to an endpoint within a module.
type Route struct {
	Method      string
	Endpoint    Endpoint
	Description string
	Timeout     time.Duration // Zero uses the registry default
}

// Option adjusts a Route at registration.
type Option func(*Route)

// WithDescription sets the text listed by the contract.
func WithDescription(description string) Option {
	return func(r *Route) { r.Description = description }
}

// WithTimeout overrides the registry timeout for one route.
func WithTimeout(timeout time.Duration) Option {
	return func(r *Route) { r.Timeout = timeout }
}

type channel struct {
	name   string
	module string
	route  Route
}

// Config holds the registry defaults. A zero Timeout means 30s.
type Config struct {
	Timeout time.Duration
	Logger  *zap.Logger
	Metrics *metrics.Metrics
}

// Registry maps "<module>:<method>" channels to endpoints and dispatches calls.
type Registry struct {
	mu       sync.RWMutex
	channels map[string]*channel
	ready    atomic.Bool

	timeout time.Duration
	log     *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewRegistry returns an empty registry that is not ready yet.
func NewRegistry(cfg Config) *Registry {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Registry{
		channels: make(map[string]*channel),
		timeout:  cfg.Timeout,
		log:      cfg.Logger.Named("ipc"),
		metrics:  cfg.Metrics,
		now:      time.Now,
	}
}

// Handle registers a single channel.
func (r *Registry) Handle(name string, endpoint Endpoint, opts ...Option) error {
	module, method, err := splitChannel(name)
	if err != nil {
		return err
	}
	route := Route{Method: method, Endpoint: endpoint}
	for _, opt := range opts {
		opt(&route)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.addLocked([]*channel{{name: name, module: module, route: route}})
}

// RegisterModule registers all routes of m, or none of them on error.
func (r *Registry) RegisterModule(m Module) error {
	module := m.Name()
	if !namePattern.MatchString(module) {
		return fmt.Errorf("%w: module %q", ErrInvalidChannel, module)
	}

	routes := m.Routes()
	batch := make([]*channel, 0, len(routes))
	for _, route := range routes {
		if !namePattern.MatchString(route.Method) {
			return fmt.Errorf("%w: %s:%s", ErrInvalidChannel, module, route.Method)
		}
		batch = append(batch, &channel{name: module + ":" + route.Method, module: module, route: route})
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.addLocked(batch)
}

func (r *Registry) addLocked(batch []*channel) error {
	seen := make(map[string]bool, len(batch))
	for _, ch := range batch {
		if ch.route.Endpoint.Handler == nil {
			return fmt.Errorf("channel %s has no handler", ch.name)
		}
		if _, exists := r.channels[ch.name]; exists || seen[ch.name] {
			return fmt.Errorf("%w: %s", ErrChannelExists, ch.name)
		}
		seen[ch.name] = true
	}
	for _, ch := range batch {
		r.channels[ch.name] = ch
	}
	return nil
}

// MarkReady records that all modules are registered. Until then, calls to
// unknown channels fail with UNAVAILABLE rather than UNKNOWN_METHOD.
func (r *Registry) MarkReady() {
	r.ready.Store(true)
}

// Ready reports whether MarkReady has been called.
func (r *Registry) Ready() bool {
	return r.ready.Load()
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.channels[name]
	return ok
}

func (r *Registry) lookup(name string) (*channel, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ch, ok := r.channels[name]
	return ch, ok
}

// ChannelInfo describes one registered channel.
type ChannelInfo struct {
	Channel     string `json:"channel"`
	Module      string `json:"module"`
	Method      string `json:"method"`
	Description string `json:"description,omitempty"`
	Timeout     string `json:"timeout"`
}

// Channels lists registered channels sorted by name.
func (r *Registry) Channels() []ChannelInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]ChannelInfo, 0, len(r.channels))
	for _, ch := range r.channels {
		infos = append(infos, ChannelInfo{
			Channel:     ch.name,
			Module:      ch.module,
			Method:      ch.route.Method,
			Description: ch.route.Description,
			Timeout:     r.timeoutFor(ch).String(),
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Channel < infos[j].Channel })
	return infos
}

func (r *Registry) timeoutFor(ch *channel) time.Duration {
	if ch.route.Timeout > 0 {
		return ch.route.Timeout
	}
	return r.timeout
}

func splitChannel(name string) (string, string, error) {
	module, method, ok := strings.Cut(name, ":")
	if !ok || !namePattern.MatchString(module) || !namePattern.MatchString(method) {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidChannel, name)
	}
	return module, method, nil
}
