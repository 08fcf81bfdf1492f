package kinds

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/ZanzyTHEbar/maestro/internal/domain"
)

// Noop is the kind used when a description names none.
const Noop = "noop"

// Factory builds the body of a described task. It should reject
// attributes that can never work, so mistakes surface before the run.
type Factory func(d domain.Description) (domain.Body, error)

// Kind is a registered body variant.
type Kind struct {
	Name        string
	Description string
	Factory     Factory
}

// Registry maps kind names to body factories.
type Registry struct {
	kinds          map[string]Kind
	mu             sync.RWMutex // Protects kinds
	defaultTimeout time.Duration
	logger         zerolog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger zerolog.Logger) *Registry {
	return &Registry{
		kinds:  make(map[string]Kind),
		logger: logger,
	}
}

// NewDefaultRegistry creates a registry holding the built-in kinds.
// client is used by the http kind; nil creates a fresh resty client.
func NewDefaultRegistry(logger zerolog.Logger, client *resty.Client) *Registry {
	if client == nil {
		client = resty.New()
	}
	r := NewRegistry(logger)
	builtins := []Kind{
		{Name: Noop, Description: "does nothing; useful for grouping dependencies", Factory: newNoop},
		{Name: "sum", Description: "returns the sum of the 'first' and 'second' attributes", Factory: newSum},
		{Name: "sleep", Description: "waits for 'duration' (default 100ms)", Factory: newSleep},
		{Name: "command", Description: "runs 'command' (shell words) or 'args'; optional 'dir', 'env', 'teardown'", Factory: newCommand},
		{Name: "http", Description: "sends a request to 'url' with optional 'method', 'headers', 'body', 'expect_status'", Factory: httpFactory(client)},
	}
	for _, k := range builtins {
		// Names are unique, so registration cannot fail.
		_ = r.Register(k.Name, k.Description, k.Factory)
	}
	return r
}

// WithDefaultTimeout bounds the run hook of every resolved body that does
// not set its own 'timeout' attribute. Zero disables the bound.
func (r *Registry) WithDefaultTimeout(d time.Duration) *Registry {
	r.defaultTimeout = d
	return r
}

// Register adds a kind to the registry.
func (r *Registry) Register(name, description string, factory Factory) error {
	if name == "" || factory == nil {
		return fmt.Errorf("cannot register kind with empty name or nil factory")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.kinds[name]; exists {
		return fmt.Errorf("kind '%s' already registered", name)
	}
	r.kinds[name] = Kind{Name: name, Description: description, Factory: factory}
	r.logger.Debug().Str("kind", name).Msg("Kind registered")
	return nil
}

// Resolve builds the body of d. It satisfies domain.BodyResolver.
func (r *Registry) Resolve(d domain.Description) (domain.Body, error) {
	name := d.Kind
	if name == "" {
		name = Noop
	}

	r.mu.RLock()
	kind, exists := r.kinds[name]
	r.mu.RUnlock()
	if !exists {
		return nil, fmt.Errorf("unknown kind '%s'", name)
	}

	body, err := kind.Factory(d)
	if err != nil {
		return nil, fmt.Errorf("kind '%s': %w", name, err)
	}

	timeout, err := attrDuration(d.Attributes, "timeout", r.defaultTimeout)
	if err != nil {
		return nil, err
	}
	if timeout > 0 {
		body = NewSafeBody(body, timeout)
	}
	return body, nil
}

// Kinds returns the registered kinds sorted by name.
func (r *Registry) Kinds() []Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Kind, 0, len(r.kinds))
	for _, k := range r.kinds {
		out = append(out, k)
	}
	slices.SortFunc(out, func(a, b Kind) int {
		switch {
		case a.Name < b.Name:
			return -1
		case a.Name > b.Name:
			return 1
		}
		return 0
	})
	return out
}

func newNoop(domain.Description) (domain.Body, error) {
	return domain.NopBody{}, nil
}
