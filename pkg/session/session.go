// Package session holds the editable state of one configuration: global
// values, domain instances, the active domain and field confirmations. Every
// mutation reruns dependency resolution so State always matches the values.
package session

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/goliatone/go-propform/pkg/keytemplate"
	"github.com/goliatone/go-propform/pkg/schema"
	"github.com/goliatone/go-propform/pkg/visibility"
)

const (
	// DefaultDomainCount is used when the domain count key is unset or not a
	// number.
	DefaultDomainCount = 2
	MinDomains         = 1
	MaxDomains         = 10
)

// Domain is one domain instance. Values are keyed by templated property key.
type Domain struct {
	ID     int           `json:"id"`
	Name   string        `json:"name"`
	Values schema.Values `json:"properties"`
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger used for lifecycle events.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

// WithEvaluator overrides the dependency rule evaluator.
func WithEvaluator(e visibility.Evaluator) Option {
	return func(s *Session) {
		s.graphOpts = append(s.graphOpts, visibility.WithEvaluator(e))
	}
}

// WithMaxIterations overrides the resolver iteration cap.
func WithMaxIterations(n int) Option {
	return func(s *Session) {
		s.graphOpts = append(s.graphOpts, visibility.WithMaxIterations(n))
	}
}

// WithDocument keeps the raw schema document so JSON exports patch it instead
// of re-marshalling the parsed configuration.
func WithDocument(raw []byte) Option {
	return func(s *Session) {
		s.raw = append([]byte(nil), raw...)
	}
}

// WithDomainLabel sets the word used to name new domains.
func WithDomainLabel(label string) Option {
	return func(s *Session) {
		if strings.TrimSpace(label) != "" {
			s.domainLabel = label
		}
	}
}

// Session is safe for concurrent use: every method runs under the session
// lock. Sequences of calls, such as a switch followed by edits, are not
// atomic and must be serialized by the caller.
type Session struct {
	mu sync.RWMutex

	cfg         *schema.Configuration
	graph       *visibility.Graph
	graphOpts   []visibility.Option
	pattern     keytemplate.Pattern
	raw         []byte
	logger      zerolog.Logger
	domainLabel string

	global    schema.Values
	domains   []*Domain
	active    int
	confirmed map[string]string
	state     visibility.State
	// sized is set once the domain count was chosen by an edit or an import.
	sized bool
}

// New validates cfg, builds its dependency graph and seeds values from
// defaults. The number of domains comes from the domain count key.
func New(cfg *schema.Configuration, opts ...Option) (*Session, error) {
	if cfg == nil {
		return nil, fmt.Errorf("session: configuration is nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	owned := cfg.Clone()
	s := &Session{
		cfg:         &owned,
		pattern:     owned.Pattern(),
		logger:      zerolog.Nop(),
		domainLabel: "Domain",
		global:      schema.Values{},
		confirmed:   make(map[string]string),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	graph, err := visibility.NewGraph(s.cfg, s.graphOpts...)
	if err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}
	s.graph = graph

	for _, category := range s.cfg.GlobalProperties {
		for _, prop := range category.Properties {
			if prop.RepeatBasedOn != nil {
				continue
			}
			s.global[prop.Key] = prop.Default.String()
		}
	}

	if s.hasDomainProperties() {
		count := DefaultDomainCount
		if key := s.cfg.DomainCountKey; key != "" {
			if n := schema.LeadingInt(s.global[key]); n != 0 {
				count = n
			}
		}
		s.resize(count)
	}

	if err := s.recompute(); err != nil {
		return nil, err
	}
	s.logger.Debug().
		Str("project", s.cfg.ProjectName).
		Int("domains", len(s.domains)).
		Msg("session created")
	return s, nil
}

// Configuration returns the session's configuration. Callers must not mutate
// it.
func (s *Session) Configuration() *schema.Configuration {
	return s.cfg
}

// State returns the visibility derived from the current global values and
// the active domain.
func (s *Session) State() visibility.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Set stores value for key and reruns dependency resolution. key may be a
// global key, a repeat instance key, a templated domain key (applied to the
// active domain) or a concrete domain key such as "site.domain3.name".
// Setting the domain count key resizes the domain list.
func (s *Session) Set(key, value string) (visibility.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	target, err := s.resolveKey(key)
	if err != nil {
		return s.state, err
	}

	if target.domain == 0 {
		s.global[target.key] = value
		if countKey := s.cfg.DomainCountKey; countKey != "" && target.key == countKey && s.hasDomainProperties() {
			n := schema.LeadingInt(value)
			if n == 0 {
				n = MinDomains
			}
			s.resize(n)
			s.sized = true
		}
	} else {
		d := s.domain(target.domain)
		if d == nil {
			return s.state, fmt.Errorf("%w: %d", ErrUnknownDomain, target.domain)
		}
		d.Values[target.key] = value
	}

	if err := s.recompute(); err != nil {
		return s.state, err
	}
	return s.state, nil
}

// Get returns the current value of key, falling back to its default.
func (s *Session) Get(key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	target, err := s.resolveKey(key)
	if err != nil {
		return "", err
	}
	return s.valueOf(target), nil
}

// Values returns the merged view used for dependency resolution: global
// values plus the active domain's values under their templated keys.
func (s *Session) Values() schema.Values {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.merged(s.active)
}

// Snapshot copies the global and per-domain values.
func (s *Session) Snapshot() schema.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot()
}

func (s *Session) snapshot() schema.Snapshot {
	snap := schema.Snapshot{Global: s.global.Clone()}
	for _, d := range s.domains {
		snap.Domains = append(snap.Domains, schema.DomainValues{
			ID:         d.ID,
			Name:       d.Name,
			Properties: d.Values.Clone(),
		})
	}
	return snap
}

func (s *Session) merged(domainID int) schema.Values {
	out := s.global.Clone()
	if d := s.domain(domainID); d != nil {
		for key, value := range d.Values {
			out[key] = value
		}
	}
	return out
}

func (s *Session) recompute() error {
	state, err := s.graph.Resolve(s.merged(s.active))
	if err != nil {
		return fmt.Errorf("session: resolve: %w", err)
	}
	s.state = state
	return nil
}

func (s *Session) hasDomainProperties() bool {
	for _, category := range s.cfg.DomainProperties {
		if len(category.Properties) > 0 {
			return true
		}
	}
	return false
}

// target is a resolved key: the property key (templated for domain fields),
// the domain it applies to and, for repeat instances, the concrete key.
type target struct {
	key    string
	domain int
	prop   schema.Property
	repeat int
}

// concrete returns the key as it appears in the flat-text output.
func (t target) concrete() string {
	if t.domain > 0 {
		return keytemplate.Expand(t.key, t.domain)
	}
	return t.key
}

func (s *Session) resolveKey(key string) (target, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return target{}, fmt.Errorf("%w: empty key", ErrUnknownProperty)
	}

	for _, category := range s.cfg.GlobalProperties {
		for _, prop := range category.Properties {
			if prop.Key == key {
				return target{key: key, prop: prop}, nil
			}
			if n, ok := repeatIndex(prop, key); ok {
				return target{key: key, prop: prop, repeat: n}, nil
			}
		}
	}

	for _, category := range s.cfg.DomainProperties {
		for _, prop := range category.Properties {
			if prop.Key == key {
				if s.active == 0 {
					return target{}, fmt.Errorf("%w: no active domain for %s", ErrUnknownDomain, key)
				}
				return target{key: key, domain: s.active, prop: prop}, nil
			}
		}
	}

	if id, ok := s.pattern.Index(key); ok && id > 0 {
		tmpl := s.pattern.ToTemplate(key)
		for _, category := range s.cfg.DomainProperties {
			for _, prop := range category.Properties {
				if prop.Key == tmpl {
					return target{key: tmpl, domain: id, prop: prop}, nil
				}
			}
		}
	}
	return target{}, fmt.Errorf("%w: %s", ErrUnknownProperty, key)
}

// repeatIndex reports whether key is an instance of the repeatable prop.
func repeatIndex(prop schema.Property, key string) (int, bool) {
	if prop.RepeatBasedOn == nil {
		return 0, false
	}
	placeholder := prop.RepeatPlaceholder()
	for _, token := range []string{placeholder, "[N]", keytemplate.Placeholder} {
		idx := strings.Index(prop.Key, token)
		if idx < 0 {
			continue
		}
		prefix, suffix := prop.Key[:idx], prop.Key[idx+len(token):]
		if len(key) <= len(prefix)+len(suffix) || !strings.HasPrefix(key, prefix) || !strings.HasSuffix(key, suffix) {
			return 0, false
		}
		n, err := strconv.Atoi(key[len(prefix) : len(key)-len(suffix)])
		if err != nil || n < 1 {
			return 0, false
		}
		return n, keytemplate.ExpandRepeat(prop.Key, placeholder, n) == key
	}
	return 0, false
}

func (s *Session) valueOf(t target) string {
	if t.domain > 0 {
		d := s.domain(t.domain)
		if d != nil {
			if v, ok := d.Values[t.key]; ok {
				return v
			}
		}
		if t.prop.AutoFillDomainID {
			return strconv.Itoa(t.domain)
		}
		return t.prop.Default.String()
	}
	if v, ok := s.global[t.key]; ok {
		return v
	}
	if t.repeat > 0 {
		return t.prop.Default.At(t.repeat)
	}
	return t.prop.Default.String()
}
