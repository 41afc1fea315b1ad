// Package probe checks whether service URLs answer. A probe never fails: an
// unreachable URL is reported as an offline Status.
package probe

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-propform/pkg/keytemplate"
	"github.com/goliatone/go-propform/pkg/schema"
	"github.com/goliatone/go-propform/pkg/session"
)

const (
	// DefaultTimeout aborts a probe that has not answered.
	DefaultTimeout = 5 * time.Second
	// DefaultConcurrency bounds the probes CheckAll runs at once.
	DefaultConcurrency = 4
)

// Status is the outcome of one probe. Any HTTP response counts as online.
type Status struct {
	URL     string `json:"url"`
	Online  bool   `json:"online"`
	Code    int    `json:"code,omitempty"`
	Message string `json:"message"`
}

// Target is a service URL field found in a session.
type Target struct {
	Key    string `json:"key"`
	Label  string `json:"label"`
	Domain int    `json:"domain,omitempty"`
	URL    string `json:"url"`
}

// Result pairs a target with its status.
type Result struct {
	Target
	Status Status `json:"status"`
}

// Option configures a Prober.
type Option func(*Prober)

// WithClient replaces the HTTP client.
func WithClient(client *http.Client) Option {
	return func(p *Prober) {
		if client != nil {
			p.client = client
		}
	}
}

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(p *Prober) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithConcurrency overrides DefaultConcurrency.
func WithConcurrency(n int) Option {
	return func(p *Prober) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// WithObserver is called after every probe, e.g. to count outcomes.
func WithObserver(fn func(Status)) Option {
	return func(p *Prober) {
		p.observe = fn
	}
}

// Prober issues HEAD requests.
type Prober struct {
	client      *http.Client
	timeout     time.Duration
	concurrency int
	observe     func(Status)
	publicOnly  bool
}

// New returns a Prober with the default client and timeout.
func New(opts ...Option) *Prober {
	p := &Prober{
		client:      http.DefaultClient,
		timeout:     DefaultTimeout,
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	if p.publicOnly {
		p.client = publicClient(p.client)
	}
	return p
}

// Check probes one URL.
func (p *Prober) Check(ctx context.Context, url string) Status {
	status := p.check(ctx, strings.TrimSpace(url))
	if p.observe != nil {
		p.observe(status)
	}
	return status
}

func (p *Prober) check(ctx context.Context, url string) Status {
	status := Status{URL: url}
	if url == "" {
		status.Message = "no URL to check"
		return status
	}

	if err := validateURL(url); err != nil {
		status.Message = err.Error()
		return status
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		status.Message = err.Error()
		return status
	}
	resp, err := p.client.Do(req)
	if err != nil {
		status.Message = err.Error()
		return status
	}
	resp.Body.Close()

	status.Online = true
	status.Code = resp.StatusCode
	status.Message = "available"
	return status
}

// CheckAll probes every visible URL field flagged checkService, global fields
// first and then each domain. The session is only read.
func (p *Prober) CheckAll(ctx context.Context, sess *session.Session) ([]Result, error) {
	targets, err := Targets(sess)
	if err != nil {
		return nil, err
	}

	workers := p.concurrency
	if len(targets) < workers {
		workers = len(targets)
	}

	queue := make(chan int, len(targets))
	for i := range targets {
		queue <- i
	}
	close(queue)

	results := make([]Result, len(targets))
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range queue {
				results[i] = Result{Target: targets[i], Status: p.Check(ctx, targets[i].URL)}
			}
		}()
	}
	wg.Wait()
	return results, nil
}

// Targets lists the URL fields CheckAll would probe.
func Targets(sess *session.Session) ([]Target, error) {
	cfg := sess.Configuration()
	var out []Target

	state := sess.State()
	for _, category := range cfg.GlobalProperties {
		for _, prop := range category.Properties {
			if !checksService(prop) || !state.Visible(prop.Key) {
				continue
			}
			value, err := sess.Get(prop.Key)
			if err != nil {
				return nil, err
			}
			out = append(out, Target{Key: prop.Key, Label: prop.Label, URL: value})
		}
	}

	for _, d := range sess.Domains() {
		domainState, err := sess.DomainState(d.ID)
		if err != nil {
			return nil, err
		}
		for _, category := range cfg.DomainProperties {
			for _, prop := range category.Properties {
				if !checksService(prop) || !domainState.Visible(prop.Key) {
					continue
				}
				key := keytemplate.Expand(prop.Key, d.ID)
				value, err := sess.Get(key)
				if err != nil {
					return nil, err
				}
				out = append(out, Target{Key: key, Label: prop.Label, Domain: d.ID, URL: value})
			}
		}
	}
	return out, nil
}

func checksService(prop schema.Property) bool {
	f, ok := prop.Field.(schema.URLField)
	return ok && f.CheckService && prop.RepeatBasedOn == nil
}
