package session

import (
	"fmt"
	"strconv"

	"github.com/goliatone/go-propform/pkg/schema"
	"github.com/goliatone/go-propform/pkg/visibility"
)

// Domains returns copies of the domain instances in id order.
func (s *Session) Domains() []Domain {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Domain, 0, len(s.domains))
	for _, d := range s.domains {
		out = append(out, Domain{ID: d.ID, Name: d.Name, Values: d.Values.Clone()})
	}
	return out
}

// ActiveDomain returns the id of the domain being edited, zero when the
// configuration has no domain properties.
func (s *Session) ActiveDomain() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// SwitchDomain makes id the active domain. Values of the outgoing domain are
// already stored on it, so the switch only reloads State for the incoming one.
func (s *Session) SwitchDomain(id int) (visibility.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.domain(id) == nil {
		return s.state, fmt.Errorf("%w: %d", ErrUnknownDomain, id)
	}
	s.active = id
	if err := s.recompute(); err != nil {
		return s.state, err
	}
	return s.state, nil
}

// SetDomainCount grows or shrinks the domain list to n, clamped to
// [MinDomains, MaxDomains]. Removed domains lose their values.
func (s *Session) SetDomainCount(n int) (visibility.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.resize(n)
	s.sized = true
	s.syncCount()
	if err := s.recompute(); err != nil {
		return s.state, err
	}
	return s.state, nil
}

// AddDomain appends a domain and makes it active.
func (s *Session) AddDomain() (Domain, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.domains) >= MaxDomains {
		return Domain{}, fmt.Errorf("session: at most %d domains", MaxDomains)
	}
	s.resize(len(s.domains) + 1)
	s.sized = true
	s.syncCount()
	d := s.domains[len(s.domains)-1]
	s.active = d.ID
	if err := s.recompute(); err != nil {
		return Domain{}, err
	}
	return Domain{ID: d.ID, Name: d.Name, Values: d.Values.Clone()}, nil
}

// RemoveDomain drops the last domain. The only remaining domain cannot be
// removed.
func (s *Session) RemoveDomain() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.domains) <= MinDomains {
		return 0, ErrLastDomain
	}
	removed := s.domains[len(s.domains)-1].ID
	s.resize(len(s.domains) - 1)
	s.sized = true
	s.syncCount()
	if err := s.recompute(); err != nil {
		return removed, err
	}
	return removed, nil
}

// resize clamps n and adds or drops domains at the end of the list. New
// domains carry only their auto-filled id values; everything else reads
// through to defaults.
func (s *Session) resize(n int) {
	n = clampDomains(n)
	before := len(s.domains)
	for len(s.domains) < n {
		id := len(s.domains) + 1
		s.domains = append(s.domains, s.newDomain(id))
	}
	for len(s.domains) > n {
		gone := s.domains[len(s.domains)-1]
		s.dropConfirmations(gone.ID)
		s.domains = s.domains[:len(s.domains)-1]
	}
	switch {
	case s.active == 0:
		s.active = 1
	case s.active > len(s.domains):
		s.active = len(s.domains)
	}
	if before != len(s.domains) {
		s.logger.Debug().Int("from", before).Int("to", len(s.domains)).Msg("domains resized")
	}
}

func (s *Session) newDomain(id int) *Domain {
	values := schema.Values{}
	for _, category := range s.cfg.DomainProperties {
		for _, prop := range category.Properties {
			if prop.AutoFillDomainID {
				values[prop.Key] = strconv.Itoa(id)
			}
		}
	}
	return &Domain{ID: id, Name: s.domainLabel + " " + strconv.Itoa(id), Values: values}
}

// syncCount writes the domain count back to the count key.
func (s *Session) syncCount() {
	if key := s.cfg.DomainCountKey; key != "" {
		s.global[key] = strconv.Itoa(len(s.domains))
	}
}

func (s *Session) domain(id int) *Domain {
	if id < 1 || id > len(s.domains) {
		return nil
	}
	return s.domains[id-1]
}

func clampDomains(n int) int {
	if n < MinDomains {
		return MinDomains
	}
	if n > MaxDomains {
		return MaxDomains
	}
	return n
}
