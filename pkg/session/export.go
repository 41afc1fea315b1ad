package session

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/goliatone/go-propform/pkg/codec/jsondoc"
	"github.com/goliatone/go-propform/pkg/codec/properties"
	"github.com/goliatone/go-propform/pkg/schema"
	"github.com/goliatone/go-propform/pkg/visibility"
)

// ExportProperties writes the flat-text output. It fails with
// *UnconfirmedError, before writing anything, while any visible field lacks
// a required confirmation.
func (s *Session) ExportProperties(w io.Writer, opts ...properties.EncodeOption) error {
	s.mu.RLock()
	pending, err := s.unconfirmed()
	snap := s.snapshot()
	s.mu.RUnlock()
	if err != nil {
		return err
	}
	if len(pending) > 0 {
		s.logger.Info().
			Int("pending", len(pending)).
			Str("first", pending[0].Key).
			Msg("export blocked on unconfirmed fields")
		return &UnconfirmedError{Fields: pending}
	}
	return properties.Encode(w, s.cfg, snap, opts...)
}

// ExportJSON returns the schema document with current values written into
// property defaults and the domain values attached. Confirmations are not
// required.
func (s *Session) ExportJSON() ([]byte, error) {
	s.mu.RLock()
	snap := s.snapshot()
	raw := s.raw
	s.mu.RUnlock()

	if len(raw) == 0 {
		var err error
		if raw, err = json.Marshal(s.cfg); err != nil {
			return nil, fmt.Errorf("session: marshal configuration: %w", err)
		}
	}
	return jsondoc.Export(raw, s.cfg, snap)
}

// ExportValues returns the compact {global, domains} value document.
func (s *Session) ExportValues() ([]byte, error) {
	return jsondoc.ExportValues(s.cfg, s.Snapshot())
}

// ImportValues applies a value document produced by ExportValues or
// ExportJSON.
func (s *Session) ImportValues(data []byte) (visibility.State, error) {
	snap, err := jsondoc.ImportValues(s.cfg, data)
	if err != nil {
		return s.State(), err
	}
	return s.Apply(snap)
}

// ImportProperties applies values read from flat text.
func (s *Session) ImportProperties(r io.Reader) (visibility.State, error) {
	snap, err := properties.ReadValues(r, s.cfg)
	if err != nil {
		return s.State(), err
	}
	return s.Apply(snap)
}

// Apply merges snap into the session. Unknown global keys are ignored. The
// domain count key, when present, resizes the domain list first. Without a
// count key the first import into a session whose domain count was never
// changed takes the highest imported domain id as the count; later imports
// only grow the list. Imported domain values replace the stored ones.
func (s *Session) Apply(snap schema.Snapshot) (visibility.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ignored := 0
	for key, value := range snap.Global {
		t, err := s.resolveKey(key)
		if err != nil || t.domain != 0 {
			ignored++
			continue
		}
		s.global[t.key] = value
	}

	if s.hasDomainProperties() {
		if countKey := s.cfg.DomainCountKey; countKey != "" {
			if raw, ok := snap.Global[countKey]; ok {
				n := schema.LeadingInt(raw)
				if n == 0 {
					n = MinDomains
				}
				s.resize(n)
				s.sized = true
			}
		} else {
			highest := 0
			for _, d := range snap.Domains {
				highest = max(highest, d.ID)
			}
			if highest > 0 && (!s.sized || highest > len(s.domains)) {
				s.resize(highest)
				s.sized = true
			}
		}
	}

	for _, in := range snap.Domains {
		d := s.domain(in.ID)
		if d == nil {
			ignored++
			continue
		}
		d.Values = in.Properties.Clone()
		if in.Name != "" {
			d.Name = in.Name
		}
	}

	if ignored > 0 {
		s.logger.Debug().Int("ignored", ignored).Msg("import skipped unknown entries")
	}
	if err := s.recompute(); err != nil {
		return s.state, err
	}
	return s.state, nil
}

// DynamicOptions returns the options of a dynamic select property and the
// selected entry: the current value when listed, otherwise the first option.
func (s *Session) DynamicOptions(key string) ([]string, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, err := s.resolveKey(key)
	if err != nil {
		return nil, "", err
	}
	rule := t.prop.DynamicOptionsFrom
	if rule == nil || rule.Key == "" {
		return nil, "", fmt.Errorf("session: %s has no dynamic options", t.prop.Key)
	}

	values := s.merged(t.domain)
	if t.domain == 0 {
		values = s.merged(s.active)
	}
	source, ok := values[rule.Key]
	if !ok {
		source, _ = s.cfg.Default(rule.Key)
	}
	return rule.Split(source), properties.DynamicValue(s.cfg, values, t.prop), nil
}
