package properties

import (
	"io"
	"sort"

	"github.com/goliatone/go-propform/pkg/keytemplate"
	"github.com/goliatone/go-propform/pkg/schema"
)

// ReadValues parses flat text and maps it onto cfg as a value snapshot.
func ReadValues(r io.Reader, cfg *schema.Configuration) (schema.Snapshot, error) {
	entries, err := Parse(r)
	if err != nil {
		return schema.Snapshot{}, err
	}
	return ValuesFromEntries(cfg, entries), nil
}

// ValuesFromEntries splits entries into global values and per-domain values.
// A key is a domain value when it carries a domain index and its templated
// form is a domain property of cfg; everything else is global.
func ValuesFromEntries(cfg *schema.Configuration, entries []Entry) schema.Snapshot {
	pattern := cfg.Pattern()
	domainKeys := make(map[string]struct{})
	for _, category := range cfg.DomainProperties {
		for _, prop := range category.Properties {
			domainKeys[prop.Key] = struct{}{}
		}
	}

	snap := schema.Snapshot{Global: schema.Values{}}
	byID := make(map[int]schema.Values)
	for _, entry := range entries {
		if id, ok := pattern.Index(entry.Key); ok && id > 0 {
			tmpl := pattern.ToTemplate(entry.Key)
			if _, known := domainKeys[tmpl]; known {
				if byID[id] == nil {
					byID[id] = schema.Values{}
				}
				byID[id][tmpl] = entry.Value
				continue
			}
		}
		snap.Global[entry.Key] = entry.Value
	}

	ids := make([]int, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		snap.Domains = append(snap.Domains, schema.DomainValues{ID: id, Properties: byID[id]})
	}
	return snap
}

// DefaultSnapshot seeds global values from defaults and creates count domains
// filled from domain defaults.
func DefaultSnapshot(cfg *schema.Configuration, count int) schema.Snapshot {
	snap := schema.Snapshot{Global: schema.Values{}}
	for _, category := range cfg.GlobalProperties {
		for _, prop := range category.Properties {
			if prop.RepeatBasedOn != nil {
				continue
			}
			snap.Global[prop.Key] = prop.Default.String()
		}
	}
	for id := 1; id <= count; id++ {
		values := schema.Values{}
		for _, category := range cfg.DomainProperties {
			for _, prop := range category.Properties {
				if prop.AutoFillDomainID {
					values[prop.Key] = keytemplate.Expand(keytemplate.Placeholder, id)
					continue
				}
				values[prop.Key] = prop.Default.String()
			}
		}
		snap.Domains = append(snap.Domains, schema.DomainValues{ID: id, Properties: values})
	}
	return snap
}
