// Package jsondoc exports session values into schema documents and reads value
// snapshots back. Documents are patched in place so fields this module does
// not model survive an export.
package jsondoc

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/goliatone/go-propform/pkg/schema"
)

// ErrInvalidDocument is returned when input is not valid JSON.
var ErrInvalidDocument = errors.New("jsondoc: invalid JSON document")

const (
	domainValuesPath = "_domainValues"
	domainKeyPrefix  = "domain"
)

type domainRecord struct {
	ID         int               `json:"id"`
	Name       string            `json:"name"`
	Properties map[string]string `json:"properties"`
}

// Export writes the current values of snap into raw as property defaults and
// appends the per-domain values under "_domainValues". raw may be JSON or YAML;
// the result is always JSON.
func Export(raw []byte, cfg *schema.Configuration, snap schema.Snapshot) ([]byte, error) {
	doc, err := schema.Normalize(raw)
	if err != nil {
		return nil, err
	}
	doc = append([]byte(nil), doc...)

	categories := gjson.GetBytes(doc, "globalProperties")
	for ci, category := range categories.Array() {
		for pi, prop := range category.Get("properties").Array() {
			key := prop.Get("key").String()
			value, ok := snap.Global[key]
			if !ok {
				continue
			}
			if bt := booleanType(cfg, key); bt != "" {
				value = bt.Format(schema.Truthy(value))
			}
			path := "globalProperties." + strconv.Itoa(ci) + ".properties." + strconv.Itoa(pi) + ".default"
			if doc, err = sjson.SetBytes(doc, path, value); err != nil {
				return nil, fmt.Errorf("jsondoc: set %s: %w", key, err)
			}
		}
	}

	if len(snap.Domains) > 0 {
		records := make([]domainRecord, 0, len(snap.Domains))
		for _, d := range snap.SortedDomains() {
			props := d.Properties
			if props == nil {
				props = map[string]string{}
			}
			records = append(records, domainRecord{ID: d.ID, Name: domainName(d), Properties: props})
		}
		if doc, err = sjson.SetBytes(doc, domainValuesPath, records); err != nil {
			return nil, fmt.Errorf("jsondoc: set domain values: %w", err)
		}
	}
	return doc, nil
}

// ExportValues writes the compact value form:
// {"global": {...}, "domains": {"domain1": {...}}}. Boolean global values are
// written as JSON booleans.
func ExportValues(cfg *schema.Configuration, snap schema.Snapshot) ([]byte, error) {
	global := make(map[string]any, len(snap.Global))
	for key, value := range snap.Global {
		if booleanType(cfg, key) != "" {
			global[key] = schema.Truthy(value)
			continue
		}
		global[key] = value
	}

	domains := make(map[string]map[string]string, len(snap.Domains))
	for _, d := range snap.Domains {
		props := d.Properties
		if props == nil {
			props = map[string]string{}
		}
		domains[domainKeyPrefix+strconv.Itoa(d.ID)] = props
	}

	doc, err := sjson.SetBytes([]byte(`{}`), "global", global)
	if err != nil {
		return nil, fmt.Errorf("jsondoc: set global: %w", err)
	}
	if doc, err = sjson.SetBytes(doc, "domains", domains); err != nil {
		return nil, fmt.Errorf("jsondoc: set domains: %w", err)
	}
	return doc, nil
}

// ImportValues reads a value snapshot from either the compact value form or
// an exported document carrying "_domainValues". Booleans are converted to
// the spelling of the matching property. Domain entries with an unreadable id
// are ignored.
func ImportValues(cfg *schema.Configuration, data []byte) (schema.Snapshot, error) {
	if !gjson.ValidBytes(data) {
		return schema.Snapshot{}, ErrInvalidDocument
	}
	root := gjson.ParseBytes(data)

	snap := schema.Snapshot{Global: schema.Values{}}
	root.Get("global").ForEach(func(key, value gjson.Result) bool {
		snap.Global[key.String()] = scalar(cfg, key.String(), value)
		return true
	})

	byID := make(map[int]*schema.DomainValues)
	var order []int
	add := func(id int, name string, props gjson.Result) {
		d, ok := byID[id]
		if !ok {
			d = &schema.DomainValues{ID: id, Properties: schema.Values{}}
			byID[id] = d
			order = append(order, id)
		}
		if name != "" {
			d.Name = name
		}
		props.ForEach(func(key, value gjson.Result) bool {
			d.Properties[key.String()] = scalar(cfg, key.String(), value)
			return true
		})
	}

	root.Get("domains").ForEach(func(key, value gjson.Result) bool {
		id, err := strconv.Atoi(strings.TrimPrefix(key.String(), domainKeyPrefix))
		if err != nil || id < 1 {
			return true
		}
		add(id, "", value)
		return true
	})
	root.Get(domainValuesPath).ForEach(func(_, value gjson.Result) bool {
		id := int(value.Get("id").Int())
		if id < 1 {
			return true
		}
		add(id, value.Get("name").String(), value.Get("properties"))
		return true
	})

	sort.Ints(order)
	for _, id := range order {
		snap.Domains = append(snap.Domains, *byID[id])
	}
	return snap, nil
}

func scalar(cfg *schema.Configuration, key string, value gjson.Result) string {
	switch value.Type {
	case gjson.True, gjson.False:
		if bt := booleanType(cfg, key); bt != "" {
			return bt.Format(value.Bool())
		}
		return strconv.FormatBool(value.Bool())
	case gjson.Null:
		return ""
	default:
		return value.String()
	}
}

func booleanType(cfg *schema.Configuration, key string) schema.BooleanType {
	if cfg == nil {
		return ""
	}
	prop, ok := cfg.FindProperty(key)
	if !ok {
		return ""
	}
	return prop.BooleanType()
}

func domainName(d schema.DomainValues) string {
	if d.Name != "" {
		return d.Name
	}
	return "Domain " + strconv.Itoa(d.ID)
}
