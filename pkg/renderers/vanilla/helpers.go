package vanilla

import (
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"

	"github.com/goliatone/go-propform/pkg/render/template/gotemplate"
)

var (
	previewPolicyOnce sync.Once
	previewPolicy     *bluemonday.Policy
)

// sanitizePreview strips scripts, event handlers and unsafe URLs from an html
// field value before it is shown unescaped.
func sanitizePreview(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}
	previewPolicyOnce.Do(func() {
		previewPolicy = bluemonday.UGCPolicy()
	})
	return previewPolicy.Sanitize(raw)
}

func controlID(key string) string {
	return gotemplate.DOMID(key)
}

// sanitizeClassList drops tokens that would collide with the built-in
// propform- classes.
func sanitizeClassList(value string) string {
	tokens := strings.Fields(value)
	keep := tokens[:0]
	for _, token := range tokens {
		if strings.HasPrefix(token, "propform-") {
			continue
		}
		keep = append(keep, token)
	}
	return strings.Join(keep, " ")
}
