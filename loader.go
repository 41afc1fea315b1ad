package propform

import (
	internalLoader "github.com/goliatone/go-propform/internal/schema/loader"
	"github.com/goliatone/go-propform/pkg/schema"
)

// NewLoader constructs a schema loader while keeping the concrete type hidden
// from consumers.
func NewLoader(options ...schema.LoaderOption) schema.Loader {
	return internalLoader.New(schema.NewLoaderOptions(options...))
}
