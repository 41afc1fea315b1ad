package orchestrator

import (
	"io/fs"

	internalLoader "github.com/goliatone/go-propform/internal/schema/loader"
	"github.com/goliatone/go-propform/pkg/schema"
)

func loaderFor(fsys fs.FS) schema.Loader {
	return internalLoader.New(schema.NewLoaderOptions(schema.WithFileSystem(fsys)))
}
