package propform

import (
	"io/fs"

	"github.com/goliatone/go-propform/pkg/renderers/vanilla"
)

// RuntimeAssetsFS exposes the browser stylesheet and behaviour script used by
// the vanilla renderer so Go applications can serve them directly.
//
// Typical mount:
//
//	mux.Handle("/assets/",
//	  http.StripPrefix("/assets/",
//	    http.FileServerFS(propform.RuntimeAssetsFS()),
//	  ),
//	)
func RuntimeAssetsFS() fs.FS {
	return vanilla.AssetsFS()
}
