package catalog

import (
	"embed"
	"io/fs"
	"sync"
)

//go:embed data/*.json
var builtinData embed.FS

func builtinFS() fs.FS {
	sub, err := fs.Sub(builtinData, "data")
	if err != nil {
		panic(err)
	}
	return sub
}

var (
	builtinOnce     sync.Once
	builtinResolver *Resolver
	builtinErr      error
)

// Builtin returns a shared resolver over the embedded catalog. The resolver is
// read-only after construction so sharing it between battles is safe.
func Builtin() (*Resolver, error) {
	builtinOnce.Do(func() {
		builtinResolver, builtinErr = NewResolver(builtinFS())
	})
	return builtinResolver, builtinErr
}

// MustBuiltin is Builtin for tests and tooling; it panics on a broken
// embedded catalog.
func MustBuiltin() *Resolver {
	r, err := Builtin()
	if err != nil {
		panic(err)
	}
	return r
}
