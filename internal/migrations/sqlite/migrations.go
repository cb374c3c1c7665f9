// Package sqlitemig exposes the sqlite schema migrations in the
// Asset/AssetNames form the migration runner expects.
package sqlitemig

import (
	"embed"
	"io/fs"
	"sort"
)

//go:embed *.sql
var files embed.FS

func AssetNames() []string {
	entries, err := fs.Glob(files, "*.sql")
	if err != nil {
		panic(err)
	}
	sort.Strings(entries)
	return entries
}

func Asset(name string) ([]byte, error) {
	return files.ReadFile(name)
}
