//go:build sqlite_vec && cgo

package vectordb

import (
	vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
)

func init() {
	// Registers sqlite-vec as an auto-loaded extension for mattn/go-sqlite3.
	vec.Auto()
	vecExtension = true
}
