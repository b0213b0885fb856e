//go:build cgo || windows

package main

// The ODBC driver needs cgo on non-Windows platforms, so its registration
// is compiled only where it can build.
import _ "github.com/alexbrainman/odbc"
