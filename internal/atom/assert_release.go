//go:build !mercury_debug

package atom

import "sync"

// assertWriteLocked is a no-op in production builds; see assert_debug.go.
func assertWriteLocked(mu *sync.RWMutex) {}
