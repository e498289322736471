package schema

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Fingerprint identifies a source file for cache purposes: editing the file
// changes its modification time and therefore its key, so stale mappings
// fall out without an explicit invalidation protocol.
type Fingerprint struct {
	Path    string
	ModTime time.Time
}

// Key returns a stable hash of (path, mtime) usable as a cache key.
func (f Fingerprint) Key() string {
	h := sha256.Sum256([]byte(fmt.Sprintf("%s|%d", f.Path, f.ModTime.UTC().UnixNano())))
	return hex.EncodeToString(h[:])
}
