// ABOUTME: Mirror contract for best-effort replication of local writes
// ABOUTME: Implemented by internal/remote; a nil Mirror disables mirroring

package store

import (
	"context"
	"strings"
)

// MirrorWrite describes one local write forwarded to the remote content
// service. Key is the composite key joined with "_"; Data is the JSON
// payload (nil for deletes); Token is the caller's identity token and
// UserID its verified subject, when known.
type MirrorWrite struct {
	Store  string
	Key    string
	Data   []byte
	Delete bool
	Token  string
	UserID string
}

// Mirror pushes writes to the remote content service. Implementations are
// best effort: the store fires pushes asynchronously and only logs
// failures.
type Mirror interface {
	Push(ctx context.Context, w MirrorWrite) error
}

// mirrorKey joins composite key components into the wire key form.
func mirrorKey(parts ...string) string { return strings.Join(parts, "_") }
