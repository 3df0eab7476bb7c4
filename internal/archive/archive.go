// Package archive stores published print documents and encrypted exports.
// Keys are slash-separated relative paths such as
// "orders/order-receipt/20240115T103000Z.html".
package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"
)

// ErrNotFound is returned by Get for a key that was never stored.
var ErrNotFound = errors.New("archive entry not found")

// Archive is a flat key/blob store.
type Archive interface {
	// Put stores size bytes read from r under key, replacing any previous
	// entry. A reader that yields a different number of bytes is an error
	// and leaves no entry behind.
	Put(ctx context.Context, key string, r io.Reader, size int64) error

	// Get writes the entry stored under key to w.
	Get(ctx context.Context, key string, w io.Writer) error

	// List returns the entries whose key starts with prefix, sorted by key.
	List(ctx context.Context, prefix string) ([]Entry, error)

	// ValidateSetup verifies the archive is reachable and writable.
	ValidateSetup(ctx context.Context) error
}

// Entry describes one stored blob.
type Entry struct {
	Key     string
	Size    int64
	ModTime time.Time
}

// DocumentKey builds the key of a published print document.
func DocumentKey(kind, layout string, at time.Time) string {
	return path.Join(kind, layout, at.UTC().Format("20060102T150405Z")+".html")
}

// ExportKey builds the key of an exported collection snapshot. ext is the
// file extension without the dot, e.g. "json.age".
func ExportKey(kind string, at time.Time, ext string) string {
	return path.Join("exports", kind, at.UTC().Format("20060102T150405Z")+"."+ext)
}

// JournalKey builds the key of a mutation journal snapshot of one instance.
func JournalKey(instanceID string, at time.Time) string {
	return path.Join("journal", instanceID, at.UTC().Format("20060102T150405Z")+".db")
}

// cleanKey rejects keys that could escape the archive root.
func cleanKey(key string) (string, error) {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return "", fmt.Errorf("invalid archive key %q", key)
	}
	clean := path.Clean(key)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("invalid archive key %q", key)
	}
	return clean, nil
}

// sizeMismatch formats the error returned when a reader yields the wrong
// number of bytes.
func sizeMismatch(want, got int64) error {
	return fmt.Errorf("size mismatch: expected %d bytes, got %d", want, got)
}
