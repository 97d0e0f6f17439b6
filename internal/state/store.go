package state

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Fingerprint is the recorded hash of one source file.
type Fingerprint struct {
	Pipeline  string
	Path      string
	Hash      string
	Size      int64
	UpdatedAt time.Time
}

// Store reads and records fingerprints.
type Store interface {
	Get(ctx context.Context, pipeline, path string) (Fingerprint, bool, error)
	Put(ctx context.Context, fp Fingerprint) error
	Reset(ctx context.Context, pipeline string) error
	Close() error
}

// Hash returns the hex sha256 of data.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
