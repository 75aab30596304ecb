// Package blob stores ciphertext outside the database. The engine only ever
// holds a reference; the bytes live in the store for the scope of a single
// operation.
package blob

import (
	"context"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"
)

// Store is the ciphertext collaborator. Implementations must bound every
// call so the engine never blocks indefinitely.
type Store interface {
	Put(ctx context.Context, ref string, data []byte) error
	Get(ctx context.Context, ref string) ([]byte, error)
	Delete(ctx context.Context, ref string) error
}

// NewRef returns a fresh opaque storage reference.
func NewRef() string {
	d := time.Now()
	return fmt.Sprintf("files/%d/%d/%d/%v", d.Year(), int(d.Month()), d.Day(), uuid.Must(uuid.NewV4()))
}
