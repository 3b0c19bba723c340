package photostore

import (
	"context"
	"io"
)

// PhotoStore holds the raw captures taken while scanning. Storage keys are
// opaque to callers and get recorded on the item's photo references.
type PhotoStore interface {
	Save(ctx context.Context, sessionID, itemID, mimeType string, r io.Reader) (storageKey string, err error)
	Get(ctx context.Context, storageKey string) (io.ReadCloser, string, error)
	Delete(ctx context.Context, storageKey string) error
}
