// Where: cli/internal/artifact/locator.go
// What: Artifact locator producing a CodeSource per run.
// Why: Decide delivery mechanism once, before reconciliation starts.
package artifact

import (
	"context"
	"fmt"
	"time"
)

// MaxInlineSize bounds packages delivered inline with the create/update
// request. Larger packages must travel through the object store.
const MaxInlineSize = 50 * 1024 * 1024

// Mode selects the code-delivery mechanism.
type Mode string

const (
	ModeDirect      Mode = "direct"
	ModeObjectStore Mode = "object-store"
)

// Request describes one packaging run. A dry-run request still packages
// and hashes the source but never writes to the object store.
type Request struct {
	Function     string
	SourceDir    string
	Mode         Mode
	Bucket       string
	Key          string
	CreateBucket bool
	DryRun       bool
}

// Locator packages source directories and produces CodeSources. The store
// is only consulted on the object-store path.
type Locator struct {
	Store         ObjectStore
	KeyTemplate   string
	Now           func() time.Time
	MaxInlineSize int64
}

// NewLocator returns a Locator with the stock key template and size bound.
func NewLocator(store ObjectStore) *Locator {
	return &Locator{
		Store:         store,
		KeyTemplate:   DefaultKeyTemplate,
		Now:           time.Now,
		MaxInlineSize: MaxInlineSize,
	}
}

// Locate resolves the code source for a run. Direct mode packages the
// source directory into an inline payload. Object-store mode uploads the
// package, generating a key when none was supplied; with no source
// directory an explicit bucket+key pair is passed through as a reference
// to a previously uploaded package.
func (l *Locator) Locate(ctx context.Context, req Request) (CodeSource, error) {
	switch req.Mode {
	case ModeDirect:
		return l.locateDirect(req)
	case ModeObjectStore:
		return l.locateObjectStore(ctx, req)
	default:
		return nil, fmt.Errorf("unknown packaging mode %q", req.Mode)
	}
}

func (l *Locator) locateDirect(req Request) (CodeSource, error) {
	if req.SourceDir == "" {
		return nil, fmt.Errorf("direct packaging requires a source directory")
	}
	data, hashB64, _, err := Package(req.SourceDir)
	if err != nil {
		return nil, err
	}
	max := l.MaxInlineSize
	if max == 0 {
		max = MaxInlineSize
	}
	if int64(len(data)) > max {
		return nil, fmt.Errorf(
			"package is %d bytes, above the %d byte inline limit; upload via the object store instead",
			len(data), max,
		)
	}
	return Inline{Data: data, Hash: hashB64}, nil
}

func (l *Locator) locateObjectStore(ctx context.Context, req Request) (CodeSource, error) {
	if req.Bucket == "" {
		return nil, fmt.Errorf("object-store packaging requires a bucket")
	}

	if req.SourceDir == "" {
		if req.Key == "" {
			return nil, fmt.Errorf("object-store packaging requires a source directory or an existing key")
		}
		return ObjectStoreRef{Bucket: req.Bucket, Key: req.Key}, nil
	}

	data, hashB64, hashHex, err := Package(req.SourceDir)
	if err != nil {
		return nil, err
	}

	key := req.Key
	if key == "" {
		now := l.Now
		if now == nil {
			now = time.Now
		}
		key, err = RenderKey(l.KeyTemplate, req.Function, hashHex, now())
		if err != nil {
			return nil, err
		}
	}

	// The diff only needs the digest; the upload itself is one of the
	// calls a dry run suppresses.
	if req.DryRun {
		return ObjectStoreRef{Bucket: req.Bucket, Key: key, Hash: hashB64}, nil
	}

	if l.Store == nil {
		return nil, fmt.Errorf("object store not configured")
	}
	if err := l.ensureBucket(ctx, req); err != nil {
		return nil, err
	}
	if err := l.Store.PutObject(ctx, req.Bucket, key, data); err != nil {
		return nil, err
	}
	return ObjectStoreRef{Bucket: req.Bucket, Key: key, Hash: hashB64}, nil
}

func (l *Locator) ensureBucket(ctx context.Context, req Request) error {
	err := l.Store.HeadBucket(ctx, req.Bucket)
	if err == nil {
		return nil
	}
	if !req.CreateBucket {
		return err
	}
	if createErr := l.Store.CreateBucket(ctx, req.Bucket); createErr != nil {
		return createErr
	}
	return l.Store.HeadBucket(ctx, req.Bucket)
}
