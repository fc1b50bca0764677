// Where: cli/internal/artifact/source.go
// What: CodeSource variants for code delivery.
// Why: Force every consumer to handle both delivery mechanisms explicitly.
package artifact

// CodeSource identifies where the deployment package lives. Exactly one
// variant is active per run: either the zipped bytes travel inline with the
// create/update call, or the call references an object previously uploaded
// to the object store. The interface is closed so consumption sites can
// switch exhaustively over the known variants.
type CodeSource interface {
	// SHA256 returns the base64 digest of the package, or "" when the
	// content is not known locally (a bare object-store reference).
	SHA256() string

	codeSource()
}

// Inline carries the zipped package in the request body.
type Inline struct {
	Data []byte
	Hash string
}

func (Inline) codeSource() {}

func (s Inline) SHA256() string { return s.Hash }

// ObjectStoreRef points at a package already stored in a bucket. Hash is
// empty when the object was uploaded outside this run.
type ObjectStoreRef struct {
	Bucket string
	Key    string
	Hash   string
}

func (ObjectStoreRef) codeSource() {}

func (s ObjectStoreRef) SHA256() string { return s.Hash }
