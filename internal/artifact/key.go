// Where: cli/internal/artifact/key.go
// What: Object-key generation for uploaded packages.
// Why: Concurrent runs must not collide on the same key.
package artifact

import (
	"bytes"
	"fmt"
	"text/template"
	"time"

	"github.com/Masterminds/sprig/v3"
)

// DefaultKeyTemplate derives a per-run object key from the function name,
// the upload instant, and the package digest. Two runs only share a key if
// they upload identical content in the same second, in which case the
// object is identical anyway.
const DefaultKeyTemplate = "{{ .Function }}/{{ .Timestamp }}-{{ .Hash | trunc 16 }}.zip"

type keyData struct {
	Function  string
	Timestamp string
	Hash      string
}

// RenderKey evaluates the key template. Hash is the hex digest of the
// package; the base64 form contains characters that are awkward in keys.
func RenderKey(tmpl, function, hashHex string, now time.Time) (string, error) {
	if tmpl == "" {
		tmpl = DefaultKeyTemplate
	}
	parsed, err := template.New("key").Funcs(sprig.FuncMap()).Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("parse key template: %w", err)
	}
	buf := &bytes.Buffer{}
	err = parsed.Execute(buf, keyData{
		Function:  function,
		Timestamp: now.UTC().Format("20060102T150405Z"),
		Hash:      hashHex,
	})
	if err != nil {
		return "", fmt.Errorf("render key template: %w", err)
	}
	if buf.Len() == 0 {
		return "", fmt.Errorf("key template produced an empty key")
	}
	return buf.String(), nil
}
