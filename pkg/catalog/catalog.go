// pkg/catalog/catalog.go
package catalog

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed catalog.json
var embeddedCatalog []byte

//go:embed catalog.schema.json
var catalogSchema []byte

// Load returns the embedded intent catalog after schema validation.
func Load() (*Catalog, error) {
	return parse(embeddedCatalog)
}

// LoadFile loads an operator-supplied catalog from disk instead of the
// embedded one.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return parse(data)
}

func parse(data []byte) (*Catalog, error) {
	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(catalogSchema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return nil, fmt.Errorf("validate catalog: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return nil, fmt.Errorf("catalog failed schema validation: %s", strings.Join(msgs, "; "))
	}

	var cat Catalog
	if err := json.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	seen := make(map[string]bool, len(cat.Intents))
	for _, in := range cat.Intents {
		if seen[in.Name] {
			return nil, fmt.Errorf("duplicate intent %q in catalog", in.Name)
		}
		seen[in.Name] = true
	}

	cat.index()
	return &cat, nil
}
