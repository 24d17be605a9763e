package out

import (
	"encoding/json"
	"fmt"
	"sync"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

const manifestSchemaID = "inmemory://memestickers/metadata.schema.json"

const manifestSchema = `{
  "type": "object",
  "required": ["name", "display_name"],
  "properties": {
    "name": {"type": "string", "minLength": 1, "pattern": "^[^/\\\\]+$"},
    "display_name": {"type": "string", "minLength": 1},
    "description": {"type": ["string", "null"]},
    "version": {"type": ["string", "null"]},
    "author": {"type": ["string", "null"]},
    "enabled": {"type": ["boolean", "null"]},
    "url": {"type": ["string", "null"]},
    "checksum": {"type": ["string", "null"]},
    "created_at": {"type": ["string", "null"]},
    "updated_at": {"type": ["string", "null"]},
    "stickers": {"type": ["array", "null"]}
  }
}`

var (
	compiledManifestSchema *jsonschema.Schema
	manifestSchemaErr      error
	manifestSchemaOnce     sync.Once
)

func manifestSchemaValidator() (*jsonschema.Schema, error) {
	manifestSchemaOnce.Do(func() {
		compiledManifestSchema, manifestSchemaErr = jsonschema.CompileString(manifestSchemaID, manifestSchema)
	})
	return compiledManifestSchema, manifestSchemaErr
}

// validateManifestDocument checks raw metadata.json bytes against the
// manifest schema before they are decoded into a PackManifest.
func validateManifestDocument(raw []byte) error {
	schema, err := manifestSchemaValidator()
	if err != nil {
		return fmt.Errorf("compile manifest schema: %w", err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("invalid manifest json: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("manifest schema: %w", err)
	}
	return nil
}
