package outline

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// EntrySchema is the JSON schema of a single entry.
var EntrySchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"title": map[string]any{"type": "string", "minLength": 1},
		"page":  map[string]any{"type": "integer", "minimum": 1},
		"level": map[string]any{"type": "integer", "minimum": MinLevel, "maximum": MaxLevel},
	},
	"required": []string{"title", "page", "level"},
}

// PageResultSchema is the JSON schema of a page_<N>.json file.
var PageResultSchema = map[string]any{
	"type":  "array",
	"items": EntrySchema,
}

var (
	pageSchemaOnce sync.Once
	pageSchema     *jsonschema.Schema
	pageSchemaErr  error
)

func compiledPageSchema() (*jsonschema.Schema, error) {
	pageSchemaOnce.Do(func() {
		raw, err := json.Marshal(PageResultSchema)
		if err != nil {
			pageSchemaErr = fmt.Errorf("failed to marshal page schema: %w", err)
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("page_result.json", bytes.NewReader(raw)); err != nil {
			pageSchemaErr = fmt.Errorf("failed to load page schema: %w", err)
			return
		}
		pageSchema, pageSchemaErr = compiler.Compile("page_result.json")
	})
	return pageSchema, pageSchemaErr
}

// ValidateJSON checks a page result document against PageResultSchema.
func ValidateJSON(raw []byte) error {
	schema, err := compiledPageSchema()
	if err != nil {
		return err
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("page result does not match schema: %w", err)
	}
	return nil
}
