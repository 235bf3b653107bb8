package providers

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseStructuredJSON(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"plain object", `{"ok":true}`, `{"ok":true}`},
		{"code fence", "```json\n{\"ok\":true}\n```", `{"ok":true}`},
		{"surrounding prose", "Here is the result:\n[{\"title\":\"A\"}]\nDone.", `[{"title":"A"}]`},
		{"trailing comma", `[{"title":"A"},{"title":"B"},]`, `[{"title":"A"},{"title":"B"}]`},
		{"elision line", "[\n{\"title\":\"A\"},\n...\n{\"title\":\"B\"}\n]", `[{"title":"A"},{"title":"B"}]`},
		{"truncated array", `[{"title":"A","page":1},{"title":"B","page":2},{"title":"C","pa`, `[{"page":1,"title":"A"},{"page":2,"title":"B"}]`},
		{"fenced truncated array", "```json\n[{\"title\":\"A\"},{\"ti", `[{"title":"A"}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseStructuredJSON(tt.content)
			if err != nil {
				t.Fatalf("ParseStructuredJSON() error = %v", err)
			}
			assertJSONEqual(t, got, tt.want)
		})
	}
}

func TestParseStructuredJSON_Failures(t *testing.T) {
	for _, content := range []string{"", "   ", "no json here at all", "{not json"} {
		_, err := ParseStructuredJSON(content)
		if !errors.Is(err, ErrNoJSON) {
			t.Errorf("ParseStructuredJSON(%q) error = %v, want ErrNoJSON", content, err)
		}
	}
}

func TestValidateStructuredJSON_EnforcesSchemaBounds(t *testing.T) {
	schema := json.RawMessage(`{
		"name":"toc_entry",
		"strict":true,
		"schema":{
			"type":"object",
			"properties":{
				"level":{"type":"integer","minimum":1,"maximum":5}
			},
			"required":["level"],
			"additionalProperties":false
		}
	}`)

	valid := json.RawMessage(`{"level":2}`)
	if err := ValidateStructuredJSON(schema, valid); err != nil {
		t.Fatalf("ValidateStructuredJSON(valid) error = %v", err)
	}

	invalid := json.RawMessage(`{"level":7}`)
	if err := ValidateStructuredJSON(schema, invalid); err == nil {
		t.Fatal("ValidateStructuredJSON(invalid) expected error, got nil")
	}

	// Second call hits the compiled schema cache.
	if err := ValidateStructuredJSON(schema, invalid); err == nil {
		t.Fatal("ValidateStructuredJSON(invalid) second call expected error, got nil")
	}
}

func TestValidateStructuredJSON_BareSchema(t *testing.T) {
	schema := json.RawMessage(`{"type":"array","items":{"type":"object"}}`)
	if err := ValidateStructuredJSON(schema, json.RawMessage(`[{}]`)); err != nil {
		t.Errorf("ValidateStructuredJSON() error = %v", err)
	}
	if err := ValidateStructuredJSON(schema, json.RawMessage(`{"a":1}`)); err == nil {
		t.Error("ValidateStructuredJSON(object against array schema) expected error")
	}
}

func assertJSONEqual(t *testing.T, got json.RawMessage, want string) {
	t.Helper()
	var g, w any
	if err := json.Unmarshal(got, &g); err != nil {
		t.Fatalf("unmarshal got: %v", err)
	}
	if err := json.Unmarshal([]byte(want), &w); err != nil {
		t.Fatalf("unmarshal want: %v", err)
	}
	gb, _ := json.Marshal(g)
	wb, _ := json.Marshal(w)
	if string(gb) != string(wb) {
		t.Errorf("JSON = %s, want %s", gb, wb)
	}
}
