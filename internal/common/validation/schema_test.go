package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSchema = `{
  "type": "object",
  "required": ["query"],
  "properties": {
    "query": {"type": "string", "maxLength": 10},
    "session_id": {"type": "string"}
  },
  "additionalProperties": false
}`

func TestSchema_ValidateBytes(t *testing.T) {
	s := MustCompile(testSchema)

	tests := []struct {
		name      string
		doc       string
		wantValid bool
		wantField string
	}{
		{name: "valid", doc: `{"query":"hello"}`, wantValid: true},
		{name: "missing query", doc: `{}`},
		{name: "too long", doc: `{"query":"this is far too long"}`, wantField: "query"},
		{name: "extra field", doc: `{"query":"hi","admin":true}`},
		{name: "not json", doc: `{"query":`, wantField: "(root)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := s.ValidateBytes([]byte(tt.doc))
			assert.Equal(t, tt.wantValid, result.Valid)
			if !tt.wantValid {
				require.NotEmpty(t, result.Errors)
				if tt.wantField != "" {
					assert.Equal(t, tt.wantField, result.Errors[0].Field)
				}
				assert.NotEmpty(t, result.Summary())
			}
		})
	}
}

func TestCompile_InvalidSchema(t *testing.T) {
	_, err := Compile(`{"type": 12}`)
	assert.Error(t, err)
}
