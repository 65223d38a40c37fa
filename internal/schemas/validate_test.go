package schemas

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateDocument_Candidates(t *testing.T) {
	tests := []struct {
		name      string
		doc       string
		wantError bool
	}{
		{
			name:      "valid candidates",
			doc:       `[{"id":"CAND-1","requirementId":"REQ-1","name":"Asha","mobile":"9999999999","communicationMarks":10,"tallyMarks":0}]`,
			wantError: false,
		},
		{
			name:      "empty collection",
			doc:       `[]`,
			wantError: false,
		},
		{
			name:      "missing mobile",
			doc:       `[{"id":"CAND-1","requirementId":"REQ-1","name":"Asha"}]`,
			wantError: true,
		},
		{
			name:      "marks out of range",
			doc:       `[{"id":"CAND-1","requirementId":"REQ-1","name":"Asha","mobile":"1","experienceMarks":11}]`,
			wantError: true,
		},
		{
			name:      "unknown owner status",
			doc:       `[{"id":"CAND-1","requirementId":"REQ-1","name":"Asha","mobile":"1","ownerStatus":"Maybe"}]`,
			wantError: true,
		},
		{
			name:      "not an array",
			doc:       `{"id":"CAND-1"}`,
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDocument("candidates", []byte(tt.doc))
			if !tt.wantError {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			validationErr, ok := err.(*SchemaError)
			require.True(t, ok, "error should be SchemaError type, got %T", err)
			assert.Equal(t, "candidates", validationErr.Document)
			assert.Greater(t, len(validationErr.Errors), 0)
		})
	}
}

func TestValidateDocument_RequirementsAcceptLegacyStatus(t *testing.T) {
	doc := `[{"id":"REQ-1","jobRole":"Accountant","status":"Pending Review"}]`
	assert.NoError(t, ValidateDocument("requirements", []byte(doc)))

	doc = `[{"id":"REQ-1","jobRole":"Accountant","status":"Closed"}]`
	assert.Error(t, ValidateDocument("requirements", []byte(doc)))
}

func TestValidateDocument_Permissions(t *testing.T) {
	assert.NoError(t, ValidateDocument("permissions", []byte(`{"requirements":{"hr":{"edit":true}}}`)))
	assert.Error(t, ValidateDocument("permissions", []byte(`{"requirements":{"hr":{"approve":true}}}`)))
}

func TestValidateDocument_UnknownKeyAccepted(t *testing.T) {
	assert.False(t, Has("scratch"))
	assert.NoError(t, ValidateDocument("scratch", []byte(`not even json`)))
}

func TestValidateDocument_MalformedJSON(t *testing.T) {
	err := ValidateDocument("candidates", []byte(`{ invalid json }`))
	require.Error(t, err)
	_, ok := err.(*SchemaError)
	assert.True(t, ok)
}

func TestSchema_Cached(t *testing.T) {
	a, err := Schema("audit")
	require.NoError(t, err)
	b, err := Schema("audit")
	require.NoError(t, err)
	assert.Same(t, a, b)

	_, err = Schema("missing")
	var loadErr *SchemaLoadError
	assert.ErrorAs(t, err, &loadErr)
}

func TestSchemaError_Error(t *testing.T) {
	err := &SchemaError{
		Document: "candidates",
		Errors: []FieldError{
			{Field: "0.name", Message: "is required"},
			{Field: "0.mobile", Message: "must be a string"},
		},
	}

	errorMsg := err.Error()
	assert.Contains(t, errorMsg, "validation of candidates failed")
	assert.Contains(t, errorMsg, "0.name")
	assert.Contains(t, errorMsg, "0.mobile")
}
