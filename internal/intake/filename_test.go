package intake

import (
	"errors"
	"testing"

	"github.com/jonathan/hrms/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFilename(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected *ParsedCandidate
	}{
		{
			"naukri pdf",
			"Asha_9999999999_Naukri.pdf",
			&ParsedCandidate{Filename: "Asha_9999999999_Naukri.pdf", Name: "Asha", Mobile: "9999999999", Source: "Naukri", SourceLabel: "Naukri"},
		},
		{
			"referral pdf",
			"Ravi_8888888888_Referral.pdf",
			&ParsedCandidate{Filename: "Ravi_8888888888_Referral.pdf", Name: "Ravi", Mobile: "8888888888", Source: "Referral", SourceLabel: "Referral"},
		},
		{
			"extra fields ignored",
			"Meena_7777777777_linkedin_v2.docx",
			&ParsedCandidate{Filename: "Meena_7777777777_linkedin_v2.docx", Name: "Meena", Mobile: "7777777777", Source: "linkedin", SourceLabel: "LinkedIn"},
		},
		{
			"directory stripped",
			`C:\cvs\Zoya_+919812345678_Indeed.PDF`,
			&ParsedCandidate{Filename: "Zoya_+919812345678_Indeed.PDF", Name: "Zoya", Mobile: "+919812345678", Source: "Indeed", SourceLabel: "Indeed"},
		},
		{
			"source token kept as written",
			"Asha_9999999999_naukri.com.pdf",
			&ParsedCandidate{Filename: "Asha_9999999999_naukri.com.pdf", Name: "Asha", Mobile: "9999999999", Source: "naukri.com", SourceLabel: "Naukri"},
		},
		{
			"unknown source",
			"Asha_9999999999_Campus Drive.pdf",
			&ParsedCandidate{Filename: "Asha_9999999999_Campus Drive.pdf", Name: "Asha", Mobile: "9999999999", Source: "Campus Drive", SourceLabel: "Campus Drive"},
		},
		{
			"dots in name",
			"A.K. Singh_9000000000_Shine.doc",
			&ParsedCandidate{Filename: "A.K. Singh_9000000000_Shine.doc", Name: "A.K. Singh", Mobile: "9000000000", Source: "Shine", SourceLabel: "Shine"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFilename(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestParseFilename_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantMsg string
	}{
		{"two fields", "Asha_9999999999.pdf", "expected Name_Mobile_Source"},
		{"no separators", "resume.pdf", "expected Name_Mobile_Source"},
		{"blank name", " _9999999999_Naukri.pdf", "name is empty"},
		{"blank source", "Asha_9999999999_.pdf", "source is empty"},
		{"letters in mobile", "Asha_99999abc99_Naukri.pdf", "not a phone number"},
		{"short mobile", "Asha_12345_Naukri.pdf", "not a phone number"},
		{"unsupported type", "Asha_9999999999_Naukri.png", "unsupported file type"},
		{"no extension", "Asha_9999999999_Naukri", "unsupported file type (none)"},
		{"empty", "", "empty filename"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFilename(tt.input)
			assert.Nil(t, got)
			var perr *ParseError
			require.True(t, errors.As(err, &perr), "want ParseError, got %v", err)
			assert.Contains(t, perr.Message, tt.wantMsg)
		})
	}
}

func TestParser_AnyExtension(t *testing.T) {
	p := &Parser{}
	got, err := p.Parse("Asha_9999999999_Naukri")
	require.NoError(t, err)
	assert.Equal(t, "Asha", got.Name)
}

func TestParseBatch_AndBatchError(t *testing.T) {
	p := NewParser()
	results := p.ParseBatch([]string{
		"Asha_9999999999_Naukri.pdf",
		"bad.pdf",
		"Ravi_8888888888_Referral.pdf",
		"Nope_12_X.pdf",
	})

	require.Len(t, results, 4)
	assert.True(t, results[0].OK())
	assert.False(t, results[1].OK())
	assert.True(t, results[2].OK())
	assert.False(t, results[3].OK())

	err := BatchError(results)
	var verr *types.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "files", verr.Field)
	assert.Contains(t, verr.Message, "bad.pdf")
	assert.Contains(t, verr.Message, "Nope_12_X.pdf")
	assert.Len(t, verr.Details, 2)

	assert.NoError(t, BatchError(results[:1]))
}

func TestNormalizeSource(t *testing.T) {
	assert.Equal(t, "Naukri", NormalizeSource("NAUKRI"))
	assert.Equal(t, "Referral", NormalizeSource(" ref "))
	assert.Equal(t, "Campus Drive", NormalizeSource("Campus Drive"))
	assert.Equal(t, "", NormalizeSource("  "))
}
