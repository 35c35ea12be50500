package errtext

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDescribe_Precedence(t *testing.T) {
	tests := []struct {
		name        string
		code        string
		description string
		want        string
	}{
		{"known code wins over description", "PROJECT_EXIST", "raw text", "A project with this name already exists"},
		{"unknown code falls back to description", "NOT_A_CODE", "raw text", "raw text"},
		{"no code uses description", "", "raw text", "raw text"},
		{"nothing uses generic fallback", "", "", "Unknown error"},
		{"unknown code and no description", "NOT_A_CODE", "", "Unknown error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Describe(tt.code, tt.description))
		})
	}
}

func TestFieldFor(t *testing.T) {
	assert.Equal(t, FieldName, FieldFor("PROJECT_EXIST"))
	assert.Equal(t, FieldLink, FieldFor("FOLDER_NOT_EXIST"))
	assert.Equal(t, FieldNone, FieldFor("SOMETHING_WENT_WRONG"))
}
