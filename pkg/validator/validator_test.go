package validator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type draftInput struct {
	Title     string   `json:"title" validate:"required,max=200"`
	Tags      []string `json:"tags" validate:"dive,max=50"`
	ConfigURL string   `json:"json_file_url" validate:"required,httpurl"`
}

func TestIsHTTPURL(t *testing.T) {
	cases := map[string]bool{
		"https://cdn.example/a.json":        true,
		"http://localhost:3000/json/x.json": true,
		"HTTPS://cdn.example/a.json":        true,
		"ftp://x":                           false,
		"http://":                           false,
		"http:foo":                          false,
		"/relative/path.json":               false,
		"::not a url":                       false,
		"http://[::1":                       false,
		"":                                  false,
	}
	for raw, want := range cases {
		assert.Equal(t, want, IsHTTPURL(raw), raw)
	}
}

func TestValidate_ListsEveryOffendingField(t *testing.T) {
	v := NewValidator()

	long := make([]byte, 51)
	for i := range long {
		long[i] = 'x'
	}

	err := v.Validate(draftInput{Title: "", Tags: []string{"ok", string(long)}, ConfigURL: "ftp://x"})
	require.Error(t, err)

	var fieldErrs Errors
	require.True(t, errors.As(err, &fieldErrs))

	fields := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		fields = append(fields, fe.Field)
	}
	assert.ElementsMatch(t, []string{"title", "tags[1]", "json_file_url"}, fields)
	assert.Contains(t, err.Error(), "json_file_url must be a valid HTTP or HTTPS URL")
}

func TestValidate_CountsRunesNotBytes(t *testing.T) {
	v := NewValidator()

	title := ""
	for i := 0; i < 200; i++ {
		title += "é"
	}
	assert.NoError(t, v.Validate(draftInput{Title: title, ConfigURL: "https://cdn.example/a.json"}))
}
