package template_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tmpl "github.com/stackvity/autoheader/pkg/autoheader/template"
)

func TestNewRegistry_BuiltinLanguages(t *testing.T) {
	r, err := tmpl.NewRegistry()
	require.NoError(t, err)
	assert.Equal(t, []string{"apex", "html", "javascript", "visualforce"}, r.Languages())
	assert.True(t, r.Supports("apex"))
	assert.False(t, r.Supports("plaintext"))
}

func TestRegistry_Generate(t *testing.T) {
	r := tmpl.MustNewRegistry()

	testCases := []struct {
		name       string
		languageID string
		firstLine  string
		lastLine   string
	}{
		{"apex uses block comment", "apex", "/**", "**/"},
		{"lightning script uses block comment", "javascript", "/**", "**/"},
		{"visualforce uses xml comment", "visualforce", "<!--", "-->"},
		{"lightning markup uses xml comment", "html", "<!--", "-->"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			header, err := r.Generate(tc.languageID, "AccountService", "Jane Doe", "3/7/2024, 2:05:09 PM")
			require.NoError(t, err)

			assert.True(t, strings.HasSuffix(header, "\n"))
			lines := strings.Split(strings.TrimSuffix(header, "\n"), "\n")
			require.Len(t, lines, tmpl.HeaderLines)
			assert.Equal(t, tc.firstLine, lines[0])
			assert.Equal(t, tc.lastLine, lines[len(lines)-1])
			assert.Contains(t, header, "@File Name: AccountService\n")
			assert.Contains(t, header, "@Author: Jane Doe\n")
			assert.Contains(t, header, "@Last Modified By: Jane Doe\n")
			assert.Contains(t, header, "@Last Modified On: 3/7/2024, 2:05:09 PM\n")
		})
	}
}

func TestRegistry_Generate_UnknownLanguage(t *testing.T) {
	r := tmpl.MustNewRegistry()
	_, err := r.Generate("plaintext", "notes", "Jane", "now")
	require.Error(t, err)
	assert.ErrorIs(t, err, tmpl.ErrNoGenerator)
}

func TestRegistry_Generate_NewlinesInValuesStayOnOneLine(t *testing.T) {
	r := tmpl.MustNewRegistry()
	header, err := r.Generate("apex", "Foo", "Jane\nDoe", "today\r\n")
	require.NoError(t, err)
	assert.Equal(t, tmpl.HeaderLines, strings.Count(header, "\n"))
	assert.Contains(t, header, "@Author: Jane Doe\n")
}

func TestSingleLine(t *testing.T) {
	testCases := []struct {
		in   string
		want string
	}{
		{"Jane Doe", "Jane Doe"},
		{"Jane\nDoe", "Jane Doe"},
		{"Jane\r\nDoe", "Jane Doe"},
		{"Jane\rDoe", "Jane Doe"},
		{"a\n\nb", "a  b"},
	}
	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.want, tmpl.SingleLine(tc.in))
		})
	}
}
