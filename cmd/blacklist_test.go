package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBlacklistFile(t *testing.T) {
	entries, err := parseBlacklistFile([]byte(`
keyword: [驻场, "  外派  "]
company:
  - 外包*
  - ""
`))
	require.NoError(t, err)
	assert.Equal(t, []blacklistEntry{
		{Type: "company", Value: "外包*"},
		{Type: "keyword", Value: "驻场"},
		{Type: "keyword", Value: "外派"},
	}, entries)
}

func TestParseBlacklistFileRejectsUnknownType(t *testing.T) {
	_, err := parseBlacklistFile([]byte("city: [上海]\n"))
	assert.ErrorContains(t, err, "city")

	_, err = parseBlacklistFile([]byte("company: {a: b}\n"))
	assert.Error(t, err)
}

func TestApplyFuncUnknownPlatform(t *testing.T) {
	_, err := applyFunc(nil, "lagou")
	assert.ErrorContains(t, err, "lagou")
}
