package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateTitle(t *testing.T) {
	cases := []struct {
		name  string
		input string
		ok    bool
	}{
		{"Plain title", "Main Page", true},
		{"Unicode", "Ünïcode 页面", true},
		{"Empty", "", false},
		{"Pipe", "A|B", false},
		{"Brackets", "[[Link]]", false},
		{"Hash", "Page#Section", false},
		{"At limit", strings.Repeat("é", 255), true},
		{"Too long", strings.Repeat("a", 256), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.ok, validateTitle(tc.input) == nil)
		})
	}
}

func TestIsValidSHA1(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  bool
	}{
		{"Empty allowed", "", true},
		{"Base36", "phoiac9h4m842xq45sp7s6u21eteeq1", true},
		{"Upper case", "ABC", false},
		{"Too long", strings.Repeat("a", 41), false},
		{"Punctuation", "abc-def", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, isValidSHA1(tc.input))
		})
	}
}

func TestNormalizeTags(t *testing.T) {
	assert.Equal(t, []string{"bot", "mobile edit"}, normalizeTags([]string{" bot", "", "mobile edit", "bot "}))
	assert.Empty(t, normalizeTags(nil))
}
