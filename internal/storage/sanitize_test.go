package storage

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"notes.md", "notes.md"},
		{"my notes-1_final.md", "my notes-1_final.md"},
		{"../../etc/passwd", "etcpasswd"},
		{"a/b\\c:d*e?.md", "abcde.md"},
		{"  .hidden. ", "hidden"},
		{"", "untitled"},
		{"...", "untitled"},
		{"???", "untitled"},
		{"résumé.md", "rsum.md"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeFilename(tt.in))
		})
	}
}

func TestSanitizeFilename_Truncates(t *testing.T) {
	got := SanitizeFilename(strings.Repeat("a", 300) + ".md")
	assert.Len(t, got, maxFilenameLength)
}

func TestFormatSize(t *testing.T) {
	tests := []struct {
		size int64
		want string
	}{
		{0, "0 B"},
		{5, "5.0 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{10 * 1024 * 1024, "10.0 MB"},
		{3 * 1024 * 1024 * 1024, "3.0 GB"},
		{2 * 1024 * 1024 * 1024 * 1024 * 1024, "2048.0 TB"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatSize(tt.size))
	}
}

func TestDetectMimeType(t *testing.T) {
	assert.Equal(t, "text/markdown", DetectMimeType("README.MD"))
	assert.Equal(t, "application/json", DetectMimeType("data.json"))
	assert.Equal(t, "text/plain", DetectMimeType("noext"))
	assert.Equal(t, "text/plain", DetectMimeType("weird.xyz"))
}
