package storage

import (
	"fmt"
	"path/filepath"
	"strings"
)

const maxFilenameLength = 255

// SanitizeFilename 只保留字母、数字、下划线、点、连字符和空格，
// 去掉首尾的点和空格，最长 255 字符，结果为空时返回 "untitled"。
func SanitizeFilename(name string) string {
	var b strings.Builder
	for _, r := range name {
		if isAllowed(r) {
			b.WriteRune(r)
		}
	}
	clean := strings.Trim(b.String(), ". ")
	if len(clean) > maxFilenameLength {
		clean = clean[:maxFilenameLength]
	}
	if clean == "" {
		return "untitled"
	}
	return clean
}

func isAllowed(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '_', r == '.', r == '-', r == ' ':
		return true
	}
	return false
}

// FormatSize 以 1024 为基数格式化字节数，如 "1.5 KB"
func FormatSize(size int64) string {
	if size <= 0 {
		return "0 B"
	}
	units := []string{"B", "KB", "MB", "GB", "TB"}
	value := float64(size)
	i := 0
	for value >= 1024 && i < len(units)-1 {
		value /= 1024
		i++
	}
	return fmt.Sprintf("%.1f %s", value, units[i])
}

// DetectMimeType 根据扩展名确定MIME类型，默认 text/plain
func DetectMimeType(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".md", ".markdown":
		return "text/markdown"
	case ".txt":
		return "text/plain"
	case ".html", ".htm":
		return "text/html"
	case ".css":
		return "text/css"
	case ".csv":
		return "text/csv"
	case ".json":
		return "application/json"
	case ".yaml", ".yml":
		return "application/yaml"
	case ".xml":
		return "application/xml"
	case ".js":
		return "text/javascript"
	case ".pdf":
		return "application/pdf"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	}
	return "text/plain"
}
