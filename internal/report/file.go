package report

import (
	"path/filepath"
	"strings"
)

// DefaultMaxFileBytes is the attachment size ceiling.
const DefaultMaxFileBytes int64 = 10 << 20

var supportedExtensions = map[string]bool{
	".xlsx": true,
	".xlsm": true,
}

// CheckFile rejects files that should not be opened at all.
// maxBytes <= 0 means DefaultMaxFileBytes.
func CheckFile(filename string, size, maxBytes int64) error {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxFileBytes
	}
	ext := strings.ToLower(filepath.Ext(strings.TrimSpace(filename)))
	if !supportedExtensions[ext] {
		if ext == "" {
			ext = "(none)"
		}
		return &FormatError{Reason: "unsupported file extension " + ext, Unsupported: true}
	}
	if size > maxBytes {
		return &FormatError{Reason: "file exceeds size limit", Unsupported: true}
	}
	return nil
}
