package util

import (
	"mime"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// MIMEAllowList matches declared content types against configured entries.
// Entries ending in "/*" match a whole top-level type. An empty list allows everything.
type MIMEAllowList struct {
	exact    map[string]struct{}
	prefixes []string
}

func NewMIMEAllowList(entries []string) *MIMEAllowList {
	list := &MIMEAllowList{exact: make(map[string]struct{}, len(entries))}
	for _, entry := range entries {
		trimmed := strings.ToLower(strings.TrimSpace(entry))
		if trimmed == "" {
			continue
		}
		if strings.HasSuffix(trimmed, "/*") {
			list.prefixes = append(list.prefixes, strings.TrimSuffix(trimmed, "*"))
			continue
		}
		list.exact[trimmed] = struct{}{}
	}

	return list
}

func (l *MIMEAllowList) Allows(mimeType string) bool {
	if l == nil || (len(l.exact) == 0 && len(l.prefixes) == 0) {
		return true
	}

	base := BaseMIME(mimeType)
	if base == "" {
		return false
	}

	if _, ok := l.exact[base]; ok {
		return true
	}

	for _, prefix := range l.prefixes {
		if strings.HasPrefix(base, prefix) {
			return true
		}
	}

	return false
}

// BaseMIME strips parameters and normalizes case: "Image/PNG; q=1" -> "image/png".
func BaseMIME(mimeType string) string {
	parsed, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(mimeType))
	}
	return parsed
}

// DetectMIMEFromPath sniffs the content type of a stored file.
func DetectMIMEFromPath(path string) (string, error) {
	detected, err := mimetype.DetectFile(path)
	if err != nil {
		return "", err
	}

	return BaseMIME(detected.String()), nil
}

// IsThumbnailMIME reports whether the thumbnail generator can decode the type.
func IsThumbnailMIME(mimeType string) bool {
	switch BaseMIME(mimeType) {
	case "image/jpeg", "image/png", "image/gif", "image/webp", "image/bmp", "image/tiff":
		return true
	default:
		return false
	}
}

func IsThumbnailExtension(extension string) bool {
	switch strings.ToLower(strings.TrimSpace(extension)) {
	case ".jpg", ".jpeg", ".jpe", ".jfif", ".png", ".gif", ".webp", ".bmp", ".dib", ".tiff", ".tif":
		return true
	default:
		return false
	}
}
