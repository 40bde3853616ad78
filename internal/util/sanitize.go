package util

import (
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"image-manager/pkg/apierror"
)

const maxNameBytes = 255

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

var windowsReservedNames = map[string]struct{}{
	"CON": {}, "PRN": {}, "AUX": {}, "NUL": {},
	"COM1": {}, "COM2": {}, "COM3": {}, "COM4": {}, "COM5": {}, "COM6": {}, "COM7": {}, "COM8": {}, "COM9": {},
	"LPT1": {}, "LPT2": {}, "LPT3": {}, "LPT4": {}, "LPT5": {}, "LPT6": {}, "LPT7": {}, "LPT8": {}, "LPT9": {},
}

// SecureFilename derives the on-disk name for an uploaded or renamed file.
// The result is ASCII, lowercase, has no separators and never starts with a dot.
func SecureFilename(name string) (string, error) {
	secured := secureSegment(name)
	if secured == "" {
		return "", apierror.InvalidInput("filename is empty after sanitization", strings.TrimSpace(name))
	}

	return truncateName(strings.ToLower(secured)), nil
}

// SecureFolderName is SecureFilename for directory names; case is preserved.
func SecureFolderName(name string) (string, error) {
	secured := secureSegment(name)
	if secured == "" {
		return "", apierror.InvalidInput("folder name is empty after sanitization", strings.TrimSpace(name))
	}

	return truncateName(secured), nil
}

// DisplayName is the human-readable stem of the name the client sent.
func DisplayName(original string) string {
	base := strings.ReplaceAll(strings.TrimSpace(original), `\`, "/")
	if idx := strings.LastIndex(base, "/"); idx >= 0 {
		base = base[idx+1:]
	}

	stem := strings.TrimSpace(strings.TrimSuffix(base, filepath.Ext(base)))
	if stem == "" {
		return strings.TrimSpace(base)
	}

	return stem
}

func secureSegment(name string) string {
	builder := strings.Builder{}
	builder.Grow(len(name))
	for _, char := range name {
		if unicode.IsControl(char) || isInvisibleUnicode(char) {
			continue
		}
		builder.WriteRune(char)
	}

	ascii, _, err := transform.String(transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), builder.String())
	if err != nil {
		ascii = builder.String()
	}

	ascii = strings.NewReplacer("/", " ", `\`, " ").Replace(ascii)
	joined := strings.Join(strings.Fields(ascii), "_")
	cleaned := strings.Trim(unsafeNameChars.ReplaceAllString(joined, ""), "._")
	if cleaned == "" {
		return ""
	}

	stem := cleaned
	if idx := strings.Index(cleaned, "."); idx >= 0 {
		stem = cleaned[:idx]
	}
	if _, reserved := windowsReservedNames[strings.ToUpper(stem)]; reserved {
		cleaned = "_" + cleaned
	}

	return cleaned
}

func truncateName(name string) string {
	if len(name) <= maxNameBytes {
		return name
	}

	ext := filepath.Ext(name)
	if len(ext) >= maxNameBytes {
		return name[:maxNameBytes]
	}

	return name[:maxNameBytes-len(ext)] + ext
}

// isInvisibleUnicode returns true for zero-width, formatting, and other
// invisible Unicode characters that should be stripped from filenames.
func isInvisibleUnicode(r rune) bool {
	switch r {
	case
		'\u200B', // Zero-Width Space
		'\u200C', // Zero-Width Non-Joiner
		'\u200D', // Zero-Width Joiner
		'\u200E', // Left-to-Right Mark
		'\u200F', // Right-to-Left Mark
		'\u2060', // Word Joiner
		'\uFEFF': // Zero-Width No-Break Space / BOM
		return true
	}

	return unicode.Is(unicode.Cf, r)
}
