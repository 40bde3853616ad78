package storage

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"image-manager/pkg/apierror"
)

var invalidSegmentChars = regexp.MustCompile(`[<>:"|?*]`)

type PathValidator struct {
	rootAbs string
}

func NewPathValidator(root string) (*PathValidator, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("root path cannot be empty")
	}

	rootAbs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve storage root: %w", err)
	}

	return &PathValidator{rootAbs: rootAbs}, nil
}

func (v *PathValidator) RootAbs() string {
	return v.rootAbs
}

// CleanClientPath rejects parent references, absolute paths, control
// characters and hidden segments. Empty and "." segments are dropped.
func CleanClientPath(clientPath string) (string, error) {
	trimmed := strings.TrimSpace(clientPath)
	if trimmed == "" {
		return "", nil
	}

	if strings.ContainsRune(trimmed, '\x00') || hasControlCharacters(trimmed) {
		return "", apierror.InvalidPath("path contains invalid characters", "")
	}

	normalized := strings.ReplaceAll(trimmed, `\`, "/")
	if strings.HasPrefix(normalized, "/") || filepath.IsAbs(trimmed) || hasDriveLetter(normalized) {
		return "", apierror.InvalidPath("absolute paths are not allowed", clientPath)
	}

	segments := strings.Split(normalized, "/")
	kept := make([]string, 0, len(segments))
	for _, segment := range segments {
		segment = strings.TrimSpace(segment)
		switch {
		case segment == "" || segment == ".":
			continue
		case segment == "..":
			return "", apierror.InvalidPath("path traversal attempt detected", clientPath)
		case strings.HasPrefix(segment, "."):
			return "", apierror.InvalidPath("hidden path segments are reserved", clientPath)
		case invalidSegmentChars.MatchString(segment):
			return "", apierror.InvalidPath("path contains invalid characters", clientPath)
		}
		kept = append(kept, segment)
	}

	return strings.Join(kept, "/"), nil
}

// Join maps an already validated root-relative path to an absolute path,
// refusing anything that would land outside the storage root.
func (v *PathValidator) Join(relPath string) (string, error) {
	cleanRel := filepath.Clean(filepath.FromSlash(strings.TrimPrefix(filepath.ToSlash(relPath), "/")))
	if cleanRel == "." {
		return v.rootAbs, nil
	}

	if cleanRel == ".." || strings.HasPrefix(cleanRel, ".."+string(filepath.Separator)) {
		return "", apierror.InvalidPath("resolved path is outside storage root", relPath)
	}

	resolved := filepath.Join(v.rootAbs, cleanRel)
	if !isWithinRoot(v.rootAbs, resolved) {
		return "", apierror.InvalidPath("resolved path is outside storage root", relPath)
	}

	return resolved, nil
}

func hasControlCharacters(value string) bool {
	for _, char := range value {
		if unicode.IsControl(char) {
			return true
		}
	}

	return false
}

func hasDriveLetter(value string) bool {
	return len(value) >= 2 && value[1] == ':' && unicode.IsLetter(rune(value[0]))
}

func isWithinRoot(rootAbs string, candidateAbs string) bool {
	if candidateAbs == rootAbs {
		return true
	}

	rootWithSeparator := rootAbs + string(filepath.Separator)
	return strings.HasPrefix(candidateAbs, rootWithSeparator)
}
