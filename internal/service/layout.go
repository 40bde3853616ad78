package service

import (
	"errors"
	"io/fs"
	"net/url"
	"path"
	"strings"
	"syscall"

	"image-manager/pkg/apierror"
)

// On-disk conventions shared by every file-level operation. For a stored
// file <folder>/<name>:
//
//	<folder>/.<stem>.meta.json     sidecar
//	<folder>/.thumbs/<stem>.jpg    thumbnail
const (
	ThumbnailDirName = ".thumbs"
	ThumbnailExt     = ".jpg"
	SidecarExt       = ".meta.json"

	// AutoDateFolder as an upload folder selects today's YYYY/MM/DD folder.
	AutoDateFolder   = "AUTO_DATE"
	dateFolderLayout = "2006/01/02"
)

func stem(name string) string {
	return strings.TrimSuffix(name, path.Ext(name))
}

func thumbnailRel(folder string, name string) string {
	return path.Join(folder, ThumbnailDirName, stem(name)+ThumbnailExt)
}

func sidecarRel(folder string, name string) string {
	return path.Join(folder, "."+stem(name)+SidecarExt)
}

// isHiddenName matches the reserved thumbnail directory, sidecars and any
// temporary file mid-write. None of them are user content.
func isHiddenName(name string) bool {
	return strings.HasPrefix(name, ".")
}

func splitRel(rel string) (string, string) {
	folder := path.Dir(rel)
	if folder == "." {
		folder = ""
	}
	return folder, path.Base(rel)
}

func publicURL(prefix string, rel string) string {
	return (&url.URL{Path: prefix + "/" + rel}).EscapedPath()
}

// classifyFSError maps filesystem errors onto the API taxonomy. Errors that
// are already classified pass through untouched.
func classifyFSError(err error, rel string) error {
	if err == nil {
		return nil
	}

	var apiErr *apierror.APIError
	switch {
	case errors.As(err, &apiErr):
		return err
	case isNotExist(err):
		return apierror.NotFound("path not found", rel)
	case errors.Is(err, fs.ErrPermission):
		return apierror.AccessDenied(err)
	default:
		return apierror.Internal(err)
	}
}

func exists(statErr error) (bool, error) {
	switch {
	case statErr == nil:
		return true, nil
	case isNotExist(statErr):
		return false, nil
	default:
		return false, statErr
	}
}

// isNotExist also covers ENOTDIR: "a.png/b" does not exist when a.png is a
// regular file.
func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ENOTDIR)
}

// blockedByFile reports whether err came from a path whose ancestor is a
// regular file.
func blockedByFile(err error) bool {
	return errors.Is(err, syscall.ENOTDIR)
}
