package service

import (
	"fmt"
	"path"
	"strings"

	"image-manager/internal/storage"
	"image-manager/pkg/apierror"
)

const maxCollisionSuffix = 10000

// uniqueName returns the first free name in folder, trying name, then
// <stem>-1<ext>, <stem>-2<ext> and so on. A candidate is taken when an entry
// of that name exists or another file already owns the sidecar or thumbnail
// for its stem. ownName, when set, is the file being renamed and counts as free.
func uniqueName(store storage.FS, folder string, name string, ownName string) (string, error) {
	ext := path.Ext(name)
	base := strings.TrimSuffix(name, ext)

	for index := 0; index <= maxCollisionSuffix; index++ {
		candidate := name
		if index > 0 {
			candidate = fmt.Sprintf("%s-%d%s", base, index, ext)
		}

		if ownName != "" && candidate == ownName {
			return candidate, nil
		}

		taken, err := nameTaken(store, folder, candidate, ownName)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
	}

	return "", apierror.Conflict("could not resolve unique file name", name)
}

func nameTaken(store storage.FS, folder string, candidate string, ownName string) (bool, error) {
	found, err := exists(statErr(store, path.Join(folder, candidate)))
	if err != nil || found {
		return found, err
	}

	if ownName != "" && stem(candidate) == stem(ownName) {
		return false, nil
	}

	for _, companion := range []string{sidecarRel(folder, candidate), thumbnailRel(folder, candidate)} {
		found, err := exists(statErr(store, companion))
		if err != nil || found {
			return found, err
		}
	}

	return false, nil
}

func statErr(store storage.FS, rel string) error {
	_, err := store.Stat(rel)
	return err
}
