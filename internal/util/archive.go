package util

import (
	"archive/zip"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// SkipFunc reports whether a directory entry should be left out of an archive.
// Returning true for a directory skips its whole subtree.
type SkipFunc func(name string, entry fs.DirEntry) bool

func StreamZipFromDirectory(rootDir string, writer io.Writer, skip SkipFunc) error {
	zipWriter := zip.NewWriter(writer)

	baseDir := filepath.Clean(rootDir)

	walkErr := filepath.WalkDir(baseDir, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}

		if path == baseDir {
			return nil
		}

		if entry.Type()&os.ModeSymlink != 0 {
			return nil
		}

		if skip != nil && skip(entry.Name(), entry) {
			if entry.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		rel, err := filepath.Rel(baseDir, path)
		if err != nil {
			return err
		}

		zipPath := filepath.ToSlash(rel)
		if entry.IsDir() {
			if !strings.HasSuffix(zipPath, "/") {
				zipPath += "/"
			}
			_, err := zipWriter.Create(zipPath)
			return err
		}

		source, err := os.Open(path)
		if err != nil {
			return err
		}
		defer source.Close()

		info, err := entry.Info()
		if err != nil {
			return err
		}

		header, err := zip.FileInfoHeader(info)
		if err != nil {
			return err
		}
		header.Name = zipPath
		header.Method = zip.Store

		zipFile, err := zipWriter.CreateHeader(header)
		if err != nil {
			return err
		}

		_, err = io.Copy(zipFile, source)
		return err
	})
	if walkErr != nil {
		_ = zipWriter.Close()
		return walkErr
	}

	return zipWriter.Close()
}
