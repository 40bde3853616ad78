package service

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"path"
	"sort"
	"strings"
	"time"

	"image-manager/internal/event"
	"image-manager/internal/model"
	"image-manager/internal/storage"
	"image-manager/internal/util"
	"image-manager/pkg/apierror"
)

type DirectoryService struct {
	store        storage.FS
	publicPrefix string
	bus          event.Bus
}

func NewDirectoryService(store storage.FS, publicPrefix string, bus event.Bus) *DirectoryService {
	return &DirectoryService{store: store, publicPrefix: strings.TrimRight(publicPrefix, "/"), bus: bus}
}

// List returns the direct, user-visible children of a folder: directories
// first, then files, each group in case-insensitive name order. A folder
// that does not exist lists as empty.
func (s *DirectoryService) List(_ context.Context, requestedPath string) ([]model.Entry, error) {
	folder, err := storage.CleanClientPath(requestedPath)
	if err != nil {
		return nil, err
	}

	info, err := s.store.Stat(folder)
	if err != nil {
		if isNotExist(err) {
			return []model.Entry{}, nil
		}
		return nil, classifyFSError(err, folder)
	}
	if !info.IsDir() {
		return nil, apierror.NotADirectory("path is not a directory", folder)
	}

	children, err := s.store.ReadDir(folder)
	if err != nil {
		return nil, classifyFSError(err, folder)
	}

	entries := make([]model.Entry, 0, len(children))
	for _, child := range children {
		name := child.Name()
		if isHiddenName(name) {
			continue
		}

		rel := path.Join(folder, name)
		if child.IsDir() {
			entries = append(entries, model.Entry{Name: name, Path: rel, Type: model.EntryTypeDirectory})
			continue
		}

		if !child.Type().IsRegular() {
			continue
		}

		childInfo, err := child.Info()
		if err != nil {
			if isNotExist(err) {
				continue
			}
			return nil, classifyFSError(err, folder)
		}

		entry, err := s.fileEntry(folder, name, childInfo)
		if err != nil {
			return nil, classifyFSError(err, folder)
		}
		entries = append(entries, entry)
	}

	sortEntries(entries)
	return entries, nil
}

func (s *DirectoryService) fileEntry(folder string, name string, info fs.FileInfo) (model.Entry, error) {
	rel := path.Join(folder, name)
	size := info.Size()

	entry := model.Entry{
		Name: name,
		Path: rel,
		Type: model.EntryTypeFile,
		URL:  publicURL(s.publicPrefix, rel),
		Size: &size,
	}

	uploaded := info.ModTime().UTC().Truncate(time.Second)
	if meta, ok := readSidecar(s.store, folder, name); ok {
		entry.DisplayName = meta.DisplayName
		entry.MimeType = meta.MimeType
		if !meta.UploadTimestamp.IsZero() {
			uploaded = meta.UploadTimestamp.UTC()
		}
	}
	entry.UploadTimestamp = &uploaded

	if entry.DisplayName == "" {
		entry.DisplayName = util.DisplayName(name)
	}
	if entry.MimeType == "" {
		if localPath, err := s.store.Resolve(rel); err == nil {
			if detected, err := util.DetectMIMEFromPath(localPath); err == nil {
				entry.MimeType = detected
			}
		}
	}

	thumbRel := thumbnailRel(folder, name)
	found, err := exists(statErr(s.store, thumbRel))
	if err != nil {
		return model.Entry{}, err
	}
	if found {
		entry.ThumbnailURL = publicURL(s.publicPrefix, thumbRel)
	}

	return entry, nil
}

func sortEntries(entries []model.Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		left, right := entries[i], entries[j]
		if left.Type != right.Type {
			return left.Type == model.EntryTypeDirectory
		}

		leftName, rightName := strings.ToLower(left.Name), strings.ToLower(right.Name)
		if leftName != rightName {
			return leftName < rightName
		}
		return left.Name < right.Name
	})
}

// CreateFolder creates the folder, its missing ancestors and its thumbnail
// directory. An existing folder is not an error.
func (s *DirectoryService) CreateFolder(_ context.Context, requestedPath string) (model.Folder, error) {
	rel, err := storage.CleanClientPath(requestedPath)
	if err != nil {
		return model.Folder{}, err
	}
	if rel == "" {
		return model.Folder{}, apierror.InvalidInput("path is required", "")
	}

	created := true
	info, err := s.store.Stat(rel)
	switch {
	case err == nil && !info.IsDir():
		return model.Folder{}, apierror.Conflict("a file already exists at this path", rel)
	case err == nil:
		created = false
	case blockedByFile(err):
		return model.Folder{}, apierror.Conflict("a file already exists at this path", rel)
	case !isNotExist(err):
		return model.Folder{}, classifyFSError(err, rel)
	}

	if err := s.store.MkdirAll(path.Join(rel, ThumbnailDirName), 0o755); err != nil {
		if blockedByFile(err) {
			return model.Folder{}, apierror.Conflict("a file already exists at this path", rel)
		}
		return model.Folder{}, classifyFSError(err, rel)
	}

	if created {
		s.publish(event.TypeFolderCreated, event.Payload{Path: rel})
		slog.Info("folder created", "path", rel)
	}

	return model.Folder{Name: path.Base(rel), Path: rel, Created: created}, nil
}

// DeleteFolder removes the folder recursively, then prunes ancestors left
// empty, stopping at the storage root or at the first failure.
func (s *DirectoryService) DeleteFolder(_ context.Context, requestedPath string) error {
	rel, err := storage.CleanClientPath(requestedPath)
	if err != nil {
		return err
	}
	if rel == "" {
		return apierror.InvalidInput("the storage root cannot be deleted", "")
	}

	if err := s.requireDirectory(rel); err != nil {
		return err
	}

	if err := s.store.RemoveAll(rel); err != nil {
		return classifyFSError(err, rel)
	}

	s.pruneEmptyAncestors(rel)

	s.publish(event.TypeFolderDeleted, event.Payload{Path: rel})
	slog.Info("folder deleted", "path", rel)

	return nil
}

func (s *DirectoryService) pruneEmptyAncestors(rel string) {
	for parent, _ := splitRel(rel); parent != ""; parent, _ = splitRel(parent) {
		empty, err := s.isPrunable(parent)
		if err != nil || !empty {
			return
		}

		thumbs := path.Join(parent, ThumbnailDirName)
		if err := s.store.Remove(thumbs); err != nil && !errors.Is(err, fs.ErrNotExist) {
			slog.Warn("failed to prune thumbnail directory", "path", thumbs, "error", err)
			return
		}
		if err := s.store.Remove(parent); err != nil {
			slog.Warn("failed to prune empty folder", "path", parent, "error", err)
			return
		}
		slog.Debug("pruned empty folder", "path", parent)
	}
}

// isPrunable treats a folder as empty when nothing but an empty thumbnail
// directory is left in it.
func (s *DirectoryService) isPrunable(rel string) (bool, error) {
	children, err := s.store.ReadDir(rel)
	if err != nil {
		return false, err
	}

	for _, child := range children {
		if child.Name() != ThumbnailDirName || !child.IsDir() {
			return false, nil
		}

		thumbs, err := s.store.ReadDir(path.Join(rel, ThumbnailDirName))
		if err != nil {
			return false, err
		}
		if len(thumbs) > 0 {
			return false, nil
		}
	}

	return true, nil
}

// RenameFolder renames a folder in place; its parent never changes.
func (s *DirectoryService) RenameFolder(_ context.Context, requestedPath string, newName string) (model.RenameResult, error) {
	rel, err := storage.CleanClientPath(requestedPath)
	if err != nil {
		return model.RenameResult{}, err
	}
	if rel == "" {
		return model.RenameResult{}, apierror.InvalidInput("path is required", "")
	}

	secureName, err := util.SecureFolderName(newName)
	if err != nil {
		return model.RenameResult{}, err
	}

	if err := s.requireDirectory(rel); err != nil {
		return model.RenameResult{}, err
	}

	parent, _ := splitRel(rel)
	newRel := path.Join(parent, secureName)
	if newRel == rel {
		return model.RenameResult{OldPath: rel, NewPath: rel, NewName: secureName}, nil
	}

	found, err := exists(statErr(s.store, newRel))
	if err != nil {
		return model.RenameResult{}, classifyFSError(err, newRel)
	}
	if found {
		return model.RenameResult{}, apierror.Conflict("destination already exists", newRel)
	}

	if err := s.store.Rename(rel, newRel); err != nil {
		return model.RenameResult{}, classifyFSError(err, rel)
	}

	s.publish(event.TypeFolderRenamed, event.Payload{Path: newRel, OldPath: rel})
	slog.Info("folder renamed", "from", rel, "to", newRel)

	return model.RenameResult{OldPath: rel, NewPath: newRel, NewName: secureName}, nil
}

// RenameFolderPath accepts the destination as a full path. Only the last
// segment may differ from oldPath; moving to another parent is rejected.
func (s *DirectoryService) RenameFolderPath(ctx context.Context, oldPath string, newPath string) (model.RenameResult, error) {
	oldRel, err := storage.CleanClientPath(oldPath)
	if err != nil {
		return model.RenameResult{}, err
	}

	newRel, err := storage.CleanClientPath(newPath)
	if err != nil {
		return model.RenameResult{}, err
	}
	if oldRel == "" || newRel == "" {
		return model.RenameResult{}, apierror.InvalidInput("oldPath and newPath are required", "")
	}

	oldParent, _ := splitRel(oldRel)
	newParent, newName := splitRel(newRel)
	if oldParent != newParent {
		return model.RenameResult{}, apierror.InvalidInput("folders can only be renamed within their parent", newRel)
	}

	return s.RenameFolder(ctx, oldRel, newName)
}

// Archive is a folder ready to be streamed as a zip.
type Archive struct {
	Name string
	dir  string
}

func (a *Archive) Stream(w io.Writer) error {
	return util.StreamZipFromDirectory(a.dir, w, func(name string, _ fs.DirEntry) bool {
		return isHiddenName(name)
	})
}

// OpenArchive validates a folder for zip download. The storage root is
// allowed and downloads as "images.zip".
func (s *DirectoryService) OpenArchive(_ context.Context, requestedPath string) (*Archive, error) {
	rel, err := storage.CleanClientPath(requestedPath)
	if err != nil {
		return nil, err
	}

	if err := s.requireDirectory(rel); err != nil {
		return nil, err
	}

	dir, err := s.store.Resolve(rel)
	if err != nil {
		return nil, err
	}

	name := "images"
	if rel != "" {
		name = path.Base(rel)
	}

	return &Archive{Name: name + ".zip", dir: dir}, nil
}

func (s *DirectoryService) requireDirectory(rel string) error {
	info, err := s.store.Stat(rel)
	if err != nil {
		if isNotExist(err) {
			return apierror.NotFound("folder not found", rel)
		}
		return classifyFSError(err, rel)
	}

	if !info.IsDir() {
		return apierror.NotADirectory("path is not a directory", rel)
	}

	return nil
}

func (s *DirectoryService) publish(eventType event.Type, payload event.Payload) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(event.New(eventType, payload))
}
