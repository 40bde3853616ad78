package service

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path"
	"strings"
	"time"

	"image-manager/internal/event"
	"image-manager/internal/metrics"
	"image-manager/internal/model"
	"image-manager/internal/storage"
	"image-manager/internal/thumbnail"
	"image-manager/internal/util"
	"image-manager/pkg/apierror"
)

const maxCreateAttempts = 5

// Backup receives every stored file after a successful save.
type Backup interface {
	Schedule(localPath string, relPath string, contentType string)
}

type FileService struct {
	store        storage.FS
	thumbnails   thumbnail.Generator
	allowed      *util.MIMEAllowList
	publicPrefix string
	bus          event.Bus
	backup       Backup
	metrics      *metrics.Recorder
	now          func() time.Time
}

func NewFileService(store storage.FS, thumbnails thumbnail.Generator, allowedMIMETypes []string, publicPrefix string, bus event.Bus) *FileService {
	return &FileService{
		store:        store,
		thumbnails:   thumbnails,
		allowed:      util.NewMIMEAllowList(allowedMIMETypes),
		publicPrefix: strings.TrimRight(publicPrefix, "/"),
		bus:          bus,
		now:          time.Now,
	}
}

func (s *FileService) SetBackup(backup Backup) {
	s.backup = backup
}

func (s *FileService) SetMetrics(recorder *metrics.Recorder) {
	s.metrics = recorder
}

// SaveFile stores the upload under a collision-free secure name inside
// targetFolder ("" is the storage root, AutoDateFolder is today's folder).
// Sidecar, thumbnail and backup failures never fail the save.
func (s *FileService) SaveFile(ctx context.Context, reader io.Reader, originalFilename string, mimeType string, targetFolder string) (model.StoredFile, error) {
	folder, err := s.resolveTargetFolder(targetFolder)
	if err != nil {
		return model.StoredFile{}, err
	}

	secureName, err := util.SecureFilename(originalFilename)
	if err != nil {
		return model.StoredFile{}, err
	}

	declaredMIME := util.BaseMIME(mimeType)
	if !s.allowed.Allows(declaredMIME) {
		return model.StoredFile{}, apierror.UnsupportedType("file MIME type is not allowed", declaredMIME)
	}

	if err := s.store.MkdirAll(path.Join(folder, ThumbnailDirName), 0o755); err != nil {
		if blockedByFile(err) {
			return model.StoredFile{}, apierror.Conflict("target folder is a file", folder)
		}
		return model.StoredFile{}, classifyFSError(err, folder)
	}

	name, file, err := s.createUnique(folder, secureName)
	if err != nil {
		return model.StoredFile{}, err
	}

	rel := path.Join(folder, name)
	written, err := io.Copy(file, reader)
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		if removeErr := s.store.Remove(rel); removeErr != nil {
			slog.Warn("failed to remove partial upload", "path", rel, "error", removeErr)
		}
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return model.StoredFile{}, apierror.TooLarge("file exceeds maximum upload size", "")
		}
		return model.StoredFile{}, classifyFSError(err, rel)
	}

	stored := model.StoredFile{
		Name:            name,
		Path:            rel,
		URL:             publicURL(s.publicPrefix, rel),
		Size:            written,
		MimeType:        declaredMIME,
		DisplayName:     util.DisplayName(originalFilename),
		UploadTimestamp: s.now().UTC().Truncate(time.Second),
	}

	meta := Sidecar{
		DisplayName:     stored.DisplayName,
		UploadTimestamp: stored.UploadTimestamp,
		MimeType:        stored.MimeType,
		SecureName:      name,
		PublicPath:      stored.URL,
	}
	if err := writeSidecar(s.store, folder, meta); err != nil {
		slog.Warn("failed to write sidecar", "path", rel, "error", err)
	}

	stored.ThumbnailURL = s.renderThumbnail(ctx, folder, name, declaredMIME)

	if s.backup != nil {
		if localPath, err := s.store.Resolve(rel); err == nil {
			s.backup.Schedule(localPath, rel, declaredMIME)
		}
	}

	s.metrics.UploadStored(written)
	s.publish(event.TypeFileUploaded, event.Payload{Path: rel, URL: stored.URL, Size: written})
	slog.Info("file stored", "path", rel, "size", written, "mime", declaredMIME)

	return stored, nil
}

// RenameFile renames the primary file and then carries its thumbnail and
// sidecar along. Only the primary rename can fail the call.
func (s *FileService) RenameFile(ctx context.Context, requestedPath string, newName string) (model.RenameResult, error) {
	rel, err := storage.CleanClientPath(requestedPath)
	if err != nil {
		return model.RenameResult{}, err
	}
	if rel == "" {
		return model.RenameResult{}, apierror.InvalidInput("path is required", "")
	}

	secureName, err := util.SecureFilename(newName)
	if err != nil {
		return model.RenameResult{}, err
	}

	if err := s.requireFile(rel); err != nil {
		return model.RenameResult{}, err
	}

	folder, oldName := splitRel(rel)
	finalName, err := uniqueName(s.store, folder, secureName, oldName)
	if err != nil {
		return model.RenameResult{}, classifyFSError(err, rel)
	}

	newRel := path.Join(folder, finalName)
	if finalName != oldName {
		if err := s.store.Rename(rel, newRel); err != nil {
			return model.RenameResult{}, classifyFSError(err, rel)
		}
	}

	s.moveCompanions(ctx, folder, oldName, finalName, newName)

	s.publish(event.TypeFileRenamed, event.Payload{Path: newRel, OldPath: rel, URL: publicURL(s.publicPrefix, newRel)})
	slog.Info("file renamed", "from", rel, "to", newRel)

	return model.RenameResult{OldPath: rel, NewPath: newRel, NewName: finalName}, nil
}

// DeleteFile removes the primary file first so a failure midway never
// leaves a served file behind, then its thumbnail and sidecar.
func (s *FileService) DeleteFile(_ context.Context, requestedPath string) error {
	rel, err := storage.CleanClientPath(requestedPath)
	if err != nil {
		return err
	}
	if rel == "" {
		return apierror.InvalidInput("path is required", "")
	}

	if err := s.requireFile(rel); err != nil {
		return err
	}

	if err := s.store.Remove(rel); err != nil {
		return classifyFSError(err, rel)
	}

	folder, name := splitRel(rel)
	s.removeCompanion(thumbnailRel(folder, name))
	s.removeCompanion(sidecarRel(folder, name))

	s.publish(event.TypeFileDeleted, event.Payload{Path: rel})
	slog.Info("file deleted", "path", rel)

	return nil
}

type OpenedFile struct {
	File        *os.File
	Info        fs.FileInfo
	ContentType string
}

// OpenFile opens a stored file or thumbnail addressed by its public path
// (the part after the public prefix). The reserved thumbnail directory is
// accepted only as the second-to-last segment.
func (s *FileService) OpenFile(requestedPath string) (OpenedFile, error) {
	rel, isThumbnail, err := resolveServePath(requestedPath)
	if err != nil {
		return OpenedFile{}, err
	}

	file, err := s.store.OpenForRead(rel)
	if err != nil {
		return OpenedFile{}, classifyFSError(err, rel)
	}

	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return OpenedFile{}, classifyFSError(err, rel)
	}
	if info.IsDir() {
		_ = file.Close()
		return OpenedFile{}, apierror.NotFound("file not found", rel)
	}

	contentType := "image/jpeg"
	if !isThumbnail {
		contentType = s.contentType(rel)
	}

	return OpenedFile{File: file, Info: info, ContentType: contentType}, nil
}

func resolveServePath(requestedPath string) (string, bool, error) {
	trimmed := strings.TrimSpace(requestedPath)
	segments := strings.Split(trimmed, "/")

	if len(segments) >= 2 && segments[len(segments)-2] == ThumbnailDirName {
		folder, err := storage.CleanClientPath(strings.Join(segments[:len(segments)-2], "/"))
		if err != nil {
			return "", false, err
		}

		name, err := storage.CleanClientPath(segments[len(segments)-1])
		if err != nil {
			return "", false, err
		}
		if name == "" || path.Ext(name) != ThumbnailExt {
			return "", false, apierror.NotFound("file not found", trimmed)
		}

		return path.Join(folder, ThumbnailDirName, name), true, nil
	}

	rel, err := storage.CleanClientPath(trimmed)
	if err != nil {
		return "", false, err
	}
	if rel == "" {
		return "", false, apierror.NotFound("file not found", trimmed)
	}

	return rel, false, nil
}

func (s *FileService) contentType(rel string) string {
	folder, name := splitRel(rel)
	if meta, ok := readSidecar(s.store, folder, name); ok && meta.MimeType != "" {
		return meta.MimeType
	}

	if localPath, err := s.store.Resolve(rel); err == nil {
		if detected, err := util.DetectMIMEFromPath(localPath); err == nil {
			return detected
		}
	}

	return "application/octet-stream"
}

func (s *FileService) resolveTargetFolder(targetFolder string) (string, error) {
	trimmed := strings.TrimSpace(targetFolder)
	if trimmed == AutoDateFolder {
		return s.now().Format(dateFolderLayout), nil
	}

	return storage.CleanClientPath(trimmed)
}

// createUnique claims a free name with an exclusive create, retrying when a
// concurrent upload takes the same name between the check and the create.
func (s *FileService) createUnique(folder string, secureName string) (string, *os.File, error) {
	for attempt := 0; attempt < maxCreateAttempts; attempt++ {
		name, err := uniqueName(s.store, folder, secureName, "")
		if err != nil {
			return "", nil, classifyFSError(err, folder)
		}

		file, err := s.store.CreateExclusive(path.Join(folder, name))
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", nil, classifyFSError(err, folder)
		}

		return name, file, nil
	}

	return "", nil, apierror.Conflict("could not resolve unique file name", secureName)
}

func (s *FileService) requireFile(rel string) error {
	info, err := s.store.Stat(rel)
	if err != nil {
		if isNotExist(err) {
			return apierror.NotFound("file not found", rel)
		}
		return classifyFSError(err, rel)
	}

	if !info.Mode().IsRegular() {
		return apierror.NotFound("file not found", rel)
	}

	return nil
}

func (s *FileService) moveCompanions(ctx context.Context, folder string, oldName string, newName string, requestedName string) {
	stemChanged := stem(oldName) != stem(newName)

	if stemChanged {
		from, to := thumbnailRel(folder, oldName), thumbnailRel(folder, newName)
		if err := s.store.Rename(from, to); err != nil && !errors.Is(err, fs.ErrNotExist) {
			slog.Warn("failed to rename thumbnail", "from", from, "to", to, "error", err)
		}
	}

	meta, ok := readSidecar(s.store, folder, oldName)
	if !ok {
		meta = s.freshSidecar(folder, newName)
	}
	meta.SecureName = newName
	meta.DisplayName = util.DisplayName(requestedName)
	meta.PublicPath = publicURL(s.publicPrefix, path.Join(folder, newName))

	if err := writeSidecar(s.store, folder, meta); err != nil {
		slog.Warn("failed to update sidecar", "path", path.Join(folder, newName), "error", err)
	}
	// A sidecar left under the old stem would keep that name taken.
	if stemChanged {
		s.removeCompanion(sidecarRel(folder, oldName))
	}

	mimeType := meta.MimeType
	found, err := exists(statErr(s.store, thumbnailRel(folder, newName)))
	if err == nil && !found {
		s.renderThumbnail(ctx, folder, newName, mimeType)
	}
}

// freshSidecar rebuilds metadata for a file whose sidecar is missing or
// unreadable.
func (s *FileService) freshSidecar(folder string, name string) Sidecar {
	rel := path.Join(folder, name)
	meta := Sidecar{UploadTimestamp: s.now().UTC().Truncate(time.Second)}

	if info, err := s.store.Stat(rel); err == nil {
		meta.UploadTimestamp = info.ModTime().UTC().Truncate(time.Second)
	}
	if localPath, err := s.store.Resolve(rel); err == nil {
		if detected, err := util.DetectMIMEFromPath(localPath); err == nil {
			meta.MimeType = util.BaseMIME(detected)
		}
	}

	return meta
}

func (s *FileService) renderThumbnail(ctx context.Context, folder string, name string, mimeType string) string {
	if s.thumbnails == nil {
		return ""
	}
	if !util.IsThumbnailMIME(mimeType) && !util.IsThumbnailExtension(path.Ext(name)) {
		return ""
	}

	rel := path.Join(folder, name)
	thumbRel := thumbnailRel(folder, name)

	sourcePath, err := s.store.Resolve(rel)
	if err != nil {
		return ""
	}
	thumbPath, err := s.store.Resolve(thumbRel)
	if err != nil {
		return ""
	}

	if err := s.thumbnails.Render(ctx, sourcePath, thumbPath); err != nil {
		slog.Warn("thumbnail generation failed", "path", rel, "error", err)
		s.metrics.ThumbnailFailed()
		return ""
	}

	return publicURL(s.publicPrefix, thumbRel)
}

func (s *FileService) removeCompanion(rel string) {
	if err := s.store.Remove(rel); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to remove companion file", "path", rel, "error", err)
	}
}

func (s *FileService) publish(eventType event.Type, payload event.Payload) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(event.New(eventType, payload))
}
