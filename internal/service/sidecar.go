package service

import (
	"encoding/json"
	"log/slog"
	"time"

	"image-manager/internal/storage"
)

// Sidecar holds what the filesystem cannot tell us about a stored file.
type Sidecar struct {
	DisplayName     string    `json:"displayName"`
	UploadTimestamp time.Time `json:"uploadTimestamp"`
	MimeType        string    `json:"mimeType"`
	SecureName      string    `json:"secureName"`
	PublicPath      string    `json:"publicPath"`
}

func writeSidecar(store storage.FS, folder string, meta Sidecar) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}

	return store.WriteFileAtomic(sidecarRel(folder, meta.SecureName), data, 0o644)
}

// readSidecar reports false for a missing, unreadable or corrupt sidecar and
// for one that names a different file.
func readSidecar(store storage.FS, folder string, name string) (Sidecar, bool) {
	rel := sidecarRel(folder, name)

	data, err := store.ReadFile(rel)
	if err != nil {
		if !isNotExist(err) {
			slog.Warn("sidecar unreadable", "path", rel, "error", err)
		}
		return Sidecar{}, false
	}

	var meta Sidecar
	if err := json.Unmarshal(data, &meta); err != nil {
		slog.Warn("sidecar corrupt", "path", rel, "error", err)
		return Sidecar{}, false
	}

	if meta.SecureName != "" && meta.SecureName != name {
		return Sidecar{}, false
	}

	return meta, true
}
