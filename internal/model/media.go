package model

import "time"

const (
	EntryTypeFile      = "file"
	EntryTypeDirectory = "directory"
)

// StoredFile describes a file persisted by an upload.
type StoredFile struct {
	Name            string    `json:"name"`
	Path            string    `json:"path"`
	URL             string    `json:"url"`
	ThumbnailURL    string    `json:"thumbnailUrl,omitempty"`
	Size            int64     `json:"size"`
	MimeType        string    `json:"mimeType"`
	DisplayName     string    `json:"displayName"`
	UploadTimestamp time.Time `json:"uploadTimestamp"`
}

// Entry is one direct child of a listed folder. File-only fields are
// omitted for directories.
type Entry struct {
	Name            string     `json:"name"`
	Path            string     `json:"path"`
	Type            string     `json:"type"`
	URL             string     `json:"url,omitempty"`
	ThumbnailURL    string     `json:"thumbnailUrl,omitempty"`
	Size            *int64     `json:"size,omitempty"`
	MimeType        string     `json:"mimeType,omitempty"`
	DisplayName     string     `json:"displayName,omitempty"`
	UploadTimestamp *time.Time `json:"uploadTimestamp,omitempty"`
}

type Folder struct {
	Name    string `json:"name"`
	Path    string `json:"path"`
	Created bool   `json:"created"`
}

type RenameResult struct {
	OldPath string `json:"oldPath"`
	NewPath string `json:"newPath"`
	NewName string `json:"newName"`
}
