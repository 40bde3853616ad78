package event

import (
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypeFileUploaded  Type = "file.uploaded"
	TypeFileRenamed   Type = "file.renamed"
	TypeFileDeleted   Type = "file.deleted"
	TypeFolderCreated Type = "folder.created"
	TypeFolderRenamed Type = "folder.renamed"
	TypeFolderDeleted Type = "folder.deleted"
)

type Event struct {
	ID        string  `json:"id"`
	Type      Type    `json:"type"`
	Payload   Payload `json:"payload"`
	Timestamp string  `json:"timestamp"`
}

// Payload carries root-relative paths. OldPath is only set for renames.
type Payload struct {
	Path    string `json:"path"`
	OldPath string `json:"oldPath,omitempty"`
	URL     string `json:"url,omitempty"`
	Size    int64  `json:"size,omitempty"`
}

type Bus interface {
	Publish(e Event)
	Subscribe() (<-chan Event, func())
}

func New(eventType Type, payload Payload) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Payload:   payload,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}
