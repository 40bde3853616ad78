package handler

import (
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"image-manager/internal/model"
	"image-manager/internal/service"
	"image-manager/pkg/apierror"
)

type DirectoryHandler struct {
	service *service.DirectoryService
}

func NewDirectoryHandler(service *service.DirectoryService) *DirectoryHandler {
	return &DirectoryHandler{service: service}
}

func (h *DirectoryHandler) List(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.List(r.Context(), r.URL.Query().Get("path"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, entries)
}

func (h *DirectoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var payload model.PathRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, err)
		return
	}

	folder, err := h.service.CreateFolder(r.Context(), payload.Path)
	if err != nil {
		writeError(w, err)
		return
	}

	status := http.StatusOK
	if folder.Created {
		status = http.StatusCreated
	}
	writeSuccess(w, status, folder)
}

func (h *DirectoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	requestedPath, err := pathFromRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if strings.TrimSpace(requestedPath) == "" {
		writeError(w, apierror.InvalidInput("path is required", "path"))
		return
	}

	if err := h.service.DeleteFolder(r.Context(), requestedPath); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]string{"path": requestedPath})
}

func (h *DirectoryHandler) Rename(w http.ResponseWriter, r *http.Request) {
	var payload model.RenameFolderRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.service.RenameFolderPath(r.Context(), payload.OldPath, payload.NewPath)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, result)
}

// Archive streams the folder as a zip. Errors after the first byte can only
// be logged.
func (h *DirectoryHandler) Archive(w http.ResponseWriter, r *http.Request) {
	archive, err := h.service.OpenArchive(r.Context(), r.URL.Query().Get("path"))
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": archive.Name}))
	if err := archive.Stream(w); err != nil {
		slog.Warn("archive stream interrupted", "archive", archive.Name, "error", err)
	}
}
