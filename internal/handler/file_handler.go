package handler

import (
	"errors"
	"mime"
	"mime/multipart"
	"net/http"
	"path"
	"strings"

	"image-manager/internal/model"
	"image-manager/internal/service"
	"image-manager/pkg/apierror"
)

const multipartMemory = 8 << 20

type FileHandler struct {
	service       *service.FileService
	maxUploadSize int64
	publicPrefix  string
}

func NewFileHandler(service *service.FileService, maxUploadSize int64, publicPrefix string) *FileHandler {
	return &FileHandler{
		service:       service,
		maxUploadSize: maxUploadSize,
		publicPrefix:  strings.TrimRight(publicPrefix, "/"),
	}
}

// Upload accepts a multipart form with a "file" part and an optional
// "folder" field. Without a folder field the file goes to today's date
// folder; an empty folder field means the storage root.
func (h *FileHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > h.maxUploadSize {
		writeError(w, apierror.TooLarge("request body exceeds the upload limit", ""))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, apierror.TooLarge("request body exceeds the upload limit", ""))
			return
		}
		writeError(w, apierror.InvalidInput("invalid multipart body", ""))
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, apierror.InvalidInput("no file part in the request", "file"))
		return
	}
	defer file.Close()

	if strings.TrimSpace(header.Filename) == "" {
		writeError(w, apierror.InvalidInput("no file selected", "file"))
		return
	}

	folder := service.AutoDateFolder
	if values, ok := r.MultipartForm.Value["folder"]; ok && len(values) > 0 {
		folder = values[0]
	}

	stored, err := h.service.SaveFile(r.Context(), file, header.Filename, declaredMIME(header), folder)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, stored)
}

// declaredMIME is the part's Content-Type, or the type implied by the
// file extension when the client sent none.
func declaredMIME(header *multipart.FileHeader) string {
	declared := strings.TrimSpace(header.Header.Get("Content-Type"))
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}

	if byExt := mime.TypeByExtension(strings.ToLower(path.Ext(header.Filename))); byExt != "" {
		return byExt
	}

	return declared
}

func (h *FileHandler) Rename(w http.ResponseWriter, r *http.Request) {
	var payload model.RenameFileRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, err)
		return
	}

	if strings.TrimSpace(payload.Path) == "" || strings.TrimSpace(payload.NewName) == "" {
		writeError(w, apierror.InvalidInput("path and newName are required", ""))
		return
	}

	result, err := h.service.RenameFile(r.Context(), payload.Path, payload.NewName)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, result)
}

func (h *FileHandler) Delete(w http.ResponseWriter, r *http.Request) {
	requestedPath, err := pathFromRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if strings.TrimSpace(requestedPath) == "" {
		writeError(w, apierror.InvalidInput("path is required", "path"))
		return
	}

	if err := h.service.DeleteFile(r.Context(), requestedPath); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]string{"path": requestedPath})
}

// Serve streams a stored file or thumbnail addressed by its public URL.
func (h *FileHandler) Serve(w http.ResponseWriter, r *http.Request) {
	requestedPath := strings.TrimPrefix(r.URL.Path, h.publicPrefix)
	requestedPath = strings.TrimPrefix(requestedPath, "/")

	opened, err := h.service.OpenFile(requestedPath)
	if err != nil {
		writeError(w, err)
		return
	}
	defer opened.File.Close()

	w.Header().Set("Content-Type", opened.ContentType)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	http.ServeContent(w, r, opened.Info.Name(), opened.Info.ModTime(), opened.File)
}
