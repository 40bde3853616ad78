package handler

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"image-manager/internal/event"
	"image-manager/internal/service"
	"image-manager/internal/storage"
	"image-manager/internal/thumbnail"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details string `json:"details"`
	} `json:"error"`
}

type testHandlers struct {
	store *storage.Storage
	files *FileHandler
	dirs  *DirectoryHandler
}

func newTestHandlers(t *testing.T, maxUpload int64) *testHandlers {
	t.Helper()

	store, err := storage.New(t.TempDir())
	require.NoError(t, err)

	bus := event.NewBus()
	generator := thumbnail.NewJPEGGenerator(thumbnail.Options{})
	fileService := service.NewFileService(store, generator, []string{"image/png", "image/jpeg"}, "/images", bus)
	dirService := service.NewDirectoryService(store, "/images", bus)

	return &testHandlers{
		store: store,
		files: NewFileHandler(fileService, maxUpload, "/images"),
		dirs:  NewDirectoryHandler(dirService),
	}
}

func pngBytes(t *testing.T) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 40, 20))
	for x := 0; x < 40; x++ {
		for y := 0; y < 20; y++ {
			img.Set(x, y, color.RGBA{R: 200, A: 255})
		}
	}
	buf := &bytes.Buffer{}
	require.NoError(t, png.Encode(buf, img))
	return buf.Bytes()
}

func multipartUpload(t *testing.T, filename string, contentType string, content []byte, fields map[string]string) *http.Request {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}

	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	if contentType != "" {
		header.Set("Content-Type", contentType)
	}
	part, err := writer.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()

	var parsed envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &parsed))
	return parsed
}

func jsonRequest(method string, target string, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestUploadStoresFileInRequestedFolder(t *testing.T) {
	h := newTestHandlers(t, 1<<20)

	rec := httptest.NewRecorder()
	h.files.Upload(rec, multipartUpload(t, "Sunset Beach.PNG", "image/png", pngBytes(t), map[string]string{"folder": "trips"}))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	parsed := decodeEnvelope(t, rec)
	require.True(t, parsed.Success)

	var stored struct {
		Name         string `json:"name"`
		Path         string `json:"path"`
		URL          string `json:"url"`
		ThumbnailURL string `json:"thumbnailUrl"`
		DisplayName  string `json:"displayName"`
		MimeType     string `json:"mimeType"`
	}
	require.NoError(t, json.Unmarshal(parsed.Data, &stored))
	assert.Equal(t, "sunset_beach.png", stored.Name)
	assert.Equal(t, "trips/sunset_beach.png", stored.Path)
	assert.Equal(t, "/images/trips/sunset_beach.png", stored.URL)
	assert.Equal(t, "/images/trips/.thumbs/sunset_beach.jpg", stored.ThumbnailURL)
	assert.Equal(t, "Sunset Beach", stored.DisplayName)
	assert.Equal(t, "image/png", stored.MimeType)
}

func TestUploadWithoutFolderFieldUsesDateFolder(t *testing.T) {
	h := newTestHandlers(t, 1<<20)

	rec := httptest.NewRecorder()
	h.files.Upload(rec, multipartUpload(t, "a.png", "image/png", pngBytes(t), nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var stored struct {
		Path string `json:"path"`
	}
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &stored))
	assert.Regexp(t, `^\d{4}/\d{2}/\d{2}/a\.png$`, stored.Path)
}

func TestUploadWithEmptyFolderFieldUsesRoot(t *testing.T) {
	h := newTestHandlers(t, 1<<20)

	rec := httptest.NewRecorder()
	h.files.Upload(rec, multipartUpload(t, "a.png", "image/png", pngBytes(t), map[string]string{"folder": ""}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var stored struct {
		Path string `json:"path"`
	}
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &stored))
	assert.Equal(t, "a.png", stored.Path)
}

func TestUploadFallsBackToExtensionMIME(t *testing.T) {
	h := newTestHandlers(t, 1<<20)

	rec := httptest.NewRecorder()
	h.files.Upload(rec, multipartUpload(t, "a.png", "", pngBytes(t), map[string]string{"folder": ""}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestUploadRejections(t *testing.T) {
	cases := []struct {
		name     string
		filename string
		mime     string
		folder   string
		status   int
		code     string
	}{
		{name: "unsupported type", filename: "notes.txt", mime: "text/plain", folder: "docs", status: http.StatusUnsupportedMediaType, code: "UNSUPPORTED_TYPE"},
		{name: "traversal folder", filename: "a.png", mime: "image/png", folder: "../etc", status: http.StatusBadRequest, code: "INVALID_PATH"},
		{name: "absolute folder", filename: "a.png", mime: "image/png", folder: "/etc", status: http.StatusBadRequest, code: "INVALID_PATH"},
		{name: "unusable filename", filename: "___", mime: "image/png", folder: "", status: http.StatusBadRequest, code: "INVALID_INPUT"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newTestHandlers(t, 1<<20)

			rec := httptest.NewRecorder()
			h.files.Upload(rec, multipartUpload(t, tc.filename, tc.mime, pngBytes(t), map[string]string{"folder": tc.folder}))

			require.Equal(t, tc.status, rec.Code, rec.Body.String())
			parsed := decodeEnvelope(t, rec)
			assert.False(t, parsed.Success)
			require.NotNil(t, parsed.Error)
			assert.Equal(t, tc.code, parsed.Error.Code)
		})
	}
}

func TestUploadTooLarge(t *testing.T) {
	h := newTestHandlers(t, 512)

	rec := httptest.NewRecorder()
	h.files.Upload(rec, multipartUpload(t, "big.png", "image/png", bytes.Repeat([]byte{1}, 4096), map[string]string{"folder": "big"}))

	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "PAYLOAD_TOO_LARGE", decodeEnvelope(t, rec).Error.Code)

	_, err := h.store.Stat("big/big.png")
	assert.Error(t, err)
}

func TestUploadWithoutFilePart(t *testing.T) {
	h := newTestHandlers(t, 1<<20)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	require.NoError(t, writer.WriteField("folder", "x"))
	require.NoError(t, writer.Close())
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	rec := httptest.NewRecorder()
	h.files.Upload(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_INPUT", decodeEnvelope(t, rec).Error.Code)
}

func TestRenameAndDeleteFile(t *testing.T) {
	h := newTestHandlers(t, 1<<20)

	rec := httptest.NewRecorder()
	h.files.Upload(rec, multipartUpload(t, "a.png", "image/png", pngBytes(t), map[string]string{"folder": "set"}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = httptest.NewRecorder()
	h.files.Rename(rec, jsonRequest(http.MethodPost, "/api/file/rename", `{"path":"set/a.png","newName":"B.png"}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var renamed struct {
		NewPath string `json:"newPath"`
		NewName string `json:"newName"`
	}
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &renamed))
	assert.Equal(t, "set/b.png", renamed.NewPath)
	assert.Equal(t, "b.png", renamed.NewName)

	rec = httptest.NewRecorder()
	h.files.Delete(rec, httptest.NewRequest(http.MethodDelete, "/api/file?path=set/b.png", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = httptest.NewRecorder()
	h.files.Delete(rec, jsonRequest(http.MethodDelete, "/api/file", `{"path":"set/b.png"}`))
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", decodeEnvelope(t, rec).Error.Code)
}

func TestRenameFileValidation(t *testing.T) {
	h := newTestHandlers(t, 1<<20)

	rec := httptest.NewRecorder()
	h.files.Rename(rec, jsonRequest(http.MethodPost, "/api/file/rename", `{"path":"a.png"}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.files.Rename(rec, jsonRequest(http.MethodPost, "/api/file/rename", `{not json`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_INPUT", decodeEnvelope(t, rec).Error.Code)

	rec = httptest.NewRecorder()
	h.files.Rename(rec, jsonRequest(http.MethodPost, "/api/file/rename", `{"path":"../a.png","newName":"b.png"}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_PATH", decodeEnvelope(t, rec).Error.Code)
}

func TestServeFileAndThumbnail(t *testing.T) {
	h := newTestHandlers(t, 1<<20)
	content := pngBytes(t)

	rec := httptest.NewRecorder()
	h.files.Upload(rec, multipartUpload(t, "a.png", "image/png", content, map[string]string{"folder": "set"}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = httptest.NewRecorder()
	h.files.Serve(rec, httptest.NewRequest(http.MethodGet, "/images/set/a.png", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, content, rec.Body.Bytes())

	rec = httptest.NewRecorder()
	h.files.Serve(rec, httptest.NewRequest(http.MethodGet, "/images/set/.thumbs/a.jpg", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/jpeg", rec.Header().Get("Content-Type"))

	rangeReq := httptest.NewRequest(http.MethodGet, "/images/set/a.png", nil)
	rangeReq.Header.Set("Range", "bytes=0-3")
	rec = httptest.NewRecorder()
	h.files.Serve(rec, rangeReq)
	require.Equal(t, http.StatusPartialContent, rec.Code)
	assert.Equal(t, content[:4], rec.Body.Bytes())

	rec = httptest.NewRecorder()
	h.files.Serve(rec, httptest.NewRequest(http.MethodGet, "/images/set/.a.meta.json", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.files.Serve(rec, httptest.NewRequest(http.MethodGet, "/images/set/missing.png", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFolderLifecycle(t *testing.T) {
	h := newTestHandlers(t, 1<<20)

	rec := httptest.NewRecorder()
	h.dirs.Create(rec, jsonRequest(http.MethodPost, "/api/folder", `{"path":"albums/summer"}`))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = httptest.NewRecorder()
	h.dirs.Create(rec, jsonRequest(http.MethodPost, "/api/folder", `{"path":"albums/summer"}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = httptest.NewRecorder()
	h.dirs.List(rec, httptest.NewRequest(http.MethodGet, "/api/list?path=albums", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var entries []struct {
		Name string `json:"name"`
		Type string `json:"type"`
	}
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "summer", entries[0].Name)
	assert.Equal(t, "directory", entries[0].Type)

	rec = httptest.NewRecorder()
	h.dirs.Rename(rec, jsonRequest(http.MethodPost, "/api/folder/rename", `{"oldPath":"albums/summer","newPath":"albums/winter"}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = httptest.NewRecorder()
	h.dirs.Rename(rec, jsonRequest(http.MethodPost, "/api/folder/rename", `{"oldPath":"albums/summer","newPath":"albums/autumn"}`))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	h.dirs.Delete(rec, httptest.NewRequest(http.MethodDelete, "/api/folder?path=albums/winter", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = httptest.NewRecorder()
	h.dirs.Delete(rec, jsonRequest(http.MethodDelete, "/api/folder", `{"path":"albums/winter"}`))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListRejectsTraversalAndFiles(t *testing.T) {
	h := newTestHandlers(t, 1<<20)

	rec := httptest.NewRecorder()
	h.dirs.List(rec, httptest.NewRequest(http.MethodGet, "/api/list?path=../../etc", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_PATH", decodeEnvelope(t, rec).Error.Code)

	rec = httptest.NewRecorder()
	h.files.Upload(rec, multipartUpload(t, "a.png", "image/png", pngBytes(t), map[string]string{"folder": ""}))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.dirs.List(rec, httptest.NewRequest(http.MethodGet, "/api/list?path=a.png", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "NOT_A_DIRECTORY", decodeEnvelope(t, rec).Error.Code)

	rec = httptest.NewRecorder()
	h.dirs.List(rec, httptest.NewRequest(http.MethodGet, "/api/list?path=nowhere", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, string(decodeEnvelope(t, rec).Data))
}

func TestArchiveHeaders(t *testing.T) {
	h := newTestHandlers(t, 1<<20)

	rec := httptest.NewRecorder()
	h.dirs.Create(rec, jsonRequest(http.MethodPost, "/api/folder", `{"path":"trip"}`))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = httptest.NewRecorder()
	h.dirs.Archive(rec, httptest.NewRequest(http.MethodGet, "/api/folder/archive?path=trip", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/zip", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), `filename=trip.zip`)

	rec = httptest.NewRecorder()
	h.dirs.Archive(rec, httptest.NewRequest(http.MethodGet, "/api/folder/archive?path=none", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
