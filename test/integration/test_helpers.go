//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"image-manager/internal/app"
	"image-manager/internal/config"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func newServer(t *testing.T) (*httptest.Server, string) {
	t.Helper()

	root := t.TempDir()
	cfg := &config.Config{
		ServerPort:               "0",
		RequestTimeout:           10 * time.Second,
		StreamMaxDuration:        time.Minute,
		StreamIdleTimeout:        10 * time.Second,
		StorageRoot:              root,
		PublicPrefix:             "/images",
		MaxUploadSize:            2 << 20,
		AllowedMIMETypes:         []string{"image/jpeg", "image/png", "image/gif", "image/webp"},
		ThumbnailMaxDimension:    150,
		ThumbnailMaxBytes:        30 * 1024,
		ThumbnailQuality:         85,
		ThumbnailFallbackQuality: 60,
		CORSOrigins:              []string{"*"},
		RateLimitRPM:             10000,
	}

	application, err := app.New(cfg)
	require.NoError(t, err)

	server := httptest.NewServer(application.Handler())
	t.Cleanup(func() {
		server.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		application.Close(ctx)
	})

	return server, root
}

func pngImage(t *testing.T, width int, height int) []byte {
	t.Helper()

	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 120, A: 255})
		}
	}

	buf := &bytes.Buffer{}
	require.NoError(t, png.Encode(buf, img))
	return buf.Bytes()
}

// upload posts a single file. A nil folder omits the form field entirely.
func upload(t *testing.T, serverURL string, filename string, contentType string, content []byte, folder *string) *http.Response {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if folder != nil {
		require.NoError(t, writer.WriteField("folder", *folder))
	}

	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req, err := http.NewRequest(http.MethodPost, serverURL+"/api/upload", body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	return doRequest(t, req)
}

func doRequest(t *testing.T, req *http.Request) *http.Response {
	t.Helper()

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func doJSON(t *testing.T, method string, url string, payload any) *http.Response {
	t.Helper()

	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		require.NoError(t, err)
	}

	req, err := http.NewRequest(method, url, bytes.NewReader(body))
	require.NoError(t, err)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return doRequest(t, req)
}

func decodeData(t *testing.T, resp *http.Response, dst any) {
	t.Helper()

	var parsed envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&parsed))
	require.True(t, parsed.Success)
	if dst != nil {
		require.NoError(t, json.Unmarshal(parsed.Data, dst))
	}
}

func decodeErrorCode(t *testing.T, resp *http.Response) string {
	t.Helper()

	var parsed envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&parsed))
	require.False(t, parsed.Success)
	require.NotNil(t, parsed.Error)
	return parsed.Error.Code
}

func strPtr(s string) *string {
	return &s
}
