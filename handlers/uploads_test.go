package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

// fakeAssetStore records calls instead of talking to MinIO.
type fakeAssetStore struct {
	mu       sync.Mutex
	uploaded map[string][]byte
	deleted  []string
}

func newFakeAssetStore() *fakeAssetStore {
	return &fakeAssetStore{uploaded: map[string][]byte{}}
}

func (f *fakeAssetStore) Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	b, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	f.mu.Lock()
	f.uploaded[key] = b
	f.mu.Unlock()
	return nil
}

func (f *fakeAssetStore) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	f.deleted = append(f.deleted, key)
	f.mu.Unlock()
	return nil
}

func (f *fakeAssetStore) PublicURL(ctx context.Context, key string) (string, error) {
	return "http://assets.local/" + key, nil
}

func multipartBody(t *testing.T, fieldName, fileName, contentType string, content []byte, extra map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	hdr := textproto.MIMEHeader{}
	hdr.Set("Content-Disposition", `form-data; name="`+fieldName+`"; filename="`+fileName+`"`)
	hdr.Set("Content-Type", contentType)
	part, err := w.CreatePart(hdr)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	for k, v := range extra {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func newUploadRouter(store AssetStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterUploadRoutes(r, store)
	return r
}

func TestUpload_StoresImageAndReturnsURL(t *testing.T) {
	store := newFakeAssetStore()
	r := newUploadRouter(store)

	body, contentType := multipartBody(t, "image", "board.png", "image/png", []byte("pngdata"), nil)
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp["key"])
	require.Equal(t, "http://assets.local/"+resp["key"], resp["url"])
	require.Equal(t, []byte("pngdata"), store.uploaded[resp["key"]])
	require.Empty(t, store.deleted)
}

func TestUpload_DeletesPreviousObject(t *testing.T) {
	store := newFakeAssetStore()
	r := newUploadRouter(store)

	body, contentType := multipartBody(t, "image", "new.jpg", "image/jpeg", []byte("jpgdata"),
		map[string]string{"previous": "images/old-key.png"})
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, []string{"images/old-key.png"}, store.deleted)
}

func TestUpload_RejectsMissingImage(t *testing.T) {
	store := newFakeAssetStore()
	r := newUploadRouter(store)

	req := httptest.NewRequest(http.MethodPost, "/api/upload", bytes.NewBufferString(""))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=x")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpload_RejectsNonImageContent(t *testing.T) {
	store := newFakeAssetStore()
	r := newUploadRouter(store)

	body, contentType := multipartBody(t, "image", "notes.txt", "text/plain", []byte("hello"), nil)
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Empty(t, store.uploaded)
}
