package storage_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plantnet/plantnet-server/pkg/storage"
)

func TestLocalDiskRoundTrip(t *testing.T) {
	ctx := context.Background()
	disk, err := storage.NewLocalDisk(t.TempDir(), "http://localhost:3000/storage/")
	require.NoError(t, err)

	require.NoError(t, disk.Put(ctx, "plants/fern.png", strings.NewReader("png-bytes"), "image/png"))

	ok, err := disk.Exists(ctx, "plants/fern.png")
	require.NoError(t, err)
	assert.True(t, ok)

	rc, err := disk.Open(ctx, "plants/fern.png")
	require.NoError(t, err)
	data, _ := io.ReadAll(rc)
	rc.Close()
	assert.Equal(t, "png-bytes", string(data))

	assert.Equal(t, "http://localhost:3000/storage/plants/fern.png", disk.URL("plants/fern.png"))

	rec := httptest.NewRecorder()
	http.StripPrefix("/storage", disk.Handler()).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/storage/plants/fern.png", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "png-bytes", rec.Body.String())

	rec = httptest.NewRecorder()
	http.StripPrefix("/storage", disk.Handler()).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/storage/plants/", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code, "directory listings are hidden")

	require.NoError(t, disk.Delete(ctx, "plants/fern.png"))
	require.NoError(t, disk.Delete(ctx, "plants/fern.png"), "deleting a missing file is not an error")
	_, err = disk.Open(ctx, "plants/fern.png")
	assert.ErrorIs(t, err, storage.ErrNotExist)
}

func TestLocalDiskRejectsTraversal(t *testing.T) {
	disk, err := storage.NewLocalDisk(t.TempDir(), "")
	require.NoError(t, err)
	err = disk.Put(context.Background(), "../escape.txt", strings.NewReader("x"), "")
	assert.Error(t, err)
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := storage.Open(context.Background(), storage.Options{Driver: "ftp"})
	assert.Error(t, err)
}

func TestS3DiskPutAndExists(t *testing.T) {
	var mu sync.Mutex
	objects := map[string]string{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		switch r.Method {
		case http.MethodPut:
			body, _ := io.ReadAll(r.Body)
			objects[r.URL.Path] = string(body)
			w.WriteHeader(http.StatusOK)
		case http.MethodHead:
			if _, ok := objects[r.URL.Path]; !ok {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}))
	defer srv.Close()

	ctx := context.Background()
	disk, err := storage.NewS3Disk(ctx, storage.S3Options{
		Bucket:   "plant-images",
		Region:   "us-east-1",
		Key:      "test",
		Secret:   "test",
		Endpoint: srv.URL,
		URL:      "https://cdn.plantnet.example",
	})
	require.NoError(t, err)

	require.NoError(t, disk.Put(ctx, "plants/fern.png", strings.NewReader("png"), "image/png"))

	mu.Lock()
	_, stored := objects["/plant-images/plants/fern.png"]
	mu.Unlock()
	assert.True(t, stored, "path-style key under the bucket")

	ok, err := disk.Exists(ctx, "plants/fern.png")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = disk.Exists(ctx, "plants/missing.png")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, "https://cdn.plantnet.example/plants/fern.png", disk.URL("plants/fern.png"))
}
