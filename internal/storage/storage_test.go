package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sittipong-hemloun/ai-trash-rank-sub000/internal/imagecodec"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

func TestInlineStoreReturnsDataURI(t *testing.T) {
	img := &imagecodec.Image{Data: pngHeader, MIMEType: "image/png"}

	url, err := NewInlineStore().Put(context.Background(), "reports", img)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "data:image/png;base64,"))

	decoded, err := imagecodec.DecodeDataURI(url)
	require.NoError(t, err)
	assert.Equal(t, pngHeader, decoded.Data)

	_, err = NewInlineStore().Put(context.Background(), "reports", &imagecodec.Image{})
	assert.Error(t, err)
}

func TestObjectKey(t *testing.T) {
	now := time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC)

	key := ObjectKey("/reports/", "image/jpeg", now)
	assert.True(t, strings.HasPrefix(key, "reports/2024/03/09/"), key)
	assert.True(t, strings.HasSuffix(key, ".jpg"), key)
	assert.NotEqual(t, key, ObjectKey("reports", "image/jpeg", now))
	assert.True(t, strings.HasSuffix(ObjectKey("x", "application/pdf", now), ".bin"))
}

func TestNewS3StoreRequiresBucket(t *testing.T) {
	_, err := NewS3Store(context.Background(), S3Config{Region: "us-east-1"}, zap.NewNop())
	assert.Error(t, err)
}

func TestS3StorePutUploadsObject(t *testing.T) {
	var (
		mu          sync.Mutex
		gotPath     string
		gotBody     []byte
		contentType string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		gotPath = r.URL.Path
		contentType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.Header().Set("ETag", `"etag"`)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	store, err := NewS3Store(context.Background(), S3Config{
		Bucket:    "photos",
		Region:    "us-east-1",
		Endpoint:  server.URL,
		AccessKey: "test",
		SecretKey: "test",
		PublicURL: "https://cdn.example.com/",
	}, zap.NewNop())
	require.NoError(t, err)
	store.now = func() time.Time { return time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC) }

	url, err := store.Put(context.Background(), "reports", &imagecodec.Image{Data: pngHeader, MIMEType: "image/png"})
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.True(t, strings.HasPrefix(gotPath, "/photos/reports/2024/01/02/"), gotPath)
	assert.Equal(t, "image/png", contentType)
	assert.Contains(t, string(gotBody), "PNG")
	assert.True(t, strings.HasPrefix(url, "https://cdn.example.com/reports/2024/01/02/"), url)
}

func TestInlineStoreGet(t *testing.T) {
	store := NewInlineStore()
	url, err := store.Put(context.Background(), "reports", &imagecodec.Image{Data: pngHeader, MIMEType: "image/png"})
	require.NoError(t, err)

	img, err := store.Get(context.Background(), url)
	require.NoError(t, err)
	assert.Equal(t, pngHeader, img.Data)

	_, err = store.Get(context.Background(), "https://photos.s3.amazonaws.com/reports/x.png")
	assert.ErrorIs(t, err, ErrForeignURL)
}

func TestS3StoreGetDownloadsObject(t *testing.T) {
	var (
		mu    sync.Mutex
		paths []string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.Method+" "+r.URL.Path)
		mu.Unlock()
		if r.URL.Path != "/photos/reports/2024/01/02/a.png" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(pngHeader)
	}))
	defer server.Close()

	store, err := NewS3Store(context.Background(), S3Config{
		Bucket:    "photos",
		Region:    "us-east-1",
		Endpoint:  server.URL,
		AccessKey: "test",
		SecretKey: "test",
		PublicURL: "https://cdn.example.com",
	}, zap.NewNop())
	require.NoError(t, err)

	img, err := store.Get(context.Background(), "https://cdn.example.com/reports/2024/01/02/a.png")
	require.NoError(t, err)
	assert.Equal(t, pngHeader, img.Data)
	assert.Equal(t, "image/png", img.MIMEType)

	_, err = store.Get(context.Background(), "https://cdn.example.com/reports/missing.png")
	assert.Error(t, err)

	inline, err := store.Get(context.Background(), (&imagecodec.Image{Data: pngHeader, MIMEType: "image/png"}).DataURI())
	require.NoError(t, err)
	assert.Equal(t, pngHeader, inline.Data)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"GET /photos/reports/2024/01/02/a.png", "GET /photos/reports/missing.png"}, paths)
}

func TestS3StoreKeyFor(t *testing.T) {
	store := &S3Store{bucket: "photos", publicURL: "https://cdn.example.com"}
	cases := map[string]string{
		"https://cdn.example.com/reports/a.jpg":                        "reports/a.jpg",
		"https://photos.s3.ap-southeast-1.amazonaws.com/reports/a.jpg": "reports/a.jpg",
		"http://localhost:9000/photos/reports/a.jpg":                   "reports/a.jpg",
	}
	for url, want := range cases {
		got, err := store.keyFor(url)
		require.NoError(t, err, url)
		assert.Equal(t, want, got, url)
	}

	for _, url := range []string{"https://elsewhere.example.com/reports/a.jpg", "not a url", "https://photos.s3.amazonaws.com/"} {
		_, err := store.keyFor(url)
		assert.ErrorIs(t, err, ErrForeignURL, url)
	}
}
