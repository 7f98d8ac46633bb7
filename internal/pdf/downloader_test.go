package pdf

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// samplePDFContent simulates minimal PDF-like bytes for testing.
var samplePDFContent = []byte("%PDF-1.4 sample content for testing")

func testDownloader(cfg Config) *Downloader {
	cfg.AllowPrivateNetworks = true
	return NewDownloader(cfg)
}

func pdfServer(t *testing.T, contentType string, status int, body []byte) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if contentType != "" {
			w.Header().Set("Content-Type", contentType)
		}
		w.WriteHeader(status)
		_, _ = w.Write(body)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestNewDownloader_Defaults(t *testing.T) {
	t.Run("applies default values", func(t *testing.T) {
		d := NewDownloader(Config{})

		assert.Equal(t, int64(100*1024*1024), d.maxSize)
		assert.Contains(t, d.userAgent, "Helixir-PaperHarvester/1.0")
		assert.Equal(t, 30*time.Second, d.client.Timeout)
		assert.False(t, d.requirePDF)
	})

	t.Run("uses custom config values", func(t *testing.T) {
		d := NewDownloader(Config{
			Timeout:               10 * time.Second,
			MaxSize:               1024,
			UserAgent:             "CustomAgent/2.0",
			RequirePDFContentType: true,
		})

		assert.Equal(t, int64(1024), d.maxSize)
		assert.Equal(t, "CustomAgent/2.0", d.userAgent)
		assert.Equal(t, 10*time.Second, d.client.Timeout)
		assert.True(t, d.requirePDF)
	})
}

func TestSave_Success(t *testing.T) {
	server := pdfServer(t, "application/pdf", http.StatusOK, samplePDFContent)
	dest := filepath.Join(t.TempDir(), "paper.pdf")

	res, err := testDownloader(Config{}).Save(context.Background(), server.URL, dest)
	require.NoError(t, err)

	hash := sha256.Sum256(samplePDFContent)
	assert.Equal(t, dest, res.Path)
	assert.Equal(t, hex.EncodeToString(hash[:]), res.ContentHash)
	assert.Equal(t, int64(len(samplePDFContent)), res.SizeBytes)
	assert.Equal(t, "application/pdf", res.ContentType)

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, samplePDFContent, got)
}

func TestSave_OverwritesExistingFile(t *testing.T) {
	server := pdfServer(t, "application/pdf", http.StatusOK, samplePDFContent)
	dest := filepath.Join(t.TempDir(), "paper.pdf")
	require.NoError(t, os.WriteFile(dest, []byte("old content that is longer than the new one"), 0o644))

	_, err := testDownloader(Config{}).Save(context.Background(), server.URL, dest)
	require.NoError(t, err)

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, samplePDFContent, got)
}

func TestSave_ContentType(t *testing.T) {
	t.Run("accepts octet-stream by default", func(t *testing.T) {
		server := pdfServer(t, "application/octet-stream", http.StatusOK, samplePDFContent)
		dest := filepath.Join(t.TempDir(), "a.pdf")

		_, err := testDownloader(Config{}).Save(context.Background(), server.URL, dest)
		require.NoError(t, err)
	})

	t.Run("rejects html when pdf is required", func(t *testing.T) {
		server := pdfServer(t, "text/html", http.StatusOK, []byte("<html></html>"))
		dir := t.TempDir()

		_, err := testDownloader(Config{RequirePDFContentType: true}).Save(context.Background(), server.URL, filepath.Join(dir, "a.pdf"))
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrNotPDF))

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})
}

func TestSave_TooLarge(t *testing.T) {
	server := pdfServer(t, "application/pdf", http.StatusOK, make([]byte, 101))
	dir := t.TempDir()
	dest := filepath.Join(dir, "big.pdf")

	_, err := testDownloader(Config{MaxSize: 100}).Save(context.Background(), server.URL, dest)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTooLarge))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "temp file should be removed")
}

func TestSave_ExactlyMaxSize(t *testing.T) {
	server := pdfServer(t, "application/pdf", http.StatusOK, make([]byte, 100))

	res, err := testDownloader(Config{MaxSize: 100}).Save(context.Background(), server.URL, filepath.Join(t.TempDir(), "a.pdf"))
	require.NoError(t, err)
	assert.Equal(t, int64(100), res.SizeBytes)
}

func TestSave_HTTPStatusCodes(t *testing.T) {
	for _, status := range []int{http.StatusNotFound, http.StatusForbidden, http.StatusInternalServerError} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			server := pdfServer(t, "application/pdf", status, nil)

			_, err := testDownloader(Config{}).Save(context.Background(), server.URL, filepath.Join(t.TempDir(), "a.pdf"))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrDownloadFailed))
		})
	}
}

func TestSave_Redirect(t *testing.T) {
	target := pdfServer(t, "application/pdf", http.StatusOK, samplePDFContent)
	redirect := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, target.URL, http.StatusFound)
	}))
	defer redirect.Close()

	res, err := testDownloader(Config{}).Save(context.Background(), redirect.URL, filepath.Join(t.TempDir(), "a.pdf"))
	require.NoError(t, err)
	assert.Equal(t, int64(len(samplePDFContent)), res.SizeBytes)
}

func TestSave_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := testDownloader(Config{}).Save(ctx, server.URL, filepath.Join(t.TempDir(), "a.pdf"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDownloadFailed))
}

func TestSave_PrivateNetworkRejected(t *testing.T) {
	server := pdfServer(t, "application/pdf", http.StatusOK, samplePDFContent)

	_, err := NewDownloader(Config{}).Save(context.Background(), server.URL, filepath.Join(t.TempDir(), "a.pdf"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSSRF))
}

func TestSave_RejectsNonHTTPScheme(t *testing.T) {
	_, err := NewDownloader(Config{}).Save(context.Background(), "file:///etc/passwd", filepath.Join(t.TempDir(), "a.pdf"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSSRF))
}
