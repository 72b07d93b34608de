package media

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sampleJPEG = []byte{0xff, 0xd8, 0xff, 0xe0, 'J', 'F', 'I', 'F'}

func imageServer(t *testing.T, contentType string, body []byte, status int) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(status)
		_, _ = w.Write(body)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestDownload(t *testing.T) {
	d := NewDownloader(DownloaderConfig{AllowPrivateNetworks: true, MaxSize: 64})

	t.Run("image", func(t *testing.T) {
		server := imageServer(t, "image/jpeg", sampleJPEG, http.StatusOK)
		res, err := d.Download(context.Background(), server.URL)
		require.NoError(t, err)
		assert.Equal(t, sampleJPEG, res.Content)
		assert.Equal(t, int64(len(sampleJPEG)), res.SizeBytes)
		assert.Len(t, res.ContentHash, 64)
	})

	t.Run("octet stream", func(t *testing.T) {
		server := imageServer(t, "application/octet-stream", sampleJPEG, http.StatusOK)
		_, err := d.Download(context.Background(), server.URL)
		assert.NoError(t, err)
	})

	t.Run("html is rejected", func(t *testing.T) {
		server := imageServer(t, "text/html", []byte("<html>"), http.StatusOK)
		_, err := d.Download(context.Background(), server.URL)
		assert.ErrorIs(t, err, ErrNotImage)
	})

	t.Run("too large", func(t *testing.T) {
		server := imageServer(t, "image/png", make([]byte, 65), http.StatusOK)
		_, err := d.Download(context.Background(), server.URL)
		assert.ErrorIs(t, err, ErrTooLarge)
	})

	t.Run("http error", func(t *testing.T) {
		server := imageServer(t, "image/png", nil, http.StatusForbidden)
		_, err := d.Download(context.Background(), server.URL)
		assert.ErrorIs(t, err, ErrDownloadFailed)
	})

	t.Run("empty body", func(t *testing.T) {
		server := imageServer(t, "image/png", nil, http.StatusOK)
		_, err := d.Download(context.Background(), server.URL)
		assert.ErrorIs(t, err, ErrDownloadFailed)
	})
}

func TestDownload_RejectsPrivateNetworks(t *testing.T) {
	server := imageServer(t, "image/jpeg", sampleJPEG, http.StatusOK)
	d := NewDownloader(DownloaderConfig{})

	_, err := d.Download(context.Background(), server.URL)
	assert.ErrorIs(t, err, ErrSSRF)

	_, err = d.Download(context.Background(), "file:///etc/passwd")
	assert.ErrorIs(t, err, ErrSSRF)
}

func TestIsPrivateIP(t *testing.T) {
	for ip, want := range map[string]bool{
		"127.0.0.1":   true,
		"10.1.2.3":    true,
		"172.20.0.1":  true,
		"192.168.1.1": true,
		"169.254.1.1": true,
		"::1":         true,
		"fd00::1":     true,
		"0.0.0.0":     true,
		"8.8.8.8":     false,
		"2001:4860::": false,
	} {
		assert.Equal(t, want, isPrivateIP(net.ParseIP(ip)), ip)
	}
}
