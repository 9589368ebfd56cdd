package filestore

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/pdfchat/internal/config"
)

func TestCleanKey(t *testing.T) {
	key, err := CleanKey("pdfs/abcd1234/ef567890/report.pdf")
	require.NoError(t, err)
	require.Equal(t, "pdfs/abcd1234/ef567890/report.pdf", key)

	key, err = CleanKey("/a//b\\c.pdf")
	require.NoError(t, err)
	require.Equal(t, "a/b/c.pdf", key)

	_, err = CleanKey("../etc/passwd")
	require.Error(t, err)
	_, err = CleanKey("  ")
	require.Error(t, err)
}

func TestLocalStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := New(config.FileStoreConfig{Type: "local", Data: map[string]interface{}{"dir": dir}})
	require.NoError(t, err)
	require.Equal(t, "local", store.Type())

	ctx := context.Background()
	key := "pdfs/user0001/doc00001/file.pdf"
	require.NoError(t, store.Save(ctx, key, strings.NewReader("%PDF-1.4 body"), 13, "application/pdf"))

	f, err := store.Open(ctx, key)
	require.NoError(t, err)
	data, err := io.ReadAll(f)
	require.NoError(t, f.Close())
	require.NoError(t, err)
	require.Equal(t, "%PDF-1.4 body", string(data))

	require.Equal(t, "http://host/api/files/"+key, store.URL(key, "http://host/"))

	require.NoError(t, store.Delete(ctx, key))
	_, err = store.Open(ctx, key)
	require.Error(t, err)
	require.NoError(t, store.Delete(ctx, key))
}

func TestNewRejectsUnknownType(t *testing.T) {
	_, err := New(config.FileStoreConfig{Type: "ftp"})
	require.Error(t, err)
}

func TestS3StoreURL(t *testing.T) {
	store, err := New(config.FileStoreConfig{Type: "s3", Data: map[string]interface{}{
		"endpoint":   "minio.local:9000",
		"bucket":     "pdfs",
		"secret_id":  "id",
		"secret_key": "key",
		"prefix":     "uploads",
	}})
	require.NoError(t, err)
	require.Equal(t, "http://minio.local:9000/pdfs/uploads/a/b.pdf", store.URL("a/b.pdf", ""))
}
