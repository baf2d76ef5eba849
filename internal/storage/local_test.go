package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorage_PutStream(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	content := "name,sku\nBlind,B-1\n"
	info, err := s.PutStream(ctx, "imports/u1/file.csv", strings.NewReader(content), 1024, &Metadata{OriginalName: "file.csv", ContentType: "text/csv"})
	require.NoError(t, err)

	sum := sha256.Sum256([]byte(content))
	assert.Equal(t, hex.EncodeToString(sum[:]), info.Checksum)
	assert.Equal(t, int64(len(content)), info.Size)

	data, err := os.ReadFile(s.Path("imports/u1/file.csv"))
	require.NoError(t, err)
	assert.Equal(t, content, string(data))

	got, err := s.GetInfo(ctx, "imports/u1/file.csv")
	require.NoError(t, err)
	assert.Equal(t, info.Checksum, got.Checksum)
	assert.Equal(t, "text/csv", got.ContentType)
}

func TestLocalStorage_PutStreamTooLarge(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = s.PutStream(ctx, "big.csv", strings.NewReader(strings.Repeat("x", 11)), 10, nil)
	assert.ErrorIs(t, err, ErrTooLarge)

	exists, err := s.Exists(ctx, "big.csv")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestLocalStorage_Delete(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = s.PutStream(ctx, "a.csv", strings.NewReader("x"), 0, &Metadata{OriginalName: "a.csv"})
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, "a.csv"))
	require.NoError(t, s.Delete(ctx, "a.csv"))

	_, err = s.GetInfo(ctx, "a.csv")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocalStorage_KeysStayInsideBase(t *testing.T) {
	base := t.TempDir()
	s, err := NewLocalStorage(base)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(s.Path("../../etc/passwd"), base))
}

func TestBuildSourceKey(t *testing.T) {
	date := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)
	key := BuildSourceKey("user-1", "sess-1", date, "../My Products (v2).csv")
	assert.Equal(t, "imports/user-1/2026-03-04/sess-1/My_Products_v2_.csv", key)
}
