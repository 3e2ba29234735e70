package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jask/livetree/internal/snapshot"
)

func TestLoadDataPrefersSnapshot(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store, err := snapshot.Open("sqlite", filepath.Join(t.TempDir(), "livetree.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	data, err := loadData(ctx, store, "default", filepath.Join("testdata", "todo.yaml"))
	require.NoError(t, err)
	require.Equal(t, "groceries", data["title"])
	require.Len(t, data["items"], 2)

	require.NoError(t, store.Save(ctx, "default", map[string]any{"title": "saved"}))
	data, err = loadData(ctx, store, "default", filepath.Join("testdata", "todo.yaml"))
	require.NoError(t, err)
	require.Equal(t, "saved", data["title"])
}

func TestLoadDataFallsBackToBuiltin(t *testing.T) {
	t.Parallel()
	data, err := loadData(context.Background(), nil, "default", "")
	require.NoError(t, err)
	require.Equal(t, "todo", data["title"])

	_, err = loadData(context.Background(), nil, "default", filepath.Join("testdata", "missing.yaml"))
	require.Error(t, err)
}

func TestWriteInfos(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.Local)
	require.NoError(t, writeInfos(&buf, []snapshot.Info{{Name: "default", SavedAt: at, Size: 42}}))
	require.Equal(t, "default              2024-03-01 12:00:00     42 bytes\n", buf.String())
}
