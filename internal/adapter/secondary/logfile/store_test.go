package logfile

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"announce-helper/internal/domain"
)

func TestStoreAppendAndReadAll(t *testing.T) {
	path := filepath.Join(t.TempDir(), "helper.log")
	s := NewStore(path)
	ts := time.Date(2025, 3, 1, 9, 15, 0, 0, time.Local)

	require.NoError(t, s.Append(domain.NewLogEntry(ts, "音量: 30 | 出力先: 未変更 | コマンド: /usr/bin/open", "")))
	require.NoError(t, s.Append(domain.NewLogEntry(ts.Add(time.Minute), "音量: 30 | 出力先: 未変更 | コマンド: false", "コマンド実行エラー (終了コード: 1)")))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t,
		"2025-03-01 09:15:00 | 音量: 30 | 出力先: 未変更 | コマンド: /usr/bin/open\n"+
			"2025-03-01 09:16:00 | 音量: 30 | 出力先: 未変更 | コマンド: false [エラー: コマンド実行エラー (終了コード: 1)]\n",
		string(raw))

	entries, err := s.ReadAll()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "2025-03-01 09:16:00", entries[0].Timestamp)
	assert.Equal(t, "音量: 30 | 出力先: 未変更 | コマンド: false", entries[0].Message)
	assert.Equal(t, "コマンド実行エラー (終了コード: 1)", entries[0].Error)
	assert.False(t, entries[1].HasError())
}

func TestStoreReadAllKeepsForeignLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "helper.log")
	require.NoError(t, os.WriteFile(path, []byte("launchd said something\n\n2025-03-01 09:15:00 | ok\n"), 0o644))

	entries, err := NewStore(path).ReadAll()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "ok", entries[0].Message)
	assert.Equal(t, "", entries[1].Timestamp)
	assert.Equal(t, "launchd said something", entries[1].Message)
}

func TestStoreMissingFile(t *testing.T) {
	entries, err := NewStore(filepath.Join(t.TempDir(), "none.log")).ReadAll()
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestStoreClear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "helper.log")
	s := NewStore(path)
	require.NoError(t, s.Append(domain.NewLogEntry(time.Now(), "x", "")))

	require.NoError(t, s.Clear())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Zero(t, info.Size())
	entries, err := s.ReadAll()
	require.NoError(t, err)
	assert.Empty(t, entries)
}
