package storage

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beam-cloud/adzip/pkg/adzip"
	common "github.com/beam-cloud/adzip/pkg/common"
)

func createTestArchive(t *testing.T, files map[string][]byte) string {
	t.Helper()
	src := filepath.Join(t.TempDir(), "proj")
	for name, content := range files {
		path := filepath.Join(src, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, content, 0644))
	}

	archivePath := filepath.Join(t.TempDir(), "proj.ad")
	require.NoError(t, adzip.CreateArchive(adzip.CreateOptions{InputPath: src, OutputPath: archivePath}))
	return archivePath
}

func TestLocalArchiveStorageReadMember(t *testing.T) {
	big := bytes.Repeat([]byte("0123456789"), 100*1024)
	archivePath := createTestArchive(t, map[string][]byte{
		"readme.txt": []byte("hello world"),
		"src/big":    big,
		"empty":      {},
	})

	s, err := NewLocalArchiveStorage(LocalArchiveStorageOpts{ArchivePath: archivePath})
	require.NoError(t, err)
	defer s.Cleanup()

	readme, err := ReadMember(s, "proj/readme.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(readme))

	data, err := ReadMember(s, "proj/src/big")
	require.NoError(t, err)
	assert.Equal(t, big, data)

	empty, err := ReadMember(s, "proj/empty")
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = ReadMember(s, "proj/missing")
	require.ErrorIs(t, err, common.ErrMemberNotFound)

	_, err = ReadMember(s, "proj/src")
	require.ErrorIs(t, err, common.ErrNotAFile)
}

func TestLocalArchiveStorageReadFile(t *testing.T) {
	archivePath := createTestArchive(t, map[string][]byte{
		"a.txt": []byte("abcdefghij"),
		"b.txt": []byte("after"),
	})

	s, err := NewLocalArchiveStorage(LocalArchiveStorageOpts{ArchivePath: archivePath})
	require.NoError(t, err)
	defer s.Cleanup()

	entry := s.Metadata().Table.FindByName("proj/a.txt")
	require.NotNil(t, entry)

	tests := []struct {
		name     string
		offset   int64
		destSize int
		expected string
		eof      bool
	}{
		{"start", 0, 4, "abcd", false},
		{"middle", 3, 4, "defg", false},
		{"whole", 0, 10, "abcdefghij", false},
		{"past member end", 8, 10, "ij", true},
		{"at member end", 10, 4, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dest := make([]byte, tt.destSize)
			n, err := s.ReadFile(entry, dest, tt.offset)
			if tt.eof {
				assert.ErrorIs(t, err, io.EOF)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.expected, string(dest[:n]))
		})
	}

	_, err = s.ReadFile(entry, make([]byte, 1), -1)
	require.Error(t, err)
}

func TestOpenMemberStreams(t *testing.T) {
	archivePath := createTestArchive(t, map[string][]byte{"log.txt": []byte("line1\nline2\n")})

	metadata, err := adzip.NewArchiver().ExtractMetadata(archivePath)
	require.NoError(t, err)

	s, err := NewLocalArchiveStorage(LocalArchiveStorageOpts{ArchivePath: archivePath, Metadata: metadata})
	require.NoError(t, err)
	defer s.Cleanup()

	r, entry, err := OpenMember(s, "proj/log.txt")
	require.NoError(t, err)
	assert.Equal(t, int64(12), entry.Size)

	var buf bytes.Buffer
	_, err = io.Copy(&buf, r)
	require.NoError(t, err)
	assert.Equal(t, "line1\nline2\n", buf.String())
}

func TestNewLocalArchiveStorageErrors(t *testing.T) {
	_, err := NewLocalArchiveStorage(LocalArchiveStorageOpts{ArchivePath: filepath.Join(t.TempDir(), "missing.ad")})
	require.ErrorIs(t, err, common.ErrArchiveNotFound)

	garbage := filepath.Join(t.TempDir(), "garbage.ad")
	require.NoError(t, os.WriteFile(garbage, []byte("not an archive"), 0644))
	_, err = NewLocalArchiveStorage(LocalArchiveStorageOpts{ArchivePath: garbage})
	require.ErrorIs(t, err, common.ErrCorruptArchive)
}

func TestNewArchiveStore(t *testing.T) {
	_, err := NewArchiveStore(StoreModeS3, ArchiveStoreOpts{})
	require.Error(t, err)

	_, err = NewArchiveStore("ftp", ArchiveStoreOpts{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported store mode")
}
