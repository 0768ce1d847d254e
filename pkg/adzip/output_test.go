package adzip

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	common "github.com/beam-cloud/adzip/pkg/common"
)

func dirEntry(name string) *common.Entry {
	return &common.Entry{Kind: common.DirectoryEntry, Name: name, Permissions: 0755}
}

func fileEntry(name string, size int64) *common.Entry {
	return &common.Entry{Kind: common.FileEntry, Name: name, Size: size, Permissions: 0644}
}

func TestWriteHierarchy(t *testing.T) {
	tests := []struct {
		name     string
		entries  []*common.Entry
		expected string
	}{
		{
			name:     "nested",
			entries:  []*common.Entry{dirEntry("a"), fileEntry("a/b.txt", 1), dirEntry("a/c"), fileEntry("a/c/d.txt", 2)},
			expected: "a\n  b.txt\n  c\n    d.txt\n",
		},
		{
			name:     "shared prefix is not a parent",
			entries:  []*common.Entry{dirEntry("a"), fileEntry("ab", 1), fileEntry("a/x", 1)},
			expected: "a\n  x\nab\n",
		},
		{
			name:     "several roots keep table order",
			entries:  []*common.Entry{fileEntry("notes.txt", 3), dirEntry("proj"), fileEntry("proj/readme.txt", 11), fileEntry("notes1.txt", 3)},
			expected: "notes.txt\nproj\n  readme.txt\nnotes1.txt\n",
		},
		{
			name:     "empty",
			entries:  nil,
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, WriteHierarchy(&buf, tt.entries))
			assert.Equal(t, tt.expected, buf.String())
		})
	}
}

func TestRenderHierarchy(t *testing.T) {
	proj := newProject(t)
	archivePath := filepath.Join(t.TempDir(), "proj.ad")
	require.NoError(t, CreateArchive(CreateOptions{InputPath: proj, OutputPath: archivePath}))

	var buf bytes.Buffer
	require.NoError(t, RenderHierarchy(archivePath, &buf))
	assert.Equal(t, "proj\n  readme.txt\n  src\n    main.c\n", buf.String())

	err := RenderHierarchy(filepath.Join(t.TempDir(), "missing.ad"), &buf)
	require.ErrorIs(t, err, common.ErrArchiveNotFound)
}

func TestWriteMetadata(t *testing.T) {
	entries := []*common.Entry{
		{Kind: common.DirectoryEntry, Name: "proj", Offset: 12, Owner: 4000000000, Group: 4000000000, Permissions: 0755},
		{Kind: common.FileEntry, Name: "proj/readme.txt", Size: 11, Offset: 12, Owner: 4000000000, Group: 4000000000, Permissions: 0640},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteMetadata(&buf, entries))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, []string{"NAME", "TYPE", "OWNER", "GROUP", "PERMISSIONS", "SIZE", "OFFSET"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"proj", "directory", "Unknown", "Unknown", "drwxr-xr-x", "0", "12"}, strings.Fields(lines[1]))
	assert.Equal(t, []string{"proj/readme.txt", "file", "Unknown", "Unknown", "-rw-r-----", "11", "12"}, strings.Fields(lines[2]))
}

func TestListMetadata(t *testing.T) {
	proj := newProject(t)
	archivePath := filepath.Join(t.TempDir(), "proj.ad")
	require.NoError(t, CreateArchive(CreateOptions{InputPath: proj, OutputPath: archivePath}))

	var buf bytes.Buffer
	require.NoError(t, ListMetadata(archivePath, &buf))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 5)

	readme := strings.Fields(lines[2])
	assert.Equal(t, "proj/readme.txt", readme[0])
	assert.Equal(t, "file", readme[1])
	assert.Equal(t, "11", readme[5])
	assert.Equal(t, "12", readme[6])
}

func TestSetLogLevel(t *testing.T) {
	previous := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(previous) })

	tests := []struct {
		name     string
		level    string
		expected zerolog.Level
		wantErr  bool
	}{
		{"debug", "debug", zerolog.DebugLevel, false},
		{"info", "info", zerolog.InfoLevel, false},
		{"warning", "warning", zerolog.WarnLevel, false},
		{"error", "error", zerolog.ErrorLevel, false},
		{"off", "off", zerolog.Disabled, false},
		{"mixed case", "Warn", zerolog.WarnLevel, false},
		{"invalid", "verbose", zerolog.InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := SetLogLevel(tt.level)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "invalid log level")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, zerolog.GlobalLevel())
		})
	}
}
