package metrics

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Metrics collects counters for a single archive operation
type Metrics struct {
	mu sync.RWMutex

	started time.Time

	// Write path metrics
	FilesArchived       int64
	DirectoriesArchived int64
	BytesArchived       int64
	MembersSkipped      int64

	// Read path metrics
	FilesExtracted       int64
	DirectoriesExtracted int64
	BytesExtracted       int64

	// Compaction metrics
	BytesReclaimed int64
}

// NewMetrics creates a new metrics collector
func NewMetrics() *Metrics {
	return &Metrics{started: time.Now()}
}

// RecordArchivedFile records a file whose bytes were written to the data region
func (m *Metrics) RecordArchivedFile(name string, bytes int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.FilesArchived++
	m.BytesArchived += bytes

	log.Debug().
		Str("name", name).
		Int64("bytes", bytes).
		Msg("file archived")
}

func (m *Metrics) RecordArchivedDirectory(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.DirectoriesArchived++

	log.Debug().Str("name", name).Msg("directory archived")
}

// RecordSkipped records a member left out of the archive
func (m *Metrics) RecordSkipped(path string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.MembersSkipped++

	log.Warn().
		Str("path", path).
		Err(err).
		Msg("skipping member")
}

func (m *Metrics) RecordExtractedFile(name string, bytes int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.FilesExtracted++
	m.BytesExtracted += bytes

	log.Debug().
		Str("name", name).
		Int64("bytes", bytes).
		Msg("file extracted")
}

func (m *Metrics) RecordExtractedDirectory(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.DirectoriesExtracted++

	log.Debug().Str("name", name).Msg("directory extracted")
}

func (m *Metrics) RecordReclaimed(bytes int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.BytesReclaimed += bytes
}

// Snapshot is a point-in-time copy of the counters
type Snapshot struct {
	FilesArchived        int64
	DirectoriesArchived  int64
	BytesArchived        int64
	MembersSkipped       int64
	FilesExtracted       int64
	DirectoriesExtracted int64
	BytesExtracted       int64
	BytesReclaimed       int64
	Elapsed              time.Duration
}

func (m *Metrics) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return Snapshot{
		FilesArchived:        m.FilesArchived,
		DirectoriesArchived:  m.DirectoriesArchived,
		BytesArchived:        m.BytesArchived,
		MembersSkipped:       m.MembersSkipped,
		FilesExtracted:       m.FilesExtracted,
		DirectoriesExtracted: m.DirectoriesExtracted,
		BytesExtracted:       m.BytesExtracted,
		BytesReclaimed:       m.BytesReclaimed,
		Elapsed:              time.Since(m.started),
	}
}

// LogSummary logs a summary of the operation's counters
func (m *Metrics) LogSummary(operation string) {
	s := m.Snapshot()

	log.Info().
		Str("operation", operation).
		Int64("files_archived", s.FilesArchived).
		Int64("directories_archived", s.DirectoriesArchived).
		Int64("bytes_archived", s.BytesArchived).
		Int64("members_skipped", s.MembersSkipped).
		Int64("files_extracted", s.FilesExtracted).
		Int64("directories_extracted", s.DirectoriesExtracted).
		Int64("bytes_extracted", s.BytesExtracted).
		Int64("bytes_reclaimed", s.BytesReclaimed).
		Dur("elapsed", s.Elapsed).
		Msg("metrics summary")
}
