// Package media provides the offline-media line source: stored print
// jobs replayed into the command intake without host acknowledgment
// cycles.
package media

import (
	"fmt"
	"os"
	"sync"

	"marlin-go-migration/pkg/log"
)

// FilePlayback replays a stored G-code file. Control operations
// (start/pause/stop) may be called from any goroutine; NextByte is
// consumed only by the main control cycle.
type FilePlayback struct {
	mu       sync.Mutex
	name     string
	data     []byte
	pos      int
	printing bool
	logger   *log.Logger
}

// Open loads a job file for playback. Playback starts paused.
func Open(path string) (*FilePlayback, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("media: open %s: %w", path, err)
	}
	return &FilePlayback{
		name:   path,
		data:   data,
		logger: log.GetLogger("media"),
	}, nil
}

// Name returns the job file path.
func (f *FilePlayback) Name() string { return f.name }

// Start begins (or restarts) playback from the top of the file.
func (f *FilePlayback) Start() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pos = 0
	f.printing = true
	f.logger.Info("printing %s (%d bytes)", f.name, len(f.data))
}

// Pause suspends playback without losing position.
func (f *FilePlayback) Pause() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.printing = false
}

// Resume continues a paused job.
func (f *FilePlayback) Resume() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pos < len(f.data) {
		f.printing = true
	}
}

// Stop aborts the job and rewinds.
func (f *FilePlayback) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.printing = false
	f.pos = 0
}

// IsPrinting implements the intake Playback interface.
func (f *FilePlayback) IsPrinting() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.printing
}

// NextByte implements the intake Playback interface. Playback ends
// automatically at end of file.
func (f *FilePlayback) NextByte() (byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.printing || f.pos >= len(f.data) {
		if f.printing {
			f.printing = false
			f.logger.Info("print complete: %s", f.name)
		}
		return 0, false
	}
	b := f.data[f.pos]
	f.pos++
	return b, true
}

// Progress returns consumed and total byte counts.
func (f *FilePlayback) Progress() (pos, total int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pos, len(f.data)
}
