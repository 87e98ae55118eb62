package media

import (
	"os"
	"path/filepath"
	"testing"
)

func writeJob(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "job.gcode")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write job: %v", err)
	}
	return path
}

func readAll(f *FilePlayback) string {
	var out []byte
	for {
		b, ok := f.NextByte()
		if !ok {
			return string(out)
		}
		out = append(out, b)
	}
}

func TestPlaybackLifecycle(t *testing.T) {
	f, err := Open(writeJob(t, "G28\nG1 X10\n"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if f.IsPrinting() {
		t.Fatal("printing before start")
	}
	if _, ok := f.NextByte(); ok {
		t.Fatal("bytes delivered before start")
	}

	f.Start()
	if !f.IsPrinting() {
		t.Fatal("not printing after start")
	}
	if got := readAll(f); got != "G28\nG1 X10\n" {
		t.Fatalf("replayed %q", got)
	}
	// End of file stops the job.
	if f.IsPrinting() {
		t.Fatal("still printing past end of file")
	}
}

func TestPauseResume(t *testing.T) {
	f, err := Open(writeJob(t, "G28\nG90\n"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	f.Start()
	for i := 0; i < 4; i++ {
		f.NextByte()
	}

	f.Pause()
	if _, ok := f.NextByte(); ok {
		t.Fatal("bytes delivered while paused")
	}
	pos, total := f.Progress()
	if pos != 4 || total != 8 {
		t.Fatalf("progress = %d/%d", pos, total)
	}

	f.Resume()
	if got := readAll(f); got != "G90\n" {
		t.Fatalf("resumed replay %q", got)
	}
}

func TestStopRewinds(t *testing.T) {
	f, err := Open(writeJob(t, "G28\n"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	f.Start()
	f.NextByte()
	f.Stop()
	if pos, _ := f.Progress(); pos != 0 {
		t.Fatalf("pos after stop = %d", pos)
	}
	f.Start()
	if got := readAll(f); got != "G28\n" {
		t.Fatalf("restarted replay %q", got)
	}
}

func TestResumeAtEOFStaysStopped(t *testing.T) {
	f, err := Open(writeJob(t, "G28\n"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	f.Start()
	readAll(f)
	f.Resume()
	if f.IsPrinting() {
		t.Fatal("resumed past end of file")
	}
}

func TestOpenMissingFile(t *testing.T) {
	if _, err := Open("/nonexistent/job.gcode"); err == nil {
		t.Fatal("open succeeded on missing file")
	}
}
