package global

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestRollingFileWriterAppends(t *testing.T) {
	dir := t.TempDir()
	w, err := newRollingFileWriter(dir, "test")
	if err != nil {
		t.Fatalf("writer setup failed: %s", err)
	}

	if _, err := w.Write([]byte("one\n")); err != nil {
		t.Fatalf("write failed: %s", err)
	}
	if _, err := w.Write([]byte("two\n")); err != nil {
		t.Fatalf("write failed: %s", err)
	}

	contents, err := os.ReadFile(filepath.Join(dir, "test.log"))
	if err != nil {
		t.Fatalf("log file missing: %s", err)
	}
	if !bytes.Equal(contents, []byte("one\ntwo\n")) {
		t.Fatalf("log contents wrong: %q", contents)
	}
}

func TestRollingFileWriterRotates(t *testing.T) {
	dir := t.TempDir()
	w, err := newRollingFileWriter(dir, "test")
	if err != nil {
		t.Fatalf("writer setup failed: %s", err)
	}

	// grow the main log past the rotation threshold
	big := bytes.Repeat([]byte("x"), maxLogSize)
	if err := os.WriteFile(w.mainPath(), big, 0644); err != nil {
		t.Fatalf("seed write failed: %s", err)
	}

	if _, err := w.Write([]byte("fresh\n")); err != nil {
		t.Fatalf("write failed: %s", err)
	}

	archived, err := os.ReadFile(w.archivePath(1))
	if err != nil {
		t.Fatalf("archive missing: %s", err)
	}
	if len(archived) != maxLogSize {
		t.Fatalf("archive size wrong: %d", len(archived))
	}

	fresh, err := os.ReadFile(w.mainPath())
	if err != nil {
		t.Fatalf("main log missing after rotation: %s", err)
	}
	if !bytes.Equal(fresh, []byte("fresh\n")) {
		t.Fatalf("main log contents wrong: %q", fresh)
	}
}
