package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func writeBytes(t *testing.T, path string, n int) {
	t.Helper()
	if err := os.WriteFile(path, make([]byte, n), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestDiskUsageBytes(t *testing.T) {
	dir := t.TempDir()
	f := filepath.Join(dir, "records.db")
	writeBytes(t, f, 5)

	sub := filepath.Join(dir, "badger")
	if err := os.MkdirAll(filepath.Join(sub, "vlog"), 0755); err != nil {
		t.Fatal(err)
	}
	writeBytes(t, filepath.Join(sub, "000001.sst"), 2)
	writeBytes(t, filepath.Join(sub, "vlog", "000001.vlog"), 1)

	tests := []struct {
		name  string
		paths []string
		want  int64
	}{
		{"file", []string{f}, 5},
		{"nested dir", []string{sub}, 3},
		{"file and dir", []string{f, sub}, 8},
		{"missing skipped", []string{f, filepath.Join(dir, "nope"), sub}, 8},
		{"empty skipped", []string{"", f}, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DiskUsageBytes(tt.paths...)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("got %d bytes, want %d", got, tt.want)
			}
		})
	}
}

func TestDiskUsage_SQLiteSidecars(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "rollcall.db")
	writeBytes(t, db, 10)
	writeBytes(t, db+"-wal", 4)

	got, err := DiskUsage(Options{Backend: BackendSQLite, DatabasePath: db})
	if err != nil {
		t.Fatal(err)
	}
	if got != 14 {
		t.Errorf("got %d bytes, want 14", got)
	}

	got, err = DiskUsage(Options{Backend: BackendMemory})
	if err != nil || got != 0 {
		t.Errorf("memory backend: got %d, %v", got, err)
	}
}
