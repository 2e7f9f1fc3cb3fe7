package fetch

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"
)

func TestExtractYear(t *testing.T) {
	tests := []struct {
		key     string
		want    int
		wantErr bool
	}{
		{"2024-citibike-tripdata.zip", 2024, false},
		{"2023-citibike-tripdata/202301-citibike-tripdata.csv.zip", 2023, false},
		{"archive/2025-citibike-tripdata.zip", 2025, false},
		{"citibike-tripdata.zip", 0, true},
		{"1999-tripdata.zip", 0, true},
	}
	for _, tt := range tests {
		got, err := extractYear(tt.key)
		if (err != nil) != tt.wantErr {
			t.Errorf("extractYear(%q) error = %v, wantErr %v", tt.key, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("extractYear(%q) = %d, want %d", tt.key, got, tt.want)
		}
	}
}

func TestExtractZip(t *testing.T) {
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "archive.zip")

	f, err := os.Create(zipPath)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(f)
	for name, content := range map[string]string{
		"nested/202401-citibike-tripdata.csv": "ride_id\nA1\n",
		"202402-citibike-tripdata.csv":        "ride_id\nB1\n",
	} {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	dest := filepath.Join(dir, "out")
	if err := os.MkdirAll(dest, 0755); err != nil {
		t.Fatal(err)
	}
	if err := extractZip(zipPath, dest); err != nil {
		t.Fatalf("extractZip: %v", err)
	}

	// Members extract flat, directory structure dropped.
	for _, name := range []string{"202401-citibike-tripdata.csv", "202402-citibike-tripdata.csv"} {
		if !fileExistsNonEmpty(filepath.Join(dest, name)) {
			t.Errorf("missing extracted file %s", name)
		}
	}

	// Existing files are kept.
	marker := filepath.Join(dest, "202401-citibike-tripdata.csv")
	if err := os.WriteFile(marker, []byte("kept"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := extractZip(zipPath, dest); err != nil {
		t.Fatalf("extractZip rerun: %v", err)
	}
	content, err := os.ReadFile(marker)
	if err != nil {
		t.Fatal(err)
	}
	if string(content) != "kept" {
		t.Error("re-extraction must not overwrite existing files")
	}
}

func TestFileExistsNonEmpty(t *testing.T) {
	dir := t.TempDir()
	missing := filepath.Join(dir, "missing")
	if fileExistsNonEmpty(missing) {
		t.Error("missing file reported as present")
	}

	empty := filepath.Join(dir, "empty")
	if err := os.WriteFile(empty, nil, 0644); err != nil {
		t.Fatal(err)
	}
	if fileExistsNonEmpty(empty) {
		t.Error("empty file should not count as present")
	}

	full := filepath.Join(dir, "full")
	if err := os.WriteFile(full, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if !fileExistsNonEmpty(full) {
		t.Error("non-empty file should count as present")
	}
}
