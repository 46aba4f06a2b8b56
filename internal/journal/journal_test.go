package journal

import (
	"path/filepath"
	"testing"
	"time"
)

func openTemp(t *testing.T) (*Journal, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "journal.db")
	j, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return j, path
}

func TestRecordAndRecent(t *testing.T) {
	j, _ := openTemp(t)
	defer j.Close()

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	entries := []Entry{
		{Operation: "listFolders", URL: "https://v/api2/file/listfolders", APITimestamp: 1, Code: "200", Message: "OK", Duration: 15 * time.Millisecond, CreatedAt: base},
		{Operation: "read", URL: "https://v/api2/file/read", APITimestamp: 2, Code: "404", Message: "Not Found", CreatedAt: base.Add(time.Second)},
		{Operation: "write", URL: "https://v/api2/file/write", APITimestamp: 3, Code: "200", Message: "OK", CreatedAt: base.Add(2 * time.Second)},
	}
	for _, e := range entries {
		got, err := j.Record(e)
		if err != nil {
			t.Fatalf("Record: %v", err)
		}
		if got.ID == "" {
			t.Errorf("expected an id to be assigned")
		}
	}

	tests := []struct {
		limit   int
		wantOps []string
	}{
		{0, nil},
		{1, []string{"write"}},
		{2, []string{"write", "read"}},
		{10, []string{"write", "read", "listFolders"}},
	}
	for _, tt := range tests {
		recent, err := j.Recent(tt.limit)
		if err != nil {
			t.Fatalf("Recent(%d): %v", tt.limit, err)
		}
		if len(recent) != len(tt.wantOps) {
			t.Fatalf("Recent(%d) returned %d entries, want %d", tt.limit, len(recent), len(tt.wantOps))
		}
		for i, op := range tt.wantOps {
			if recent[i].Operation != op {
				t.Errorf("Recent(%d)[%d] = %s, want %s", tt.limit, i, recent[i].Operation, op)
			}
		}
	}

	last, _ := j.Recent(10)
	oldest := last[len(last)-1]
	if oldest.Duration != 15*time.Millisecond || oldest.APITimestamp != 1 || oldest.Message != "OK" {
		t.Errorf("round trip mismatch: %+v", oldest)
	}
}

func TestCountByCode(t *testing.T) {
	j, _ := openTemp(t)
	defer j.Close()

	for _, code := range []string{"200", "200", "401", "500", "200"} {
		if _, err := j.Record(Entry{Operation: "getVaultInfo", URL: "u", Code: code}); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	counts, err := j.CountByCode()
	if err != nil {
		t.Fatalf("CountByCode: %v", err)
	}
	want := map[string]int{"200": 3, "401": 1, "500": 1}
	for code, n := range want {
		if counts[code] != n {
			t.Errorf("count[%s] = %d, want %d", code, counts[code], n)
		}
	}
	if total, _ := j.Count(); total != 5 {
		t.Errorf("Count = %d, want 5", total)
	}
}

func TestReopenKeepsEntries(t *testing.T) {
	j, path := openTemp(t)
	if _, err := j.Record(Entry{Operation: "read", URL: "u", Code: "200"}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := j.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	j, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer j.Close()
	if n, _ := j.Count(); n != 1 {
		t.Errorf("Count after reopen = %d, want 1", n)
	}
}
