package vaultfs

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/Project-Sylos/Stash/internal/auth"
	"github.com/Project-Sylos/Stash/internal/params"
	"github.com/Project-Sylos/Stash/internal/stub"
	"github.com/Project-Sylos/Stash/internal/transport"
	"github.com/Project-Sylos/Stash/internal/vault"
)

func newTestFS(t *testing.T) (*FS, *stub.Store) {
	t.Helper()
	creds, err := auth.NewCredentials("0123456789abcdef0123456789abcdef", "abcdefghijABCDEFGHIJ0123456789klmnopqrst", auth.DefaultProfile())
	if err != nil {
		t.Fatal(err)
	}
	acct := stub.Account{Credentials: creds, Username: "owner@example.com", Password: "pw"}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	router, err := stub.NewRouter(stub.Options{Accounts: []stub.Account{acct}, MaxSkew: time.Minute, Logger: logger})
	if err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(router.SetupRoutes())
	t.Cleanup(srv.Close)

	client, err := vault.New(creds, srv.URL,
		vault.WithLogger(logger),
		vault.WithTransport(transport.New(transport.WithLogger(logger))))
	if err != nil {
		t.Fatal(err)
	}
	key, err := acct.FileKey()
	if err != nil {
		t.Fatal(err)
	}

	store := router.Store()
	seed := func(folder []string, name, content string) {
		if _, err := store.CreateDirectory(params.Of("folderNames", folder)); err != nil {
			t.Fatal(err)
		}
		if _, _, err := store.Write(params.Of("destFolderNames", folder), name, []byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	seed([]string{"My Home", "Documents"}, "a.txt", "alpha")
	seed([]string{"My Home", "Documents", "Reports"}, "q1.csv", "id,total\n1,40\n")
	seed([]string{"My Home"}, "readme.md", "# vault")

	return New(context.Background(), client, key), store
}

func TestReadFile(t *testing.T) {
	fsys, _ := newTestFS(t)

	tests := []struct {
		name    string
		path    string
		want    string
		wantErr error
	}{
		{"root file", "readme.md", "# vault", nil},
		{"nested file", "Documents/Reports/q1.csv", "id,total\n1,40\n", nil},
		{"missing file", "Documents/b.txt", "", fs.ErrNotExist},
		{"missing folder", "Nowhere/a.txt", "", fs.ErrNotExist},
		{"invalid path", "/Documents/a.txt", "", fs.ErrInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := fs.ReadFile(fsys, tt.path)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ReadFile: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("content = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestReadDir(t *testing.T) {
	fsys, _ := newTestFS(t)

	entries, err := fs.ReadDir(fsys, "Documents")
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	if want := []string{"Reports", "a.txt"}; !reflect.DeepEqual(names, want) {
		t.Errorf("entries = %v, want %v", names, want)
	}
	if !entries[0].IsDir() || entries[1].IsDir() {
		t.Errorf("IsDir flags wrong: %v %v", entries[0].IsDir(), entries[1].IsDir())
	}
	info, err := entries[1].Info()
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() != int64(len("alpha")) {
		t.Errorf("size = %d", info.Size())
	}
}

func TestOpenDirectoryPaging(t *testing.T) {
	fsys, _ := newTestFS(t)

	f, err := fsys.Open(".")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()
	dir, ok := f.(fs.ReadDirFile)
	if !ok {
		t.Fatalf("root is not a ReadDirFile")
	}

	first, err := dir.ReadDir(1)
	if err != nil || len(first) != 1 || first[0].Name() != "Documents" {
		t.Fatalf("ReadDir(1) = %v, %v", first, err)
	}
	second, err := dir.ReadDir(5)
	if err != nil || len(second) != 1 || second[0].Name() != "readme.md" {
		t.Fatalf("ReadDir(5) = %v, %v", second, err)
	}
	if rest, err := dir.ReadDir(1); len(rest) != 0 || err != io.EOF {
		t.Errorf("exhausted ReadDir(1) = %v, %v", rest, err)
	}
	if rest, err := dir.ReadDir(-1); len(rest) != 0 || err != nil {
		t.Errorf("exhausted ReadDir(-1) = %v, %v", rest, err)
	}
	if _, err := f.Read(make([]byte, 4)); err == nil {
		t.Errorf("Read on a directory succeeded")
	}
}

func TestStat(t *testing.T) {
	fsys, _ := newTestFS(t)

	info, err := fs.Stat(fsys, "Documents/Reports")
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if !info.IsDir() || info.Name() != "Reports" || info.Mode()&0o222 != 0 {
		t.Errorf("folder info = %v %v %v", info.IsDir(), info.Name(), info.Mode())
	}

	info, err = fs.Stat(fsys, "Documents/a.txt")
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.IsDir() || info.Size() != 5 {
		t.Errorf("file info = dir:%v size:%d", info.IsDir(), info.Size())
	}
	if _, ok := info.Sys().(int64); !ok {
		t.Errorf("Sys() = %T, want vault id", info.Sys())
	}

	if _, err := fs.Stat(fsys, "Documents/zzz"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("missing Stat err = %v", err)
	}
}

func TestWalkDir(t *testing.T) {
	fsys, _ := newTestFS(t)

	var seen []string
	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		seen = append(seen, p)
		return nil
	})
	if err != nil {
		t.Fatalf("WalkDir: %v", err)
	}
	want := []string{".", "Documents", "Documents/Reports", "Documents/Reports/q1.csv", "Documents/a.txt", "readme.md"}
	if !reflect.DeepEqual(seen, want) {
		t.Errorf("walk = %v\nwant %v", seen, want)
	}
}

func TestSeekableFile(t *testing.T) {
	fsys, _ := newTestFS(t)

	f, err := fsys.Open("Documents/a.txt")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	seeker, ok := f.(io.ReadSeeker)
	if !ok {
		t.Fatal("file is not seekable")
	}
	if _, err := seeker.Seek(2, io.SeekStart); err != nil {
		t.Fatal(err)
	}
	rest, _ := io.ReadAll(seeker)
	if string(rest) != "pha" {
		t.Errorf("after seek = %q", rest)
	}
}

func TestWrongFileKey(t *testing.T) {
	fsys, _ := newTestFS(t)
	fsys.fileKey = "deadbeef"

	if _, err := fs.ReadFile(fsys, "readme.md"); !errors.Is(err, fs.ErrPermission) {
		t.Errorf("err = %v, want ErrPermission", err)
	}
}
