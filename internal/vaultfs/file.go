package vaultfs

import (
	"bytes"
	"io"
	"io/fs"
)

// vaultFile implements fs.File for downloaded files. The content is
// fetched in full when the file is opened.
type vaultFile struct {
	node   *node
	reader *bytes.Reader
}

// vaultDir implements fs.ReadDirFile for folders
type vaultDir struct {
	node    *node
	entries []fs.DirEntry
}

func newVaultFile(n *node, data []byte) *vaultFile {
	return &vaultFile{node: n, reader: bytes.NewReader(data)}
}

func (f *vaultFile) Stat() (fs.FileInfo, error) {
	return newFileInfo(f.node), nil
}

func (f *vaultFile) Read(b []byte) (int, error) {
	return f.reader.Read(b)
}

func (f *vaultFile) ReadAt(b []byte, off int64) (int, error) {
	return f.reader.ReadAt(b, off)
}

func (f *vaultFile) Seek(offset int64, whence int) (int64, error) {
	return f.reader.Seek(offset, whence)
}

func (f *vaultFile) Close() error {
	return nil
}

func (d *vaultDir) Stat() (fs.FileInfo, error) {
	return newFileInfo(d.node), nil
}

// Read always fails; folders have no byte content
func (d *vaultDir) Read(b []byte) (int, error) {
	return 0, &fs.PathError{Op: "read", Path: d.node.name, Err: fs.ErrInvalid}
}

// ReadDir reads the contents of the directory and returns
// a slice of up to n DirEntry values in directory order
func (d *vaultDir) ReadDir(n int) ([]fs.DirEntry, error) {
	if n <= 0 {
		// Return all remaining entries
		result := make([]fs.DirEntry, len(d.entries))
		copy(result, d.entries)
		d.entries = nil
		return result, nil
	}

	if len(d.entries) == 0 {
		return nil, io.EOF
	}

	count := min(n, len(d.entries))
	result := make([]fs.DirEntry, count)
	copy(result, d.entries[:count])
	d.entries = d.entries[count:]
	return result, nil
}

func (d *vaultDir) Close() error {
	return nil
}
