package vaultfs

import (
	"io/fs"
	"time"
)

// node is one vault file or folder as seen through the filesystem
type node struct {
	id      int64
	name    string
	size    int64
	modTime time.Time
	isDir   bool
}

// nodeFileInfo wraps a node to implement fs.FileInfo
type nodeFileInfo struct {
	node *node
}

// newFileInfo creates a new fs.FileInfo from a node
func newFileInfo(n *node) fs.FileInfo {
	return &nodeFileInfo{node: n}
}

// Name returns the base name of the file
func (fi *nodeFileInfo) Name() string {
	return fi.node.name
}

// Size returns the length in bytes for regular files; 0 for directories
func (fi *nodeFileInfo) Size() int64 {
	if fi.node.isDir {
		return 0
	}
	return fi.node.size
}

// Mode reports read-only permissions; the vault cannot be written through this package
func (fi *nodeFileInfo) Mode() fs.FileMode {
	if fi.node.isDir {
		return fs.ModeDir | 0555
	}
	return 0444
}

func (fi *nodeFileInfo) ModTime() time.Time {
	return fi.node.modTime
}

func (fi *nodeFileInfo) IsDir() bool {
	return fi.node.isDir
}

// Sys returns the vault id of the file or folder
func (fi *nodeFileInfo) Sys() any {
	return fi.node.id
}
