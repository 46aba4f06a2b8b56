// Package models builds the identifier bags vault operations take as input.
// Source identifiers name an existing file or folder; destination identifiers
// name where a copy, move or rename lands.
package models

import (
	"github.com/Project-Sylos/Stash/internal/params"
	"github.com/Project-Sylos/Stash/internal/types"
	"github.com/Project-Sylos/Stash/internal/utils"
)

// FileByID identifies a file by its id
func FileByID(id int64) *params.Params {
	return params.Of("fileId", id)
}

// FileByPath identifies a file by name inside the folder at folderPath
func FileByPath(folderPath, name string) *params.Params {
	return params.Of(
		"fileName", name,
		"folderNames", utils.SplitVaultPath(folderPath),
	)
}

// FileInFolder identifies a file by name inside the folder with folderID
func FileInFolder(folderID int64, name string) *params.Params {
	return params.Of("fileName", name, "folderId", folderID)
}

// FolderByID identifies a folder by its id
func FolderByID(id int64) *params.Params {
	return params.Of("folderId", id)
}

// FolderByPath identifies a folder by its path under "My Home"
func FolderByPath(folderPath string) *params.Params {
	return params.Of("folderNames", utils.SplitVaultPath(folderPath))
}

// DestFolderByID names a destination folder by id
func DestFolderByID(id int64) *params.Params {
	return params.Of("destFolderId", id)
}

// DestFolderByPath names a destination folder by path
func DestFolderByPath(folderPath string) *params.Params {
	return params.Of("destFolderNames", utils.SplitVaultPath(folderPath))
}

// DestFile names a destination file inside the folder at folderPath
func DestFile(folderPath, name string) *params.Params {
	return DestFolderByPath(folderPath).Set("destFileName", name)
}

// DestName is a bare new name, used by renames
func DestName(name string) *params.Params {
	return params.Of("destFileName", name)
}

// Listing adds the listing shape to a folder identifier
func Listing(folder *params.Params, o types.OutputType) *params.Params {
	return folder.Clone().Set("outputType", int(o))
}

// Overwrite marks a write as replacing the existing file fileID
func Overwrite(dst *params.Params, fileID int64) *params.Params {
	return dst.Clone().Set("overwriteFile", 1).Set("overwriteFileId", fileID)
}
