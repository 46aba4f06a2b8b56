package validate

import (
	"strings"

	"github.com/pkg/errors"
)

// Operation is the closed set of vault operations the client can request
type Operation int

const (
	OpNone Operation = iota
	OpRead
	OpWrite
	OpCopy
	OpMove
	OpDelete
	OpRename
	OpListAll
	OpListFiles
	OpListSmartFolderFiles
	OpListFolders
	OpGetFolderID
	OpCreateDirectory
	OpRenameDirectory
	OpMoveDirectory
	OpCopyDirectory
	OpDeleteDirectory
	OpGetFileInfo
	OpGetFolderInfo
	OpSetFileLock
	OpGetFileLock
	OpClearFileLock
	OpGetTags
	OpSetTags
	OpAddTag
	OpDeleteTag
	OpGetSyncInfo
	OpGetVaultInfo
	OpCheckCredentials
	OpCheckCredentialsAD
	OpIsValidUser
	OpSetPermissions
	OpCheckPermissions
	OpListVersions
	OpReadVersion
	OpRestoreVersion
	OpDeleteVersion
	OpWebEraseToken
	OpWebEraseStore
	OpWebEraseRetrieve
	OpWebEraseUpdate
	OpWebEraseDelete
	OpWebEraseOneTimeCode
	OpWebErasePolling
	OpWebEraseProjectList

	opCount
)

var opNames = [opCount]string{
	OpNone:                 "none",
	OpRead:                 "read",
	OpWrite:                "write",
	OpCopy:                 "copy",
	OpMove:                 "move",
	OpDelete:               "delete",
	OpRename:               "rename",
	OpListAll:              "listAll",
	OpListFiles:            "listFiles",
	OpListSmartFolderFiles: "listSmartFolderFiles",
	OpListFolders:          "listFolders",
	OpGetFolderID:          "getFolderId",
	OpCreateDirectory:      "createDirectory",
	OpRenameDirectory:      "renameDirectory",
	OpMoveDirectory:        "moveDirectory",
	OpCopyDirectory:        "copyDirectory",
	OpDeleteDirectory:      "deleteDirectory",
	OpGetFileInfo:          "getFileInfo",
	OpGetFolderInfo:        "getFolderInfo",
	OpSetFileLock:          "setFileLock",
	OpGetFileLock:          "getFileLock",
	OpClearFileLock:        "clearFileLock",
	OpGetTags:              "getTags",
	OpSetTags:              "setTags",
	OpAddTag:               "addTag",
	OpDeleteTag:            "deleteTag",
	OpGetSyncInfo:          "getSyncInfo",
	OpGetVaultInfo:         "getVaultInfo",
	OpCheckCredentials:     "checkCredentials",
	OpCheckCredentialsAD:   "checkCredentialsAD",
	OpIsValidUser:          "isValidUser",
	OpSetPermissions:       "setPermissions",
	OpCheckPermissions:     "checkPermissions",
	OpListVersions:         "listVersions",
	OpReadVersion:          "readVersion",
	OpRestoreVersion:       "restoreVersion",
	OpDeleteVersion:        "deleteVersion",
	OpWebEraseToken:        "webEraseToken",
	OpWebEraseStore:        "webEraseStore",
	OpWebEraseRetrieve:     "webEraseRetrieve",
	OpWebEraseUpdate:       "webEraseUpdate",
	OpWebEraseDelete:       "webEraseDelete",
	OpWebEraseOneTimeCode:  "webEraseOneTimeCode",
	OpWebErasePolling:      "webErasePolling",
	OpWebEraseProjectList:  "webEraseProjectList",
}

// Short names used by the vault endpoints and older clients
var opAliases = map[string]Operation{
	"listsffiles":  OpListSmartFolderFiles,
	"checkcreds":   OpCheckCredentials,
	"checkcredsad": OpCheckCredentialsAD,
	"setperms":     OpSetPermissions,
	"checkperms":   OpCheckPermissions,
}

var opLookup = func() map[string]Operation {
	m := make(map[string]Operation, len(opNames)+len(opAliases))
	for op, name := range opNames {
		m[strings.ToLower(name)] = Operation(op)
	}
	for alias, op := range opAliases {
		m[alias] = op
	}
	return m
}()

// ErrUnrecognizedOperation is returned for names outside the closed set
var ErrUnrecognizedOperation = errors.New("unrecognized operation specified")

// ParseOperation matches name case-insensitively against the known operations
func ParseOperation(name string) (Operation, error) {
	op, ok := opLookup[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, errors.Wrapf(ErrUnrecognizedOperation, "%q", name)
	}
	return op, nil
}

// Operations returns every known operation in declaration order
func Operations() []Operation {
	out := make([]Operation, 0, opCount)
	for op := OpNone; op < opCount; op++ {
		out = append(out, op)
	}
	return out
}

func (op Operation) String() string {
	if op < 0 || op >= opCount {
		return "unknown"
	}
	return opNames[op]
}

// Valid reports whether op is inside the closed set
func (op Operation) Valid() bool {
	return op >= 0 && op < opCount
}
