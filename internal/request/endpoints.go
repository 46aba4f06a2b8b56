package request

import (
	"strings"

	"github.com/Project-Sylos/Stash/internal/validate"
)

// Endpoint groups on the vault API
const (
	GroupFile     = "file"
	GroupAuth     = "auth"
	GroupWebErase = "weberase"
)

// LoopbackEndpoint answers any authenticated request; it carries no operation rules
const LoopbackEndpoint = "api2/auth/testloopback"

var endpoints = map[validate.Operation]string{
	validate.OpRead:                 "api2/file/read",
	validate.OpWrite:                "api2/file/write",
	validate.OpCopy:                 "api2/file/copy",
	validate.OpMove:                 "api2/file/move",
	validate.OpDelete:               "api2/file/delete",
	validate.OpRename:               "api2/file/rename",
	validate.OpListAll:              "api2/file/listall",
	validate.OpListFiles:            "api2/file/listfiles",
	validate.OpListSmartFolderFiles: "api2/file/listsffiles",
	validate.OpListFolders:          "api2/file/listfolders",
	validate.OpGetFolderID:          "api2/file/getfolderid",
	validate.OpCreateDirectory:      "api2/file/createdirectory",
	validate.OpRenameDirectory:      "api2/file/renamedirectory",
	validate.OpMoveDirectory:        "api2/file/movedirectory",
	validate.OpCopyDirectory:        "api2/file/copydirectory",
	validate.OpDeleteDirectory:      "api2/file/deletedirectory",
	validate.OpGetFileInfo:          "api2/file/getfileinfo",
	validate.OpGetFolderInfo:        "api2/file/getfolderinfo",
	validate.OpSetFileLock:          "api2/file/setfilelock",
	validate.OpGetFileLock:          "api2/file/getfilelock",
	validate.OpClearFileLock:        "api2/file/clearfilelock",
	validate.OpGetTags:              "api2/file/gettags",
	validate.OpSetTags:              "api2/file/settags",
	validate.OpAddTag:               "api2/file/addtag",
	validate.OpDeleteTag:            "api2/file/deletetag",
	validate.OpGetSyncInfo:          "api2/file/getsyncinfo",
	validate.OpGetVaultInfo:         "api2/file/getvaultinfo",
	validate.OpCheckCredentials:     "api2/auth/checkcreds",
	validate.OpCheckCredentialsAD:   "api2/auth/checkcredsad",
	validate.OpIsValidUser:          "api2/auth/isvaliduser",
	validate.OpSetPermissions:       "api2/file/setperms",
	validate.OpCheckPermissions:     "api2/file/checkperms",
	validate.OpListVersions:         "api2/file/listversions",
	validate.OpReadVersion:          "api2/file/readversion",
	validate.OpRestoreVersion:       "api2/file/restoreversion",
	validate.OpDeleteVersion:        "api2/file/deleteversion",
	validate.OpWebEraseToken:        "api2/weberase/token",
	validate.OpWebEraseStore:        "api2/weberase/store",
	validate.OpWebEraseRetrieve:     "api2/weberase/retrieve",
	validate.OpWebEraseUpdate:       "api2/weberase/update",
	validate.OpWebEraseDelete:       "api2/weberase/delete",
	validate.OpWebEraseOneTimeCode:  "api2/weberase/otc",
	validate.OpWebErasePolling:      "api2/weberase/polling",
	validate.OpWebEraseProjectList:  "api2/weberase/projectlist",
}

// Endpoint returns the relative API path for op, or "" for none
func Endpoint(op validate.Operation) string {
	return endpoints[op]
}

// OperationFor maps an endpoint group and action back to its operation.
// testloopback and unknown actions report false.
func OperationFor(group, action string) (validate.Operation, bool) {
	path := "api2/" + strings.ToLower(group) + "/" + strings.ToLower(action)
	for op, ep := range endpoints {
		if ep == path {
			return op, true
		}
	}
	return validate.OpNone, false
}

// JoinURL joins a base address and a relative endpoint with exactly one slash
func JoinURL(base, endpoint string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(endpoint, "/")
}
