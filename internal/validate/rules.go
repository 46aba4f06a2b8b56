package validate

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/Project-Sylos/Stash/internal/params"
)

// ValidationError reports the first rule an operation's params broke
type ValidationError struct {
	Op     Operation
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Reason)
}

// rule checks params and returns the failure reason, or "" when satisfied
type rule func(p *params.Params) string

// Params checks p against the rules registered for op. The first failing rule wins.
// A nil or empty bag fails every operation that has rules.
func Params(op Operation, p *params.Params) error {
	if !op.Valid() {
		return errors.Wrapf(ErrUnrecognizedOperation, "operation %d", int(op))
	}
	rules := ruleTable[op]
	if len(rules) == 0 {
		return nil
	}
	if p.Len() == 0 {
		return errors.WithStack(&ValidationError{Op: op, Reason: "Parameters Can't Be Null"})
	}
	for _, r := range rules {
		if reason := r(p); reason != "" {
			return errors.WithStack(&ValidationError{Op: op, Reason: reason})
		}
	}
	return nil
}

// ParamsFor parses name and validates p against the named operation
func ParamsFor(name string, p *params.Params) error {
	op, err := ParseOperation(name)
	if err != nil {
		return err
	}
	return Params(op, p)
}

// ruleTable maps every operation to its rules. An empty entry always passes.
var ruleTable = [opCount][]rule{
	OpNone:  nil,
	OpRead:  {source(false, false), fileKey},
	OpWrite: {dest(true, false), overwrite, fileKey},
	OpCopy:  {source(false, false), dest(false, false)},
	OpMove:  {source(false, false), dest(true, false)},

	OpDelete: {source(false, false)},
	OpRename: {source(false, false), dest(false, true)},

	OpListAll:              {source(true, true), search(false)},
	OpListFiles:            {source(true, true), outputType, search(false)},
	OpListSmartFolderFiles: {outputType, smartFolderID},
	OpListFolders:          {source(true, true), outputType, search(false)},

	OpGetFolderID:     {source(true, false)},
	OpCreateDirectory: {source(true, false)},
	OpRenameDirectory: {source(true, false), dest(true, false)},
	OpMoveDirectory:   {source(true, false), dest(true, false)},
	OpCopyDirectory:   {source(true, false), dest(true, false)},
	OpDeleteDirectory: {source(true, false)},

	OpGetFileInfo:   {source(false, false)},
	OpGetFolderInfo: {source(true, false)},
	OpGetSyncInfo:   {source(true, false)},
	OpGetVaultInfo:  nil,

	OpSetFileLock:   {source(false, false)},
	OpGetFileLock:   {source(false, false)},
	OpClearFileLock: {source(false, false)},

	OpGetTags:   {source(false, false)},
	OpSetTags:   {source(false, false), tags},
	OpAddTag:    {source(false, false), tag},
	OpDeleteTag: {source(false, false), tag},

	OpCheckCredentials:   {creds(true, true, false, false)},
	OpCheckCredentialsAD: {creds(false, true, true, true)},
	OpIsValidUser:        {creds(false, true, false, false)},
	OpSetPermissions:     {setPerms},
	OpCheckPermissions:   {checkPerms},

	OpListVersions:   {source(false, false)},
	OpReadVersion:    {source(false, false), versionID, fileKey},
	OpRestoreVersion: {source(false, false), versionID},
	OpDeleteVersion:  {source(false, false), versionID},

	OpWebEraseToken:       nil,
	OpWebEraseStore:       {tokenKey, fileKey, storeFolder},
	OpWebEraseRetrieve:    {tokenKey, fileKey},
	OpWebEraseUpdate:      {tokenKey, fileKey},
	OpWebEraseDelete:      {tokenKey},
	OpWebEraseOneTimeCode: {tokenKey},
	OpWebErasePolling:     {tokenKey},
	OpWebEraseProjectList: nil,
}

// atLeast reports whether key holds an integer >= floor.
// Non-numeric values count as absent.
func atLeast(p *params.Params, key string, floor int64) bool {
	n, ok := p.Int(key)
	return ok && n >= floor
}

func source(folderOnly, allowZeroIDs bool) rule {
	return func(p *params.Params) string {
		if folderOnly {
			floor := int64(1)
			if allowZeroIDs {
				floor = -1
			}
			if atLeast(p, "folderId", floor) || p.ListLen("folderNames") > 0 {
				return ""
			}
			return "Source Parameters Invalid - folderId or folderNames MUST be specified"
		}

		floor := int64(1)
		if allowZeroIDs {
			floor = 0
		}
		if atLeast(p, "fileId", floor) {
			return ""
		}
		if p.Str("fileName") != "" && (atLeast(p, "folderId", 1) || p.ListLen("folderNames") > 0) {
			return ""
		}
		return "Source Parameters Invalid - fileId or fileName plus either folderId or folderNames MUST be specified"
	}
}

func dest(folderOnly, nameOnly bool) rule {
	return func(p *params.Params) string {
		if folderOnly && nameOnly {
			return "folderOnly and nameOnly cannot both be T"
		}
		hasFolder := atLeast(p, "destFolderId", 1) || p.ListLen("destFolderNames") > 0
		if folderOnly {
			if hasFolder {
				return ""
			}
			return "Destination Parameters Invalid - destFolderId or destFolderNames MUST be specified"
		}
		if p.Str("destFileName") != "" && (nameOnly || hasFolder) {
			return ""
		}
		return "Destination Parameters Invalid - destFileName plus either destFolderId or destFolderNames MUST be specified"
	}
}

func outputType(p *params.Params) string {
	if atLeast(p, "outputType", 0) {
		return ""
	}
	return "Source Parameters Invalid - outputType MUST be specified"
}

func search(required bool) rule {
	return func(p *params.Params) string {
		if required && p.IsEmpty("search") {
			return "Search Terms Invalid - search parameter MUST be specified"
		}
		return ""
	}
}

func smartFolderID(p *params.Params) string {
	if atLeast(p, "sfId", 1) {
		return ""
	}
	return "Invalid SmartFolder ID"
}

func overwrite(p *params.Params) string {
	if p.IsEmpty("overwriteFile") {
		return ""
	}
	flag, ok := p.Int("overwriteFile")
	if !ok || flag < 0 || flag > 1 {
		return "Invalid overwriteFile value"
	}
	if flag == 1 {
		if p.IsEmpty("overwriteFileId") {
			return "overwriteFileId parameter must be specified with overwriteFile"
		}
		if !atLeast(p, "overwriteFileId", 1) {
			return "Invalid value for overwriteFileId"
		}
	}
	return ""
}

func fileKey(p *params.Params) string {
	if p.Str("fileKey") == "" {
		return "Invalid fileKey Parameter"
	}
	return ""
}

func creds(checkFileKey, checkUsername, checkAPIID, checkAPIPw bool) rule {
	checks := []struct {
		on  bool
		key string
	}{
		{checkFileKey, "fileKey"},
		{checkUsername, "accountUsername"},
		{checkAPIID, "apiid"},
		{checkAPIPw, "apipw"},
	}
	return func(p *params.Params) string {
		for _, c := range checks {
			if c.on && p.Str(c.key) == "" {
				return "Source Parameters Invalid - " + c.key + " MUST be specified and not blank"
			}
		}
		return ""
	}
}

func setPerms(p *params.Params) string {
	if p.IsEmpty("permJson") {
		return "Invalid permissions Json parameter"
	}
	return ""
}

func checkPerms(p *params.Params) string {
	for _, key := range []string{"objectUserId", "objectId", "objectIdType"} {
		if !atLeast(p, key, 1) {
			return "Invalid " + key + " parameter"
		}
	}
	if !atLeast(p, "requestedAccess", 0) {
		return "Invalid requestedAccess parameter"
	}
	return ""
}

func tag(p *params.Params) string {
	if p.Str("tag") == "" {
		return "Invalid tag parameter"
	}
	return ""
}

func tags(p *params.Params) string {
	if p.IsEmpty("tags") {
		return "Invalid tags parameter"
	}
	return ""
}

func versionID(p *params.Params) string {
	if atLeast(p, "versionId", 1) {
		return ""
	}
	return "Invalid versionId parameter"
}

func tokenKey(p *params.Params) string {
	if p.Str("token_key") == "" {
		return "Invalid token_key parameter"
	}
	return ""
}

func storeFolder(p *params.Params) string {
	if atLeast(p, "destFolderId", 1) {
		return ""
	}
	return "Invalid destFolderId parameter"
}
