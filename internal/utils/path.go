package utils

import (
	"strings"
)

// BaseVaultFolder is the root folder every vault path starts from
const BaseVaultFolder = "My Home"

// JoinPath joins path parts using forward slashes regardless of host OS.
// It strips leading/trailing slashes from each component, then prefixes the result with "/".
// Pattern:
//   - Root path = "/"
//   - Child of root = "/{child}"
//   - Children of that = "/{child}/{grandchild}" etc.
func JoinPath(parts ...string) string {
	cleaned := make([]string, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			continue
		}
		part = strings.Trim(part, "/")
		if part != "" {
			cleaned = append(cleaned, part)
		}
	}

	if len(cleaned) == 0 {
		return "/"
	}

	return "/" + strings.Join(cleaned, "/")
}

// SplitVaultPath turns "docs/2024" or "/My Home/docs/2024" into the folderNames
// segments the vault expects: ["My Home", "docs", "2024"].
func SplitVaultPath(p string) []string {
	segments := []string{BaseVaultFolder}
	for _, part := range strings.Split(strings.ReplaceAll(p, "\\", "/"), "/") {
		part = strings.TrimSpace(part)
		if part == "" || part == "." {
			continue
		}
		if len(segments) == 1 && part == BaseVaultFolder {
			continue
		}
		segments = append(segments, part)
	}
	return segments
}

// JoinVaultPath is the inverse of SplitVaultPath: the base folder is removed
// and the remaining segments are joined with JoinPath.
func JoinVaultPath(segments []string) string {
	if len(segments) > 0 && segments[0] == BaseVaultFolder {
		segments = segments[1:]
	}
	return JoinPath(segments...)
}
