package types

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/Project-Sylos/Stash/internal/params"
)

// OutputType selects the shape of listing responses
type OutputType int

const (
	OutputDefault OutputType = iota
	OutputNames
	OutputPathArrays
	OutputPathStrings
	OutputTreeModel
	OutputTreeModelLazy
	OutputGridModel

	outputCount
)

var outputNames = [outputCount]string{
	OutputDefault:       "default",
	OutputNames:         "names",
	OutputPathArrays:    "patharrays",
	OutputPathStrings:   "pathstrings",
	OutputTreeModel:     "treemodel",
	OutputTreeModelLazy: "treemodellazy",
	OutputGridModel:     "gridmodel",
}

// ParseOutputType accepts a shape name or its number
func ParseOutputType(s string) (OutputType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range outputNames {
		if s == name || s == fmt.Sprint(i) {
			return OutputType(i), nil
		}
	}
	return 0, fmt.Errorf("unknown output type %q", s)
}

func (o OutputType) String() string {
	if !o.Valid() {
		return fmt.Sprintf("outputType(%d)", int(o))
	}
	return outputNames[o]
}

// Valid reports whether o is a known shape
func (o OutputType) Valid() bool {
	return o >= 0 && o < outputCount
}

// IsModel reports whether entries are UI model objects rather than plain values
func (o OutputType) IsModel() bool {
	return o >= OutputTreeModel && o <= OutputGridModel
}

// NoOutput is the single listing entry returned for OutputDefault
const NoOutput = "No Output Requested"

// Entry is one file or folder in a listing, before it is shaped
type Entry struct {
	ID       int64
	ParentID int64
	Name     string
	Path     []string // folder segments from the vault root, excluding Name
	Size     int64
	Modified time.Time
	IsFolder bool
	Children int
}

func (e Entry) fullPath() []string {
	out := make([]string, 0, len(e.Path)+1)
	out = append(out, e.Path...)
	return append(out, e.Name)
}

func (e Entry) kind() string {
	if e.IsFolder {
		return "folder"
	}
	return "file"
}

// formatFuncs renders one entry, per shape. OutputDefault has no per-entry form.
var formatFuncs = [outputCount]func(e Entry) any{
	OutputNames: func(e Entry) any { return e.Name },
	OutputPathArrays: func(e Entry) any {
		return e.fullPath()
	},
	OutputPathStrings: func(e Entry) any {
		return strings.Join(e.fullPath(), "/")
	},
	OutputTreeModel: func(e Entry) any {
		return params.New().
			Set("name", e.Name).
			Set("date", e.Modified.UTC().Format(time.DateTime)).
			Set("type", e.kind()).
			Set("size", e.Size).
			Set("id", e.ID).
			Set("tags", []string{})
	},
	OutputTreeModelLazy: func(e Entry) any {
		return params.New().
			Set("name", e.Name).
			Set("date", e.Modified.UTC().Format(time.DateTime)).
			Set("size", e.Size).
			Set("fileId", e.ID)
	},
	OutputGridModel: func(e Entry) any {
		return params.New().
			Set("text", e.Name).
			Set("id", e.ID).
			Set("parent", e.ParentID).
			Set("icon", e.kind()).
			Set("data", params.New().
				Set("bytes", e.Size).
				Set("type", e.kind()).
				Set("date", e.Modified.UTC().Format(time.DateTime)).
				Set("parent_id", e.ParentID).
				Set("numChildren", e.Children))
	},
}

// Format shapes entries for a listing response.
// OutputDefault, and any unknown type, yields the single NoOutput marker.
func (o OutputType) Format(entries []Entry) []any {
	if !o.Valid() || o == OutputDefault {
		return []any{NoOutput}
	}
	fn := formatFuncs[o]
	out := make([]any, 0, len(entries))
	for _, e := range entries {
		out = append(out, fn(e))
	}
	return out
}

// nameFuncs extracts the display name of one listing entry, per shape
var nameFuncs = [outputCount]func(entry any) string{
	OutputDefault:       objectOrScalarName,
	OutputNames:         scalarName,
	OutputPathArrays:    lastSegmentName,
	OutputPathStrings:   basenameName,
	OutputTreeModel:     modelName,
	OutputTreeModelLazy: modelName,
	OutputGridModel:     modelName,
}

// Names extracts entry names from a listing field such as "files" or "folders".
// Unknown output types fall back to the default shape.
func (o OutputType) Names(entries any) []string {
	list, ok := entries.([]any)
	if !ok {
		if strs, isStrings := entries.([]string); isStrings {
			list = make([]any, len(strs))
			for i, s := range strs {
				list[i] = s
			}
		} else {
			return nil
		}
	}

	fn := objectOrScalarName
	if o.Valid() {
		fn = nameFuncs[o]
	}
	out := make([]string, 0, len(list))
	for _, e := range list {
		out = append(out, fn(e))
	}
	return out
}

// ListingNames extracts names from the named listing field of a response
func ListingNames(r *Response, field string, o OutputType) []string {
	v, ok := r.Get(field)
	if !ok {
		return nil
	}
	return o.Names(v)
}

func scalarName(e any) string {
	s, _ := params.Scalar(e)
	return s
}

func objectOrScalarName(e any) string {
	if p, ok := e.(*params.Params); ok {
		if name := p.Str("name"); name != "" {
			return name
		}
		return p.Str("fileName")
	}
	return scalarName(e)
}

func lastSegmentName(e any) string {
	switch t := e.(type) {
	case []any:
		if len(t) == 0 {
			return ""
		}
		return scalarName(t[len(t)-1])
	case []string:
		if len(t) == 0 {
			return ""
		}
		return t[len(t)-1]
	}
	return scalarName(e)
}

func basenameName(e any) string {
	s := strings.TrimRight(scalarName(e), "/")
	if s == "" {
		return ""
	}
	return path.Base(s)
}

// model entries carry "name" for files and "text" for tree nodes
func modelName(e any) string {
	p, ok := e.(*params.Params)
	if !ok {
		return ""
	}
	if name := p.Str("name"); name != "" {
		return name
	}
	return p.Str("text")
}
