package stub

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/Project-Sylos/Stash/internal/filekey"
	"github.com/Project-Sylos/Stash/internal/params"
	"github.com/Project-Sylos/Stash/internal/types"
	"github.com/Project-Sylos/Stash/internal/utils"
)

// capacityBytes is the vault size reported by getvaultinfo
const capacityBytes int64 = 10 << 30

var (
	errNotFound = errors.New("not found")
	errExists   = errors.New("already exists")
	errInvalid  = errors.New("invalid request")
)

type folder struct {
	id       int64
	parentID int64
	name     string
	modified time.Time
}

type file struct {
	id       int64
	aliasID  int64
	folderID int64
	name     string
	blob     string // content encrypted at rest with the store key
	size     int64
	modified time.Time
	tags     []string
	locked   bool
}

// Store is an in-memory vault: one folder tree rooted at "My Home".
// All methods are safe for concurrent use.
type Store struct {
	mu      sync.Mutex
	key     string
	nextID  int64
	rootID  int64
	folders map[int64]*folder
	files   map[int64]*file
	tokens  map[string]time.Time
	now     func() time.Time
}

// NewStore creates a store holding "My Home" and "My Home/Documents".
// key encrypts file content at rest and must be at least 32 characters.
func NewStore(key string) *Store {
	s := &Store{
		key:     key,
		folders: make(map[int64]*folder),
		files:   make(map[int64]*file),
		tokens:  make(map[string]time.Time),
		now:     time.Now,
	}
	s.rootID = s.addFolder(0, utils.BaseVaultFolder).id
	s.addFolder(s.rootID, "Documents")
	return s
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *Store) addFolder(parentID int64, name string) *folder {
	f := &folder{id: s.id(), parentID: parentID, name: name, modified: s.now()}
	s.folders[f.id] = f
	return f
}

func (s *Store) childFolder(parentID int64, name string) *folder {
	for _, f := range s.folders {
		if f.parentID == parentID && f.name == name {
			return f
		}
	}
	return nil
}

func (s *Store) fileIn(folderID int64, name string) *file {
	for _, f := range s.files {
		if f.folderID == folderID && f.name == name {
			return f
		}
	}
	return nil
}

// walk follows names from the root. A leading "My Home" is optional.
// With create set, missing folders are made along the way.
func (s *Store) walk(names []string, create bool) (*folder, error) {
	cur := s.folders[s.rootID]
	if len(names) > 0 && names[0] == utils.BaseVaultFolder {
		names = names[1:]
	}
	for _, name := range names {
		next := s.childFolder(cur.id, name)
		if next == nil {
			if !create {
				return nil, errors.Wrapf(errNotFound, "folder %q", name)
			}
			next = s.addFolder(cur.id, name)
		}
		cur = next
	}
	return cur, nil
}

// resolveFolder finds the folder named by idKey or namesKey. folderId 0 is
// the root when allowRoot is set.
func (s *Store) resolveFolder(p *params.Params, idKey, namesKey string, allowRoot bool) (*folder, error) {
	if id, ok := p.Int(idKey); ok {
		if id == 0 && allowRoot {
			return s.folders[s.rootID], nil
		}
		if f, found := s.folders[id]; found {
			return f, nil
		}
		if id > 0 {
			return nil, errors.Wrapf(errNotFound, "folder %d", id)
		}
	}
	if p.ListLen(namesKey) > 0 {
		return s.walk(p.Strings(namesKey), false)
	}
	return nil, errors.Wrap(errInvalid, "no folder specified")
}

func (s *Store) resolveFile(p *params.Params) (*file, error) {
	if id, ok := p.Int("fileId"); ok && id > 0 {
		if f, found := s.files[id]; found {
			return f, nil
		}
		return nil, errors.Wrapf(errNotFound, "file %d", id)
	}
	dir, err := s.resolveFolder(p, "folderId", "folderNames", false)
	if err != nil {
		return nil, err
	}
	f := s.fileIn(dir.id, p.Str("fileName"))
	if f == nil {
		return nil, errors.Wrapf(errNotFound, "file %q", p.Str("fileName"))
	}
	return f, nil
}

func (s *Store) path(folderID int64) []string {
	var segments []string
	for f := s.folders[folderID]; f != nil; f = s.folders[f.parentID] {
		segments = append([]string{f.name}, segments...)
	}
	return segments
}

func (s *Store) subfolders(id int64) []*folder {
	var out []*folder
	for _, f := range s.folders {
		if f.parentID == id {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

func (s *Store) filesIn(id int64) []*file {
	var out []*file
	for _, f := range s.files {
		if f.folderID == id {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

func (s *Store) folderEntry(f *folder) types.Entry {
	var path []string
	if f.parentID != 0 {
		path = s.path(f.parentID)
	}
	return types.Entry{
		ID:       f.id,
		ParentID: f.parentID,
		Name:     f.name,
		Path:     path,
		Modified: f.modified,
		IsFolder: true,
		Children: len(s.subfolders(f.id)) + len(s.filesIn(f.id)),
	}
}

func (s *Store) fileEntry(f *file) types.Entry {
	return types.Entry{
		ID:       f.id,
		ParentID: f.folderID,
		Name:     f.name,
		Path:     s.path(f.folderID),
		Size:     f.size,
		Modified: f.modified,
	}
}

func matches(name, search string) bool {
	return search == "" || strings.Contains(strings.ToLower(name), strings.ToLower(search))
}

// ListFiles returns the files in the source folder, filtered by search
func (s *Store) ListFiles(p *params.Params) ([]types.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir, err := s.resolveFolder(p, "folderId", "folderNames", true)
	if err != nil {
		return nil, err
	}
	var out []types.Entry
	for _, f := range s.filesIn(dir.id) {
		if matches(f.name, p.Str("search")) {
			out = append(out, s.fileEntry(f))
		}
	}
	return out, nil
}

// ListFolders returns the subfolders of the source folder, filtered by search
func (s *Store) ListFolders(p *params.Params) ([]types.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir, err := s.resolveFolder(p, "folderId", "folderNames", true)
	if err != nil {
		return nil, err
	}
	var out []types.Entry
	for _, f := range s.subfolders(dir.id) {
		if matches(f.name, p.Str("search")) {
			out = append(out, s.folderEntry(f))
		}
	}
	return out, nil
}

// ListAll returns the source folder followed by everything below it, depth first
func (s *Store) ListAll(p *params.Params) ([]types.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir, err := s.resolveFolder(p, "folderId", "folderNames", true)
	if err != nil {
		return nil, err
	}
	search := p.Str("search")
	out := []types.Entry{s.folderEntry(dir)}
	var visit func(id int64)
	visit = func(id int64) {
		for _, f := range s.filesIn(id) {
			if matches(f.name, search) {
				out = append(out, s.fileEntry(f))
			}
		}
		for _, sub := range s.subfolders(id) {
			if matches(sub.name, search) {
				out = append(out, s.folderEntry(sub))
			}
			visit(sub.id)
		}
	}
	visit(dir.id)
	return out, nil
}

// FolderID resolves the source folder
func (s *Store) FolderID(p *params.Params) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir, err := s.resolveFolder(p, "folderId", "folderNames", false)
	if err != nil {
		return 0, err
	}
	return dir.id, nil
}

// CreateDirectory creates the source folder path, including missing parents.
// An existing folder is returned as is.
func (s *Store) CreateDirectory(p *params.Params) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ListLen("folderNames") > 0 {
		dir, err := s.walk(p.Strings("folderNames"), true)
		if err != nil {
			return 0, err
		}
		return dir.id, nil
	}
	dir, err := s.resolveFolder(p, "folderId", "folderNames", false)
	if err != nil {
		return 0, err
	}
	return dir.id, nil
}

// movable resolves the source folder, refusing the root
func (s *Store) movable(p *params.Params) (*folder, error) {
	dir, err := s.resolveFolder(p, "folderId", "folderNames", false)
	if err != nil {
		return nil, err
	}
	if dir.id == s.rootID {
		return nil, errors.Wrap(errInvalid, "the base folder cannot be changed")
	}
	return dir, nil
}

// RenameDirectory renames the source folder to the last segment of destFolderNames
func (s *Store) RenameDirectory(p *params.Params) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir, err := s.movable(p)
	if err != nil {
		return err
	}
	names := p.Strings("destFolderNames")
	if len(names) == 0 {
		return errors.Wrap(errInvalid, "destFolderNames must name the new folder")
	}
	name := names[len(names)-1]
	if s.childFolder(dir.parentID, name) != nil {
		return errors.Wrapf(errExists, "folder %q", name)
	}
	dir.name = name
	dir.modified = s.now()
	return nil
}

// MoveDirectory moves the source folder. destFolderNames is the full new
// path; destFolderId is the new parent.
func (s *Store) MoveDirectory(p *params.Params) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir, err := s.movable(p)
	if err != nil {
		return err
	}

	parent, name := (*folder)(nil), dir.name
	if names := p.Strings("destFolderNames"); len(names) > 0 {
		name = names[len(names)-1]
		parent, err = s.walk(names[:len(names)-1], false)
	} else {
		parent, err = s.resolveFolder(p, "destFolderId", "", false)
	}
	if err != nil {
		return err
	}
	for cur := parent; cur != nil; cur = s.folders[cur.parentID] {
		if cur.id == dir.id {
			return errors.Wrap(errInvalid, "a folder cannot be moved into itself")
		}
	}
	if existing := s.childFolder(parent.id, name); existing != nil && existing != dir {
		return errors.Wrapf(errExists, "folder %q", name)
	}
	dir.parentID = parent.id
	dir.name = name
	dir.modified = s.now()
	return nil
}

// CopyDirectory copies the source folder tree into the destination folder
func (s *Store) CopyDirectory(p *params.Params) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir, err := s.movable(p)
	if err != nil {
		return 0, err
	}
	parent, err := s.resolveFolder(p, "destFolderId", "destFolderNames", false)
	if err != nil {
		return 0, err
	}
	for cur := parent; cur != nil; cur = s.folders[cur.parentID] {
		if cur.id == dir.id {
			return 0, errors.Wrap(errInvalid, "a folder cannot be copied into itself")
		}
	}
	if s.childFolder(parent.id, dir.name) != nil {
		return 0, errors.Wrapf(errExists, "folder %q", dir.name)
	}
	return s.copyTree(dir, parent.id).id, nil
}

func (s *Store) copyTree(src *folder, parentID int64) *folder {
	dst := s.addFolder(parentID, src.name)
	for _, f := range s.filesIn(src.id) {
		cp := *f
		cp.id, cp.aliasID, cp.folderID = s.id(), s.id(), dst.id
		cp.tags = append([]string(nil), f.tags...)
		s.files[cp.id] = &cp
	}
	for _, sub := range s.subfolders(src.id) {
		s.copyTree(sub, dst.id)
	}
	return dst
}

// DeleteDirectory removes the source folder and everything below it
func (s *Store) DeleteDirectory(p *params.Params) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir, err := s.movable(p)
	if err != nil {
		return err
	}
	s.deleteTree(dir.id)
	return nil
}

func (s *Store) deleteTree(id int64) {
	for _, sub := range s.subfolders(id) {
		s.deleteTree(sub.id)
	}
	for _, f := range s.filesIn(id) {
		delete(s.files, f.id)
	}
	delete(s.folders, id)
}

func (s *Store) folderSummary(dir *folder) *params.Params {
	subDirs := []string{}
	for _, sub := range s.subfolders(dir.id) {
		subDirs = append(subDirs, sub.name)
	}
	files := []string{}
	for _, f := range s.filesIn(dir.id) {
		files = append(files, f.name)
	}
	isRoot := 0
	if dir.id == s.rootID {
		isRoot = 1
	}
	return params.New().
		Set("folderId", dir.id).
		Set("dirName", dir.name).
		Set("dirTimestamp", dir.modified.Unix()).
		Set("parentId", dir.parentID).
		Set("isRoot", isRoot).
		Set("numSubDirs", len(subDirs)).
		Set("subDirs", subDirs).
		Set("numFiles", len(files)).
		Set("files", files)
}

// FolderInfo describes the source folder
func (s *Store) FolderInfo(p *params.Params) (*params.Params, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir, err := s.resolveFolder(p, "folderId", "folderNames", false)
	if err != nil {
		return nil, err
	}
	return s.folderSummary(dir), nil
}

// SyncInfo describes the source folder and its direct elements
func (s *Store) SyncInfo(p *params.Params) (*params.Params, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir, err := s.resolveFolder(p, "folderId", "folderNames", false)
	if err != nil {
		return nil, err
	}
	elements := []any{}
	for _, sub := range s.subfolders(dir.id) {
		elements = append(elements, params.New().
			Set("id", sub.id).
			Set("name", sub.name).
			Set("type", "folder").
			Set("timestamp", sub.modified.Unix()))
	}
	for _, f := range s.filesIn(dir.id) {
		elements = append(elements, params.New().
			Set("id", f.id).
			Set("name", f.name).
			Set("type", "file").
			Set("size", f.size).
			Set("timestamp", f.modified.Unix()))
	}
	isRoot := 0
	if dir.id == s.rootID {
		isRoot = 1
	}
	return params.New().
		Set("id", dir.id).
		Set("dirName", dir.name).
		Set("dirTimestamp", dir.modified.Unix()).
		Set("parentId", dir.parentID).
		Set("isRoot", isRoot).
		Set("fileSize", 0).
		Set("elements", elements).
		Set("numElements", len(elements)), nil
}

// VaultInfo summarizes the whole vault
func (s *Store) VaultInfo() *params.Params {
	s.mu.Lock()
	defer s.mu.Unlock()

	var used int64
	for _, f := range s.files {
		used += f.size
	}
	return params.New().
		Set("numUsers", 1).
		Set("numFiles", len(s.files)).
		Set("numDirs", len(s.folders)).
		Set("strBaseDir", utils.BaseVaultFolder).
		Set("numBytesTotal", capacityBytes).
		Set("numBytesInUse", used).
		Set("numBytesFree", capacityBytes-used)
}

// Write stores content named name in the destination folder. With
// overwriteFile set it replaces overwriteFileId instead.
func (s *Store) Write(p *params.Params, name string, content []byte) (fileID, aliasID int64, err error) {
	blob, err := filekey.Encrypt(s.key, string(content), false)
	if err != nil {
		return 0, 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if n, _ := p.Int("overwriteFile"); n == 1 {
		id, _ := p.Int("overwriteFileId")
		f, found := s.files[id]
		if !found {
			return 0, 0, errors.Wrapf(errNotFound, "file %d", id)
		}
		f.blob, f.size, f.modified = blob, int64(len(content)), s.now()
		return f.id, f.aliasID, nil
	}

	dir, err := s.resolveFolder(p, "destFolderId", "destFolderNames", false)
	if err != nil {
		return 0, 0, err
	}
	if s.fileIn(dir.id, name) != nil {
		return 0, 0, errors.Wrapf(errExists, "file %q", name)
	}
	f := &file{
		id:       s.id(),
		aliasID:  s.id(),
		folderID: dir.id,
		name:     name,
		blob:     blob,
		size:     int64(len(content)),
		modified: s.now(),
	}
	s.files[f.id] = f
	return f.id, f.aliasID, nil
}

// Read returns the content of the source file
func (s *Store) Read(p *params.Params) ([]byte, error) {
	s.mu.Lock()
	f, err := s.resolveFile(p)
	var blob string
	if err == nil {
		blob = f.blob
	}
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	content, err := filekey.Decrypt(s.key, blob, false)
	if err != nil {
		return nil, err
	}
	return []byte(content), nil
}

// FileInfo describes the source file
func (s *Store) FileInfo(p *params.Params) (*params.Params, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.resolveFile(p)
	if err != nil {
		return nil, err
	}
	return params.New().
		Set("fileId", f.id).
		Set("fileAliasId", f.aliasID).
		Set("fileName", f.name).
		Set("fileSize", f.size).
		Set("fileTimestamp", f.modified.Unix()).
		Set("folderId", f.folderID), nil
}

// Copy copies the source file to destFileName in the destination folder
func (s *Store) Copy(p *params.Params) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	src, err := s.resolveFile(p)
	if err != nil {
		return 0, err
	}
	dir, err := s.resolveFolder(p, "destFolderId", "destFolderNames", false)
	if err != nil {
		return 0, err
	}
	name := p.Str("destFileName")
	if s.fileIn(dir.id, name) != nil {
		return 0, errors.Wrapf(errExists, "file %q", name)
	}
	cp := *src
	cp.id, cp.aliasID, cp.folderID, cp.name = s.id(), s.id(), dir.id, name
	cp.tags = append([]string(nil), src.tags...)
	cp.locked = false
	cp.modified = s.now()
	s.files[cp.id] = &cp
	return cp.aliasID, nil
}

// Move moves the source file into the destination folder, keeping its
// name unless destFileName is given
func (s *Store) Move(p *params.Params) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.resolveFile(p)
	if err != nil {
		return 0, err
	}
	dir, err := s.resolveFolder(p, "destFolderId", "destFolderNames", false)
	if err != nil {
		return 0, err
	}
	name := f.name
	if n := p.Str("destFileName"); n != "" {
		name = n
	}
	if existing := s.fileIn(dir.id, name); existing != nil && existing != f {
		return 0, errors.Wrapf(errExists, "file %q", name)
	}
	f.folderID, f.name, f.modified = dir.id, name, s.now()
	return f.aliasID, nil
}

// Rename gives the source file the name destFileName
func (s *Store) Rename(p *params.Params) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.resolveFile(p)
	if err != nil {
		return err
	}
	name := p.Str("destFileName")
	if existing := s.fileIn(f.folderID, name); existing != nil && existing != f {
		return errors.Wrapf(errExists, "file %q", name)
	}
	f.name, f.modified = name, s.now()
	return nil
}

// Delete removes the source file
func (s *Store) Delete(p *params.Params) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.resolveFile(p)
	if err != nil {
		return err
	}
	delete(s.files, f.id)
	return nil
}

// Tags applies edit to the tags of the source file and returns the result
func (s *Store) Tags(p *params.Params, edit func(tags []string) []string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.resolveFile(p)
	if err != nil {
		return nil, err
	}
	if edit != nil {
		f.tags = edit(f.tags)
	}
	return append([]string{}, f.tags...), nil
}

// Lock sets, clears or (with nil) reads the lock on the source file
func (s *Store) Lock(p *params.Params, set *bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.resolveFile(p)
	if err != nil {
		return false, err
	}
	if set != nil {
		f.locked = *set
	}
	return f.locked, nil
}

// Token issues a WebErase token
func (s *Store) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	token := uuid.NewString()
	s.tokens[token] = s.now()
	return token
}

// ValidToken reports whether token was issued by this store
func (s *Store) ValidToken(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.tokens[token]
	return ok
}
