package main

import (
	"context"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/Project-Sylos/Stash/sdk"
)

const (
	commandHelp = "help"
	commandQuit = "quit"
)

// session is the state shared by every command of one shell
type session struct {
	client  *sdk.Client
	ctx     context.Context
	fileKey string
	out     io.Writer
}

var commands map[string]commandInfo

func init() {
	commands = make(map[string]commandInfo)

	add := func(c commandInfo) {
		commands[c.Name] = c
	}

	add(commandInfo{Name: commandHelp, Summary: "list commands", Function: help})
	add(commandInfo{Name: "ping", Summary: "check the vault connection", Function: ping})
	add(commandInfo{Name: "info", Summary: "show vault usage", Function: info})

	add(commandInfo{
		Name: "ls", Summary: "list a folder", Function: ls,
		Args: []commandArg{{"folder", true}},
	})
	add(commandInfo{
		Name: "find", Summary: "search a folder tree", Function: find,
		Args: []commandArg{{"folder", false}, {"search", true}},
	})
	add(commandInfo{
		Name: "mkdir", Summary: "create a folder and its parents", Function: mkdir,
		Args: []commandArg{{"folder", false}},
	})
	add(commandInfo{
		Name: "rmdir", Summary: "delete a folder tree", Function: rmdir,
		Args: []commandArg{{"folder", false}},
	})
	add(commandInfo{
		Name: "mvdir", Summary: "move a folder to a new path", Function: mvdir,
		Args: []commandArg{{"folder", false}, {"new path", false}},
	})
	add(commandInfo{
		Name: "renamedir", Summary: "rename a folder in place", Function: renamedir,
		Args: []commandArg{{"folder", false}, {"new name", false}},
	})
	add(commandInfo{
		Name: "cpdir", Summary: "copy a folder tree into another folder", Function: cpdir,
		Args: []commandArg{{"folder", false}, {"destination folder", false}},
	})

	add(commandInfo{
		Name: "put", Summary: "upload a local file", Function: put,
		Args: []commandArg{{"local file", false}, {"folder", true}},
	})
	add(commandInfo{
		Name: "overwrite", Summary: "replace a vault file with a local file", Function: overwrite,
		Args: []commandArg{{"local file", false}, {"vault file", false}},
	})
	add(commandInfo{
		Name: "get", Summary: "download a vault file", Function: get,
		Args: []commandArg{{"vault file", false}, {"local path", true}},
	})
	add(commandInfo{
		Name: "rm", Summary: "delete a file", Function: rm,
		Args: []commandArg{{"vault file", false}},
	})
	add(commandInfo{
		Name: "mv", Summary: "move a file into a folder", Function: mv,
		Args: []commandArg{{"vault file", false}, {"destination folder", false}},
	})
	add(commandInfo{
		Name: "cp", Summary: "copy a file into a folder", Function: cp,
		Args: []commandArg{{"vault file", false}, {"destination folder", false}, {"new name", true}},
	})
	add(commandInfo{
		Name: "rename", Summary: "rename a file in place", Function: rename,
		Args: []commandArg{{"vault file", false}, {"new name", false}},
	})
	add(commandInfo{
		Name: "stat", Summary: "show file details", Function: stat,
		Args: []commandArg{{"vault file", false}},
	})
	add(commandInfo{
		Name: "lock", Summary: "lock a file", Function: lock,
		Args: []commandArg{{"vault file", false}},
	})
	add(commandInfo{
		Name: "unlock", Summary: "unlock a file", Function: unlock,
		Args: []commandArg{{"vault file", false}},
	})
	add(commandInfo{
		Name: "tags", Summary: "show or replace the tags on a file", Function: tags,
		Args: []commandArg{{"vault file", false}, {"tag", true}}, Variadic: true,
	})
	add(commandInfo{
		Name: "history", Summary: "show recent requests from the journal", Function: history,
		Args: []commandArg{{"count", true}},
	})
}

// check turns a failed envelope into an error naming the command
func check(what string, resp *sdk.Response, err error) error {
	if err != nil {
		return errors.Wrap(err, what)
	}
	if resp.Code != sdk.CodeOK {
		return errors.Errorf("%s: %s", what, resp)
	}
	return nil
}

// splitFile turns "Documents/a.txt" into its folder and name
func splitFile(p string) (string, string) {
	p = strings.Trim(p, "/")
	return path.Dir(p), path.Base(p)
}

func (s *session) fileByPath(p string) *sdk.Params {
	folder, name := splitFile(p)
	return sdk.FileByPath(folder, name)
}

func help(s *session, args []string) error {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(s.out, "Commands:")
	for _, name := range names {
		c := commands[name]
		fmt.Fprintf(s.out, "%-50s %s\n", c.Usage(), c.Summary)
	}
	fmt.Fprintf(s.out, "   %-47s %s\n", commandQuit, "leave the shell")
	return nil
}

func ping(s *session, args []string) error {
	resp, err := s.client.CheckVaultConnection(s.ctx)
	if err := check("ping", resp, err); err != nil {
		return err
	}
	fmt.Fprintln(s.out, "OK")
	return nil
}

func info(s *session, args []string) error {
	resp, err := s.client.GetVaultInfo(s.ctx)
	if err := check("info", resp, err); err != nil {
		return err
	}
	var v struct {
		NumUsers      int64  `json:"numUsers"`
		NumFiles      int64  `json:"numFiles"`
		NumDirs       int64  `json:"numDirs"`
		StrBaseDir    string `json:"strBaseDir"`
		NumBytesTotal int64  `json:"numBytesTotal"`
		NumBytesInUse int64  `json:"numBytesInUse"`
		NumBytesFree  int64  `json:"numBytesFree"`
	}
	if err := resp.Decode("vaultInfo", &v); err != nil {
		return errors.Wrap(err, "malformed vaultInfo")
	}
	fmt.Fprintf(s.out, "Base folder: %s\n", v.StrBaseDir)
	fmt.Fprintf(s.out, "Users: %d  Folders: %d  Files: %d\n", v.NumUsers, v.NumDirs, v.NumFiles)
	fmt.Fprintf(s.out, "Bytes: %d used, %d free, %d total\n", v.NumBytesInUse, v.NumBytesFree, v.NumBytesTotal)
	return nil
}

func ls(s *session, args []string) error {
	folder := ""
	if len(args) > 0 {
		folder = args[0]
	}
	src := sdk.Listing(sdk.FolderByPath(folder), sdk.OutputNames)

	resp, folders, err := s.client.ListFolders(s.ctx, src)
	if err := check("ls", resp, err); err != nil {
		return err
	}
	resp, files, err := s.client.ListFiles(s.ctx, src)
	if err := check("ls", resp, err); err != nil {
		return err
	}

	for _, name := range folders {
		fmt.Fprintf(s.out, "%s/\n", name)
	}
	for _, name := range files {
		fmt.Fprintln(s.out, name)
	}
	return nil
}

func find(s *session, args []string) error {
	src := sdk.FolderByPath(args[0])
	if len(args) > 1 {
		src.Set("search", args[1])
	}
	resp, err := s.client.ListAll(s.ctx, src)
	if err := check("find", resp, err); err != nil {
		return err
	}
	// the first entry is the folder itself
	names := sdk.ListingNames(resp, "all", sdk.OutputGridModel)
	if len(names) > 0 {
		names = names[1:]
	}
	for _, name := range names {
		fmt.Fprintln(s.out, name)
	}
	return nil
}

func mkdir(s *session, args []string) error {
	resp, id, err := s.client.CreateDirectory(s.ctx, sdk.FolderByPath(args[0]))
	if err := check("mkdir", resp, err); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "folder %d\n", id)
	return nil
}

func rmdir(s *session, args []string) error {
	resp, err := s.client.DeleteDirectory(s.ctx, sdk.FolderByPath(args[0]))
	return check("rmdir", resp, err)
}

func mvdir(s *session, args []string) error {
	resp, err := s.client.MoveDirectory(s.ctx, sdk.FolderByPath(args[0]), sdk.DestFolderByPath(args[1]))
	return check("mvdir", resp, err)
}

func renamedir(s *session, args []string) error {
	target := path.Join(path.Dir(strings.Trim(args[0], "/")), args[1])
	resp, err := s.client.RenameDirectory(s.ctx, sdk.FolderByPath(args[0]), sdk.DestFolderByPath(target))
	return check("renamedir", resp, err)
}

func cpdir(s *session, args []string) error {
	resp, id, err := s.client.CopyDirectory(s.ctx, sdk.FolderByPath(args[0]), sdk.DestFolderByPath(args[1]))
	if err := check("cpdir", resp, err); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "folder %d\n", id)
	return nil
}

func put(s *session, args []string) error {
	folder := ""
	if len(args) > 1 {
		folder = args[1]
	}
	dst := sdk.DestFolderByPath(folder).Set("fileKey", s.fileKey)
	resp, err := s.client.PutFile(s.ctx, args[0], dst)
	if err := check("put", resp, err); err != nil {
		return err
	}
	id, _ := resp.Int("fileId")
	fmt.Fprintf(s.out, "file %d\n", id)
	return nil
}

func overwrite(s *session, args []string) error {
	resp, err := s.client.GetFileInfo(s.ctx, s.fileByPath(args[1]))
	if err := check("overwrite", resp, err); err != nil {
		return err
	}
	var target struct {
		FileID int64 `json:"fileId"`
	}
	if err := resp.Decode("fileInfo", &target); err != nil {
		return errors.Wrap(err, "malformed fileInfo")
	}

	folder, _ := splitFile(args[1])
	dst := sdk.Overwrite(sdk.DestFolderByPath(folder).Set("fileKey", s.fileKey), target.FileID)
	resp, err = s.client.PutFile(s.ctx, args[0], dst)
	return check("overwrite", resp, err)
}

func get(s *session, args []string) error {
	_, name := splitFile(args[0])
	out := name
	if len(args) > 1 {
		out = args[1]
	}
	if abs, err := filepath.Abs(out); err == nil {
		out = abs
	}

	resp, err := s.client.GetFile(s.ctx, s.fileByPath(args[0]).Set("fileKey", s.fileKey), out)
	if err := check("get", resp, err); err != nil {
		return err
	}
	fmt.Fprintln(s.out, out)
	return nil
}

func rm(s *session, args []string) error {
	resp, err := s.client.DeleteFile(s.ctx, s.fileByPath(args[0]))
	return check("rm", resp, err)
}

func mv(s *session, args []string) error {
	resp, err := s.client.MoveFile(s.ctx, s.fileByPath(args[0]), sdk.DestFolderByPath(args[1]))
	return check("mv", resp, err)
}

func cp(s *session, args []string) error {
	_, name := splitFile(args[0])
	if len(args) > 2 {
		name = args[2]
	}
	resp, err := s.client.CopyFile(s.ctx, s.fileByPath(args[0]), sdk.DestFile(args[1], name))
	return check("cp", resp, err)
}

func rename(s *session, args []string) error {
	resp, err := s.client.RenameFile(s.ctx, s.fileByPath(args[0]), sdk.DestName(args[1]))
	return check("rename", resp, err)
}

func stat(s *session, args []string) error {
	resp, err := s.client.GetFileInfo(s.ctx, s.fileByPath(args[0]))
	if err := check("stat", resp, err); err != nil {
		return err
	}
	var v struct {
		FileID        int64  `json:"fileId"`
		FileAliasID   int64  `json:"fileAliasId"`
		FileName      string `json:"fileName"`
		FileSize      int64  `json:"fileSize"`
		FileTimestamp int64  `json:"fileTimestamp"`
	}
	if err := resp.Decode("fileInfo", &v); err != nil {
		return errors.Wrap(err, "malformed fileInfo")
	}
	fmt.Fprintf(s.out, "%s  id=%d alias=%d size=%d modified=%s\n",
		v.FileName, v.FileID, v.FileAliasID, v.FileSize,
		time.Unix(v.FileTimestamp, 0).UTC().Format(time.DateTime))
	return nil
}

func lock(s *session, args []string) error {
	resp, err := s.client.SetFileLock(s.ctx, s.fileByPath(args[0]))
	return check("lock", resp, err)
}

func unlock(s *session, args []string) error {
	resp, err := s.client.ClearFileLock(s.ctx, s.fileByPath(args[0]))
	return check("unlock", resp, err)
}

func tags(s *session, args []string) error {
	src := s.fileByPath(args[0])

	var (
		resp *sdk.Response
		err  error
	)
	if len(args) > 1 {
		resp, err = s.client.SetTags(s.ctx, src, args[1:])
	} else {
		resp, err = s.client.GetTags(s.ctx, src)
	}
	if err := check("tags", resp, err); err != nil {
		return err
	}
	fmt.Fprintln(s.out, strings.Join(resp.Extra.Strings("tags"), ", "))
	return nil
}

func history(s *session, args []string) error {
	j := s.client.Journal()
	if j == nil {
		fmt.Fprintln(s.out, "No journal configured (set client.journal_path).")
		return nil
	}

	limit := 10
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 {
			return errors.Errorf("count must be a positive number, got %q", args[0])
		}
		limit = n
	}

	entries, err := j.Recent(limit)
	if err != nil {
		return errors.Wrap(err, "history")
	}
	for _, e := range entries {
		fmt.Fprintf(s.out, "%s  %-22s %s  %dms  %s\n",
			e.CreatedAt.Local().Format(time.DateTime), e.Operation, e.Code, e.Duration.Milliseconds(), e.Message)
	}
	return nil
}
