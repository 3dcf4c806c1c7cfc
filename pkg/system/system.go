/*
Copyright 2024 The static-subid Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package system routes every host interaction (file opens, stats, account
// lookups, process spawns) through one capability interface so the security
// checks above it can be exercised against test doubles.
package system

import (
	"io"
	"os"
	"os/exec"
	"os/user"
	"strconv"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// Description is the subset of file metadata the security checks care about.
type Description struct {
	// OwnerUID is the owning user id of the inode
	OwnerUID uint32
	// Mode carries both the type bits and the permission bits
	Mode os.FileMode
}

// IsRegular reports whether the described object is a regular file.
func (d Description) IsRegular() bool { return d.Mode.IsRegular() }

// IsDir reports whether the described object is a directory.
func (d Description) IsDir() bool { return d.Mode.IsDir() }

// WorldWritable reports whether "other" holds the write bit.
func (d Description) WorldWritable() bool { return d.Mode.Perm()&0o002 != 0 }

// Handle is an open file. Describe inspects the already-open descriptor, so
// the object checked is guaranteed to be the object later read; the path is
// never resolved a second time.
type Handle interface {
	io.ReadCloser
	Describe() (Description, error)
}

// User is a resolved system account.
type User struct {
	UID  uint32
	Name string
}

// Interface is the operations table injected into every entry point. The
// production implementation is Real; tests substitute doubles.
type Interface interface {
	// Open opens path for reading, following a terminal symlink.
	Open(path string) (Handle, error)
	// Describe stats path, following symlinks at every level.
	Describe(path string) (Description, error)
	// ReadDirNames lists the entry names of the directory at path, sorted
	// lexicographically.
	ReadDirNames(path string) ([]string, error)
	// LookupUser resolves an account by name.
	LookupUser(name string) (User, error)
	// LookupUID resolves an account by numeric id.
	LookupUID(uid uint32) (User, error)
	// Environ snapshots the ambient process environment.
	Environ() []string
	// Run executes path with args and exactly the given environment and
	// waits for it, returning the child's exit code. Stdin is connected
	// to the null device. A nil writer discards that stream.
	Run(path string, args []string, env []string, stdout, stderr io.Writer) (int, error)
}

// Real is the production implementation, backed by an afero filesystem for
// file operations and the standard user database for account lookups.
type Real struct {
	Fs afero.Fs
}

var _ Interface = (*Real)(nil)

// New returns a Real bound to the host filesystem.
func New() *Real {
	return &Real{Fs: afero.NewOsFs()}
}

func (r *Real) Open(path string) (Handle, error) {
	f, err := r.Fs.Open(path)
	if err != nil {
		return nil, err
	}
	return &realHandle{f}, nil
}

type realHandle struct {
	afero.File
}

func (h *realHandle) Describe() (Description, error) {
	// Stat on the open file is an fstat on its descriptor
	fi, err := h.File.Stat()
	if err != nil {
		return Description{}, err
	}
	return describe(fi)
}

func (r *Real) Describe(path string) (Description, error) {
	fi, err := r.Fs.Stat(path)
	if err != nil {
		return Description{}, err
	}
	return describe(fi)
}

func (r *Real) ReadDirNames(path string) ([]string, error) {
	// afero.ReadDir sorts entries by name
	infos, err := afero.ReadDir(r.Fs, path)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(infos))
	for _, fi := range infos {
		names = append(names, fi.Name())
	}
	return names, nil
}

func (r *Real) LookupUser(name string) (User, error) {
	u, err := user.Lookup(name)
	if err != nil {
		return User{}, err
	}
	return userFromEntry(u)
}

func (r *Real) LookupUID(uid uint32) (User, error) {
	u, err := user.LookupId(strconv.FormatUint(uint64(uid), 10))
	if err != nil {
		return User{}, err
	}
	return userFromEntry(u)
}

func userFromEntry(u *user.User) (User, error) {
	uid, err := strconv.ParseUint(u.Uid, 10, 32)
	if err != nil {
		return User{}, errors.Wrapf(err, "parsing uid of account %s", u.Username)
	}
	return User{UID: uint32(uid), Name: u.Username}, nil
}

func (r *Real) Environ() []string {
	return os.Environ()
}

func (r *Real) Run(path string, args []string, env []string, stdout, stderr io.Writer) (int, error) {
	cmd := exec.Command(path, args...)
	cmd.Env = env
	cmd.Stdin = nil
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	err := cmd.Run()
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() >= 0 {
		return exitErr.ExitCode(), nil
	}
	return -1, errors.Wrapf(err, "running %s", path)
}
