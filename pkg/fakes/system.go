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

// Package fakes holds in-memory doubles for the system operations table.
package fakes

import (
	"io"
	"io/fs"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/containertools/static-subid/pkg/system"
)

// File is one fake regular file with scriptable metadata and failures.
type File struct {
	Content string
	Desc    system.Description
	OpenErr error
	DescErr error
}

// Dir is one fake directory.
type Dir struct {
	Desc    system.Description
	Names   []string
	ReadErr error
}

// Invocation records one Run call.
type Invocation struct {
	Path string
	Args []string
	Env  []string
}

// System implements system.Interface from maps the test populates.
type System struct {
	Files map[string]File
	Dirs  map[string]Dir

	UsersByName map[string]system.User
	UsersByUID  map[uint32]system.User

	Env []string

	// RunFunc, when set, decides the outcome of Run calls; otherwise
	// every child exits 0.
	RunFunc     func(path string, args []string) (int, error)
	Invocations []Invocation

	// Opened records every path handed to Open, in order.
	Opened []string
}

var _ system.Interface = (*System)(nil)

// RootFile returns a root-owned, non-world-writable regular file, the shape
// every loaded configuration source must have.
func RootFile(content string) File {
	return File{Content: content, Desc: system.Description{OwnerUID: 0, Mode: 0o644}}
}

// RootDir returns a root-owned, non-world-writable directory listing the
// given names.
func RootDir(names ...string) Dir {
	return Dir{Desc: system.Description{OwnerUID: 0, Mode: fs.ModeDir | 0o755}, Names: names}
}

func notExist(op, path string) error {
	return &fs.PathError{Op: op, Path: path, Err: fs.ErrNotExist}
}

func (s *System) Open(path string) (system.Handle, error) {
	s.Opened = append(s.Opened, path)
	f, ok := s.Files[path]
	if !ok {
		return nil, notExist("open", path)
	}
	if f.OpenErr != nil {
		return nil, f.OpenErr
	}
	return &handle{Reader: strings.NewReader(f.Content), desc: f.Desc, descErr: f.DescErr}, nil
}

type handle struct {
	*strings.Reader
	desc    system.Description
	descErr error
	closed  bool
}

func (h *handle) Close() error {
	h.closed = true
	return nil
}

func (h *handle) Describe() (system.Description, error) {
	if h.descErr != nil {
		return system.Description{}, h.descErr
	}
	return h.desc, nil
}

func (s *System) Describe(path string) (system.Description, error) {
	if d, ok := s.Dirs[path]; ok {
		return d.Desc, nil
	}
	if f, ok := s.Files[path]; ok {
		if f.DescErr != nil {
			return system.Description{}, f.DescErr
		}
		return f.Desc, nil
	}
	return system.Description{}, notExist("stat", path)
}

func (s *System) ReadDirNames(path string) ([]string, error) {
	d, ok := s.Dirs[path]
	if !ok {
		return nil, notExist("open", path)
	}
	if d.ReadErr != nil {
		return nil, d.ReadErr
	}
	names := append([]string(nil), d.Names...)
	sort.Strings(names)
	return names, nil
}

func (s *System) LookupUser(name string) (system.User, error) {
	u, ok := s.UsersByName[name]
	if !ok {
		return system.User{}, errors.Errorf("unknown user %s", name)
	}
	return u, nil
}

func (s *System) LookupUID(uid uint32) (system.User, error) {
	u, ok := s.UsersByUID[uid]
	if !ok {
		return system.User{}, errors.Errorf("unknown userid %d", uid)
	}
	return u, nil
}

func (s *System) Environ() []string {
	return append([]string(nil), s.Env...)
}

func (s *System) Run(path string, args []string, env []string, stdout, stderr io.Writer) (int, error) {
	s.Invocations = append(s.Invocations, Invocation{
		Path: path,
		Args: append([]string(nil), args...),
		Env:  append([]string(nil), env...),
	})
	if s.RunFunc != nil {
		return s.RunFunc(path, args)
	}
	return 0, nil
}
