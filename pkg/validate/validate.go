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

// Package validate holds the security checks every configuration source and
// user-supplied value must pass before it is acted on.
package validate

import (
	"io/fs"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/containertools/static-subid/pkg/constants"
	"github.com/containertools/static-subid/pkg/system"
)

// Path checks a path for syntactic problems without touching the filesystem:
// it must be absolute, shorter than the platform limit and free of traversal
// segments.
func Path(path string) error {
	if path == "" {
		return errors.New("path is empty")
	}
	if len(path) >= MaxPathLen {
		return errors.Errorf("path exceeds maximum length (%d): %s", MaxPathLen, path)
	}
	if path[0] != '/' {
		return errors.Errorf("path is not absolute: %s", path)
	}
	if strings.Contains(path, "/../") {
		return errors.Errorf("path contains traversal sequence: %s", path)
	}
	if strings.HasSuffix(path, "/..") {
		return errors.Errorf("path must not end with '/..': %s", path)
	}
	return nil
}

// OpenSecureFile opens path for reading, following a terminal symlink, and
// verifies the opened handle refers to a regular file that is owned by root
// and not world-writable. Every metadata check runs against the already-open
// descriptor so the object inspected is the object later read; the path
// string is never resolved twice. A handle failing any check is closed. A
// missing file is reported as an error satisfying errors.Is(err,
// fs.ErrNotExist); callers treat that outcome as "nothing to load".
func OpenSecureFile(sys system.Interface, path string) (system.Handle, error) {
	if err := Path(path); err != nil {
		return nil, err
	}
	logrus.Debugf("opening config file: %s", path)
	h, err := sys.Open(path)
	if err != nil {
		return nil, err
	}
	desc, err := h.Describe()
	if err != nil {
		h.Close()
		return nil, errors.Wrapf(err, "inspecting %s", path)
	}
	if !desc.IsRegular() {
		h.Close()
		return nil, errors.Errorf("%s is not a regular file (mode %s)", path, desc.Mode)
	}
	if desc.OwnerUID != 0 {
		h.Close()
		return nil, errors.Errorf("%s must be owned by root (owned by uid %d)", path, desc.OwnerUID)
	}
	if desc.WorldWritable() {
		h.Close()
		return nil, errors.Errorf("%s is world-writable (mode %04o)", path, uint32(desc.Mode.Perm()))
	}
	return h, nil
}

// SecureDirectory verifies the drop-in directory at path is a root-owned,
// not world-writable directory. Symlinks are followed: a directory has no
// single long-lived handle to reuse across scan and read, so this check is
// path-based and callers must still validate individual entry names. A
// missing directory is not an error.
func SecureDirectory(sys system.Interface, path string) error {
	if err := Path(path); err != nil {
		return err
	}
	desc, err := sys.Describe(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logrus.Debugf("config directory does not exist: %s", path)
			return nil
		}
		return errors.Wrapf(err, "stat config directory %s", path)
	}
	if !desc.IsDir() {
		return errors.Errorf("config path %s is not a directory (or link to one)", path)
	}
	if desc.OwnerUID != 0 {
		return errors.Errorf("config directory %s not owned by root (owned by uid %d)", path, desc.OwnerUID)
	}
	if desc.WorldWritable() {
		return errors.Errorf("config directory %s is world-writable (mode %04o)", path, uint32(desc.Mode.Perm()))
	}
	return nil
}

// Username validates a name against the useradd(8) grammar: it must start
// with a lowercase letter or underscore, continue with lowercase letters,
// digits, '.', '_' or '-', may end with '$', must not end with '-', and must
// fit within the login-name limit.
func Username(name string) error {
	if name == "" {
		return errors.New("username is empty")
	}
	if len(name) >= constants.LoginNameMax {
		return errors.Errorf("username exceeds maximum length (%d): %s", constants.LoginNameMax, name)
	}
	if strings.Contains(name, "/") {
		return errors.Errorf("username contains traversal sequence: %s", name)
	}
	if strings.Contains(name, ";") {
		return errors.Errorf("username contains ';': %s", name)
	}
	for i := 0; i < len(name); i++ {
		if !validUsernameByte(name[i], i, len(name)) {
			return errors.Errorf("invalid character %q at position %d in username: %s", name[i], i, name)
		}
	}
	if name[len(name)-1] == '-' {
		return errors.Errorf("username cannot end with hyphen: %s", name)
	}
	return nil
}

func validUsernameByte(c byte, pos, length int) bool {
	lower := c >= 'a' && c <= 'z'
	if pos == 0 {
		return lower || c == '_'
	}
	if pos == length-1 && c == '$' {
		return true
	}
	digit := c >= '0' && c <= '9'
	return lower || digit || c == '.' || c == '_' || c == '-'
}

// ParseUint32 parses a strictly decimal unsigned integer: digits only, no
// sign, no surrounding whitespace, and the value must fit in 32 bits.
// Redundant leading zeros are accepted and always read as decimal, never
// octal, so "0123" is 123.
func ParseUint32(s string) (uint32, error) {
	if s == "" {
		return 0, errors.New("empty value")
	}
	if s[0] == '-' || s[0] == '+' {
		return 0, errors.Errorf("value must not carry a sign: %s", s)
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, errors.Errorf("value is not a decimal integer: %s", s)
		}
	}
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, errors.Errorf("value does not fit in 32 bits: %s", s)
	}
	return uint32(v), nil
}

// ParseBool reads the usual spellings of a toggle, falling back to def for
// anything it does not recognize. Booleans are advisory, never security
// gates, so there is no error outcome.
func ParseBool(s string, def bool) bool {
	switch strings.ToLower(s) {
	case "yes", "true", "1":
		return true
	case "no", "false", "0":
		return false
	}
	return def
}
