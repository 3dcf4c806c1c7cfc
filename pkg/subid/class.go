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

// Package subid computes and applies deterministic subordinate id ranges.
package subid

import "github.com/pkg/errors"

// Class is one kind of subordinate id.
type Class string

const (
	// ClassUID is the subordinate uid class.
	ClassUID Class = "subuid"
	// ClassGID is the subordinate gid class.
	ClassGID Class = "subgid"
)

func (c Class) String() string { return string(c) }

// Valid reports whether c is a known class.
func (c Class) Valid() bool { return c == ClassUID || c == ClassGID }

// UsermodFlag is the usermod(8) flag adding a range of this class.
func (c Class) UsermodFlag() (string, error) {
	switch c {
	case ClassUID:
		return "--add-subuids", nil
	case ClassGID:
		return "--add-subgids", nil
	}
	return "", errors.Errorf("invalid subordinate id class %q", string(c))
}

// GetsubidsArgs is the getsubids(1) argument list probing for existing
// assignments of this class.
func (c Class) GetsubidsArgs(username string) ([]string, error) {
	switch c {
	case ClassUID:
		return []string{username}, nil
	case ClassGID:
		return []string{"-g", username}, nil
	}
	return nil, errors.Errorf("invalid subordinate id class %q", string(c))
}
