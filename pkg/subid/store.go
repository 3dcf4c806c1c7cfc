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

package subid

import (
	"fmt"
	"io"
	"math"
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/containertools/static-subid/pkg/constants"
	"github.com/containertools/static-subid/pkg/env"
	"github.com/containertools/static-subid/pkg/system"
)

// Store is where subordinate id assignments are queried and persisted.
type Store interface {
	// Exists reports whether username already has any assignment of the
	// given class.
	Exists(username string, class Class) (bool, error)
	// Apply persists the range for username. It does not check overlap
	// against other users; the allocation arithmetic is responsible for
	// that.
	Apply(username string, class Class, r Range) error
}

// ShadowTools persists assignments through the shadow-utils programs:
// getsubids(1) to probe (which also consults NSS sources, not just
// /etc/subuid and /etc/subgid) and usermod(8) to apply. Both are spawned by
// absolute path with a sanitized environment snapshotted immediately before
// the call.
type ShadowTools struct {
	sys  system.Interface
	noop bool
	out  io.Writer
}

var _ Store = (*ShadowTools)(nil)

// NewShadowTools returns a ShadowTools spawning through sys. With noop set,
// Apply prints the command it would run instead of running it.
func NewShadowTools(sys system.Interface, noop bool) *ShadowTools {
	return &ShadowTools{sys: sys, noop: noop, out: os.Stdout}
}

func (s *ShadowTools) Exists(username string, class Class) (bool, error) {
	args, err := class.GetsubidsArgs(username)
	if err != nil {
		return false, err
	}
	logrus.Debugf("checking if %s exists for %s", class, username)

	// The exit code is the whole answer; output is only interesting when
	// debugging.
	var stdout, stderr io.Writer
	if logrus.IsLevelEnabled(logrus.DebugLevel) {
		stdout, stderr = os.Stderr, os.Stderr
	}
	code, err := s.sys.Run(constants.GetsubidsPath, args, env.Sanitized(s.sys.Environ()), stdout, stderr)
	if err != nil {
		return false, errors.Wrap(err, "running getsubids")
	}
	switch code {
	case 0:
		logrus.Debugf("%s exists for %s", class, username)
		return true, nil
	case 1:
		logrus.Debugf("%s does not exist for %s", class, username)
		return false, nil
	}
	return false, errors.Errorf("getsubids failed with exit code %d", code)
}

func (s *ShadowTools) Apply(username string, class Class, r Range) error {
	if r.Count == 0 {
		return errors.New("count cannot be zero")
	}
	// The allocator already rejects overflow, but this contract holds
	// regardless of caller.
	if uint64(r.Start)+uint64(r.Count)-1 > math.MaxUint32 {
		return errors.Errorf("subid range overflow: start=%d count=%d", r.Start, r.Count)
	}
	flag, err := class.UsermodFlag()
	if err != nil {
		return err
	}

	if s.noop {
		fmt.Fprintf(s.out, "noop: would execute: %s %s %s %s\n", constants.UsermodPath, flag, r, username)
		return nil
	}

	logrus.Debugf("assigning %s range %s (%d:%d) to user %s", class, r, r.Start, r.Count, username)
	// usermod output stays visible so its complaints reach the operator.
	code, err := s.sys.Run(constants.UsermodPath, []string{flag, r.String(), username},
		env.Sanitized(s.sys.Environ()), os.Stdout, os.Stderr)
	if err != nil {
		return errors.Wrap(err, "running usermod")
	}
	if code != 0 {
		return errors.Errorf("usermod failed with exit code %d", code)
	}
	logrus.Debugf("successfully assigned %s range to %s", class, username)
	return nil
}
