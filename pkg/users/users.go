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

// Package users resolves the command line user argument against the system
// account database.
package users

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/containertools/static-subid/pkg/system"
	"github.com/containertools/static-subid/pkg/validate"
)

// Resolver turns a user argument into a canonical (uid, username) pair.
type Resolver struct {
	sys system.Interface
}

// NewResolver returns a Resolver looking up accounts through sys.
func NewResolver(sys system.Interface) *Resolver {
	return &Resolver{sys: sys}
}

// Resolve accepts either a strictly decimal uid or a username. A numeric
// argument must name an existing account so the username can be recovered;
// a name is validated against the username grammar before it is looked up.
func (r *Resolver) Resolve(arg string) (system.User, error) {
	if arg == "" {
		return system.User{}, errors.New("missing username or uid argument")
	}
	logrus.Debugf("resolving user argument: %s", arg)

	if uid, err := validate.ParseUint32(arg); err == nil {
		u, err := r.sys.LookupUID(uid)
		if err != nil {
			return system.User{}, errors.Wrapf(err, "no user found with uid %d", uid)
		}
		logrus.Debugf("resolved to username: %s", u.Name)
		return u, nil
	}

	if err := validate.Username(arg); err != nil {
		return system.User{}, err
	}
	u, err := r.sys.LookupUser(arg)
	if err != nil {
		return system.User{}, errors.Wrapf(err, "user not found: %s", arg)
	}
	logrus.Debugf("resolved to uid: %d", u.UID)
	return u, nil
}
