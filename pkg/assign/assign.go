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

// Package assign sequences one assignment run: overlap checks, the
// skip-if-exists probe, range calculation and the store call.
package assign

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/containertools/static-subid/pkg/config"
	"github.com/containertools/static-subid/pkg/subid"
	"github.com/containertools/static-subid/pkg/system"
)

// DoAssign assigns a subordinate id range to user for every requested
// class, in order, stopping at the first class that fails. The assignment
// for each class is recomputed from the uid and cfg alone, so re-running
// against the same configuration always reaches the same ranges.
func DoAssign(cfg *config.Config, store subid.Store, user system.User, classes []subid.Class) error {
	if err := cfg.ValidateUID(user.UID); err != nil {
		return err
	}
	for _, class := range classes {
		if err := processClass(cfg, store, user, class); err != nil {
			return errors.Wrapf(err, "assigning %s for user %s", class, user.Name)
		}
	}
	return nil
}

func processClass(cfg *config.Config, store subid.Store, user system.User, class subid.Class) error {
	var subCfg config.SubidConfig
	switch class {
	case subid.ClassUID:
		subCfg = cfg.SubUID
	case subid.ClassGID:
		subCfg = cfg.SubGID
	default:
		return errors.Errorf("invalid subordinate id class %q", class)
	}
	logrus.Debugf("processing class: %s", class)

	// A primary uid inside the subordinate space must never be assigned
	// from it.
	if err := subCfg.CheckOverlap(user.UID); err != nil {
		return err
	}

	if cfg.SkipIfExists {
		exists, err := store.Exists(user.Name, class)
		if err != nil {
			return errors.Wrapf(err, "could not check existing %ss", class)
		}
		if exists {
			logrus.Debugf("user %s already has %ss assigned", user.Name, class)
			return nil
		}
	}

	logrus.Debugf("calculating %s range for uid %d", class, user.UID)
	r, err := subid.Calculate(user.UID, cfg.UIDMin, subCfg, subid.PolicyFor(cfg.AllowSubidWrap))
	if err != nil {
		return err
	}
	logrus.Debugf("calculated range: %d:%d", r.Start, r.Count)

	return store.Apply(user.Name, class, r)
}
