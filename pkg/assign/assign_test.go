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

package assign

import (
	"testing"

	"github.com/pkg/errors"

	"github.com/containertools/static-subid/pkg/config"
	"github.com/containertools/static-subid/pkg/subid"
	"github.com/containertools/static-subid/pkg/system"
	"github.com/containertools/static-subid/testutil"
)

type applied struct {
	Username string
	Class    subid.Class
	Range    subid.Range
}

// fakeStore scripts Exists per class and records Apply calls.
type fakeStore struct {
	existing  map[subid.Class]bool
	existsErr error
	applyErr  error

	probes  []subid.Class
	applies []applied
}

func (f *fakeStore) Exists(username string, class subid.Class) (bool, error) {
	f.probes = append(f.probes, class)
	if f.existsErr != nil {
		return false, f.existsErr
	}
	return f.existing[class], nil
}

func (f *fakeStore) Apply(username string, class subid.Class, r subid.Range) error {
	if f.applyErr != nil {
		return f.applyErr
	}
	f.applies = append(f.applies, applied{Username: username, Class: class, Range: r})
	return nil
}

var alice = system.User{UID: 1001, Name: "alice"}

func TestDoAssignBothClasses(t *testing.T) {
	store := &fakeStore{}
	err := DoAssign(config.Default(), store, alice, []subid.Class{subid.ClassUID, subid.ClassGID})
	if err != nil {
		t.Fatalf("Unexpected error: %s", err)
	}
	expected := []applied{
		{Username: "alice", Class: subid.ClassUID, Range: subid.Range{Start: 165536, Count: 65536}},
		{Username: "alice", Class: subid.ClassGID, Range: subid.Range{Start: 165536, Count: 65536}},
	}
	testutil.CheckDeepEqual(t, expected, store.applies)
}

func TestDoAssignSkipsExisting(t *testing.T) {
	store := &fakeStore{existing: map[subid.Class]bool{subid.ClassUID: true}}
	err := DoAssign(config.Default(), store, alice, []subid.Class{subid.ClassUID, subid.ClassGID})
	if err != nil {
		t.Fatalf("Unexpected error: %s", err)
	}
	expected := []applied{
		{Username: "alice", Class: subid.ClassGID, Range: subid.Range{Start: 165536, Count: 65536}},
	}
	testutil.CheckDeepEqual(t, expected, store.applies)
}

func TestDoAssignProbeDisabled(t *testing.T) {
	cfg := config.Default()
	cfg.SkipIfExists = false
	store := &fakeStore{existing: map[subid.Class]bool{subid.ClassUID: true}}
	err := DoAssign(cfg, store, alice, []subid.Class{subid.ClassUID})
	if err != nil {
		t.Fatalf("Unexpected error: %s", err)
	}
	if len(store.probes) != 0 {
		t.Errorf("store must not be probed with SKIP_IF_EXISTS off, got %v", store.probes)
	}
	testutil.CheckDeepEqual(t, 1, len(store.applies))
}

func TestDoAssignUIDOutsideWindow(t *testing.T) {
	store := &fakeStore{}
	err := DoAssign(config.Default(), store, system.User{UID: 999, Name: "daemon"}, []subid.Class{subid.ClassUID})
	testutil.CheckError(t, true, err)
	if len(store.probes) != 0 || len(store.applies) != 0 {
		t.Error("ineligible uid must not reach the store")
	}
}

func TestDoAssignOverlapRejected(t *testing.T) {
	cfg := config.Default()
	cfg.UIDMax = 600200000
	store := &fakeStore{}
	err := DoAssign(cfg, store, system.User{UID: 100500, Name: "inrange"}, []subid.Class{subid.ClassUID})
	testutil.CheckError(t, true, err)
	if len(store.applies) != 0 {
		t.Error("overlapping uid must not be assigned")
	}
}

func TestDoAssignStopsAtFirstFailure(t *testing.T) {
	store := &fakeStore{existsErr: errors.New("nss outage")}
	err := DoAssign(config.Default(), store, alice, []subid.Class{subid.ClassUID, subid.ClassGID})
	testutil.CheckError(t, true, err)
	testutil.CheckDeepEqual(t, []subid.Class{subid.ClassUID}, store.probes)
	if len(store.applies) != 0 {
		t.Error("nothing may be applied after a probe failure")
	}
}

func TestDoAssignApplyFailure(t *testing.T) {
	store := &fakeStore{applyErr: errors.New("usermod failed with exit code 1")}
	err := DoAssign(config.Default(), store, alice, []subid.Class{subid.ClassUID, subid.ClassGID})
	testutil.CheckError(t, true, err)
	// The first class already failed; the second is never probed.
	testutil.CheckDeepEqual(t, []subid.Class{subid.ClassUID}, store.probes)
}

func TestDoAssignInvalidClass(t *testing.T) {
	err := DoAssign(config.Default(), &fakeStore{}, alice, []subid.Class{subid.Class("bogus")})
	testutil.CheckError(t, true, err)
}
