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

package cmd

import (
	"testing"

	"github.com/containertools/static-subid/pkg/config"
	"github.com/containertools/static-subid/pkg/subid"
	"github.com/containertools/static-subid/testutil"
)

func TestRequestedClasses(t *testing.T) {
	tests := []struct {
		name     string
		opts     *config.AssignOptions
		expected []subid.Class
	}{
		{
			name:     "subuid only",
			opts:     &config.AssignOptions{Subuid: true},
			expected: []subid.Class{subid.ClassUID},
		},
		{
			name:     "subgid only",
			opts:     &config.AssignOptions{Subgid: true},
			expected: []subid.Class{subid.ClassGID},
		},
		{
			name:     "both, uids first",
			opts:     &config.AssignOptions{Subuid: true, Subgid: true},
			expected: []subid.Class{subid.ClassUID, subid.ClassGID},
		},
		{
			name: "neither",
			opts: &config.AssignOptions{},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			testutil.CheckDeepEqual(t, test.expected, requestedClasses(test.opts))
		})
	}
}
