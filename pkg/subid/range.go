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
	"math"

	"github.com/pkg/errors"

	"github.com/containertools/static-subid/pkg/config"
)

// Policy selects the allocation arithmetic.
type Policy int

const (
	// PolicyStrict fails on any overflow or excess past the configured
	// space. Allocations are monotonic in uid, mutually non-overlapping
	// and always fully contained; the only policy safe for unattended
	// production use.
	PolicyStrict Policy = iota
	// PolicyWrap treats the id space as a ring and absorbs overflow with
	// modulo arithmetic. Once the number of users exceeds space/count,
	// ranges collide with earlier users' ranges, which in a container
	// setting is an isolation violation. Development and lab use only.
	PolicyWrap
)

func (p Policy) String() string {
	if p == PolicyWrap {
		return "wrap"
	}
	return "strict"
}

// PolicyFor maps the ALLOW_SUBID_WRAP toggle to a policy.
func PolicyFor(allowWrap bool) Policy {
	if allowWrap {
		return PolicyWrap
	}
	return PolicyStrict
}

// Range is a contiguous block of subordinate ids.
type Range struct {
	Start uint32
	Count uint32
}

// End returns the last id of the range, inclusive.
func (r Range) End() uint32 { return r.Start + r.Count - 1 }

// String renders the inclusive "start-end" form usermod consumes.
func (r Range) String() string { return fmt.Sprintf("%d-%d", r.Start, r.End()) }

// Calculate derives the subordinate id range for uid. The result is a pure
// function of its arguments:
//
//	offset = uid - uidMin
//	start  = cfg.Min + offset*cfg.Count
//	end    = start + cfg.Count - 1
//
// Under PolicyStrict every step is checked for 32-bit overflow and the range
// must fit inside [cfg.Min, cfg.Max]. Under PolicyWrap the logical offset is
// widened to 64 bits and reduced modulo the space size, so excess wraps
// around instead of failing.
func Calculate(uid, uidMin uint32, cfg config.SubidConfig, policy Policy) (Range, error) {
	if uid < uidMin {
		return Range{}, errors.Errorf("uid %d less than %s %d", uid, config.KeyUIDMin, uidMin)
	}
	if cfg.Count == 0 {
		return Range{}, errors.Errorf("%s is zero", cfg.KeyCount)
	}

	offset := uid - uidMin
	space := cfg.Max - cfg.Min + 1

	// If no contiguous block of cfg.Count ids fits anywhere in the space,
	// no uid could ever succeed. That is a configuration error, rejected
	// rather than clamped.
	if cfg.Count > space {
		return Range{}, errors.Errorf("calculating range for uid %d %s=%d %s=%d %s=%d not enough space for any subid in range",
			uid, cfg.KeyMin, cfg.Min, cfg.KeyMax, cfg.Max, cfg.KeyCount, cfg.Count)
	}

	if policy == PolicyWrap {
		logical := uint64(offset) * uint64(cfg.Count)
		start := cfg.Min + uint32(logical%uint64(space))
		return Range{Start: start, Count: cfg.Count}, nil
	}

	product := uint64(offset) * uint64(cfg.Count)
	if product > math.MaxUint32 {
		return Range{}, errors.Errorf("overflow calculating range for uid %d", uid)
	}
	start := uint64(cfg.Min) + product
	if start > math.MaxUint32 {
		return Range{}, errors.Errorf("overflow calculating range for uid %d", uid)
	}
	end := start + uint64(cfg.Count) - 1
	if end > math.MaxUint32 {
		return Range{}, errors.Errorf("overflow calculating range for uid %d", uid)
	}
	if end > uint64(cfg.Max) {
		return Range{}, errors.Errorf("range for uid %d exceeds %s %d", uid, cfg.KeyMax, cfg.Max)
	}
	return Range{Start: uint32(start), Count: cfg.Count}, nil
}
