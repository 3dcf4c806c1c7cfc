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

// Package config resolves the subordinate id configuration from its layered
// sources and carries the command line options.
package config

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
)

// Directive names recognized in configuration sources. The UID_* and SUB_*
// names are shared with shadow-utils login.defs.
const (
	KeyUIDMin         = "UID_MIN"
	KeyUIDMax         = "UID_MAX"
	KeySubUIDMin      = "SUB_UID_MIN"
	KeySubUIDMax      = "SUB_UID_MAX"
	KeySubUIDCount    = "SUB_UID_COUNT"
	KeySubGIDMin      = "SUB_GID_MIN"
	KeySubGIDMax      = "SUB_GID_MAX"
	KeySubGIDCount    = "SUB_GID_COUNT"
	KeySkipIfExists   = "SKIP_IF_EXISTS"
	KeyAllowSubidWrap = "ALLOW_SUBID_WRAP"
)

// SubidConfig is the resolved configuration for one subordinate id class.
type SubidConfig struct {
	// KeyMin, KeyMax and KeyCount are the directive names feeding this
	// class, kept here so diagnostics can name the offending key.
	KeyMin   string
	KeyMax   string
	KeyCount string

	// Min and Max are the inclusive bounds of the subordinate id space.
	Min uint32
	Max uint32
	// Count is the number of ids granted to each eligible user.
	Count uint32
}

// CheckOverlap rejects a primary id that falls inside the subordinate id
// space. A primary uid inside the space would collide with ids delegated to
// some user's containers, which breaks namespace isolation.
func (s SubidConfig) CheckOverlap(uid uint32) error {
	if uid >= s.Min && uid <= s.Max {
		return errors.Errorf("uid %d overlaps subordinate id range %d-%d", uid, s.Min, s.Max)
	}
	return nil
}

// Config is the fully resolved configuration. It is built fresh from
// defaults on every load and mutated key by key as sources are parsed;
// callers only ever see the merged result.
type Config struct {
	// UIDMin and UIDMax bound the primary uids eligible for assignment.
	UIDMin uint32
	UIDMax uint32

	SubUID SubidConfig
	SubGID SubidConfig

	// SkipIfExists leaves users untouched for a class they already have
	// assignments in.
	SkipIfExists bool
	// AllowSubidWrap selects ring allocation instead of strict. Never
	// enable it for unattended production use: once the id space fills
	// up, wrapped ranges collide with earlier users' ranges.
	AllowSubidWrap bool
}

// Default returns the hardcoded shadow-utils defaults every load starts
// from.
func Default() *Config {
	return &Config{
		UIDMin: 1000,
		UIDMax: 60000,
		SubUID: SubidConfig{
			KeyMin:   KeySubUIDMin,
			KeyMax:   KeySubUIDMax,
			KeyCount: KeySubUIDCount,
			Min:      100000,
			Max:      600100000,
			Count:    65536,
		},
		SubGID: SubidConfig{
			KeyMin:   KeySubGIDMin,
			KeyMax:   KeySubGIDMax,
			KeyCount: KeySubGIDCount,
			Min:      100000,
			Max:      600100000,
			Count:    65536,
		},
		SkipIfExists:   true,
		AllowSubidWrap: false,
	}
}

// ValidateUID checks the uid falls inside the eligible [UIDMin, UIDMax]
// window, keeping system accounts out of the allocator.
func (c *Config) ValidateUID(uid uint32) error {
	if uid < c.UIDMin || uid > c.UIDMax {
		return errors.Errorf("uid %d outside allowed range %d-%d", uid, c.UIDMin, c.UIDMax)
	}
	return nil
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

// Dump writes the resolved configuration in the source file syntax, one
// directive per line, each line prepended with prefix.
func (c *Config) Dump(w io.Writer, prefix string) {
	fmt.Fprintf(w, "%s%s\t\t%d\n", prefix, KeyUIDMin, c.UIDMin)
	fmt.Fprintf(w, "%s%s\t\t%d\n", prefix, KeyUIDMax, c.UIDMax)
	fmt.Fprintf(w, "%s%s\t\t%d\n", prefix, c.SubUID.KeyMin, c.SubUID.Min)
	fmt.Fprintf(w, "%s%s\t\t%d\n", prefix, c.SubUID.KeyMax, c.SubUID.Max)
	fmt.Fprintf(w, "%s%s\t%d\n", prefix, c.SubUID.KeyCount, c.SubUID.Count)
	fmt.Fprintf(w, "%s%s\t\t%d\n", prefix, c.SubGID.KeyMin, c.SubGID.Min)
	fmt.Fprintf(w, "%s%s\t\t%d\n", prefix, c.SubGID.KeyMax, c.SubGID.Max)
	fmt.Fprintf(w, "%s%s\t%d\n", prefix, c.SubGID.KeyCount, c.SubGID.Count)
	fmt.Fprintf(w, "%s%s\t%s\n", prefix, KeySkipIfExists, yesNo(c.SkipIfExists))
	fmt.Fprintf(w, "%s%s\t%s\n", prefix, KeyAllowSubidWrap, yesNo(c.AllowSubidWrap))
}
