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

package constants

const (
	// LoginDefsPath is the lowest-priority configuration source, shared
	// with shadow-utils
	LoginDefsPath = "/etc/login.defs"

	// ConfigFilePath is the primary configuration file
	ConfigFilePath = "/etc/static-subid.conf"

	// DropInDirPath holds *.conf fragments applied after ConfigFilePath,
	// in lexicographic order
	DropInDirPath = "/etc/static-subid.conf.d"

	// DropInSuffix is the only file suffix picked up from DropInDirPath
	DropInSuffix = ".conf"

	// GetsubidsPath is the absolute path of getsubids(1), used to probe
	// for existing assignments
	GetsubidsPath = "/usr/bin/getsubids"

	// UsermodPath is the absolute path of usermod(8), used to apply
	// assignments
	UsermodPath = "/usr/sbin/usermod"

	// MaxRanges bounds the SUB_UID_COUNT and SUB_GID_COUNT keys; larger
	// parsed values are rejected with a diagnostic
	MaxRanges = 1 << 26

	// MaxLineLen is the longest configuration line we will read
	MaxLineLen = 1024

	// LoginNameMax is the longest accepted username, matching the glibc
	// LOGIN_NAME_MAX limit
	LoginNameMax = 256
)
