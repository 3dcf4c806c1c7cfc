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

// Package env builds the sanitized environment external tools are spawned
// with.
package env

import "strings"

// allowlist is every variable forwarded to child processes: locale and
// timezone only. Dynamic-linker variables and anything else with injection
// potential never pass through.
var allowlist = []string{"LANG", "LC_ALL", "LC_MESSAGES", "LC_CTYPE", "TZ"}

// Sanitized filters an ambient environment snapshot down to the allowlist.
// It is a pure function; callers take a fresh snapshot immediately before
// each spawn rather than caching one.
func Sanitized(ambient []string) []string {
	safe := make([]string, 0, len(allowlist))
	for _, name := range allowlist {
		prefix := name + "="
		for _, kv := range ambient {
			if strings.HasPrefix(kv, prefix) {
				safe = append(safe, kv)
				break
			}
		}
	}
	return safe
}
