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

package config

// AssignOptions are options that are set by command line arguments.
type AssignOptions struct {
	// User is the account argument, a username or decimal uid.
	User string
	// Subuid and Subgid select the id classes to assign.
	Subuid bool
	Subgid bool
	// Noop prints the commands that would run without executing them.
	Noop bool
	// DumpConfig prints the resolved configuration and exits.
	DumpConfig bool
}
