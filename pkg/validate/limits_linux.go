//go:build linux
// +build linux

package validate

import "golang.org/x/sys/unix"

// MaxPathLen is the longest path accepted anywhere in this program.
const MaxPathLen = unix.PathMax
