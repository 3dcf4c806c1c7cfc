//go:build !linux
// +build !linux

package validate

const MaxPathLen = 4096
