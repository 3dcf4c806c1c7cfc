//go:build linux
// +build linux

package system

import (
	"os"
	"syscall"

	"github.com/pkg/errors"
)

func describe(fi os.FileInfo) (Description, error) {
	st, ok := fi.Sys().(*syscall.Stat_t)
	if !ok {
		return Description{}, errors.Errorf("no ownership information for %s", fi.Name())
	}
	return Description{OwnerUID: st.Uid, Mode: fi.Mode()}, nil
}
