//go:build !linux
// +build !linux

package system

import (
	"os"

	"github.com/pkg/errors"
)

func describe(fi os.FileInfo) (Description, error) {
	return Description{}, errors.New("ownership checks are only supported on linux")
}
