//go:build windows

package exclusion

import (
	"os"

	"github.com/jamesrr39/goutil/errorsx"
)

func lockFile(path string) (*os.File, errorsx.Error) {
	return nil, errorsx.Errorf("file exclusion scopes are not supported on windows (lock file: %q)", path)
}

func unlockFile(file *os.File) {
	file.Close()
}
