//go:build !windows

package exclusion

import (
	"os"

	"github.com/jamesrr39/goutil/errorsx"
	"golang.org/x/sys/unix"
)

// lockFile opens (creating if needed) and exclusively locks the file, waiting for other processes to release it.
func lockFile(path string) (*os.File, errorsx.Error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, errorsx.Wrap(err)
	}

	for {
		err = unix.Flock(int(file.Fd()), unix.LOCK_EX)
		if err != unix.EINTR {
			break
		}
	}
	if err != nil {
		file.Close()
		return nil, errorsx.Wrap(err)
	}

	return file, nil
}

func unlockFile(file *os.File) {
	unix.Flock(int(file.Fd()), unix.LOCK_UN)
	file.Close()
}
