package exclusion

import (
	"context"
	"os"
	"sync"

	"github.com/jamesrr39/goutil/errorsx"
)

// FileScope serialises holders across processes by locking a file.
// Holders inside this process queue on an in-process scope first, so only one file handle is ever locked at a time.
type FileScope struct {
	path  string
	local *ProcessScope

	mu   sync.Mutex
	file *os.File
}

func NewFileScope(path string) *FileScope {
	return &FileScope{path: path, local: NewProcessScope(path)}
}

func (s *FileScope) Path() string {
	return s.path
}

func (s *FileScope) Acquire(ctx context.Context) errorsx.Error {
	err := s.local.Acquire(ctx)
	if err != nil {
		return errorsx.Wrap(err)
	}

	file, err := lockFile(s.path)
	if err != nil {
		s.local.Release()
		return errorsx.Wrap(err, "lockFile", s.path)
	}

	s.mu.Lock()
	s.file = file
	s.mu.Unlock()

	return nil
}

func (s *FileScope) Release() {
	s.mu.Lock()
	file := s.file
	s.file = nil
	s.mu.Unlock()

	if file != nil {
		unlockFile(file)
	}

	s.local.Release()
}
