//go:build !windows

package transfer

import (
	stderrors "errors"
	"os"
	"syscall"

	"github.com/hpungsan/folio/internal/errors"
)

// openFileNoFollow opens a file with O_NOFOLLOW so a symlink planted at the
// final path component is refused. O_CLOEXEC prevents FD leaks across exec.
func openFileNoFollow(path string, flag int, perm os.FileMode) (*os.File, error) {
	fd, err := syscall.Open(path, flag|syscall.O_NOFOLLOW|syscall.O_CLOEXEC, uint32(perm))
	if err != nil {
		if stderrors.Is(err, syscall.ELOOP) {
			return nil, errors.NewInvalidRequest("cannot open a symlink")
		}
		if stderrors.Is(err, syscall.ENOENT) {
			return nil, errors.NewInvalidRequest("file does not exist: " + path)
		}
		return nil, err
	}
	return os.NewFile(uintptr(fd), path), nil
}
