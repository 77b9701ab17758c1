//go:build windows

package transfer

import (
	"os"

	"github.com/hpungsan/folio/internal/errors"
)

// openFileNoFollow opens a file. O_NOFOLLOW is not available on Windows,
// where creating symlinks needs extra privileges.
func openFileNoFollow(path string, flag int, perm os.FileMode) (*os.File, error) {
	f, err := os.OpenFile(path, flag, perm)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewInvalidRequest("file does not exist: " + path)
		}
		return nil, err
	}
	return f, nil
}
