//go:build !windows

package ops

import (
	stderrors "errors"
	"os"
	"syscall"

	"github.com/hpungsan/bssh/internal/errors"
)

// openFileNoFollow opens path with O_NOFOLLOW|O_CLOEXEC so a symlink planted
// at the final component is refused. Directory components are covered by
// ValidatePath.
func openFileNoFollow(path string, flag int, perm os.FileMode) (*os.File, error) {
	fd, err := syscall.Open(path, flag|syscall.O_NOFOLLOW|syscall.O_CLOEXEC, uint32(perm))
	if err != nil {
		if stderrors.Is(err, syscall.ELOOP) {
			return nil, errors.NewInvalidRequest("refusing to open symlink: " + path)
		}
		if stderrors.Is(err, syscall.ENOENT) && flag&os.O_CREATE == 0 {
			return nil, errors.NewFileNotFound(path)
		}
		return nil, err
	}
	return os.NewFile(uintptr(fd), path), nil
}

// openFileNoFollowRead opens path read-only without following a final symlink.
func openFileNoFollowRead(path string) (*os.File, error) {
	return openFileNoFollow(path, syscall.O_RDONLY, 0)
}
