package platform

import (
	"golang.org/x/sys/unix"
)

// Exists reports whether path exists, matching the C++ access(path, F_OK)
// idiom: ENOENT means "not present", any other errno is a hard failure the
// caller should treat as fatal rather than silently reusing.
func Exists(path string) (bool, error) {
	err := unix.Access(path, unix.F_OK)
	if err == nil {
		return true, nil
	}
	if err == unix.ENOENT {
		return false, nil
	}
	return false, err
}

// MkdirSticky creates path (and nothing above it - the parent must already
// exist) with the sticky, world-read/write/execute mode bpffs pin
// subdirectories use, tolerating EEXIST.
func MkdirSticky(path string) error {
	const mode = unix.S_ISVTX | 0777
	err := unix.Mkdir(path, mode)
	if err != nil && err != unix.EEXIST {
		return err
	}
	return nil
}

// RenameNoReplace implements the pin-and-rename atomicity primitive:
// renameat2 with RENAME_NOREPLACE, which fails rather than silently
// clobbering an existing destination.
func RenameNoReplace(oldPath, newPath string) error {
	return unix.Renameat2(unix.AT_FDCWD, oldPath, unix.AT_FDCWD, newPath, unix.RENAME_NOREPLACE)
}

// Chmod applies a numeric mode to a pinned bpffs path.
func Chmod(path string, mode uint32) error {
	return unix.Chmod(path, mode)
}

// Chown applies uid/gid to a pinned bpffs path.
func Chown(path string, uid, gid uint32) error {
	return unix.Chown(path, int(uid), int(gid))
}
