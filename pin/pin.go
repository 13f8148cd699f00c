// Package pin implements the pin-and-reuse protocol shared by the map
// and program realizers: look up an existing pin and retrieve it, or
// create a fresh kernel object and pin it - through a domain-labeled
// temporary path and an atomic rename when a non-default SELinux
// context applies - then apply mode and ownership.
package pin

import (
	"path"

	"github.com/pkg/errors"

	"github.com/openbpf/netbpfload/internal/platform"
)

// BaseDir is the root of the pinned object filesystem namespace.
const BaseDir = "/sys/fs/bpf/"

// Descriptor is everything the pin protocol needs about the object
// being realized, independent of whether it's a map or a program.
type Descriptor struct {
	// FinalPath is the fully qualified final pin path, e.g.
	// "/sys/fs/bpf/map_obj_m" or "/sys/fs/bpf/net_shared/map_obj_m".
	FinalPath string

	// LabelSubdir is the selinux-labeled subdirectory ("net_shared/",
	// with trailing slash) a non-default domain requires the object be
	// staged under before renaming into FinalPath. Empty for the
	// default domain, in which case the object is pinned directly at
	// FinalPath with no rename step.
	LabelSubdir string

	// TmpName is the temporary pin's basename within LabelSubdir, e.g.
	// "tmp_map_obj_m". Only consulted when LabelSubdir is non-empty.
	TmpName string

	Mode uint32
	UID  uint32
	GID  uint32
}

// Result pairs an object's fd with whether it came from an existing pin.
type Result struct {
	FD     *platform.FD
	Reused bool
}

// Lookup checks whether finalPath already exists and, if so, retrieves
// a read-only fd for it via BPF_OBJ_GET.
func Lookup(finalPath string) (*platform.FD, bool, error) {
	exists, err := platform.Exists(finalPath)
	if err != nil {
		return nil, false, errors.Wrapf(err, "pin: checking existence of %s", finalPath)
	}
	if !exists {
		return nil, false, nil
	}
	fd, err := platform.ObjGet(finalPath)
	if err != nil {
		return nil, false, errors.Wrapf(err, "pin: retrieving existing pin %s", finalPath)
	}
	return fd, true, nil
}

// Create pins a freshly-created kernel object fd according to d. When
// d.LabelSubdir is set, fd is pinned to a temporary path under that
// directory first (inheriting its genfscon SELinux label) and
// atomically renamed into d.FinalPath; otherwise fd is pinned directly
// at d.FinalPath. Either way, mode and ownership are applied to the
// final path afterward.
func Create(d Descriptor, fd *platform.FD) error {
	if d.LabelSubdir == "" {
		if err := platform.ObjPin(d.FinalPath, fd); err != nil {
			return errors.Wrapf(err, "pin: pinning %s", d.FinalPath)
		}
	} else {
		tmpPath := path.Join(BaseDir, d.LabelSubdir, d.TmpName)
		if err := platform.ObjPin(tmpPath, fd); err != nil {
			return errors.Wrapf(err, "pin: pinning temporary %s", tmpPath)
		}
		if err := platform.RenameNoReplace(tmpPath, d.FinalPath); err != nil {
			return errors.Wrapf(err, "pin: renaming %s to %s", tmpPath, d.FinalPath)
		}
	}

	if err := platform.Chmod(d.FinalPath, d.Mode); err != nil {
		return errors.Wrapf(err, "pin: chmod %s", d.FinalPath)
	}
	if err := platform.Chown(d.FinalPath, d.UID, d.GID); err != nil {
		return errors.Wrapf(err, "pin: chown %s", d.FinalPath)
	}
	return nil
}
