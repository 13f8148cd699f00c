package env

import (
	"bytes"
	"os"
	"runtime"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// BuildTypeEnvVar is read in place of Android's ro.build.type system
// property. Defaults to "user", the most restrictive classification, so
// that an unset environment never silently loosens ignore_on_* gating.
const BuildTypeEnvVar = "BPFLOADER_BUILD_TYPE"

// Probe queries the live system once and returns a frozen Snapshot.
// loaderVersion is supplied by the caller (the CLI takes it from its
// --loader-version flag) rather than probed, since it identifies the loader
// binary itself, not the host.
func Probe(loaderVersion uint32) (Snapshot, error) {
	kver, err := kernelVersion()
	if err != nil {
		return Snapshot{}, err
	}

	build := ParseBuildType(os.Getenv(BuildTypeEnvVar))
	if build == BuildUnknown {
		build = BuildUser
	}

	return Snapshot{
		Kernel:        kver,
		LoaderVersion: loaderVersion,
		Build:         build,
		Arch:          probeArch(),
		UserspaceBits: strconv.IntSize,
		RunningAsRoot: os.Getuid() == 0,
		PageSize:      uint32(unix.Getpagesize()),
	}, nil
}

func kernelVersion() (KernelVersion, error) {
	var uts unix.Utsname
	if err := unix.Uname(&uts); err != nil {
		return KernelVersion{}, err
	}
	release := string(uts.Release[:bytes.IndexByte(uts.Release[:], 0)])
	// Linux release strings look like "6.6.30-something"; we only care
	// about the leading maj.min.sub triple.
	core, _, _ := strings.Cut(release, "-")
	parts := strings.SplitN(core, ".", 3)
	var v [3]uint32
	for i := 0; i < len(parts) && i < 3; i++ {
		n, err := strconv.ParseUint(parts[i], 10, 32)
		if err != nil {
			break
		}
		v[i] = uint32(n)
	}
	return KernelVersion{Major: v[0], Minor: v[1], Sub: v[2]}, nil
}

func probeArch() Arch {
	switch runtime.GOARCH {
	case "arm":
		return ArchArm32
	case "arm64":
		return ArchArm64
	case "386":
		return ArchX86_32
	case "amd64":
		return ArchX86_64
	case "riscv64":
		return ArchRiscv64
	default:
		return ArchUnknown
	}
}
