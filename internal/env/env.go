// Package env supplies the frozen environment snapshot the loader core
// gates against. It is a thin oracle: everything here is queried once at
// process start and never re-read, so a load run is reproducible within
// its own lifetime even if the underlying system state changes under it.
package env

import "fmt"

// Arch is the CPU architecture tag the predicate gate matches against.
type Arch int

const (
	ArchUnknown Arch = iota
	ArchArm32
	ArchArm64
	ArchX86_32
	ArchX86_64
	ArchRiscv64
)

func (a Arch) String() string {
	switch a {
	case ArchArm32:
		return "arm32"
	case ArchArm64:
		return "arm64"
	case ArchX86_32:
		return "x86_32"
	case ArchX86_64:
		return "x86_64"
	case ArchRiscv64:
		return "riscv64"
	default:
		return "unknown"
	}
}

// BuildType classifies the image the loader is running inside of. Kept
// from the original Android ro.build.type vocabulary because the
// ignore_on_eng/user/userdebug bits in object definitions are part of the
// wire format this loader consumes.
type BuildType int

const (
	BuildUnknown BuildType = iota
	BuildEng
	BuildUser
	BuildUserdebug
)

func (b BuildType) String() string {
	switch b {
	case BuildEng:
		return "eng"
	case BuildUser:
		return "user"
	case BuildUserdebug:
		return "userdebug"
	default:
		return "unknown"
	}
}

// ParseBuildType maps the known build-type strings; anything else yields
// BuildUnknown and leaves the choice of fallback to the caller (Probe
// substitutes BuildUser).
func ParseBuildType(s string) BuildType {
	switch s {
	case "eng":
		return BuildEng
	case "user":
		return BuildUser
	case "userdebug":
		return BuildUserdebug
	default:
		return BuildUnknown
	}
}

// KernelVersion is a packed maj.min.sub triple, comparable with plain
// integer comparison once Packed() has been applied consistently.
type KernelVersion struct {
	Major, Minor, Sub uint32
}

// Packed folds the triple into the 24-bit 0xMMmmss form object
// definitions declare min/max kernel bounds in.
func (k KernelVersion) Packed() uint32 {
	return (k.Major&0xff)<<16 | (k.Minor&0xff)<<8 | (k.Sub & 0xff)
}

func (k KernelVersion) String() string {
	return fmt.Sprintf("%d.%d.%d", k.Major, k.Minor, k.Sub)
}

// AtLeast reports whether k is >= maj.min.sub.
func (k KernelVersion) AtLeast(maj, min, sub uint32) bool {
	return k.Packed() >= KernelVersion{maj, min, sub}.Packed()
}

// Snapshot is the immutable environment the predicate gate, map realizer
// and program realizer all consult. Constructed once by Probe and passed
// down by value thereafter.
type Snapshot struct {
	Kernel        KernelVersion
	LoaderVersion uint32
	Build         BuildType
	Arch          Arch
	UserspaceBits int // 32 or 64
	RunningAsRoot bool
	PageSize      uint32
}
