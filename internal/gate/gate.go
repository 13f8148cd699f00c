// Package gate implements the predicate that decides whether a map or
// program definition applies to the running environment, and the small
// set of compatibility substitutions (map type fallbacks, ring buffer
// sizing, devmap flag fixups) that only make sense once gating has
// already decided a definition survives.
package gate

import "github.com/openbpf/netbpfload/internal/env"

// Predicate is the subset of fields both MapDef and ProgDef expose for
// gating, so Decide has a single implementation for both.
type Predicate struct {
	MinKver           uint32
	MaxKver           uint32
	BpfloaderMinVer   uint32
	BpfloaderMaxVer   uint32
	IgnoreOnEng       bool
	IgnoreOnUser      bool
	IgnoreOnUserdebug bool
	IgnoreOnArm32     bool
	IgnoreOnAarch64   bool
	IgnoreOnX86_32    bool
	IgnoreOnX86_64    bool
	IgnoreOnRiscv64   bool
}

// Reason names why a definition was skipped, for logging.
type Reason int

const (
	Include Reason = iota
	SkipLoaderMin
	SkipLoaderMax
	SkipKernelMin
	SkipKernelMax
	SkipBuildType
	SkipArch
)

func (r Reason) String() string {
	switch r {
	case SkipLoaderMin:
		return "requires newer bpfloader"
	case SkipLoaderMax:
		return "requires older bpfloader"
	case SkipKernelMin:
		return "requires newer kernel"
	case SkipKernelMax:
		return "requires older kernel"
	case SkipBuildType:
		return "ignored on this build type"
	case SkipArch:
		return "ignored on this architecture"
	default:
		return "included"
	}
}

// Decide applies every gating rule in spec order and returns the first
// one that fails, or Include if the definition survives.
func Decide(p Predicate, e env.Snapshot) Reason {
	if e.LoaderVersion < p.BpfloaderMinVer {
		return SkipLoaderMin
	}
	if e.LoaderVersion >= p.BpfloaderMaxVer {
		return SkipLoaderMax
	}
	if e.Kernel.Packed() < p.MinKver {
		return SkipKernelMin
	}
	if e.Kernel.Packed() >= p.MaxKver {
		return SkipKernelMax
	}
	switch e.Build {
	case env.BuildEng:
		if p.IgnoreOnEng {
			return SkipBuildType
		}
	case env.BuildUser:
		if p.IgnoreOnUser {
			return SkipBuildType
		}
	case env.BuildUserdebug:
		if p.IgnoreOnUserdebug {
			return SkipBuildType
		}
	}
	if archIgnored(p, e.Arch) {
		return SkipArch
	}
	return Include
}

func archIgnored(p Predicate, arch env.Arch) bool {
	switch arch {
	case env.ArchArm32:
		return p.IgnoreOnArm32
	case env.ArchArm64:
		return p.IgnoreOnAarch64
	case env.ArchX86_32:
		return p.IgnoreOnX86_32
	case env.ArchX86_64:
		return p.IgnoreOnX86_64
	case env.ArchRiscv64:
		return p.IgnoreOnRiscv64
	default:
		return false
	}
}
