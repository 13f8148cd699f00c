// Package bpfdef decodes the fixed-layout bpf_map_def/bpf_prog_def
// records an object's "maps"/"progs" sections carry, applying the
// forward/backward schema-compatibility copy NetBpfLoad.cpp documents:
// the decoder zero-initializes the in-memory descriptor, applies
// documented defaults, then copies min(on-disk size, in-memory size)
// bytes from the record.
package bpfdef

// selinuxContextLen/pinSubdirLen bound the fixed char arrays an object
// declares selinux_context and pin_subdir in.
const (
	selinuxContextLen = 32
	pinSubdirLen      = 32
)

// DefaultMaxKver is substituted for max_kver when a truncated older
// record doesn't carry the field, matching KVER_INF from bpf_helpers.h.
const DefaultMaxKver = 0xFFFFFFFF

// DefaultBpfloaderMaxVer is substituted for bpfloader_max_ver when a
// truncated record doesn't carry the field (bpfloader v1.0).
const DefaultBpfloaderMaxVer = 0x10000

// MapDef is the in-memory, fully-populated form of a bpf_map_def record.
type MapDef struct {
	Type       uint32
	KeySize    uint32
	ValueSize  uint32
	MaxEntries uint32
	Flags      uint32

	MinKver uint32
	MaxKver uint32

	BpfloaderMinVer uint32
	BpfloaderMaxVer uint32

	Mode uint32
	UID  uint32
	GID  uint32

	IgnoreOnEng       bool
	IgnoreOnUser      bool
	IgnoreOnUserdebug bool
	IgnoreOnArm32     bool
	IgnoreOnAarch64   bool
	IgnoreOnX86_32    bool
	IgnoreOnX86_64    bool
	IgnoreOnRiscv64   bool

	Shared bool

	SelinuxContext string
	PinSubdir      string

	// Zero must be 0 on a well-formed object; a non-zero value means the
	// object was built against a newer, incompatible schema and the load
	// must abort before any kernel interaction.
	Zero uint32
}

// mapDefOnDiskSize is the size of the canonical in-memory layout; older
// on-disk records are zero-extended up to it, newer ones truncated down
// to it.
const mapDefOnDiskSize = 132

// DefaultSizeofMapDef is the floor size_of_bpf_map_def an object may
// declare; smaller means an object built against a schema older than
// this implementation understands, and is rejected outright rather than
// silently mis-decoded.
const DefaultSizeofMapDef = mapDefOnDiskSize

// ProgDef is the in-memory, fully-populated form of a bpf_prog_def
// record.
type ProgDef struct {
	MinKver uint32
	MaxKver uint32

	BpfloaderMinVer uint32
	BpfloaderMaxVer uint32

	Optional bool

	IgnoreOnEng       bool
	IgnoreOnUser      bool
	IgnoreOnUserdebug bool
	IgnoreOnArm32     bool
	IgnoreOnAarch64   bool
	IgnoreOnX86_32    bool
	IgnoreOnX86_64    bool
	IgnoreOnRiscv64   bool

	UID uint32
	GID uint32

	SelinuxContext string
	PinSubdir      string
}

const progDefOnDiskSize = 100

// DefaultSizeofProgDef is the floor size_of_bpf_prog_def an object may
// declare, the program-definition analogue of DefaultSizeofMapDef.
const DefaultSizeofProgDef = progDefOnDiskSize
