package gate

import "github.com/openbpf/netbpfload/internal/env"

// MapType mirrors the kernel's enum bpf_map_type values this loader
// cares about. Only the values the gate or realizer need special-case
// logic for are named; everything else passes through ResolveMapType
// unchanged.
type MapType uint32

const (
	MapTypeHash       MapType = 1
	MapTypeArray      MapType = 2
	MapTypeDevmap     MapType = 14
	MapTypeDevmapHash MapType = 25
	MapTypeRingbuf    MapType = 27
)

// ResolveMapType applies the two incompatible-but-approximable map type
// substitutions: DEVMAP falls back to ARRAY before kernel 4.14 (the
// bpf_redirect_map() helper it needs doesn't exist that early anyway, so
// an ARRAY - same userspace api, unusable by eBPF programs - is strictly
// easier for userspace to deal with); DEVMAP_HASH falls back to HASH
// before 5.4 for the same reason.
func ResolveMapType(t MapType, kernel env.KernelVersion) MapType {
	switch t {
	case MapTypeDevmap:
		if !kernel.AtLeast(4, 14, 0) {
			return MapTypeArray
		}
	case MapTypeDevmapHash:
		if !kernel.AtLeast(5, 4, 0) {
			return MapTypeHash
		}
	}
	return t
}

// ResolveMaxEntries raises a ring buffer's max_entries to at least one
// page, since the kernel allocates the ring buffer as whole pages
// regardless of what's asked for. Values of a page or more are returned
// unchanged; they are not rounded to a page multiple.
func ResolveMaxEntries(t MapType, maxEntries, pageSize uint32) uint32 {
	if t == MapTypeRingbuf && maxEntries < pageSize {
		return pageSize
	}
	return maxEntries
}

// DevmapReadonlyFlag is the extra map_flags bit the kernel unconditionally
// sets on DEVMAP/DEVMAP_HASH maps (they're read-only from the eBPF
// program's point of view). The realizer must OR this into its desired
// flags before comparing against a reused pin's flags, or every reuse of
// such a map would spuriously fail shape validation.
func DevmapReadonlyFlag(t MapType) uint32 {
	const bpfFRdonlyProg = 1 << 7
	if t == MapTypeDevmap || t == MapTypeDevmapHash {
		return bpfFRdonlyProg
	}
	return 0
}
