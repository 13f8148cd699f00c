package bpfdef

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// ErrMisaligned is returned when a maps/progs section's byte length isn't
// an exact multiple of the declared on-disk record size.
var ErrMisaligned = errors.New("bpfdef: section size is not a multiple of the record size")

// DecodeMapDefs splits raw (the "maps" section's bytes) into count
// records of onDiskSize bytes each, where count = len(names), and decodes
// each with the forward-compatible zero/default/copy protocol.
func DecodeMapDefs(raw []byte, onDiskSize int, names []string) ([]MapDef, error) {
	if onDiskSize <= 0 {
		return nil, errors.New("bpfdef: size_of_bpf_map_def must be positive")
	}
	if len(raw)%onDiskSize != 0 {
		return nil, ErrMisaligned
	}
	count := len(raw) / onDiskSize
	if count != len(names) {
		return nil, errors.Errorf("bpfdef: %d map records but %d map symbols", count, len(names))
	}

	defs := make([]MapDef, count)
	trim := min(onDiskSize, mapDefOnDiskSize)
	for i := range defs {
		record := make([]byte, mapDefOnDiskSize)
		copy(record, raw[i*onDiskSize:i*onDiskSize+trim])
		defs[i] = decodeMapDef(record, trim)
	}
	return defs, nil
}

// DecodeProgDefs is the program-definition analogue of DecodeMapDefs.
func DecodeProgDefs(raw []byte, onDiskSize int, names []string) ([]ProgDef, error) {
	if onDiskSize <= 0 {
		return nil, errors.New("bpfdef: size_of_bpf_prog_def must be positive")
	}
	if len(raw)%onDiskSize != 0 {
		return nil, ErrMisaligned
	}
	count := len(raw) / onDiskSize
	if count != len(names) {
		return nil, errors.Errorf("bpfdef: %d prog records but %d prog symbols", count, len(names))
	}

	defs := make([]ProgDef, count)
	trim := min(onDiskSize, progDefOnDiskSize)
	for i := range defs {
		record := make([]byte, progDefOnDiskSize)
		copy(record, raw[i*onDiskSize:i*onDiskSize+trim])
		defs[i] = decodeProgDef(record, trim)
	}
	return defs, nil
}

// decodeMapDef decodes a zero-padded, mapDefOnDiskSize-length record.
// valid is the number of leading bytes that actually came from the
// object's on-disk record (the rest is synthetic zero-padding) - a
// field whose byte range falls even partially past valid is left at
// its pre-populated default rather than read as a genuine zero, since
// the object's schema simply predates that field.
func decodeMapDef(b []byte, valid int) MapDef {
	var d MapDef
	// Defaults applied before the on-disk copy, so that fields absent
	// from a truncated (older-schema) record still have sane values.
	d.MaxKver = DefaultMaxKver
	d.BpfloaderMaxVer = DefaultBpfloaderMaxVer

	d.Type = u32(b, 0, valid, d.Type)
	d.KeySize = u32(b, 4, valid, d.KeySize)
	d.ValueSize = u32(b, 8, valid, d.ValueSize)
	d.MaxEntries = u32(b, 12, valid, d.MaxEntries)
	d.Flags = u32(b, 16, valid, d.Flags)
	d.MinKver = u32(b, 20, valid, d.MinKver)
	d.MaxKver = u32(b, 24, valid, d.MaxKver)
	d.BpfloaderMinVer = u32(b, 28, valid, d.BpfloaderMinVer)
	d.BpfloaderMaxVer = u32(b, 32, valid, d.BpfloaderMaxVer)
	d.Mode = u32(b, 36, valid, d.Mode)
	d.UID = u32(b, 40, valid, d.UID)
	d.GID = u32(b, 44, valid, d.GID)
	d.IgnoreOnEng = bit(b, 48, valid)
	d.IgnoreOnUser = bit(b, 49, valid)
	d.IgnoreOnUserdebug = bit(b, 50, valid)
	d.IgnoreOnArm32 = bit(b, 51, valid)
	d.IgnoreOnAarch64 = bit(b, 52, valid)
	d.IgnoreOnX86_32 = bit(b, 53, valid)
	d.IgnoreOnX86_64 = bit(b, 54, valid)
	d.IgnoreOnRiscv64 = bit(b, 55, valid)
	d.Shared = bit(b, 56, valid)
	if valid >= 60+selinuxContextLen {
		d.SelinuxContext = cstr(b[60 : 60+selinuxContextLen])
	}
	if valid >= 92+pinSubdirLen {
		d.PinSubdir = cstr(b[92 : 92+pinSubdirLen])
	}
	d.Zero = u32(b, 124, valid, d.Zero)
	return d
}

func decodeProgDef(b []byte, valid int) ProgDef {
	var d ProgDef
	d.BpfloaderMaxVer = DefaultBpfloaderMaxVer
	d.MaxKver = DefaultMaxKver

	d.MinKver = u32(b, 0, valid, d.MinKver)
	d.MaxKver = u32(b, 4, valid, d.MaxKver)
	d.BpfloaderMinVer = u32(b, 8, valid, d.BpfloaderMinVer)
	d.BpfloaderMaxVer = u32(b, 12, valid, d.BpfloaderMaxVer)
	d.Optional = bit(b, 16, valid)
	d.IgnoreOnEng = bit(b, 17, valid)
	d.IgnoreOnUser = bit(b, 18, valid)
	d.IgnoreOnUserdebug = bit(b, 19, valid)
	d.IgnoreOnArm32 = bit(b, 20, valid)
	d.IgnoreOnAarch64 = bit(b, 21, valid)
	d.IgnoreOnX86_32 = bit(b, 22, valid)
	d.IgnoreOnX86_64 = bit(b, 23, valid)
	d.IgnoreOnRiscv64 = bit(b, 24, valid)
	d.UID = u32(b, 28, valid, d.UID)
	d.GID = u32(b, 32, valid, d.GID)
	if valid >= 36+selinuxContextLen {
		d.SelinuxContext = cstr(b[36 : 36+selinuxContextLen])
	}
	if valid >= 68+pinSubdirLen {
		d.PinSubdir = cstr(b[68 : 68+pinSubdirLen])
	}
	return d
}

// u32 reads a little-endian uint32 at off, but only if the field's
// full byte range [off, off+4) falls within valid - otherwise it
// returns deflt unchanged, preserving whatever default the caller
// pre-populated.
func u32(b []byte, off, valid int, deflt uint32) uint32 {
	if off+4 > valid {
		return deflt
	}
	return binary.LittleEndian.Uint32(b[off : off+4])
}

// bit reports whether the byte at off is non-zero, treating a byte
// past valid as absent (false) rather than a genuine zero.
func bit(b []byte, off, valid int) bool {
	if off >= valid {
		return false
	}
	return b[off] != 0
}

func cstr(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
