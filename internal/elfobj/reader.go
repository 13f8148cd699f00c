// Package elfobj is a small bespoke reader over the BPF object ELF
// convention: named constant sections, a maps/progs definition array, and
// code sections with a conventional program-type-prefixed name. It wraps
// the standard library's debug/elf the way the teacher's own
// internal.SafeELFFile does - recovering decoder panics into errors,
// since debug/elf has a history of panicking on malformed input - while
// exposing the narrower, purpose-built accessor surface NetBpfLoad.cpp's
// readSectionByName/readSectionByType/readSymTab family defines.
package elfobj

import (
	"debug/elf"
	"fmt"
	"io"
	"sort"

	"github.com/pkg/errors"
)

// ErrNotFound is returned by the by-name/by-type accessors when no
// matching section exists.
var ErrNotFound = errors.New("elfobj: section not found")

// Reader exposes read-only, typed accessors over a single BPF ELF object.
// It is stateless beyond the underlying file handle - every accessor
// re-derives what it needs from the parsed elf.File.
type Reader struct {
	file *elf.File
}

// Open parses the ELF object at r. Any panic inside debug/elf is turned
// into an error rather than propagating, mirroring the teacher's
// SafeELFFile.
func Open(r io.ReaderAt) (rd *Reader, err error) {
	defer func() {
		if p := recover(); p != nil {
			rd = nil
			err = fmt.Errorf("elfobj: parsing ELF object panicked: %v", p)
		}
	}()

	f, err := elf.NewFile(r)
	if err != nil {
		return nil, errors.Wrap(err, "elfobj: reading ELF header")
	}
	return &Reader{file: f}, nil
}

// Close releases the parsed file. It does not close the io.ReaderAt
// given to Open; the caller keeps ownership of that.
func (r *Reader) Close() error {
	if r.file == nil {
		return nil
	}
	return r.file.Close()
}

// SectionByName returns the raw bytes of the first section named name.
func (r *Reader) SectionByName(name string) ([]byte, error) {
	sec := r.file.Section(name)
	if sec == nil {
		return nil, ErrNotFound
	}
	return sec.Data()
}

// SectionByType returns the raw bytes of the first section of the given
// ELF section type (e.g. elf.SHT_SYMTAB).
func (r *Reader) SectionByType(typ elf.SectionType) ([]byte, error) {
	for _, sec := range r.file.Sections {
		if sec.Type == typ {
			return sec.Data()
		}
	}
	return nil, ErrNotFound
}

// Symbols returns the ELF symbol table, optionally sorted ascending by
// st_value - the metadata decoder needs this sort to match map/program
// definition records to their symbol names by index, the same way
// readSymTab(sort=1) feeds getSectionSymNames. As with debug/elf, the
// null symbol at ELF index 0 is not included.
func (r *Reader) Symbols(sorted bool) ([]elf.Symbol, error) {
	syms, err := safeSymbols(r.file)
	if err != nil {
		return nil, err
	}
	if sorted {
		out := make([]elf.Symbol, len(syms))
		copy(out, syms)
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].Value < out[j].Value
		})
		return out, nil
	}
	return syms, nil
}

func safeSymbols(f *elf.File) (syms []elf.Symbol, err error) {
	defer func() {
		if p := recover(); p != nil {
			syms = nil
			err = fmt.Errorf("elfobj: reading symbols panicked: %v", p)
		}
	}()
	return f.Symbols()
}

// SectionIndexByName returns the index of the section named name, or -1.
func (r *Reader) SectionIndexByName(name string) int {
	for i, sec := range r.file.Sections {
		if sec.Name == name {
			return i
		}
	}
	return -1
}

// SectionNameAt returns the name of the section at index idx.
func (r *Reader) SectionNameAt(idx int) (string, bool) {
	if idx < 0 || idx >= len(r.file.Sections) {
		return "", false
	}
	return r.file.Sections[idx].Name, true
}

// NumSections returns the number of sections, for driving readdir-order
// style iteration over every section header.
func (r *Reader) NumSections() int {
	return len(r.file.Sections)
}

// SymbolsInSection returns the names of symbols resident in the named
// section, optionally filtered by ELF symbol type (elf.STT_FUNC, etc).
// Symbols are matched by st_shndx, the same mechanism
// getSectionSymNames uses.
func (r *Reader) SymbolsInSection(sectionName string, filterType elf.SymType, filter bool) ([]string, error) {
	idx := r.SectionIndexByName(sectionName)
	if idx < 0 {
		return nil, ErrNotFound
	}

	syms, err := r.Symbols(true)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, s := range syms {
		if int(s.Section) != idx {
			continue
		}
		if filter && elf.ST_TYPE(s.Info) != filterType {
			continue
		}
		names = append(names, s.Name)
	}
	return names, nil
}

// Uint32FromSection decodes the first 4 bytes of the named section as a
// little-endian uint32, returning def if the section is absent or
// shorter than 4 bytes - the convention bpfloader_min_ver and friends
// use.
func (r *Reader) Uint32FromSection(name string, def uint32) uint32 {
	data, err := r.SectionByName(name)
	if err != nil || len(data) < 4 {
		return def
	}
	return uint32(data[0]) | uint32(data[1])<<8 | uint32(data[2])<<16 | uint32(data[3])<<24
}

// License returns the NUL-terminated license string from the "license"
// section. Absence is fatal per the BPF object convention.
func (r *Reader) License() (string, error) {
	data, err := r.SectionByName("license")
	if err != nil {
		return "", err
	}
	return cString(data), nil
}

// Critical reports whether a "critical" section is present, and if so its
// human-readable reason string.
func (r *Reader) Critical() (bool, string) {
	data, err := r.SectionByName("critical")
	if err != nil {
		return false, ""
	}
	return true, cString(data)
}

func cString(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
