package netbpfload

import (
	"debug/elf"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/openbpf/netbpfload/internal/bpfdef"
	"github.com/openbpf/netbpfload/internal/elfobj"
	"github.com/openbpf/netbpfload/internal/env"
	"github.com/openbpf/netbpfload/internal/platform"
	"github.com/openbpf/netbpfload/internal/reloc"
)

// Object is the result of driving one ELF object through the full
// pipeline: ELF Reader, Metadata Decoder, Map Realizer, Relocator,
// Program Realizer.
type Object struct {
	Path     string
	Name     string
	Critical bool
	// Skipped is true when the object's own bpfloader_{min,max}_ver
	// range excludes the running loader - a silent, successful no-op.
	Skipped bool
}

// LoadObject drives objPath through the whole pipeline described in
// spec.md §4.8.
func LoadObject(objPath, prefix string, e env.Snapshot, log *logrus.Entry) (Object, error) {
	obj := Object{Path: objPath, Name: objNameFromPath(objPath)}
	log = log.WithField("object", obj.Name)

	f, err := os.Open(objPath)
	if err != nil {
		return obj, errors.Wrap(err, "opening object")
	}
	defer f.Close()

	r, err := elfobj.Open(f)
	if err != nil {
		return obj, errors.Wrap(err, "parsing ELF object")
	}
	defer r.Close()

	obj.Critical, _ = r.Critical()

	license, err := r.License()
	if err != nil {
		return obj, errors.Wrap(ErrBadObject, "missing license section")
	}

	minVer := r.Uint32FromSection("bpfloader_min_ver", 0)
	maxVer := r.Uint32FromSection("bpfloader_max_ver", bpfdef.DefaultBpfloaderMaxVer)
	minRequiredVer := r.Uint32FromSection("bpfloader_min_required_ver", 0)

	if e.LoaderVersion < minVer || e.LoaderVersion >= maxVer {
		log.Debug("object out of loader version range, skipping")
		obj.Skipped = true
		return obj, nil
	}
	if e.LoaderVersion < minRequiredVer {
		return obj, errors.Wrapf(ErrBadObject, "loader version %d below required minimum %d", e.LoaderVersion, minRequiredVer)
	}

	sizeofMapDef := int(r.Uint32FromSection("size_of_bpf_map_def", bpfdef.DefaultSizeofMapDef))
	sizeofProgDef := int(r.Uint32FromSection("size_of_bpf_prog_def", bpfdef.DefaultSizeofProgDef))
	if sizeofMapDef < bpfdef.DefaultSizeofMapDef {
		return obj, errors.Wrapf(ErrBadObject, "size_of_bpf_map_def %d is smaller than the minimum understood size %d", sizeofMapDef, bpfdef.DefaultSizeofMapDef)
	}
	if sizeofProgDef < bpfdef.DefaultSizeofProgDef {
		return obj, errors.Wrapf(ErrBadObject, "size_of_bpf_prog_def %d is smaller than the minimum understood size %d", sizeofProgDef, bpfdef.DefaultSizeofProgDef)
	}

	mapDefs, mapNames, err := decodeMaps(r, sizeofMapDef)
	if err != nil {
		return obj, err
	}
	for _, d := range mapDefs {
		if d.Zero != 0 {
			return obj, errors.Wrap(ErrBadObject, "map definition's reserved field is non-zero")
		}
	}

	sections, err := discoverCodeSections(r, sizeofProgDef)
	if err != nil {
		return obj, err
	}

	fds, err := realizeMaps(mapDefs, mapNames, obj.Name, prefix, e, log)
	if err != nil {
		return obj, err
	}
	defer closeMapFDs(fds)

	mapFDsByName := make(map[string]int, len(mapNames))
	for i, name := range mapNames {
		if fds[i].Valid() {
			mapFDsByName[name] = fds[i].Int()
		}
	}

	for i := range sections {
		cs := &sections[i]
		if len(cs.RelData) == 0 {
			continue
		}
		syms, err := r.Symbols(false)
		if err != nil {
			return obj, errors.Wrap(err, "reading symbol table for relocation")
		}
		// debug/elf omits the null symbol at index 0; shift by one so
		// names[i] is ELF symbol i, as DecodeRel expects.
		names := make([]string, len(syms)+1)
		for j, s := range syms {
			names[j+1] = s.Name
		}
		entries, err := reloc.DecodeRel(cs.RelData, names)
		if err != nil {
			return obj, errors.Wrapf(err, "code section %s", cs.Name)
		}
		if err := reloc.Apply(cs.Instructions, entries, reloc.MapFDs(mapFDsByName), log.WithField("section", cs.Name)); err != nil {
			return obj, errors.Wrapf(err, "code section %s", cs.Name)
		}
	}

	if err := realizePrograms(sections, license, obj.Name, prefix, e, log); err != nil {
		return obj, err
	}

	return obj, nil
}

func closeMapFDs(fds []*platform.FD) {
	for _, fd := range fds {
		_ = fd.Close()
	}
}

func decodeMaps(r *elfobj.Reader, sizeofMapDef int) ([]bpfdef.MapDef, []string, error) {
	raw, err := r.SectionByName("maps")
	if err != nil {
		if errors.Is(err, elfobj.ErrNotFound) {
			return nil, nil, nil
		}
		return nil, nil, err
	}

	names, err := r.SymbolsInSection("maps", elf.STT_NOTYPE, false)
	if err != nil {
		return nil, nil, errors.Wrap(err, "reading maps symbol names")
	}

	defs, err := bpfdef.DecodeMapDefs(raw, sizeofMapDef, names)
	if err != nil {
		return nil, nil, errors.Wrap(err, "decoding map definitions")
	}
	return defs, names, nil
}

// discoverCodeSections walks every ELF section, builds a CodeSection for
// each one whose name starts with a recognized program-type prefix,
// binds its program definition via the "<funcname>_def" symbol
// convention, and attaches an immediately-following ".rel<name>" section
// as its relocation table.
func discoverCodeSections(r *elfobj.Reader, sizeofProgDef int) ([]CodeSection, error) {
	progDefs, progDefNames, err := decodeProgs(r, sizeofProgDef)
	if err != nil {
		return nil, err
	}

	n := r.NumSections()
	var sections []CodeSection
	for i := 0; i < n; i++ {
		name, ok := r.SectionNameAt(i)
		if !ok {
			continue
		}

		progType, attachType, progName, recognized := resolveSectionName(name)
		if !recognized {
			continue
		}

		data, err := r.SectionByName(name)
		if err != nil {
			return nil, errors.Wrapf(err, "reading code section %s", name)
		}
		if len(data) == 0 {
			continue
		}

		cs := CodeSection{
			Name:               progName,
			ProgType:           progType,
			ExpectedAttachType: attachType,
			Instructions:       data,
		}

		funcNames, err := r.SymbolsInSection(name, elf.STT_FUNC, true)
		if err != nil || len(funcNames) == 0 {
			return nil, errors.Wrapf(ErrBadObject, "code section %s has no function symbol", name)
		}
		wantDefName := funcNames[0] + "_def"
		for j, defName := range progDefNames {
			if defName == wantDefName {
				d := progDefs[j]
				cs.ProgDef = &d
				break
			}
		}

		if i+1 < n {
			if relName, ok := r.SectionNameAt(i + 1); ok && relName == ".rel"+name {
				relData, err := r.SectionByName(relName)
				if err != nil {
					return nil, errors.Wrapf(err, "reading relocation section %s", relName)
				}
				cs.RelData = relData
			}
		}

		sections = append(sections, cs)
	}
	return sections, nil
}

func decodeProgs(r *elfobj.Reader, sizeofProgDef int) ([]bpfdef.ProgDef, []string, error) {
	raw, err := r.SectionByName("progs")
	if err != nil {
		if errors.Is(err, elfobj.ErrNotFound) {
			return nil, nil, nil
		}
		return nil, nil, err
	}

	names, err := r.SymbolsInSection("progs", elf.STT_NOTYPE, false)
	if err != nil {
		return nil, nil, errors.Wrap(err, "reading progs symbol names")
	}

	defs, err := bpfdef.DecodeProgDefs(raw, sizeofProgDef, names)
	if err != nil {
		return nil, nil, errors.Wrap(err, "decoding program definitions")
	}
	return defs, names, nil
}

// objNameFromPath derives the "objName" the pin path convention uses:
// the basename stripped of its final '.' extension and any '@suffix'.
func objNameFromPath(objPath string) string {
	base := filepath.Base(objPath)
	if i := strings.LastIndexByte(base, '.'); i >= 0 {
		base = base[:i]
	}
	if i := strings.IndexByte(base, '@'); i >= 0 {
		base = base[:i]
	}
	return base
}
