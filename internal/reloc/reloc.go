// Package reloc patches map file descriptors into the BPF load-imm64
// instructions a code section's relocation entries point at, the last
// step before a program can be submitted to the verifier.
package reloc

import (
	"encoding/binary"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// insnSize is sizeof(struct bpf_insn): 8 bytes per slot, two slots per
// 64-bit load-immediate instruction.
const insnSize = 8

// bpfLdImmDw is the opcode BPF_LD | BPF_IMM | BPF_DW - the only
// relocation target this loader ever rewrites.
const bpfLdImmDw = 0x18

// pseudoMapFD is BPF_PSEUDO_MAP_FD, the src_reg value that tells the
// verifier the imm field holds a map fd rather than a raw constant.
const pseudoMapFD = 1

// Entry is one decoded Elf64_Rel record: the byte offset into the code
// section's instruction stream, and the name of the symbol it
// references.
type Entry struct {
	Offset uint64
	Symbol string
}

// DecodeRel walks raw as a sequence of Elf64_Rel records (r_offset
// uint64, r_info uint64) and resolves each entry's ELF64_R_SYM(r_info)
// symbol index against syms (indexed by ELF symbol table order).
func DecodeRel(raw []byte, syms []string) ([]Entry, error) {
	const relSize = 16
	if len(raw)%relSize != 0 {
		return nil, errors.New("reloc: relocation section size is not a multiple of sizeof(Elf64_Rel)")
	}

	entries := make([]Entry, 0, len(raw)/relSize)
	for off := 0; off < len(raw); off += relSize {
		rOffset := binary.LittleEndian.Uint64(raw[off : off+8])
		rInfo := binary.LittleEndian.Uint64(raw[off+8 : off+16])
		symIndex := rInfo >> 32 // ELF64_R_SYM

		var name string
		if int(symIndex) < len(syms) {
			name = syms[symIndex]
		}
		entries = append(entries, Entry{Offset: rOffset, Symbol: name})
	}
	return entries, nil
}

// MapFDs maps a map's name to its realized, still-open file descriptor.
// Skipped maps are simply absent - Apply logs and skips any relocation
// against them, per spec: the predicate gate is expected to have
// already skipped any program depending on a skipped map.
type MapFDs map[string]int

// Apply mutates insns in place: for each entry whose symbol names a
// known map, it verifies the target slot's opcode is BPF_LD|BPF_IMM|DW
// and sets the slot's imm to the map fd and src_reg to the pseudo-map-fd
// marker. Relocations against unknown symbols, or whose target opcode
// doesn't match, are logged and left untouched - the caller passes the
// unmodified instruction stream on to the verifier, which will resolve
// or reject it on its own terms.
func Apply(insns []byte, entries []Entry, fds MapFDs, log *logrus.Entry) error {
	for _, e := range entries {
		fd, ok := fds[e.Symbol]
		if !ok {
			log.WithField("symbol", e.Symbol).Debug("reloc: no map for symbol, leaving instruction untouched")
			continue
		}

		insnIndex := e.Offset / insnSize
		slotOff := insnIndex * insnSize
		if slotOff+insnSize > uint64(len(insns)) {
			return errors.Errorf("reloc: relocation offset %d is out of bounds of a %d byte instruction stream", e.Offset, len(insns))
		}

		opcode := insns[slotOff]
		if opcode != bpfLdImmDw {
			log.WithFields(logrus.Fields{
				"symbol": e.Symbol,
				"opcode": opcode,
			}).Warn("reloc: relocation target is not BPF_LD|BPF_IMM|BPF_DW, skipping")
			continue
		}

		// bpf_insn layout: u8 code, u8 dst_reg:4|src_reg:4, i16 off, i32 imm.
		srcRegByte := slotOff + 1
		immOff := slotOff + 4
		insns[srcRegByte] = (insns[srcRegByte] & 0x0f) | (pseudoMapFD << 4)
		binary.LittleEndian.PutUint32(insns[immOff:immOff+4], uint32(fd))
	}
	return nil
}
