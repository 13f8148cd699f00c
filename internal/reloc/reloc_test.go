package reloc

import (
	"encoding/binary"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l.WithField("test", true)
}

func TestDecodeRel(t *testing.T) {
	raw := make([]byte, 16)
	binary.LittleEndian.PutUint64(raw[0:8], 0)
	binary.LittleEndian.PutUint64(raw[8:16], 3<<32) // symIndex=3

	entries, err := DecodeRel(raw, []string{"", "", "", "m"})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, uint64(0), entries[0].Offset)
	require.Equal(t, "m", entries[0].Symbol)
}

func TestDecodeRelMisaligned(t *testing.T) {
	_, err := DecodeRel(make([]byte, 15), nil)
	require.Error(t, err)
}

func TestApplyPatchesImmAndSrcReg(t *testing.T) {
	insns := make([]byte, 16)
	insns[0] = bpfLdImmDw
	insns[1] = 0x01 // dst_reg = 1, src_reg = 0

	entries := []Entry{{Offset: 0, Symbol: "m"}}
	fds := MapFDs{"m": 7}

	require.NoError(t, Apply(insns, entries, fds, testLogger()))

	require.Equal(t, byte(0x01|pseudoMapFD<<4), insns[1])
	require.Equal(t, uint32(7), binary.LittleEndian.Uint32(insns[4:8]))
}

func TestApplySkipsUnknownSymbol(t *testing.T) {
	insns := make([]byte, 16)
	insns[0] = bpfLdImmDw

	entries := []Entry{{Offset: 0, Symbol: "missing"}}
	require.NoError(t, Apply(insns, entries, MapFDs{}, testLogger()))
	require.Equal(t, byte(0), insns[1])
}

func TestApplySkipsWrongOpcode(t *testing.T) {
	insns := make([]byte, 16)
	insns[0] = 0x07 // BPF_ALU64|ADD, not a load-imm

	entries := []Entry{{Offset: 0, Symbol: "m"}}
	fds := MapFDs{"m": 7}
	require.NoError(t, Apply(insns, entries, fds, testLogger()))
	require.Equal(t, uint32(0), binary.LittleEndian.Uint32(insns[4:8]))
}

func TestApplyOutOfBounds(t *testing.T) {
	insns := make([]byte, 8)
	entries := []Entry{{Offset: 8, Symbol: "m"}}
	fds := MapFDs{"m": 7}
	require.Error(t, Apply(insns, entries, fds, testLogger()))
}
