package bpfdef

import (
	"encoding/binary"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestDecodeMapDefsCanonicalSize(t *testing.T) {
	raw := make([]byte, mapDefOnDiskSize)
	binary.LittleEndian.PutUint32(raw[0:4], 1)  // type = HASH
	binary.LittleEndian.PutUint32(raw[4:8], 4)  // key_size
	binary.LittleEndian.PutUint32(raw[8:12], 4) // value_size
	binary.LittleEndian.PutUint32(raw[24:28], DefaultMaxKver)
	binary.LittleEndian.PutUint32(raw[32:36], DefaultBpfloaderMaxVer)
	copy(raw[60:60+selinuxContextLen], "fs_bpf_net_shared")

	defs, err := DecodeMapDefs(raw, mapDefOnDiskSize, []string{"m"})
	require.NoError(t, err)
	require.Len(t, defs, 1)
	require.EqualValues(t, 1, defs[0].Type)
	require.EqualValues(t, 4, defs[0].KeySize)
	require.Equal(t, "fs_bpf_net_shared", defs[0].SelinuxContext)
	require.EqualValues(t, DefaultMaxKver, defs[0].MaxKver)
	require.EqualValues(t, DefaultBpfloaderMaxVer, defs[0].BpfloaderMaxVer)
}

func TestDecodeMapDefsTruncatedOlderSchema(t *testing.T) {
	// An older object might declare a smaller on-disk record that only
	// carries the first few fields; defaults must backfill the rest.
	const oldSize = 20
	raw := make([]byte, oldSize)
	binary.LittleEndian.PutUint32(raw[0:4], 2) // type = ARRAY
	binary.LittleEndian.PutUint32(raw[12:16], 10)

	defs, err := DecodeMapDefs(raw, oldSize, []string{"m"})
	require.NoError(t, err)
	require.EqualValues(t, 2, defs[0].Type)
	require.EqualValues(t, 10, defs[0].MaxEntries)
	require.EqualValues(t, DefaultMaxKver, defs[0].MaxKver)
	require.Equal(t, "", defs[0].SelinuxContext)
}

func TestDecodeMapDefsMisaligned(t *testing.T) {
	_, err := DecodeMapDefs(make([]byte, 10), mapDefOnDiskSize, nil)
	require.ErrorIs(t, err, ErrMisaligned)
}

func TestDecodeMapDefsCountMismatch(t *testing.T) {
	raw := make([]byte, mapDefOnDiskSize*2)
	_, err := DecodeMapDefs(raw, mapDefOnDiskSize, []string{"only_one"})
	require.Error(t, err)
}

func TestDecodeMapDefsTruncatedOlderSchemaFullDiff(t *testing.T) {
	const oldSize = 20
	raw := make([]byte, oldSize)
	binary.LittleEndian.PutUint32(raw[0:4], 2)
	binary.LittleEndian.PutUint32(raw[12:16], 10)

	defs, err := DecodeMapDefs(raw, oldSize, []string{"m"})
	require.NoError(t, err)

	want := MapDef{
		Type:            2,
		MaxEntries:      10,
		MaxKver:         DefaultMaxKver,
		BpfloaderMaxVer: DefaultBpfloaderMaxVer,
	}
	if diff := cmp.Diff(want, defs[0]); diff != "" {
		t.Fatalf("decoded MapDef mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeProgDefsCanonicalSize(t *testing.T) {
	raw := make([]byte, progDefOnDiskSize)
	raw[16] = 1 // optional = true
	binary.LittleEndian.PutUint32(raw[4:8], DefaultMaxKver)
	copy(raw[68:68+pinSubdirLen], "net_shared/")

	defs, err := DecodeProgDefs(raw, progDefOnDiskSize, []string{"prog1_def"})
	require.NoError(t, err)
	require.True(t, defs[0].Optional)
	require.Equal(t, "net_shared/", defs[0].PinSubdir)
	require.EqualValues(t, DefaultMaxKver, defs[0].MaxKver)
}
