package elfobj

import (
	"debug/elf"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func openSelf(t *testing.T) *Reader {
	t.Helper()
	path, err := os.Executable()
	require.NoError(t, err)

	f, err := os.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })

	r, err := Open(f)
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

func TestOpenAndNumSections(t *testing.T) {
	r := openSelf(t)
	require.Greater(t, r.NumSections(), 0)
}

func TestSectionByNameMissing(t *testing.T) {
	r := openSelf(t)
	_, err := r.SectionByName("license")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCriticalAbsent(t *testing.T) {
	r := openSelf(t)
	critical, _ := r.Critical()
	require.False(t, critical)
}

func TestUint32FromSectionDefault(t *testing.T) {
	r := openSelf(t)
	require.EqualValues(t, 7, r.Uint32FromSection("bpfloader_min_ver", 7))
}

func TestSectionIndexByNameAndNameAt(t *testing.T) {
	r := openSelf(t)
	idx := r.SectionIndexByName(".text")
	require.GreaterOrEqual(t, idx, 0)
	name, ok := r.SectionNameAt(idx)
	require.True(t, ok)
	require.Equal(t, ".text", name)
}

func TestSymbolsInSectionFuncFilter(t *testing.T) {
	r := openSelf(t)
	names, err := r.SymbolsInSection(".text", elf.STT_FUNC, true)
	if err != nil {
		t.Skipf("symbol table not available on this binary: %v", err)
	}
	require.NotEmpty(t, names)
}
