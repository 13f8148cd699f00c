package pin

import (
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/openbpf/netbpfload/internal/platform"
)

func skipUnlessPrivileged(t *testing.T) {
	t.Helper()
	if os.Getuid() != 0 {
		t.Skip("pin: requires root to create bpf objects and write to bpffs")
	}
	if ok, _ := platform.Exists(BaseDir); !ok {
		t.Skip("pin: bpffs not mounted at " + BaseDir)
	}
}

func TestCreateAndLookupRoundTrip(t *testing.T) {
	skipUnlessPrivileged(t)

	attr := platform.MapAttr{
		MapType:    unix.BPF_MAP_TYPE_ARRAY,
		KeySize:    4,
		ValueSize:  4,
		MaxEntries: 1,
	}
	fd, err := platform.MapCreate(&attr)
	require.NoError(t, err)
	defer fd.Close()

	finalPath := fmt.Sprintf("%spin_test_%d", BaseDir, os.Getpid())
	defer os.Remove(finalPath)

	d := Descriptor{FinalPath: finalPath, Mode: 0600, UID: 0, GID: 0}
	require.NoError(t, Create(d, fd))

	got, reused, err := Lookup(finalPath)
	require.NoError(t, err)
	require.True(t, reused)
	defer got.Close()

	info, err := platform.MapGetInfo(got)
	require.NoError(t, err)
	require.EqualValues(t, unix.BPF_MAP_TYPE_ARRAY, info.Type)
}

func TestLookupMissingPath(t *testing.T) {
	skipUnlessPrivileged(t)

	_, reused, err := Lookup(fmt.Sprintf("%sdoes_not_exist_%d", BaseDir, os.Getpid()))
	require.NoError(t, err)
	require.False(t, reused)
}

func TestCreateWithLabelSubdirRenames(t *testing.T) {
	skipUnlessPrivileged(t)

	subdir := "pin_test_subdir/"
	require.NoError(t, platform.MkdirSticky(BaseDir+subdir[:len(subdir)-1]))
	defer os.Remove(BaseDir + subdir[:len(subdir)-1])

	attr := platform.MapAttr{
		MapType:    unix.BPF_MAP_TYPE_ARRAY,
		KeySize:    4,
		ValueSize:  4,
		MaxEntries: 1,
	}
	fd, err := platform.MapCreate(&attr)
	require.NoError(t, err)
	defer fd.Close()

	finalPath := fmt.Sprintf("%slabeled_%d", BaseDir, os.Getpid())
	defer os.Remove(finalPath)
	tmpName := fmt.Sprintf("tmp_labeled_%d", os.Getpid())

	d := Descriptor{
		FinalPath:   finalPath,
		LabelSubdir: subdir,
		TmpName:     tmpName,
		Mode:        0600,
	}
	require.NoError(t, Create(d, fd))

	exists, err := platform.Exists(finalPath)
	require.NoError(t, err)
	require.True(t, exists)

	tmpExists, err := platform.Exists(BaseDir + subdir + tmpName)
	require.NoError(t, err)
	require.False(t, tmpExists, "temporary pin must not survive a successful rename")
}
