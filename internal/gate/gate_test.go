package gate

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/openbpf/netbpfload/internal/env"
)

func baseEnv() env.Snapshot {
	return env.Snapshot{
		Kernel:        env.KernelVersion{Major: 5, Minor: 10, Sub: 0},
		LoaderVersion: 10,
		Build:         env.BuildUser,
		Arch:          env.ArchX86_64,
		PageSize:      4096,
	}
}

func TestDecideIncludeByDefault(t *testing.T) {
	p := Predicate{BpfloaderMaxVer: 100, MaxKver: 0xffffffff}
	require.Equal(t, Include, Decide(p, baseEnv()))
}

func TestDecideLoaderVersionBounds(t *testing.T) {
	p := Predicate{BpfloaderMinVer: 20, BpfloaderMaxVer: 100, MaxKver: 0xffffffff}
	require.Equal(t, SkipLoaderMin, Decide(p, baseEnv()))

	p2 := Predicate{BpfloaderMaxVer: 5, MaxKver: 0xffffffff}
	require.Equal(t, SkipLoaderMax, Decide(p2, baseEnv()))
}

func TestDecideKernelVersionBounds(t *testing.T) {
	p := Predicate{BpfloaderMaxVer: 100, MinKver: env.KernelVersion{Major: 6}.Packed(), MaxKver: 0xffffffff}
	require.Equal(t, SkipKernelMin, Decide(p, baseEnv()))

	p2 := Predicate{BpfloaderMaxVer: 100, MaxKver: env.KernelVersion{Major: 5, Minor: 10}.Packed()}
	require.Equal(t, SkipKernelMax, Decide(p2, baseEnv()))
}

func TestDecideBuildType(t *testing.T) {
	p := Predicate{BpfloaderMaxVer: 100, MaxKver: 0xffffffff, IgnoreOnUser: true}
	require.Equal(t, SkipBuildType, Decide(p, baseEnv()))
}

func TestDecideArch(t *testing.T) {
	p := Predicate{BpfloaderMaxVer: 100, MaxKver: 0xffffffff, IgnoreOnX86_64: true}
	require.Equal(t, SkipArch, Decide(p, baseEnv()))
}

func TestResolveMapTypeDevmapFallback(t *testing.T) {
	old := env.KernelVersion{Major: 4, Minor: 9}
	require.Equal(t, MapTypeArray, ResolveMapType(MapTypeDevmap, old))

	recent := env.KernelVersion{Major: 4, Minor: 14}
	require.Equal(t, MapTypeDevmap, ResolveMapType(MapTypeDevmap, recent))
}

func TestResolveMapTypeDevmapHashFallback(t *testing.T) {
	old := env.KernelVersion{Major: 5, Minor: 0}
	require.Equal(t, MapTypeHash, ResolveMapType(MapTypeDevmapHash, old))

	recent := env.KernelVersion{Major: 5, Minor: 4}
	require.Equal(t, MapTypeDevmapHash, ResolveMapType(MapTypeDevmapHash, recent))
}

func TestResolveMaxEntriesRingbufFloor(t *testing.T) {
	require.EqualValues(t, 4096, ResolveMaxEntries(MapTypeRingbuf, 1024, 4096))
	require.EqualValues(t, 8192, ResolveMaxEntries(MapTypeRingbuf, 8192, 4096))
	require.EqualValues(t, 10, ResolveMaxEntries(MapTypeHash, 10, 4096))
}

func TestDevmapReadonlyFlag(t *testing.T) {
	require.NotZero(t, DevmapReadonlyFlag(MapTypeDevmap))
	require.NotZero(t, DevmapReadonlyFlag(MapTypeDevmapHash))
	require.Zero(t, DevmapReadonlyFlag(MapTypeHash))
}
