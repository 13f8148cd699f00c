package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFromSelinuxContextKnown(t *testing.T) {
	require.Equal(t, NetShared, FromSelinuxContext("fs_bpf_net_shared"))
}

func TestFromSelinuxContextUnknownDegradesToUnspecified(t *testing.T) {
	require.Equal(t, Unspecified, FromSelinuxContext("fs_bpf_made_up"))
}

func TestFromPinSubdirKnown(t *testing.T) {
	require.Equal(t, Tethering, FromPinSubdir("tethering/"))
}

func TestFromPinSubdirEmptyIsUnspecified(t *testing.T) {
	require.Equal(t, Unspecified, FromPinSubdir(""))
}

func TestFromPinSubdirUnknownIsUnrecognized(t *testing.T) {
	require.Equal(t, Unrecognized, FromPinSubdir("made_up/"))
}

func TestSpecified(t *testing.T) {
	require.False(t, Specified(Unspecified))
	require.True(t, Specified(Tethering))
}

func TestSelinuxLabelFallback(t *testing.T) {
	require.Equal(t, "fallback", SelinuxLabel(Unspecified, "fallback"))
	require.Equal(t, "fs_bpf_tethering", SelinuxLabel(Tethering, "fallback"))
}

func TestPinSubdirFallback(t *testing.T) {
	require.Equal(t, "fallback/", PinSubdir(Unspecified, "fallback/"))
	require.Equal(t, "net_private/", PinSubdir(NetPrivate, "fallback/"))
}

func TestAllIncludesUnspecified(t *testing.T) {
	require.Contains(t, All(), Unspecified)
	require.Len(t, All(), 6)
}
