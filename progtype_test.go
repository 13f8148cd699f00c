package netbpfload

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveSectionNameBasic(t *testing.T) {
	progType, attachType, name, ok := resolveSectionName("cgroupskb/prog1")
	require.True(t, ok)
	require.EqualValues(t, 8, progType) // BPF_PROG_TYPE_CGROUP_SKB
	require.EqualValues(t, bpfAttachTypeUnspec, attachType)
	require.Equal(t, "prog1", name)
}

func TestResolveSectionNameBind4AttachType(t *testing.T) {
	progType, attachType, _, ok := resolveSectionName("bind4/prog1")
	require.True(t, ok)
	require.EqualValues(t, 18, progType)  // BPF_PROG_TYPE_CGROUP_SOCK_ADDR
	require.EqualValues(t, 8, attachType) // BPF_CGROUP_INET4_BIND
}

func TestResolveSectionNameStripsDollarSuffix(t *testing.T) {
	_, _, name, ok := resolveSectionName("xdp/prog1$5_10")
	require.True(t, ok)
	require.Equal(t, "prog1", name)
}

func TestResolveSectionNameReplacesSlash(t *testing.T) {
	_, _, name, ok := resolveSectionName("schedcls/ingress/tc")
	require.True(t, ok)
	require.Equal(t, "ingress_tc", name)
}

func TestResolveSectionNameUnrecognized(t *testing.T) {
	_, _, _, ok := resolveSectionName("made_up/prog1")
	require.False(t, ok)
}

func TestResolveSectionNameDistinctAttachTypes(t *testing.T) {
	_, ingressAttach, _, _ := resolveSectionName("ingress/p")
	_, egressAttach, _, _ := resolveSectionName("egress/p")
	require.NotEqual(t, ingressAttach, egressAttach)
}
