package netbpfload

import "strings"

// progTypeEntry binds one recognized code-section name prefix to the
// kernel program type and expected attach type it implies.
type progTypeEntry struct {
	prefix     string
	progType   uint32
	attachType uint32
}

// bpfAttachTypeUnspec is BPF_CGROUP_INET_INGRESS (0), the kernel's
// "unspecified" attach type sentinel - an expected_attach_type of 0 is
// how a program declares it doesn't care.
const bpfAttachTypeUnspec = 0

// progTypes enumerates every program type prefix section 6 of the spec
// recognizes, in NetBpfLoad.cpp's kSectionNameTypes order. Numeric
// values match linux/bpf.h's enum bpf_prog_type / enum bpf_attach_type.
var progTypes = []progTypeEntry{
	{"bind4/", 18 /* CGROUP_SOCK_ADDR */, 8 /* CGROUP_INET4_BIND */},
	{"bind6/", 18, 9 /* CGROUP_INET6_BIND */},
	{"cgroupskb/", 8 /* CGROUP_SKB */, bpfAttachTypeUnspec},
	{"cgroupsock/", 9 /* CGROUP_SOCK */, bpfAttachTypeUnspec},
	{"cgroupsockcreate/", 9, 2 /* CGROUP_INET_SOCK_CREATE */},
	{"cgroupsockrelease/", 9, 34 /* CGROUP_INET_SOCK_RELEASE */},
	{"connect4/", 18, 10 /* CGROUP_INET4_CONNECT */},
	{"connect6/", 18, 11 /* CGROUP_INET6_CONNECT */},
	{"egress/", 8 /* CGROUP_SKB */, 1 /* CGROUP_INET_EGRESS */},
	{"getsockopt/", 25 /* CGROUP_SOCKOPT */, 21 /* CGROUP_GETSOCKOPT */},
	{"ingress/", 8 /* CGROUP_SKB */, 0 /* CGROUP_INET_INGRESS */},
	{"lwt_in/", 10 /* LWT_IN */, bpfAttachTypeUnspec},
	{"lwt_out/", 11 /* LWT_OUT */, bpfAttachTypeUnspec},
	{"lwt_seg6local/", 19 /* LWT_SEG6LOCAL */, bpfAttachTypeUnspec},
	{"lwt_xmit/", 12 /* LWT_XMIT */, bpfAttachTypeUnspec},
	{"postbind4/", 9 /* CGROUP_SOCK */, 12 /* CGROUP_INET4_POST_BIND */},
	{"postbind6/", 9, 13 /* CGROUP_INET6_POST_BIND */},
	{"recvmsg4/", 18, 19 /* CGROUP_UDP4_RECVMSG */},
	{"recvmsg6/", 18, 20 /* CGROUP_UDP6_RECVMSG */},
	{"schedact/", 4 /* SCHED_ACT */, bpfAttachTypeUnspec},
	{"schedcls/", 3 /* SCHED_CLS */, bpfAttachTypeUnspec},
	{"sendmsg4/", 18, 14 /* CGROUP_UDP4_SENDMSG */},
	{"sendmsg6/", 18, 15 /* CGROUP_UDP6_SENDMSG */},
	{"setsockopt/", 25 /* CGROUP_SOCKOPT */, 22 /* CGROUP_SETSOCKOPT */},
	{"skfilter/", 1 /* SOCKET_FILTER */, bpfAttachTypeUnspec},
	{"sockops/", 13 /* SOCK_OPS */, 3 /* CGROUP_SOCK_OPS */},
	{"sysctl", 23 /* CGROUP_SYSCTL */, 18 /* CGROUP_SYSCTL */},
	{"xdp/", 6 /* XDP */, bpfAttachTypeUnspec},
}

// resolveSectionName matches a code section's ELF name against the
// recognized program-type prefixes and splits off the program name -
// the substring following the prefix, with '/' replaced by '_' and any
// trailing '$suffix' stripped.
func resolveSectionName(sectionName string) (progType, attachType uint32, progName string, ok bool) {
	for _, e := range progTypes {
		if !strings.HasPrefix(sectionName, e.prefix) {
			continue
		}
		name := sectionName[len(e.prefix):]
		name = strings.ReplaceAll(name, "/", "_")
		if i := strings.IndexByte(name, '$'); i >= 0 {
			name = name[:i]
		}
		return e.progType, e.attachType, name, true
	}
	return 0, 0, "", false
}
