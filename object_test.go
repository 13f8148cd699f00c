package netbpfload

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestObjNameFromPath(t *testing.T) {
	cases := map[string]string{
		"/etc/bpf/net_shared/prog1obj.o":  "prog1obj",
		"/etc/bpf/tethering/test@v2.o":    "test",
		"/etc/bpf/tethering/plain.o.bak":  "plain.o",
		"noext":                           "noext",
		"/a/b/foo@suffix.extra.o":         "foo",
	}
	for in, want := range cases {
		require.Equal(t, want, objNameFromPath(in), in)
	}
}
