// Package domain resolves the free-form selinux_context/pin_subdir
// strings a map or program definition carries into a closed set of known
// security domains, grounded on NetBpfLoad.cpp's domain enum and its two
// lookup directions (selinux_context is tolerant of unknown values,
// pin_subdir is not - see FromSelinuxContext/FromPinSubdir below).
package domain

// Domain is a closed enum over the selinux_context/pin_subdir values this
// loader understands.
type Domain int

const (
	// Unspecified means "use the caller's default for this location" -
	// valid for both selinux_context and pin_subdir lookups.
	Unspecified Domain = iota
	Tethering
	NetPrivate
	NetShared
	NetdReadonly
	NetdShared

	// Unrecognized is a distinguished error value, never returned for
	// selinux_context lookups (which degrade to Unspecified instead) but
	// always fatal for pin_subdir lookups.
	Unrecognized Domain = -1
)

type entry struct {
	domain       Domain
	selinuxLabel string
	pinSubdir    string
}

// all enumerates every recognized domain, Unspecified included, in the
// order NetBpfLoad.cpp's AllDomains declares them.
var all = []entry{
	{Unspecified, "", ""},
	{Tethering, "fs_bpf_tethering", "tethering/"},
	{NetPrivate, "fs_bpf_net_private", "net_private/"},
	{NetShared, "fs_bpf_net_shared", "net_shared/"},
	{NetdReadonly, "fs_bpf_netd_readonly", "netd_readonly/"},
	{NetdShared, "fs_bpf_netd_shared", "netd_shared/"},
}

// All returns every recognized domain, Unspecified included, in table
// order - used to pre-create every domain's pin subdirectory.
func All() []Domain {
	out := make([]Domain, len(all))
	for i, e := range all {
		out[i] = e.domain
	}
	return out
}

func (d Domain) String() string {
	switch d {
	case Unrecognized:
		return "unrecognized"
	default:
		for _, e := range all {
			if e.domain == d {
				if d == Unspecified {
					return "unspecified"
				}
				return e.selinuxLabel
			}
		}
		return "unknown"
	}
}

// Specified reports whether d requires a non-default pin location. Call
// Unrecognized's caller-side check first; this never handles it.
func Specified(d Domain) bool {
	return d != Unspecified
}

// FromSelinuxContext resolves a selinux_context string. Forward
// compatible: an unknown value degrades to Unspecified rather than
// erroring, on the theory that an older loader seeing a context invented
// by a newer object should fall back to the default (more permissive)
// location rather than refuse to load entirely.
func FromSelinuxContext(s string) Domain {
	for _, e := range all {
		if e.selinuxLabel == s {
			return e.domain
		}
	}
	return Unspecified
}

// FromPinSubdir resolves a pin_subdir string. Strict: an unknown value is
// Unrecognized and fatal, because pin_subdir determines the object's
// final filesystem path - silently defaulting would let two versions of
// the loader disagree about where an object lives.
func FromPinSubdir(s string) Domain {
	if s == "" {
		return Unspecified
	}
	for _, e := range all {
		if e.pinSubdir == s {
			return e.domain
		}
	}
	return Unrecognized
}

// SelinuxLabel returns the canonical label for d, or fallback when d is
// Unspecified.
func SelinuxLabel(d Domain, fallback string) string {
	for _, e := range all {
		if e.domain == d {
			if d == Unspecified {
				return fallback
			}
			return e.selinuxLabel
		}
	}
	return "(unrecognized)"
}

// PinSubdir returns the canonical pin subdirectory for d, or fallback when
// d is Unspecified.
func PinSubdir(d Domain, fallback string) string {
	for _, e := range all {
		if e.domain == d {
			if d == Unspecified {
				return fallback
			}
			return e.pinSubdir
		}
	}
	return "(unrecognized)"
}
