package netbpfload

import "github.com/pkg/errors"

// ErrNotUnique means a map's kernel-reported shape disagrees with the
// map definition currently being realized - the loader's -ENOTUNIQ
// distinguished error.
var ErrNotUnique = errors.New("netbpfload: reused pin shape does not match current definition")

// ErrUnrecognizedPinSubdir means a descriptor's pin_subdir names no
// known domain - the loader's -ENOTDIR distinguished error, and always
// fatal since it would otherwise misplace a pinned object.
var ErrUnrecognizedPinSubdir = errors.New("netbpfload: pin_subdir does not name a recognized domain")

// ErrBadObject covers structural failures in an object file: a missing
// license section, a loader version below bpfloader_min_required_ver,
// a record size below the understood minimum, a code section without a
// function symbol or program definition, or a non-zero reserved field.
// ELF parse and record decode failures are reported with their own
// wrapped errors instead.
var ErrBadObject = errors.New("netbpfload: malformed object")

// ErrVerifierRejected means the kernel rejected a non-optional program;
// the verifier log has already been dumped to the logger by the time
// this is returned.
var ErrVerifierRejected = errors.New("netbpfload: program rejected by verifier")
