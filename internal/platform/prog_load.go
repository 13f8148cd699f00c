package platform

import (
	"runtime"
	"unsafe"
)

// LoadProgramRequest holds everything BPF_PROG_LOAD needs, in the caller's
// native types; LoadProgram handles the unsafe.Pointer/KeepAlive plumbing.
type LoadProgramRequest struct {
	ProgType           uint32
	ExpectedAttachType uint32
	KernelVersion      uint32
	License            string
	Instructions       []byte
	Name               string
	LogBuf             []byte
}

// LoadProgram issues BPF_PROG_LOAD. On verifier failure the request's
// LogBuf is left populated (NUL-terminated, possibly with trailing
// garbage) for the caller to split and log.
func LoadProgram(req *LoadProgramRequest) (*FD, error) {
	license := append([]byte(req.License), 0)

	attr := ProgAttr{
		ProgType:           req.ProgType,
		InsnCnt:            uint32(len(req.Instructions) / 8),
		Insns:              uint64(uintptr(unsafe.Pointer(&req.Instructions[0]))),
		License:            uint64(uintptr(unsafe.Pointer(&license[0]))),
		LogLevel:           1,
		LogSize:            uint32(len(req.LogBuf)),
		KernVersion:        req.KernelVersion,
		ExpectedAttachType: req.ExpectedAttachType,
	}
	if len(req.LogBuf) > 0 {
		attr.LogBuf = uint64(uintptr(unsafe.Pointer(&req.LogBuf[0])))
	}
	if req.Name != "" {
		attr.SetName(req.Name)
	}

	fd, err := ProgLoad(&attr)
	runtime.KeepAlive(req.Instructions)
	runtime.KeepAlive(license)
	runtime.KeepAlive(req.LogBuf)
	return fd, err
}
