package platform

import (
	"runtime"
	"unsafe"

	"golang.org/x/sys/unix"
)

// MapAttr is the subset of bpf_attr needed for BPF_MAP_CREATE, with an
// optional map_name (kernel >= 4.15).
type MapAttr struct {
	MapType    uint32
	KeySize    uint32
	ValueSize  uint32
	MaxEntries uint32
	MapFlags   uint32
	innerMapFd uint32
	numaNode   uint32
	mapName    [16]byte
	pad        [3]uint32
}

// SetName truncates name to fit the kernel's 15-byte (+NUL) map_name field.
func (a *MapAttr) SetName(name string) {
	n := copy(a.mapName[:len(a.mapName)-1], name)
	a.mapName[n] = 0
}

// ProgAttr is the subset of bpf_attr needed for BPF_PROG_LOAD.
type ProgAttr struct {
	ProgType           uint32
	InsnCnt            uint32
	Insns              uint64
	License            uint64
	LogLevel           uint32
	LogSize            uint32
	LogBuf             uint64
	KernVersion        uint32
	ProgFlags          uint32
	progName           [16]byte
	ProgIfIndex        uint32
	ExpectedAttachType uint32
}

func (a *ProgAttr) SetName(name string) {
	n := copy(a.progName[:len(a.progName)-1], name)
	a.progName[n] = 0
}

// ObjAttr is the subset of bpf_attr needed for BPF_OBJ_PIN/BPF_OBJ_GET.
type ObjAttr struct {
	Pathname  uint64
	Fd        uint32
	FileFlags uint32
}

// ObjInfoAttr is the subset of bpf_attr needed for BPF_OBJ_GET_INFO_BY_FD.
type ObjInfoAttr struct {
	Fd      uint32
	InfoLen uint32
	Info    uint64
}

// MapInfo mirrors the fields of struct bpf_map_info this loader reads back
// to validate a reused pin's shape.
type MapInfo struct {
	Type       uint32
	ID         uint32
	KeySize    uint32
	ValueSize  uint32
	MaxEntries uint32
	MapFlags   uint32
	mapName    [16]byte
}

// ProgInfo mirrors the fields of struct bpf_prog_info this loader reads
// back (currently only the numeric id, for logging).
type ProgInfo struct {
	Type uint32
	ID   uint32
	Tag  [8]byte
}

func bpfSyscall(cmd int, attr unsafe.Pointer, size uintptr) (uintptr, error) {
	for {
		r1, _, errno := unix.Syscall(unix.SYS_BPF, uintptr(cmd), uintptr(attr), size)
		if errno == unix.EAGAIN {
			// The verifier can be interrupted by a signal on recent kernels.
			continue
		}
		if errno != 0 {
			return 0, errno
		}
		return r1, nil
	}
}

func bytesPtr(s string) (uint64, []byte) {
	b := append([]byte(s), 0)
	return uint64(uintptr(unsafe.Pointer(&b[0]))), b
}

// MapCreate issues BPF_MAP_CREATE and returns the new map's fd.
func MapCreate(attr *MapAttr) (*FD, error) {
	r1, err := bpfSyscall(unix.BPF_MAP_CREATE, unsafe.Pointer(attr), unsafe.Sizeof(*attr))
	if err != nil {
		return nil, wrapErrno("BPF_MAP_CREATE", err)
	}
	return NewFD(int(r1)), nil
}

// ProgLoad issues BPF_PROG_LOAD and returns the new program's fd. On
// verifier rejection the caller's logBuf already holds the dumped log;
// the returned error wraps the raw errno.
func ProgLoad(attr *ProgAttr) (*FD, error) {
	r1, err := bpfSyscall(unix.BPF_PROG_LOAD, unsafe.Pointer(attr), unsafe.Sizeof(*attr))
	if err != nil {
		return nil, wrapErrno("BPF_PROG_LOAD", err)
	}
	return NewFD(int(r1)), nil
}

// ObjPin issues BPF_OBJ_PIN, creating a bpffs inode at path referencing fd.
func ObjPin(path string, fd *FD) error {
	ptr, backing := bytesPtr(path)
	attr := ObjAttr{Pathname: ptr, Fd: fd.Uint()}
	_, err := bpfSyscall(unix.BPF_OBJ_PIN, unsafe.Pointer(&attr), unsafe.Sizeof(attr))
	_ = backing // keep alive until after the syscall
	return wrapErrno("BPF_OBJ_PIN", err)
}

// ObjGet issues BPF_OBJ_GET, retrieving a read-only fd for an existing pin.
func ObjGet(path string) (*FD, error) {
	ptr, backing := bytesPtr(path)
	attr := ObjAttr{Pathname: ptr, FileFlags: unix.O_RDONLY}
	r1, err := bpfSyscall(unix.BPF_OBJ_GET, unsafe.Pointer(&attr), unsafe.Sizeof(attr))
	_ = backing
	if err != nil {
		return nil, wrapErrno("BPF_OBJ_GET", err)
	}
	return NewFD(int(r1)), nil
}

// MapGetInfo reads back a map's kernel-side shape via BPF_OBJ_GET_INFO_BY_FD.
func MapGetInfo(fd *FD) (MapInfo, error) {
	var info MapInfo
	attr := ObjInfoAttr{
		Fd:      fd.Uint(),
		InfoLen: uint32(unsafe.Sizeof(info)),
		Info:    uint64(uintptr(unsafe.Pointer(&info))),
	}
	_, err := bpfSyscall(unix.BPF_OBJ_GET_INFO_BY_FD, unsafe.Pointer(&attr), unsafe.Sizeof(attr))
	return info, wrapErrno("BPF_OBJ_GET_INFO_BY_FD", err)
}

// ProgGetInfo reads back a program's kernel-side info (id only, used for
// logging) via BPF_OBJ_GET_INFO_BY_FD.
func ProgGetInfo(fd *FD) (ProgInfo, error) {
	var info ProgInfo
	attr := ObjInfoAttr{
		Fd:      fd.Uint(),
		InfoLen: uint32(unsafe.Sizeof(info)),
		Info:    uint64(uintptr(unsafe.Pointer(&info))),
	}
	_, err := bpfSyscall(unix.BPF_OBJ_GET_INFO_BY_FD, unsafe.Pointer(&attr), unsafe.Sizeof(attr))
	return info, wrapErrno("BPF_OBJ_GET_INFO_BY_FD", err)
}

// MapUpdateElem issues BPF_MAP_UPDATE_ELEM, used only by the post-load
// smoke test.
func MapUpdateElem(fd *FD, key, value unsafe.Pointer, flags uint64) error {
	attr := struct {
		MapFd uint32
		_pad  uint32
		Key   uint64
		Value uint64
		Flags uint64
	}{
		MapFd: fd.Uint(),
		Key:   uint64(uintptr(key)),
		Value: uint64(uintptr(value)),
		Flags: flags,
	}
	_, err := bpfSyscall(unix.BPF_MAP_UPDATE_ELEM, unsafe.Pointer(&attr), unsafe.Sizeof(attr))
	return wrapErrno("BPF_MAP_UPDATE_ELEM", err)
}

// MapUpdateElemU32 is MapUpdateElem specialized for the 4-byte key/value
// the smoke test's marker map uses.
func MapUpdateElemU32(fd *FD, key, value uint32) error {
	err := MapUpdateElem(fd, unsafe.Pointer(&key), unsafe.Pointer(&value), 0)
	runtime.KeepAlive(&key)
	runtime.KeepAlive(&value)
	return err
}
