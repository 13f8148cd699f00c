package netbpfload

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/openbpf/netbpfload/internal/bpfdef"
	"github.com/openbpf/netbpfload/internal/domain"
	"github.com/openbpf/netbpfload/internal/env"
	"github.com/openbpf/netbpfload/internal/gate"
	"github.com/openbpf/netbpfload/internal/platform"
	"github.com/openbpf/netbpfload/pin"
)

// realizeMaps realizes every map definition in defs, in index-parallel
// order with names. Gated-out maps occupy an Invalid() sentinel in the
// returned slice rather than being omitted, so later relocation lookups
// by index stay aligned.
func realizeMaps(defs []bpfdef.MapDef, names []string, objName, prefix string, e env.Snapshot, log *logrus.Entry) ([]*platform.FD, error) {
	fds := make([]*platform.FD, len(defs))

	for i, d := range defs {
		l := log.WithField("map", names[i])

		reason := gate.Decide(mapPredicate(d), e)
		if reason != gate.Include {
			l.WithField("reason", reason).Debug("map skipped by gate")
			fds[i] = platform.Invalid()
			continue
		}

		fd, err := realizeOneMap(d, names[i], objName, prefix, e, l)
		if err != nil {
			return nil, errors.Wrapf(err, "map %s", names[i])
		}
		fds[i] = fd
	}
	return fds, nil
}

func mapPredicate(d bpfdef.MapDef) gate.Predicate {
	return gate.Predicate{
		MinKver:           d.MinKver,
		MaxKver:           d.MaxKver,
		BpfloaderMinVer:   d.BpfloaderMinVer,
		BpfloaderMaxVer:   d.BpfloaderMaxVer,
		IgnoreOnEng:       d.IgnoreOnEng,
		IgnoreOnUser:      d.IgnoreOnUser,
		IgnoreOnUserdebug: d.IgnoreOnUserdebug,
		IgnoreOnArm32:     d.IgnoreOnArm32,
		IgnoreOnAarch64:   d.IgnoreOnAarch64,
		IgnoreOnX86_32:    d.IgnoreOnX86_32,
		IgnoreOnX86_64:    d.IgnoreOnX86_64,
		IgnoreOnRiscv64:   d.IgnoreOnRiscv64,
	}
}

func realizeOneMap(d bpfdef.MapDef, name, objName, prefix string, e env.Snapshot, log *logrus.Entry) (*platform.FD, error) {
	mapType := gate.ResolveMapType(gate.MapType(d.Type), e.Kernel)
	maxEntries := gate.ResolveMaxEntries(mapType, d.MaxEntries, e.PageSize)
	flags := d.Flags | gate.DevmapReadonlyFlag(mapType)

	selinuxDomain := domain.FromSelinuxContext(d.SelinuxContext)
	pinDomain := domain.FromPinSubdir(d.PinSubdir)
	if pinDomain == domain.Unrecognized {
		return nil, ErrUnrecognizedPinSubdir
	}

	finalPath := pin.BaseDir + domain.PinSubdir(pinDomain, prefix) + "map_" + mapObjPart(d.Shared, objName) + "_" + name

	fd, reused, err := pin.Lookup(finalPath)
	if err != nil {
		return nil, err
	}

	if !reused {
		attr := platform.MapAttr{
			MapType:    uint32(mapType),
			KeySize:    d.KeySize,
			ValueSize:  d.ValueSize,
			MaxEntries: maxEntries,
			MapFlags:   flags,
		}
		if e.Kernel.AtLeast(4, 15, 0) {
			attr.SetName(name)
		}
		fd, err = platform.MapCreate(&attr)
		if err != nil {
			return nil, err
		}
		log.Debug("map created")
	} else {
		log.Debug("map reused")
	}

	if e.Kernel.AtLeast(4, 14, 0) {
		if err := validateMapShape(fd, d, mapType, maxEntries, flags); err != nil {
			return nil, err
		}
	}

	if !reused {
		desc := pin.Descriptor{
			FinalPath: finalPath,
			Mode:      d.Mode,
			UID:       d.UID,
			GID:       d.GID,
		}
		if domain.Specified(selinuxDomain) {
			desc.LabelSubdir = domain.PinSubdir(selinuxDomain, "")
			desc.TmpName = "tmp_map_" + objName + "_" + name
		}
		if err := pin.Create(desc, fd); err != nil {
			return nil, err
		}
	}

	return fd, nil
}

func mapObjPart(shared bool, objName string) string {
	if shared {
		return ""
	}
	return objName
}

func validateMapShape(fd *platform.FD, d bpfdef.MapDef, mapType gate.MapType, maxEntries, flags uint32) error {
	info, err := platform.MapGetInfo(fd)
	if err != nil {
		return err
	}
	if info.Type != uint32(mapType) || info.KeySize != d.KeySize || info.ValueSize != d.ValueSize ||
		info.MaxEntries != maxEntries || info.MapFlags != flags {
		return ErrNotUnique
	}
	return nil
}
