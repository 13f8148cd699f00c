package netbpfload

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/openbpf/netbpfload/internal/bpfdef"
	"github.com/openbpf/netbpfload/internal/domain"
	"github.com/openbpf/netbpfload/internal/env"
	"github.com/openbpf/netbpfload/internal/gate"
	"github.com/openbpf/netbpfload/internal/platform"
	"github.com/openbpf/netbpfload/pin"
)

// verifierLogSize is BPF_LOAD_LOG_SZ's size: a megabyte, enough room
// for the verifier's full trace on any non-trivial program.
const verifierLogSize = 1 << 20

// CodeSection is one code section discovered during object-level
// section scanning, bound to its program definition and optional
// relocation table.
type CodeSection struct {
	Name               string
	ProgType           uint32
	ExpectedAttachType uint32
	Instructions       []byte
	RelData            []byte
	ProgDef            *bpfdef.ProgDef
}

// realizePrograms realizes each code section that survives gating, in
// order. A program marked optional that fails the verifier is logged
// and skipped rather than aborting the object.
func realizePrograms(sections []CodeSection, license, objName, prefix string, e env.Snapshot, log *logrus.Entry) error {
	for i := range sections {
		cs := &sections[i]
		l := log.WithField("prog", cs.Name)

		if cs.ProgDef == nil {
			return errors.Wrapf(ErrBadObject, "code section %q: missing program definition", cs.Name)
		}

		reason := gate.Decide(progPredicate(*cs.ProgDef), e)
		if reason != gate.Include {
			l.WithField("reason", reason).Debug("program skipped by gate")
			continue
		}

		pinDomain := domain.FromPinSubdir(cs.ProgDef.PinSubdir)
		if pinDomain == domain.Unrecognized {
			return ErrUnrecognizedPinSubdir
		}
		selinuxDomain := domain.FromSelinuxContext(cs.ProgDef.SelinuxContext)

		name := stripDollarSuffix(cs.Name)
		finalPath := pin.BaseDir + domain.PinSubdir(pinDomain, prefix) + "prog_" + objName + "_" + name

		if err := realizeOneProgram(cs, finalPath, name, objName, license, selinuxDomain, e, l); err != nil {
			if errors.Is(err, errSkipOptional) {
				continue
			}
			return errors.Wrapf(err, "program %s", cs.Name)
		}
	}
	return nil
}

// errSkipOptional signals realizeOneProgram's caller to continue past
// this section rather than abort the object - used only for an
// optional program's verifier rejection.
var errSkipOptional = errors.New("netbpfload: optional program skipped after verifier rejection")

func progPredicate(d bpfdef.ProgDef) gate.Predicate {
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

func stripDollarSuffix(name string) string {
	if i := strings.IndexByte(name, '$'); i >= 0 {
		return name[:i]
	}
	return name
}

func realizeOneProgram(cs *CodeSection, finalPath, name, objName, license string, selinuxDomain domain.Domain, e env.Snapshot, log *logrus.Entry) error {
	fd, reused, err := pin.Lookup(finalPath)
	if err != nil {
		return err
	}

	if !reused {
		logBuf := make([]byte, verifierLogSize)
		req := &platform.LoadProgramRequest{
			ProgType:           cs.ProgType,
			ExpectedAttachType: cs.ExpectedAttachType,
			KernelVersion:      e.Kernel.Packed(),
			License:            license,
			Instructions:       cs.Instructions,
			LogBuf:             logBuf,
		}
		if e.Kernel.AtLeast(4, 15, 0) {
			req.Name = name
		}

		fd, err = platform.LoadProgram(req)
		if err != nil {
			dumpVerifierLog(log, logBuf)
			if cs.ProgDef.Optional {
				log.Warn("failed program is marked optional - continuing")
				return errSkipOptional
			}
			return errors.Wrap(ErrVerifierRejected, err.Error())
		}
		log.Debug("program loaded")
	} else {
		log.Debug("program reused")
	}

	if !reused {
		desc := pin.Descriptor{
			FinalPath: finalPath,
			Mode:      0440,
			UID:       cs.ProgDef.UID,
			GID:       cs.ProgDef.GID,
		}
		if domain.Specified(selinuxDomain) {
			desc.LabelSubdir = domain.PinSubdir(selinuxDomain, "")
			desc.TmpName = "tmp_prog_" + objName + "_" + name
		}
		if err := pin.Create(desc, fd); err != nil {
			return err
		}
	}

	return nil
}
