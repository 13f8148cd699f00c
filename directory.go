package netbpfload

import (
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/openbpf/netbpfload/internal/config"
	"github.com/openbpf/netbpfload/internal/domain"
	"github.com/openbpf/netbpfload/internal/env"
	"github.com/openbpf/netbpfload/internal/gate"
	"github.com/openbpf/netbpfload/internal/platform"
)

// DirectoryResult is the aggregate outcome of loading every object under
// every configured Location.
type DirectoryResult struct {
	ObjectsLoaded int
	ObjectsFailed int
	// Err is the first critical-object failure encountered, if any.
	// Non-critical failures are logged but never populate this.
	Err error
}

// RunDirectory creates every pin subdirectory up front, then processes
// each configured location in order, each directory's entries in
// readdir order. A critical object's failure becomes the final
// returned error; a non-critical object's failure is logged and
// processing continues.
func RunDirectory(cfg config.Config, e env.Snapshot, log *logrus.Entry) DirectoryResult {
	var result DirectoryResult

	if err := createPinSubdirs(cfg); err != nil {
		result.Err = errors.Wrap(err, "creating pin subdirectories")
		return result
	}

	for _, loc := range cfg.Locations {
		entries, err := readELFObjects(loc.Dir)
		if err != nil {
			log.WithField("dir", loc.Dir).WithError(err).Debug("skipping unreadable location")
			continue
		}

		for _, name := range entries {
			objPath := loc.Dir + name
			obj, err := LoadObject(objPath, loc.Prefix, e, log)
			if err != nil {
				result.ObjectsFailed++
				l := log.WithField("object", objPath).WithError(err)
				if obj.Critical {
					l.Error("critical object failed to load")
					if result.Err == nil {
						result.Err = errors.Wrapf(err, "critical object %s", objPath)
					}
				} else {
					l.Warn("non-critical object failed to load")
				}
				continue
			}
			if !obj.Skipped {
				result.ObjectsLoaded++
			}
		}
	}

	return result
}

// readELFObjects lists name entries ending in ".o" in the directory's
// raw readdir order - the core never sorts.
func readELFObjects(dir string) ([]string, error) {
	f, err := os.Open(dir)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	names, err := f.Readdirnames(-1)
	if err != nil {
		return nil, err
	}

	var objs []string
	for _, n := range names {
		if strings.HasSuffix(n, ".o") {
			objs = append(objs, n)
		}
	}
	return objs, nil
}

// createPinSubdirs creates every pin subdirectory that must exist before
// any object is processed: the unconditional "loader/" subdirectory
// (used to trigger its own genfscon rule), each configured location's
// prefix subdirectory, and every recognized domain's subdirectory.
func createPinSubdirs(cfg config.Config) error {
	if err := platform.MkdirSticky(cfg.PinBaseDir + "loader"); err != nil {
		return errors.Wrap(err, "loader/")
	}

	seen := map[string]bool{}
	mkdir := func(prefix string) error {
		if prefix == "" || seen[prefix] {
			return nil
		}
		seen[prefix] = true
		return platform.MkdirSticky(cfg.PinBaseDir + strings.TrimSuffix(prefix, "/"))
	}

	for _, loc := range cfg.Locations {
		if err := mkdir(loc.Prefix); err != nil {
			return errors.Wrapf(err, "%s", loc.Prefix)
		}
	}
	for _, d := range domain.All() {
		if err := mkdir(domain.PinSubdir(d, "")); err != nil {
			return errors.Wrapf(err, "domain %s", d)
		}
	}
	return nil
}

// FinishDirectory runs the post-load marker map smoke test and creates
// the netd_shared/mainline_done completion flag directory. Call only
// after RunDirectory reports no critical failure.
func FinishDirectory(cfg config.Config) error {
	if err := SmokeTest(); err != nil {
		return errors.Wrap(err, "smoke test")
	}
	if err := platform.MkdirSticky(cfg.PinBaseDir + "netd_shared/mainline_done"); err != nil {
		return errors.Wrap(err, "netd_shared/mainline_done")
	}
	return nil
}

// SmokeTest creates a throwaway 2-entry ARRAY map and writes into it as
// a canary against a kernel that accepts every other step but can't
// actually run BPF_MAP_UPDATE_ELEM - a critical kernel bug that would
// otherwise surface much later and much less clearly.
func SmokeTest() error {
	attr := platform.MapAttr{
		MapType:    uint32(gate.MapTypeArray),
		KeySize:    4,
		ValueSize:  4,
		MaxEntries: 2,
	}
	fd, err := platform.MapCreate(&attr)
	if err != nil {
		return err
	}
	defer fd.Close()

	if err := platform.MapUpdateElemU32(fd, 1, 1); err != nil {
		return err
	}
	return nil
}
