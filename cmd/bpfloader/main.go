// Command bpfloader is the boot-time entrypoint: it loads every
// .o object under each configured Location into the kernel,
// relocates map references, pins the results, and exits non-zero on
// any critical failure.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/openbpf/netbpfload"
	"github.com/openbpf/netbpfload/internal/config"
	"github.com/openbpf/netbpfload/internal/env"
)

var (
	configPath    string
	loaderVersion uint32
	logLevel      string
)

func main() {
	root := &cobra.Command{
		Use:          "bpfloader",
		Short:        "Boot-time eBPF object loader",
		Version:      "1.0.0",
		SilenceUsage: true,
		RunE:         run,
	}

	root.Flags().StringVar(&configPath, "config", "", "path to a YAML config file overriding the default Location list")
	root.Flags().Uint32Var(&loaderVersion, "loader-version", 1, "this build's loader version, checked against each object's bpfloader_{min,max}_ver")
	root.Flags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "bpfloader: %v\n", err)
		os.Exit(2)
	}
}

func run(*cobra.Command, []string) error {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		return fmt.Errorf("bpfloader: invalid --log-level %q: %w", logLevel, err)
	}
	log := netbpfload.NewLogger(level)
	entry := logrus.NewEntry(log)

	cfg, err := config.Load(configPath, loaderVersion)
	if err != nil {
		return fmt.Errorf("bpfloader: loading config: %w", err)
	}

	snapshot, err := env.Probe(loaderVersion)
	if err != nil {
		return fmt.Errorf("bpfloader: probing environment: %w", err)
	}
	entry = entry.WithFields(logrus.Fields{
		"kernel": snapshot.Kernel.String(),
		"arch":   snapshot.Arch.String(),
		"build":  snapshot.Build.String(),
	})

	result := netbpfload.RunDirectory(cfg, snapshot, entry)
	entry.WithFields(logrus.Fields{
		"loaded": result.ObjectsLoaded,
		"failed": result.ObjectsFailed,
	}).Info("directory load complete")

	if result.Err != nil {
		entry.WithError(result.Err).Error("boot-time load failed, boot is expected to fail")
		os.Exit(1)
	}

	if err := netbpfload.FinishDirectory(cfg); err != nil {
		entry.WithError(err).Error("post-load smoke test failed")
		os.Exit(1)
	}

	return nil
}
