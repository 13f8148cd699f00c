// Package config resolves the loader's directory search list: which
// directories to scan for .o objects, and what pin-path prefix each one
// implies. Defaults mirror NetBpfLoad.cpp's locations[] table, adapted
// from Android's apex paths to a generic Linux filesystem layout. Via
// viper, the pin base directory is overridable through a
// BPFLOADER_-prefixed environment variable or a config file; the
// location list is overridable through the config file only.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Location pairs a directory to scan for .o objects with the pin-path
// prefix objects found there default to when their own descriptor
// doesn't specify a pin_subdir.
type Location struct {
	Dir    string
	Prefix string
}

// defaultLocations mirrors locations[] in NetBpfLoad.cpp, in the same
// scan order: tethering first, then the netd-facing subdirectories from
// most to least privileged.
var defaultLocations = []Location{
	{Dir: "/etc/bpf/tethering/", Prefix: "tethering/"},
	{Dir: "/etc/bpf/netd_shared/", Prefix: "netd_shared/"},
	{Dir: "/etc/bpf/netd_readonly/", Prefix: "netd_readonly/"},
	{Dir: "/etc/bpf/net_shared/", Prefix: "net_shared/"},
	{Dir: "/etc/bpf/net_private/", Prefix: "net_private/"},
}

// EnvPrefix is the viper environment variable prefix, as in
// BPFLOADER_PIN_BASE_DIR.
const EnvPrefix = "BPFLOADER"

// Config is the fully resolved configuration for one loader run.
type Config struct {
	// PinBaseDir is the bpffs directory the directory driver creates the
	// pin subdirectories and the mainline_done flag under. Map and
	// program pins themselves are always placed under pin.BaseDir
	// ("/sys/fs/bpf/"), whatever this is set to.
	PinBaseDir string

	// Locations is the ordered list of directories to scan, most
	// privileged first - processing order within a directory is
	// filesystem readdir order, never sorted.
	Locations []Location

	// LoaderVersion identifies this build for bpfloader_min/max_ver
	// gating; set by the CLI from its --loader-version flag.
	LoaderVersion uint32
}

// Load builds a Config from defaults, optional config file configPath,
// and BPFLOADER_-prefixed environment variables, in that precedence
// order (env overrides file overrides defaults).
func Load(configPath string, loaderVersion uint32) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	v.SetDefault("pin_base_dir", "/sys/fs/bpf/")

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: reading %s: %w", configPath, err)
		}
	}

	var raw struct {
		PinBaseDir string `mapstructure:"pin_base_dir"`
		Locations  []Location
	}
	if err := v.Unmarshal(&raw); err != nil {
		return Config{}, fmt.Errorf("config: unmarshaling: %w", err)
	}
	if len(raw.Locations) == 0 {
		raw.Locations = defaultLocations
	}

	return Config{
		PinBaseDir:    raw.PinBaseDir,
		Locations:     raw.Locations,
		LoaderVersion: loaderVersion,
	}, nil
}
