package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", 42)
	require.NoError(t, err)
	require.Equal(t, "/sys/fs/bpf/", cfg.PinBaseDir)
	require.Equal(t, defaultLocations, cfg.Locations)
	require.EqualValues(t, 42, cfg.LoaderVersion)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("BPFLOADER_PIN_BASE_DIR", "/custom/bpf/")
	cfg, err := Load("", 1)
	require.NoError(t, err)
	require.Equal(t, "/custom/bpf/", cfg.PinBaseDir)
}

func TestLoadConfigFile(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "netbpfload-*.yaml")
	require.NoError(t, err)
	_, err = f.WriteString("pin_base_dir: /from/file/\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	cfg, err := Load(f.Name(), 1)
	require.NoError(t, err)
	require.Equal(t, "/from/file/", cfg.PinBaseDir)
}
