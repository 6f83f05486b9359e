package debug

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteBundleWritesJSONFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "support", "bundle.json")
	bundle := NewBundle()
	bundle.Version = map[string]any{"version": "1.2.3"}
	bundle.Storage = map[string]any{"schema_version": 2, "boot_source": "stored"}
	bundle.Checks = []Check{{Name: "audit", OK: true, Message: "3 events"}}

	require.NoError(t, WriteBundle(path, bundle))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded Bundle
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Equal(t, runtime.GOOS, decoded.GOOS)
	require.Equal(t, runtime.Version(), decoded.GoVersion)
	require.Equal(t, "1.2.3", decoded.Version["version"])
	require.Equal(t, "stored", decoded.Storage["boot_source"])
	require.Len(t, decoded.Checks, 1)

	info, err := os.Stat(path)
	require.NoError(t, err)
	if runtime.GOOS != "windows" {
		require.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	}
}

func TestWriteBundleRequiresOutputPath(t *testing.T) {
	t.Parallel()

	err := WriteBundle("", NewBundle())
	require.Error(t, err)
	require.Contains(t, err.Error(), "output path is required")
}

func TestBundleFailed(t *testing.T) {
	t.Parallel()

	bundle := NewBundle()
	require.False(t, bundle.Failed())
	bundle.Checks = []Check{{Name: "snapshot", OK: true}, {Name: "audit", OK: false}}
	require.True(t, bundle.Failed())
}
