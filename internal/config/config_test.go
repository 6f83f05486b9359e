package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigPrecedenceFlagOverEnv(t *testing.T) {
	t.Parallel()

	opts := hermeticOptions(t, `
[storage]
path = "/srv/file.db"
`)
	opts.Env["INVENTARIO_DB_PATH"] = "/srv/env.db"
	flagPath := "/srv/flag.db"
	opts.Flags = FlagOverrides{DBPath: &flagPath}

	cfg, _, err := Load(opts)
	require.NoError(t, err)
	require.Equal(t, "/srv/flag.db", cfg.Storage.Path)
}

func TestLoadConfigPrecedenceEnvOverFile(t *testing.T) {
	t.Parallel()

	opts := hermeticOptions(t, `
[logging]
level = "warn"
`)
	opts.Env["INVENTARIO_LOG_LEVEL"] = "debug"

	cfg, _, err := Load(opts)
	require.NoError(t, err)
	require.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadConfigPrecedenceFileOverDefault(t *testing.T) {
	t.Parallel()

	opts := hermeticOptions(t, `
[report]
title = "INVENTARIO NAUCALPAN"
`)

	cfg, _, err := Load(opts)
	require.NoError(t, err)
	require.Equal(t, "INVENTARIO NAUCALPAN", cfg.Report.Title)
	require.Equal(t, defaultSlotKey, cfg.Storage.SlotKey)
}

func TestLoadConfigDefaultsDatabaseUnderHome(t *testing.T) {
	t.Parallel()

	opts := hermeticOptions(t, "")

	cfg, report, err := Load(opts)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(opts.Env["INVENTARIO_HOME"], "inventario.db"), cfg.Storage.Path)
	require.Equal(t, opts.ConfigPath, report.ConfigPath)
	require.Equal(t, "info", cfg.Logging.Level)
	require.Equal(t, 10, cfg.Logging.MaxSizeMB)
	require.Equal(t, 5, cfg.Logging.MaxFiles)
}

func TestLoadConfigFromTOMLParsesAllSupportedFields(t *testing.T) {
	t.Parallel()

	opts := hermeticOptions(t, `
[storage]
path = "/var/lib/inventario/data.db"
slot_key = "custom_slot"

[logging]
level = "error"
file = "/tmp/inventario.log"
max_size_mb = 42
max_files = 9

[report]
title = "REPORTE"
`)

	cfg, _, err := Load(opts)
	require.NoError(t, err)
	require.Equal(t, "/var/lib/inventario/data.db", cfg.Storage.Path)
	require.Equal(t, "custom_slot", cfg.Storage.SlotKey)
	require.Equal(t, "error", cfg.Logging.Level)
	require.Equal(t, "/tmp/inventario.log", cfg.Logging.File)
	require.Equal(t, 42, cfg.Logging.MaxSizeMB)
	require.Equal(t, 9, cfg.Logging.MaxFiles)
	require.Equal(t, "REPORTE", cfg.Report.Title)
}

func TestLoadConfigEnvOverridesEverySection(t *testing.T) {
	t.Parallel()

	opts := hermeticOptions(t, "")
	opts.Env["INVENTARIO_SLOT_KEY"] = "env_slot"
	opts.Env["INVENTARIO_LOG_FILE"] = "/tmp/env.log"
	opts.Env["INVENTARIO_LOG_MAX_SIZE_MB"] = "3"
	opts.Env["INVENTARIO_LOG_MAX_FILES"] = "0"
	opts.Env["INVENTARIO_REPORT_TITLE"] = "ENV"

	cfg, _, err := Load(opts)
	require.NoError(t, err)
	require.Equal(t, "env_slot", cfg.Storage.SlotKey)
	require.Equal(t, "/tmp/env.log", cfg.Logging.File)
	require.Equal(t, 3, cfg.Logging.MaxSizeMB)
	require.Equal(t, 0, cfg.Logging.MaxFiles)
	require.Equal(t, "ENV", cfg.Report.Title)
}

func TestLoadConfigValidationRejectsBadValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		toml string
		env  map[string]string
	}{
		{name: "unknown-level", toml: "[logging]\nlevel = \"loud\"\n"},
		{name: "blank-slot", toml: "[storage]\nslot_key = \"  \"\n"},
		{name: "zero-size", toml: "[logging]\nmax_size_mb = 0\n"},
		{name: "negative-files", toml: "[logging]\nmax_files = -1\n"},
		{name: "malformed-toml", toml: "[logging\n"},
		{name: "env-not-a-number", env: map[string]string{"INVENTARIO_LOG_MAX_FILES": "many"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			opts := hermeticOptions(t, tt.toml)
			for k, v := range tt.env {
				opts.Env[k] = v
			}
			_, _, err := Load(opts)
			require.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestPolicyOverrideWinsAndIsReported(t *testing.T) {
	t.Parallel()

	opts := hermeticOptions(t, `
[storage]
slot_key = "user_slot"
`)
	opts.PolicyPath = writeFile(t, "policy.toml", `
[storage]
slot_key = "corporate_slot"

[logging]
level = "info"
`)
	flagLevel := "debug"
	opts.Flags.LogLevel = &flagLevel

	cfg, report, err := Load(opts)
	require.NoError(t, err)
	require.Equal(t, "corporate_slot", cfg.Storage.SlotKey)
	require.Equal(t, "info", cfg.Logging.Level)
	require.ElementsMatch(t, []string{"storage.slot_key", "logging.level"}, report.PolicyOverrides)
}

func TestMissingPolicyFileIsNotAnError(t *testing.T) {
	t.Parallel()

	opts := hermeticOptions(t, "")
	opts.PolicyPath = filepath.Join(t.TempDir(), "missing-policy.toml")

	_, report, err := Load(opts)
	require.NoError(t, err)
	require.NotNil(t, report.PolicyOverrides)
	require.Empty(t, report.PolicyOverrides)
}

func TestLoadPolicyPathFromEnv(t *testing.T) {
	t.Parallel()

	opts := hermeticOptions(t, "")
	opts.PolicyPath = ""
	opts.Env["INVENTARIO_POLICY_FILE"] = writeFile(t, "policy.toml", `
[report]
title = "POLITICA"
`)

	cfg, _, err := Load(opts)
	require.NoError(t, err)
	require.Equal(t, "POLITICA", cfg.Report.Title)
}

func TestLoadConfigPathFromEnv(t *testing.T) {
	t.Parallel()

	opts := hermeticOptions(t, "")
	opts.ConfigPath = ""
	opts.Env["INVENTARIO_CONFIG_PATH"] = writeFile(t, "alt.toml", `
[storage]
path = "/alt/inventario.db"
`)

	cfg, report, err := Load(opts)
	require.NoError(t, err)
	require.Equal(t, "/alt/inventario.db", cfg.Storage.Path)
	require.Equal(t, opts.Env["INVENTARIO_CONFIG_PATH"], report.ConfigPath)
}

// hermeticOptions isolates a Load call from the developer's real home,
// config file and policy file.
func hermeticOptions(t *testing.T, contents string) LoadOptions {
	t.Helper()

	home := t.TempDir()
	cfgPath := filepath.Join(t.TempDir(), "config.toml")
	if contents != "" {
		require.NoError(t, os.WriteFile(cfgPath, []byte(contents), 0o600))
	}
	return LoadOptions{
		ConfigPath: cfgPath,
		PolicyPath: filepath.Join(home, "policy.toml"),
		Env: map[string]string{
			"INVENTARIO_HOME": home,
		},
	}
}

func writeFile(t *testing.T, name, contents string) string {
	t.Helper()

	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(contents), 0o600))
	return p
}
