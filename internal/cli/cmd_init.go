package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/servyre/inventario/internal/app"
	"github.com/spf13/cobra"
)

const defaultInitConfig = `[storage]
# path = "/var/lib/inventario/inventario.db"
slot_key = "servyre_inventory_secure_v2"

[logging]
level = "info"
file = ""
max_size_mb = 10
max_files = 5

[report]
title = "INVENTARIO DE ACTIVOS - SERVYRE"
`

func newInitCommand(deps commandDeps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the inventory database and a default config",
		Example: "  inventario init\n" +
			"  inventario --db ./inventario.db --config ./config.toml init",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 {
				return usageErrorf("init does not accept positional arguments")
			}

			configPath := ""
			if deps.globals != nil {
				configPath = strings.TrimSpace(deps.globals.ConfigPath)
			}
			if configPath == "" {
				_, report, err := loadCommandConfig(deps)
				if err != nil {
					return mapCommandError(err)
				}
				configPath = report.ConfigPath
			}
			yes := deps.globals != nil && deps.globals.Yes
			wrote, err := writeDefaultConfig(configPath, yes)
			if err != nil {
				return mapCommandError(err)
			}

			return withInventory(cmd, deps, func(ctx context.Context, s *session) error {
				payload := map[string]any{
					"database":       s.cfg.Storage.Path,
					"config_path":    configPath,
					"config_written": wrote,
					"boot":           s.boot,
				}
				return printResult(deps, payload, func(w io.Writer) error {
					if _, err := fmt.Fprintf(w, "database: %s (%s, %d records)\n", s.cfg.Storage.Path, s.boot.Source, s.boot.Records); err != nil {
						return err
					}
					_, err := fmt.Fprintf(w, "config: %s (%s)\n", configPath, boolToState(wrote, "written", "kept"))
					return err
				})
			})
		},
	}
	return cmd
}

// writeDefaultConfig creates the config file unless one exists and
// overwrite is false. It reports whether the file was written.
func writeDefaultConfig(path string, overwrite bool) (bool, error) {
	if strings.TrimSpace(path) == "" {
		return false, fmt.Errorf("%w: config path is required", app.ErrValidation)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return false, fmt.Errorf("init: create config directory: %w", err)
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return false, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return false, fmt.Errorf("init: stat config path: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(defaultInitConfig), 0o600); err != nil {
		return false, fmt.Errorf("init: write config: %w", err)
	}
	return true, nil
}
