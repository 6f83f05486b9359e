package cli

import (
	"context"
	"fmt"
	"io"
	"slices"

	"github.com/servyre/inventario/internal/app"
	"github.com/servyre/inventario/internal/debug"
	"github.com/servyre/inventario/internal/inventory"
	"github.com/spf13/cobra"
)

func newStatusCommand(deps commandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show database and inventory status",
		Example: "  inventario status\n" +
			"  inventario --json status",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 {
				return usageErrorf("status does not accept positional arguments")
			}
			return withInventory(cmd, deps, func(ctx context.Context, s *session) error {
				stats, err := s.db.Stats(ctx)
				if err != nil {
					return err
				}
				tip, err := s.db.Audit.ChainTip(ctx)
				if err != nil {
					return err
				}

				payload := map[string]any{
					"database":         stats.Path,
					"schema_version":   stats.SchemaVersion,
					"write_generation": stats.WriteGeneration,
					"initialized_at":   stats.InitializedAt,
					"slot_key":         s.cfg.Storage.SlotKey,
					"boot":             s.boot,
					"audit_chain_tip":  tip,
				}
				return printResult(deps, payload, func(w io.Writer) error {
					initialized := "never"
					if stats.InitializedAt != nil {
						initialized = stats.InitializedAt.Format("2006-01-02 15:04:05Z07:00")
					}
					_, err := fmt.Fprintf(
						w,
						"database=%s schema=%d generation=%d initialized=%s source=%s records=%d brands=%d locations=%d\n",
						stats.Path,
						stats.SchemaVersion,
						stats.WriteGeneration,
						initialized,
						s.boot.Source,
						s.boot.Records,
						s.boot.Brands,
						s.boot.Locations,
					)
					return err
				})
			})
		},
	}
}

func newDoctorCommand(deps commandDeps) *cobra.Command {
	var bundlePath string
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check the stored snapshot, audit chain and catalog references",
		Example: "  inventario doctor\n" +
			"  inventario doctor --bundle ./inventario-debug.json",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 {
				return usageErrorf("doctor does not accept positional arguments")
			}

			bundle := debug.NewBundle()
			bundle.Version = map[string]any{
				"version":    deps.build.Version,
				"commit":     deps.build.Commit,
				"build_time": deps.build.BuildTime,
			}
			runErr := withInventory(cmd, deps, func(ctx context.Context, s *session) error {
				bundle.Checks = append(bundle.Checks, snapshotCheck(s.boot))

				verify, err := s.audit.Verify(ctx)
				if err != nil {
					bundle.Checks = append(bundle.Checks, debug.Check{Name: "audit", OK: false, Message: err.Error()})
				} else {
					message := fmt.Sprintf("%d events", verify.EventCount)
					if !verify.Valid {
						message = verify.Error
					}
					bundle.Checks = append(bundle.Checks, debug.Check{Name: "audit", OK: verify.Valid, Message: message})
				}

				dangling := danglingReferences(s.store)
				message := "all records match the catalogs"
				if len(dangling) > 0 {
					message = fmt.Sprintf("%d records reference removed catalog entries", len(dangling))
					bundle.Notes = append(bundle.Notes, "dangling references are kept until the record is edited")
				}
				// Dangling references are allowed, so this check only informs.
				bundle.Checks = append(bundle.Checks, debug.Check{Name: "references", OK: true, Message: message})

				if stats, err := s.db.Stats(ctx); err == nil {
					bundle.Storage = map[string]any{
						"schema_version":   stats.SchemaVersion,
						"write_generation": stats.WriteGeneration,
						"initialized":      stats.InitializedAt != nil,
						"boot_source":      s.boot.Source,
						"records":          s.boot.Records,
						"brands":           s.boot.Brands,
						"locations":        s.boot.Locations,
					}
				}
				return nil
			})
			if runErr != nil {
				bundle.Checks = append(bundle.Checks, debug.Check{Name: "database", OK: false, Message: runErr.Error()})
			}

			if bundlePath != "" {
				if err := debug.WriteBundle(bundlePath, bundle); err != nil {
					return mapCommandError(err)
				}
			}

			if deps.globals.JSON {
				if err := printJSON(deps.out, map[string]any{"checks": bundle.Checks}); err != nil {
					return mapCommandError(err)
				}
			} else if !deps.globals.Quiet {
				for _, check := range bundle.Checks {
					if _, err := fmt.Fprintf(deps.out, "%s: %s (%s)\n", check.Name, boolToState(check.OK, "ok", "fail"), check.Message); err != nil {
						return mapCommandError(err)
					}
				}
				if bundlePath != "" {
					if _, err := fmt.Fprintf(deps.out, "bundle written: %s\n", bundlePath); err != nil {
						return mapCommandError(err)
					}
				}
			}

			if runErr != nil {
				return runErr
			}
			if bundle.Failed() {
				return asExitError(ExitCodeGeneric, fmt.Errorf("doctor: one or more checks failed"))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&bundlePath, "bundle", "", "Also write a diagnostics bundle (counts only, no record data) to this path")
	return cmd
}

func snapshotCheck(boot app.BootReport) debug.Check {
	switch boot.Source {
	case app.BootSourceRecovered:
		return debug.Check{Name: "snapshot", OK: false, Message: "stored snapshot unreadable: " + boot.Reason}
	case app.BootSourceFirstRun:
		return debug.Check{Name: "snapshot", OK: true, Message: "no snapshot stored yet"}
	default:
		return debug.Check{Name: "snapshot", OK: true, Message: fmt.Sprintf("%d records", boot.Records)}
	}
}

// danglingReferences lists records whose location, brand or model is no
// longer in the catalogs.
func danglingReferences(store *app.InventoryStore) []inventory.AssetRecord {
	locations := store.Locations()
	brands := store.Brands()
	out := []inventory.AssetRecord{}
	for _, record := range store.ListAssets() {
		switch {
		case !slices.Contains(locations, record.Location),
			!slices.Contains(brands, record.Brand),
			!slices.Contains(store.ModelsFor(record.Brand), record.Model):
			out = append(out, record)
		}
	}
	return out
}
