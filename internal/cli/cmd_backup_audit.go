package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/servyre/inventario/internal/app"
	"github.com/servyre/inventario/internal/audit"
	"github.com/spf13/cobra"
)

func newBackupCommand(deps commandDeps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Backup operations",
		Example: "  inventario backup create --output ./inventario.backup --passphrase-stdin\n" +
			"  inventario --yes backup restore --from ./inventario.backup --passphrase-stdin",
	}
	cmd.AddCommand(
		newBackupCreateCommand(deps),
		newBackupRestoreCommand(deps),
	)
	return cmd
}

func newBackupCreateCommand(deps commandDeps) *cobra.Command {
	var (
		outputPath      string
		passphrase      string
		passphraseStdin bool
		overwrite       bool
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a passphrase-encrypted backup",
		Example: "  inventario backup create --output ./inventario.backup --passphrase \"backup-pass\"\n" +
			"  INVENTARIO_BACKUP_PASSPHRASE=backup-pass inventario backup create --output ./inventario.backup --overwrite",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 {
				return usageErrorf("backup create does not accept positional arguments")
			}
			if strings.TrimSpace(outputPath) == "" {
				return usageErrorf("backup create requires --output")
			}
			secret, err := resolvePassphrase(cmd, passphrase, passphraseStdin, "backup create")
			if err != nil {
				return err
			}
			defer wipeBytes(secret)

			return withInventory(cmd, deps, func(ctx context.Context, s *session) error {
				manifest, err := s.backup().Create(ctx, app.BackupCreateRequest{
					OutputPath: outputPath,
					Passphrase: secret,
					Overwrite:  overwrite,
				})
				if err != nil {
					return err
				}
				payload := map[string]any{"output_path": outputPath, "manifest": manifest}
				return printResult(deps, payload, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "backup created: %s (%d records)\n", outputPath, manifest.Records)
					return err
				})
			})
		},
	}
	cmd.Flags().StringVar(&outputPath, "output", "", "Backup output path")
	cmd.Flags().StringVar(&passphrase, "passphrase", "", "Backup encryption passphrase")
	cmd.Flags().BoolVar(&passphraseStdin, "passphrase-stdin", false, "Read passphrase from stdin")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite output path if it exists")
	return cmd
}

func newBackupRestoreCommand(deps commandDeps) *cobra.Command {
	var (
		inputPath       string
		passphrase      string
		passphraseStdin bool
	)
	cmd := &cobra.Command{
		Use:   "restore",
		Short: "Replace the inventory with a backup",
		Example: "  inventario --yes backup restore --from ./inventario.backup --passphrase \"backup-pass\"",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 {
				return usageErrorf("backup restore does not accept positional arguments")
			}
			if strings.TrimSpace(inputPath) == "" {
				return usageErrorf("backup restore requires --from")
			}
			secret, err := resolvePassphrase(cmd, passphrase, passphraseStdin, "backup restore")
			if err != nil {
				return err
			}
			defer wipeBytes(secret)

			return withInventory(cmd, deps, func(ctx context.Context, s *session) error {
				manifest, err := s.backup().Restore(ctx, app.BackupRestoreRequest{
					InputPath:  inputPath,
					Passphrase: secret,
					Confirm:    deps.globals.Yes,
				})
				if err != nil {
					return err
				}
				payload := map[string]any{"restored": true, "manifest": manifest}
				return printResult(deps, payload, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "backup restored: %d records from %s\n", manifest.Records, manifest.CreatedAt)
					return err
				})
			})
		},
	}
	cmd.Flags().StringVar(&inputPath, "from", "", "Backup input path")
	cmd.Flags().StringVar(&passphrase, "passphrase", "", "Backup passphrase")
	cmd.Flags().BoolVar(&passphraseStdin, "passphrase-stdin", false, "Read passphrase from stdin")
	return cmd
}

func newAuditCommand(deps commandDeps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Audit log operations",
		Example: "  inventario audit ls --limit 50\n" +
			"  inventario audit verify",
	}
	cmd.AddCommand(
		newAuditListCommand(deps),
		newAuditVerifyCommand(deps),
	)
	return cmd
}

func newAuditListCommand(deps commandDeps) *cobra.Command {
	var (
		limit    int
		action   string
		targetID string
	)
	cmd := &cobra.Command{
		Use:   "ls",
		Short: "List audit events, oldest first",
		Example: "  inventario audit ls\n" +
			"  inventario audit ls --action asset.delete --limit 20",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 {
				return usageErrorf("audit ls does not accept positional arguments")
			}
			return withInventory(cmd, deps, func(ctx context.Context, s *session) error {
				events, err := s.audit.List(ctx, audit.Filter{Action: action, TargetID: targetID, Limit: limit})
				if err != nil {
					return err
				}
				if deps.globals.JSON {
					return printJSON(deps.out, events)
				}
				if deps.globals.Quiet {
					return nil
				}
				for _, event := range events {
					if _, err := fmt.Fprintf(
						deps.out,
						"%s %s action=%s target=%s/%s result=%s\n",
						event.Timestamp.Format("2006-01-02T15:04:05Z07:00"),
						event.ID,
						event.Action,
						event.TargetType,
						event.TargetID,
						event.Result,
					); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 100, "Maximum number of events")
	cmd.Flags().StringVar(&action, "action", "", "Only events with this action, e.g. asset.create")
	cmd.Flags().StringVar(&targetID, "target", "", "Only events for this target id")
	return cmd
}

func newAuditVerifyCommand(deps commandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Verify audit hash chain integrity",
		Example: "  inventario audit verify\n" +
			"  inventario --json audit verify",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 {
				return usageErrorf("audit verify does not accept positional arguments")
			}
			return withInventory(cmd, deps, func(ctx context.Context, s *session) error {
				result, err := s.audit.Verify(ctx)
				if err != nil {
					return err
				}
				if err := printResult(deps, result, func(w io.Writer) error {
					if _, err := fmt.Fprintf(
						w,
						"valid=%t events=%d chain_tip=%s error=%s\n",
						result.Valid,
						result.EventCount,
						result.ChainTip,
						result.Error,
					); err != nil {
						return err
					}
					if result.BrokenAt != "" {
						_, err := fmt.Fprintf(w, "first broken event: %s\n", result.BrokenAt)
						return err
					}
					return nil
				}); err != nil {
					return err
				}
				if !result.Valid {
					return asExitError(ExitCodeGeneric, fmt.Errorf("audit chain invalid: %s", result.Error))
				}
				return nil
			})
		},
	}
}
