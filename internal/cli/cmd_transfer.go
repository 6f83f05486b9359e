package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/servyre/inventario/internal/app"
	"github.com/servyre/inventario/internal/export"
	"github.com/spf13/cobra"
)

func newExportCommand(deps commandDeps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the inventory as a spreadsheet or PDF",
		Example: "  inventario export xlsx --output inventario.xlsx\n" +
			"  inventario export pdf --output reporte.pdf\n" +
			"  inventario export pdf --id 0190f1c2-...",
	}
	cmd.AddCommand(
		newExportXLSXCommand(deps),
		newExportPDFCommand(deps),
	)
	return cmd
}

func newExportXLSXCommand(deps commandDeps) *cobra.Command {
	var (
		outputPath string
		overwrite  bool
	)
	cmd := &cobra.Command{
		Use:   "xlsx",
		Short: "Write every record to an Excel workbook",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 {
				return usageErrorf("export xlsx does not accept positional arguments")
			}
			if strings.TrimSpace(outputPath) == "" {
				return usageErrorf("export xlsx requires --output")
			}
			return withInventory(cmd, deps, func(ctx context.Context, s *session) error {
				var buf bytes.Buffer
				count, err := s.transfer().ExportXLSX(ctx, &buf)
				if err != nil {
					return err
				}
				if err := writeExportFile(deps, outputPath, buf.Bytes(), overwrite); err != nil {
					return err
				}
				return printExportResult(deps, outputPath, count)
			})
		},
	}
	cmd.Flags().StringVar(&outputPath, "output", "", "Output path, or - for stdout")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite output path if it exists")
	return cmd
}

func newExportPDFCommand(deps commandDeps) *cobra.Command {
	var (
		outputPath string
		assetID    string
		overwrite  bool
	)
	cmd := &cobra.Command{
		Use:   "pdf",
		Short: "Write the inventory report, or one asset sheet with --id",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 {
				return usageErrorf("export pdf does not accept positional arguments")
			}
			if strings.TrimSpace(outputPath) == "" && assetID == "" {
				return usageErrorf("export pdf requires --output unless --id is given")
			}
			return withInventory(cmd, deps, func(ctx context.Context, s *session) error {
				var buf bytes.Buffer
				count := 1
				target := outputPath
				if assetID != "" {
					if err := s.transfer().ExportAssetSheetPDF(ctx, assetID, &buf); err != nil {
						return err
					}
					if target == "" {
						record, err := s.store.GetAsset(assetID)
						if err != nil {
							return err
						}
						target = export.SheetFileName(record)
					}
				} else {
					n, err := s.transfer().ExportReportPDF(ctx, &buf)
					if err != nil {
						return err
					}
					count = n
				}
				if err := writeExportFile(deps, target, buf.Bytes(), overwrite); err != nil {
					return err
				}
				return printExportResult(deps, target, count)
			})
		},
	}
	cmd.Flags().StringVar(&outputPath, "output", "", "Output path, or - for stdout")
	cmd.Flags().StringVar(&assetID, "id", "", "Write the asset sheet for this record")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite output path if it exists")
	return cmd
}

func newImportCommand(deps commandDeps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import records from a spreadsheet",
	}
	cmd.AddCommand(newImportXLSXCommand(deps))
	return cmd
}

func newImportXLSXCommand(deps commandDeps) *cobra.Command {
	var (
		fromPath string
		mode     string
	)
	cmd := &cobra.Command{
		Use:   "xlsx",
		Short: "Import an Excel workbook; existing serial numbers are skipped or overwritten",
		Example: "  inventario import xlsx --from inventario.xlsx\n" +
			"  inventario import xlsx --from inventario.xlsx --mode overwrite",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 {
				return usageErrorf("import xlsx does not accept positional arguments")
			}
			if strings.TrimSpace(fromPath) == "" {
				return usageErrorf("import xlsx requires --from")
			}
			conflict, err := app.ParseConflictMode(mode)
			if err != nil {
				return usageErrorf("import xlsx: %v", err)
			}

			f, err := os.Open(fromPath)
			if err != nil {
				return mapCommandError(fmt.Errorf("import xlsx: %w", err))
			}
			defer f.Close()

			return withInventory(cmd, deps, func(ctx context.Context, s *session) error {
				result, err := s.transfer().ImportXLSX(ctx, f, conflict)
				if err != nil {
					return err
				}
				return printResult(deps, result, func(w io.Writer) error {
					if _, err := fmt.Fprintf(
						w,
						"created=%d updated=%d skipped=%d failed=%d\n",
						result.Counts.Created,
						result.Counts.Updated,
						result.Counts.Skipped,
						result.Counts.Failed,
					); err != nil {
						return err
					}
					for _, warning := range result.Warnings {
						if _, err := fmt.Fprintf(w, "row %d: %s\n", warning.Row, warning.Message); err != nil {
							return err
						}
					}
					return nil
				})
			})
		},
	}
	cmd.Flags().StringVar(&fromPath, "from", "", "Workbook path")
	cmd.Flags().StringVar(&mode, "mode", string(app.ConflictModeSkip), "Conflict mode for existing serial numbers: skip or overwrite")
	return cmd
}

// writeExportFile writes data to path with owner-only permissions, or to
// the command output when path is "-".
func writeExportFile(deps commandDeps, path string, data []byte, overwrite bool) error {
	if path == "-" {
		_, err := deps.out.Write(data)
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%w: %s exists; pass --overwrite", app.ErrValidation, path)
		} else if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("export: stat output: %w", err)
		}
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("export: create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("export: write output: %w", err)
	}
	return nil
}

func printExportResult(deps commandDeps, path string, count int) error {
	if path == "-" {
		return nil
	}
	return printResult(deps, map[string]any{"output_path": path, "records": count}, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "exported %d records: %s\n", count, path)
		return err
	})
}
