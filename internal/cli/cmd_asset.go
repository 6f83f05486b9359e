package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/servyre/inventario/internal/export"
	"github.com/servyre/inventario/internal/inventory"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

func newAssetCommand(deps commandDeps) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "asset",
		Aliases: []string{"assets"},
		Short:   "Asset record management",
	}
	cmd.AddCommand(
		newAssetAddCommand(deps),
		newAssetEditCommand(deps),
		newAssetRemoveCommand(deps),
		newAssetShowCommand(deps),
		newAssetListCommand(deps),
	)
	return cmd
}

// assetFlags binds one flag per record field. Text fields map directly;
// ram and storage are whole gigabytes.
type assetFlags struct {
	fields      inventory.Fields
	status      string
	storageType string
}

func (a *assetFlags) register(flags *pflag.FlagSet) {
	f := &a.fields
	flags.StringVar(&f.Location, "location", "", "Location (must exist in the location catalog)")
	flags.StringVar(&f.Department, "department", "", "Department")
	flags.StringVar(&f.Resguardo, "resguardo", "", "Custody document reference")
	flags.StringVar(&f.FullName, "name", "", "Assignee full name")
	flags.StringVar(&f.Position, "position", "", "Assignee position")
	flags.StringVar(&f.Email, "email", "", "Assignee email")
	flags.StringVar(&f.Address, "address", "", "Office address")
	flags.StringVar(&f.Extension, "extension", "", "Phone extension")
	flags.StringVar(&f.DeviceType, "device-type", "", "Device type, e.g. Laptop")
	flags.StringVar(&f.Brand, "brand", "", "Brand (must exist in the brand catalog)")
	flags.StringVar(&f.Model, "model", "", "Model (must exist under the brand)")
	flags.StringVar(&f.SerialNumber, "serial", "", "Serial number")
	flags.StringVar(&f.OS, "os", "", "Operating system")
	flags.StringVar(&f.PCName, "pc-name", "", "Host name")
	flags.StringVar(&f.Processor, "processor", "", "Processor")
	flags.IntVar(&f.RAM, "ram", 0, "RAM in GB")
	flags.IntVar(&f.StorageCapacity, "storage", 0, "Storage capacity in GB")
	flags.StringVar(&a.storageType, "storage-type", "", "Storage type: SSD, HDD or NVMe")
	flags.StringVar(&a.status, "status", "", "Status: Activo, Mantenimiento or Baja")
	flags.BoolVar(&f.MouseExternal, "mouse", false, "External mouse assigned")
	flags.StringVar(&f.Notes, "notes", "", "Free-form notes")
}

// applyTo copies every flag the user actually set onto base, so edit only
// touches the fields named on the command line.
func (a *assetFlags) applyTo(base inventory.Fields, flags *pflag.FlagSet) (inventory.Fields, error) {
	src := a.fields
	changed := flags.Changed
	for name, pair := range map[string][2]*string{
		"location":    {&base.Location, &src.Location},
		"department":  {&base.Department, &src.Department},
		"resguardo":   {&base.Resguardo, &src.Resguardo},
		"name":        {&base.FullName, &src.FullName},
		"position":    {&base.Position, &src.Position},
		"email":       {&base.Email, &src.Email},
		"address":     {&base.Address, &src.Address},
		"extension":   {&base.Extension, &src.Extension},
		"device-type": {&base.DeviceType, &src.DeviceType},
		"brand":       {&base.Brand, &src.Brand},
		"model":       {&base.Model, &src.Model},
		"serial":      {&base.SerialNumber, &src.SerialNumber},
		"os":          {&base.OS, &src.OS},
		"pc-name":     {&base.PCName, &src.PCName},
		"processor":   {&base.Processor, &src.Processor},
		"notes":       {&base.Notes, &src.Notes},
	} {
		if changed(name) {
			*pair[0] = *pair[1]
		}
	}
	if changed("ram") {
		base.RAM = src.RAM
	}
	if changed("storage") {
		base.StorageCapacity = src.StorageCapacity
	}
	if changed("mouse") {
		base.MouseExternal = src.MouseExternal
	}
	if changed("status") {
		status, err := inventory.ParseStatus(a.status)
		if err != nil {
			return inventory.Fields{}, err
		}
		base.Status = status
	}
	if changed("storage-type") {
		st, err := inventory.ParseStorageType(a.storageType)
		if err != nil {
			return inventory.Fields{}, err
		}
		base.StorageType = st
	}
	return base, nil
}

func newAssetAddCommand(deps commandDeps) *cobra.Command {
	var flags assetFlags
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add an asset record",
		Example: "  inventario asset add --location Corporativo --department TI --name \"Ana Ruiz\" \\\n" +
			"    --position Analista --email ana@servyre.mx --device-type Laptop \\\n" +
			"    --brand Dell --model \"Latitude 3420\" --serial SN-001 --ram 16 --storage 512",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 {
				return usageErrorf("asset add does not accept positional arguments")
			}
			fields, err := flags.applyTo(inventory.Fields{}, cmd.Flags())
			if err != nil {
				return mapCommandError(err)
			}
			return withInventory(cmd, deps, func(ctx context.Context, s *session) error {
				record, err := s.store.CreateAsset(ctx, fields)
				if err != nil {
					return err
				}
				return printAssetOutput(deps, record)
			})
		},
	}
	flags.register(cmd.Flags())
	return cmd
}

func newAssetEditCommand(deps commandDeps) *cobra.Command {
	var flags assetFlags
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change fields of an asset record",
		Example: "  inventario asset edit 0190f1c2-... --status Mantenimiento\n" +
			"  inventario asset edit 0190f1c2-... --location Naucalpan --notes \"cambio de sede\"",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return usageErrorf("asset edit requires exactly one asset id")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return withInventory(cmd, deps, func(ctx context.Context, s *session) error {
				current, err := s.store.GetAsset(args[0])
				if err != nil {
					return err
				}
				fields, err := flags.applyTo(current.Fields, cmd.Flags())
				if err != nil {
					return err
				}
				updated, err := s.store.UpdateAsset(ctx, current.ID, fields)
				if err != nil {
					return err
				}
				return printAssetOutput(deps, updated)
			})
		},
	}
	flags.register(cmd.Flags())
	return cmd
}

func newAssetRemoveCommand(deps commandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Remove an asset record",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return usageErrorf("asset rm requires exactly one asset id")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return withInventory(cmd, deps, func(ctx context.Context, s *session) error {
				deleted, err := s.store.DeleteAsset(ctx, args[0])
				if err != nil {
					return err
				}
				return printResult(deps, map[string]any{"id": args[0], "deleted": deleted}, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "%s %s\n", boolToState(deleted, "removed", "not present"), args[0])
					return err
				})
			})
		},
	}
}

func newAssetShowCommand(deps commandDeps) *cobra.Command {
	var bySerial bool
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show an asset record",
		Example: "  inventario asset show 0190f1c2-...\n" +
			"  inventario asset show --serial SN-001",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return usageErrorf("asset show requires exactly one asset id or serial")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return withInventory(cmd, deps, func(ctx context.Context, s *session) error {
				if !bySerial {
					record, err := s.store.GetAsset(args[0])
					if err != nil {
						return err
					}
					return printAssetOutput(deps, record)
				}
				record, ok := s.store.FindBySerial(args[0])
				if !ok {
					return fmt.Errorf("asset show: serial %q: %w", args[0], inventory.ErrNotFound)
				}
				return printAssetOutput(deps, record)
			})
		},
	}
	cmd.Flags().BoolVar(&bySerial, "serial", false, "Treat the argument as a serial number")
	return cmd
}

func newAssetListCommand(deps commandDeps) *cobra.Command {
	var (
		search   string
		status   string
		location string
		idsOnly  bool
	)
	cmd := &cobra.Command{
		Use:   "ls",
		Short: "List asset records, newest first",
		Example: "  inventario asset ls\n" +
			"  inventario asset ls --search ruiz\n" +
			"  inventario asset ls --status Baja --location Campo",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 {
				return usageErrorf("asset ls does not accept positional arguments")
			}
			var wantStatus inventory.Status
			if status != "" {
				parsed, err := inventory.ParseStatus(status)
				if err != nil {
					return mapCommandError(err)
				}
				wantStatus = parsed
			}
			return withInventory(cmd, deps, func(ctx context.Context, s *session) error {
				records := filterAssets(s.store.Search(search), wantStatus, location)
				if deps.globals.JSON {
					return printJSON(deps.out, records)
				}
				if deps.globals.Quiet {
					return nil
				}
				for _, record := range records {
					if idsOnly {
						if _, err := fmt.Fprintln(deps.out, record.ID); err != nil {
							return err
						}
						continue
					}
					if _, err := fmt.Fprintf(
						deps.out,
						"%s %s %s/%s serial=%s location=%s status=%s\n",
						record.ID,
						record.FullName,
						record.Brand,
						record.Model,
						record.SerialNumber,
						record.Location,
						record.Status,
					); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&search, "search", "", "Case-insensitive match on name, serial or location")
	cmd.Flags().StringVar(&status, "status", "", "Only records with this status")
	cmd.Flags().StringVar(&location, "location", "", "Only records at this location")
	cmd.Flags().BoolVar(&idsOnly, "ids-only", false, "Only print record ids")
	return cmd
}

func filterAssets(records []inventory.AssetRecord, status inventory.Status, location string) []inventory.AssetRecord {
	if status == "" && location == "" {
		return records
	}
	out := make([]inventory.AssetRecord, 0, len(records))
	for _, record := range records {
		if status != "" && record.Status != status {
			continue
		}
		if location != "" && !strings.EqualFold(record.Location, location) {
			continue
		}
		out = append(out, record)
	}
	return out
}

func printAssetOutput(deps commandDeps, record inventory.AssetRecord) error {
	return printResult(deps, record, func(w io.Writer) error {
		if _, err := fmt.Fprintf(w, "id: %s\n", record.ID); err != nil {
			return err
		}
		for _, row := range export.SheetRows(record) {
			if _, err := fmt.Fprintf(w, "%s: %s\n", row[0], row[1]); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w, "Estado: %s\n", record.Status); err != nil {
			return err
		}
		if record.Notes != "" {
			if _, err := fmt.Fprintf(w, "Notas: %s\n", record.Notes); err != nil {
				return err
			}
		}
		return nil
	})
}
