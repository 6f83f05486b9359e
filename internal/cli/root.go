package cli

import (
	"io"

	"github.com/spf13/cobra"
)

type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
}

// GlobalOptions are the persistent flags shared by every command.
type GlobalOptions struct {
	JSON       bool
	Quiet      bool
	Yes        bool
	ConfigPath string
	DBPath     string
	LogLevel   string
}

type commandDeps struct {
	globals *GlobalOptions
	build   BuildInfo
	out     io.Writer
}

func NewRootCommand(out io.Writer, build BuildInfo) *cobra.Command {
	globals := &GlobalOptions{}
	deps := commandDeps{globals: globals, build: build, out: out}

	cmd := &cobra.Command{
		Use:           "inventario",
		Short:         "Encrypted IT asset inventory",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetOut(out)
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageErrorf("%v", err)
	})

	flags := cmd.PersistentFlags()
	flags.BoolVar(&globals.JSON, "json", false, "Print machine-readable JSON")
	flags.BoolVar(&globals.Quiet, "quiet", false, "Suppress non-error output")
	flags.BoolVar(&globals.Yes, "yes", false, "Assume yes for destructive confirmations")
	flags.StringVar(&globals.ConfigPath, "config", "", "Config file path")
	flags.StringVar(&globals.DBPath, "db", "", "Inventory database path")
	flags.StringVar(&globals.LogLevel, "log-level", "", "Log level: debug, info, warn, error")

	cmd.AddCommand(
		newVersionCommand(deps),
		newInitCommand(deps),
		newStatusCommand(deps),
		newDoctorCommand(deps),
		newAssetCommand(deps),
		newCatalogCommand(deps),
		newExportCommand(deps),
		newImportCommand(deps),
		newBackupCommand(deps),
		newAuditCommand(deps),
	)
	cmd.InitDefaultCompletionCmd()
	return cmd
}
