package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/awnumar/memguard"
	"github.com/servyre/inventario/internal/app"
	"github.com/servyre/inventario/internal/audit"
	"github.com/servyre/inventario/internal/codec"
	"github.com/servyre/inventario/internal/config"
	logpkg "github.com/servyre/inventario/internal/log"
	"github.com/servyre/inventario/internal/storage"
	"github.com/spf13/cobra"
)

const passphraseEnvVar = "INVENTARIO_BACKUP_PASSPHRASE"

var loadConfigFn = config.Load

// session is everything one command invocation needs: the opened database,
// the booted store and the services layered on top of it.
type session struct {
	cfg    config.Config
	logger *slog.Logger
	db     *storage.Store
	audit  *audit.Service
	store  *app.InventoryStore
	boot   app.BootReport
}

func (s *session) transfer() *app.TransferService {
	return app.NewTransferService(
		s.store,
		app.WithTransferLogger(s.logger),
		app.WithTransferAuditRecorder(s.audit),
		app.WithReportTitle(s.cfg.Report.Title),
	)
}

func (s *session) backup() *app.BackupService {
	return app.NewBackupService(
		s.store,
		app.WithBackupLogger(s.logger),
		app.WithBackupAuditRecorder(s.audit),
	)
}

func loadCommandConfig(deps commandDeps) (config.Config, config.LoadReport, error) {
	loadOpts := config.LoadOptions{}
	if deps.globals != nil {
		if configPath := strings.TrimSpace(deps.globals.ConfigPath); configPath != "" {
			loadOpts.ConfigPath = configPath
		}
		if dbPath := strings.TrimSpace(deps.globals.DBPath); dbPath != "" {
			loadOpts.Flags.DBPath = &dbPath
		}
		if level := strings.TrimSpace(deps.globals.LogLevel); level != "" {
			loadOpts.Flags.LogLevel = &level
		}
	}
	cfg, report, err := loadConfigFn(loadOpts)
	if err != nil {
		return config.Config{}, report, fmt.Errorf("load config: %w", err)
	}
	return cfg, report, nil
}

// withInventory opens the configured database, boots the store and hands
// the session to fn. Everything is closed before it returns.
func withInventory(cmd *cobra.Command, deps commandDeps, fn func(context.Context, *session) error) (err error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, _, err := loadCommandConfig(deps)
	if err != nil {
		return mapCommandError(err)
	}
	logger, logCloser, err := logpkg.New(cfg.Logging, cmd.ErrOrStderr())
	if err != nil {
		return mapCommandError(fmt.Errorf("init logging: %w", err))
	}
	defer logCloser.Close()

	db, err := storage.Open(cfg.Storage.Path)
	if err != nil {
		return mapCommandError(err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil && err == nil {
			err = mapCommandError(fmt.Errorf("close database: %w", closeErr))
		}
	}()

	auditSvc, err := audit.NewService(db.Audit)
	if err != nil {
		return mapCommandError(err)
	}
	c, err := codec.NewDefault()
	if err != nil {
		return mapCommandError(err)
	}
	store, err := app.NewInventoryStore(
		db,
		c,
		app.WithSlotKey(cfg.Storage.SlotKey),
		app.WithLogger(logger),
		app.WithAuditRecorder(auditSvc),
	)
	if err != nil {
		return mapCommandError(err)
	}
	boot, err := store.Boot(ctx)
	if err != nil {
		return mapCommandError(err)
	}

	return mapCommandError(fn(ctx, &session{
		cfg:    cfg,
		logger: logger,
		db:     db,
		audit:  auditSvc,
		store:  store,
		boot:   boot,
	}))
}

func printJSON(w io.Writer, value any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}

// printResult writes value as JSON under --json, the text from human under
// normal output and nothing under --quiet.
func printResult(deps commandDeps, value any, human func(io.Writer) error) error {
	if deps.globals.JSON {
		return printJSON(deps.out, value)
	}
	if deps.globals.Quiet {
		return nil
	}
	return human(deps.out)
}

func boolToState(v bool, yes, no string) string {
	if v {
		return yes
	}
	return no
}

// resolvePassphrase takes the backup passphrase from the flag, stdin or the
// environment, in that order. The caller wipes the returned buffer.
func resolvePassphrase(cmd *cobra.Command, flagValue string, fromStdin bool, name string) ([]byte, error) {
	if flagValue != "" {
		return []byte(flagValue), nil
	}
	if fromStdin {
		return readPassphraseFromStdin(cmd.InOrStdin(), name)
	}
	if value := os.Getenv(passphraseEnvVar); value != "" {
		return []byte(value), nil
	}
	return nil, usageErrorf("%s requires --passphrase, --passphrase-stdin or %s", name, passphraseEnvVar)
}

func readPassphraseFromStdin(r io.Reader, name string) ([]byte, error) {
	reader := bufio.NewReader(r)
	line, err := reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, mapCommandError(fmt.Errorf("%s: read passphrase from stdin: %w", name, err))
	}
	line = strings.TrimRight(line, "\r\n")
	if strings.TrimSpace(line) == "" {
		return nil, usageErrorf("%s --passphrase-stdin requires a non-empty value on stdin", name)
	}
	return []byte(line), nil
}

func wipeBytes(buf []byte) {
	memguard.WipeBytes(buf)
}
