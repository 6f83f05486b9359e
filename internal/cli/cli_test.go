package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/servyre/inventario/internal/app"
	"github.com/servyre/inventario/internal/audit"
	"github.com/servyre/inventario/internal/debug"
	"github.com/servyre/inventario/internal/inventory"
	"github.com/stretchr/testify/require"
)

func TestVersionCommandOutputsBuildInfo(t *testing.T) {
	t.Parallel()

	out, err := runCLI(t, "", "version")
	require.NoError(t, err)
	require.Contains(t, out, "version=1.2.3")
	require.Contains(t, out, "commit=abc123")
	require.Contains(t, out, "build_time=2026-02-19T00:00:00Z")
}

func TestVersionCommandOutputsJSON(t *testing.T) {
	t.Parallel()

	out, err := runCLI(t, "", "--json", "version")
	require.NoError(t, err)

	var payload BuildInfo
	require.NoError(t, json.Unmarshal([]byte(out), &payload))
	require.Equal(t, "1.2.3", payload.Version)
	require.Equal(t, "abc123", payload.Commit)
}

func TestRootHasRequiredGlobalFlagsAndCommands(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	cmd := NewRootCommand(&out, testBuildInfo())

	for _, name := range []string{"json", "quiet", "yes", "config", "db", "log-level"} {
		require.NotNilf(t, cmd.PersistentFlags().Lookup(name), "missing flag %q", name)
	}
	for _, path := range [][]string{
		{"init"}, {"status"}, {"doctor"},
		{"asset", "add"}, {"asset", "edit"}, {"asset", "rm"}, {"asset", "show"}, {"asset", "ls"},
		{"catalog", "brand", "add"}, {"catalog", "model", "rm"}, {"catalog", "location", "ls"},
		{"export", "xlsx"}, {"export", "pdf"}, {"import", "xlsx"},
		{"backup", "create"}, {"backup", "restore"}, {"audit", "ls"}, {"audit", "verify"},
	} {
		found, _, err := cmd.Find(path)
		require.NoErrorf(t, err, "expected command %v", path)
		require.Equal(t, path[len(path)-1], found.Name())
	}
}

func TestUnknownFlagReturnsUsageError(t *testing.T) {
	t.Parallel()

	_, err := runCLI(t, "", "--no-such-flag")
	require.Error(t, err)
	require.Equal(t, ExitCodeUsage, exitCode(err))
}

func TestInitCreatesDatabaseAndConfig(t *testing.T) {
	t.Parallel()

	env := newCLIEnv(t)
	out, err := env.run("init")
	require.NoError(t, err)
	require.Contains(t, out, "first_run")
	require.Contains(t, out, "written")

	_, err = os.Stat(env.dbPath)
	require.NoError(t, err)
	data, err := os.ReadFile(env.configPath)
	require.NoError(t, err)
	require.Contains(t, string(data), "[storage]")

	out, err = env.run("init")
	require.NoError(t, err)
	require.Contains(t, out, "kept")
}

func TestAssetLifecycleThroughCLI(t *testing.T) {
	t.Parallel()

	env := newCLIEnv(t)
	created := env.addAsset("Ana Ruiz", "SN-001")
	require.NotEmpty(t, created.ID)
	require.Equal(t, inventory.StatusActive, created.Status)
	require.Equal(t, 16, created.RAM)

	out, err := env.run("--json", "asset", "edit", created.ID, "--status", "Mantenimiento", "--notes", "pantalla")
	require.NoError(t, err)
	var edited inventory.AssetRecord
	require.NoError(t, json.Unmarshal([]byte(out), &edited))
	require.Equal(t, inventory.StatusMaintenance, edited.Status)
	require.Equal(t, "pantalla", edited.Notes)
	require.Equal(t, "Ana Ruiz", edited.FullName)
	require.Equal(t, 16, edited.RAM)

	out, err = env.run("asset", "show", "--serial", "sn-001")
	require.NoError(t, err)
	require.Contains(t, out, "Asignado a: Ana Ruiz")
	require.Contains(t, out, "Estado: Mantenimiento")

	out, err = env.run("asset", "rm", created.ID)
	require.NoError(t, err)
	require.Contains(t, out, "removed")

	out, err = env.run("asset", "rm", created.ID)
	require.NoError(t, err)
	require.Contains(t, out, "not present")

	_, err = env.run("asset", "show", created.ID)
	require.Equal(t, ExitCodeNotFound, exitCode(err))
}

func TestAssetListSearchAndFilters(t *testing.T) {
	t.Parallel()

	env := newCLIEnv(t)
	first := env.addAsset("Ana Ruiz", "SN-001")
	env.addAsset("Luis Pérez", "SN-002")
	_, err := env.run("asset", "edit", first.ID, "--location", "Campo")
	require.NoError(t, err)

	records := env.listAssets()
	require.Len(t, records, 2)
	require.Equal(t, "Luis Pérez", records[0].FullName)

	records = env.listAssets("--search", "RUIZ")
	require.Len(t, records, 1)
	require.Equal(t, first.ID, records[0].ID)

	records = env.listAssets("--location", "campo")
	require.Len(t, records, 1)

	records = env.listAssets("--status", "Baja")
	require.Empty(t, records)

	_, err = env.run("asset", "ls", "--status", "Perdido")
	require.Equal(t, ExitCodeValidation, exitCode(err))

	out, err := env.run("asset", "ls", "--ids-only")
	require.NoError(t, err)
	require.Len(t, strings.Fields(out), 2)
}

func TestAssetAddErrorsMapToExitCodes(t *testing.T) {
	t.Parallel()

	env := newCLIEnv(t)

	_, err := env.run(append(assetArgs("Ana Ruiz", "SN-001"), "--brand", "Acer")...)
	require.Equal(t, ExitCodeInvalidReference, exitCode(err))
	require.ErrorIs(t, err, app.ErrInvalidReference)

	_, err = env.run("asset", "add", "--location", "Corporativo")
	require.Equal(t, ExitCodeValidation, exitCode(err))

	_, err = env.run(append(assetArgs("Ana Ruiz", "SN-001"), "--storage-type", "Tape")...)
	require.Equal(t, ExitCodeValidation, exitCode(err))

	_, err = env.run("asset", "edit")
	require.Equal(t, ExitCodeUsage, exitCode(err))

	require.Empty(t, env.listAssets())
}

func TestCatalogCommandsThroughCLI(t *testing.T) {
	t.Parallel()

	env := newCLIEnv(t)

	out, err := env.run("catalog", "brand", "add", "  Asus ")
	require.NoError(t, err)
	require.Contains(t, out, "brand Asus: updated")

	out, err = env.run("catalog", "brand", "add", "Asus")
	require.NoError(t, err)
	require.Contains(t, out, "unchanged")

	_, err = env.run("catalog", "model", "add", "ExpertBook")
	require.Equal(t, ExitCodeUsage, exitCode(err))

	_, err = env.run("catalog", "model", "add", "--brand", "Asus", "ExpertBook B9")
	require.NoError(t, err)

	_, err = env.run("catalog", "model", "add", "--brand", "Acer", "Swift")
	require.Equal(t, ExitCodeInvalidReference, exitCode(err))

	out, err = env.run("--json", "catalog", "model", "ls", "--brand", "Asus")
	require.NoError(t, err)
	var models []string
	require.NoError(t, json.Unmarshal([]byte(out), &models))
	require.Equal(t, []string{"ExpertBook B9"}, models)

	_, err = env.run("catalog", "location", "rm", "Campo")
	require.NoError(t, err)
	out, err = env.run("catalog", "location", "ls")
	require.NoError(t, err)
	require.NotContains(t, out, "Campo")
	require.Contains(t, out, "Corporativo")

	_, err = env.run("catalog", "brand", "add", "   ")
	require.Equal(t, ExitCodeValidation, exitCode(err))
}

func TestExportImportThroughCLI(t *testing.T) {
	t.Parallel()

	env := newCLIEnv(t)
	record := env.addAsset("Ana Ruiz", "SN-001")
	env.addAsset("Luis Pérez", "SN-002")

	xlsxPath := filepath.Join(t.TempDir(), "inventario.xlsx")
	out, err := env.run("export", "xlsx", "--output", xlsxPath)
	require.NoError(t, err)
	require.Contains(t, out, "exported 2 records")

	_, err = env.run("export", "xlsx", "--output", xlsxPath)
	require.Equal(t, ExitCodeValidation, exitCode(err))

	reportPath := filepath.Join(t.TempDir(), "reporte.pdf")
	_, err = env.run("export", "pdf", "--output", reportPath)
	require.NoError(t, err)
	requirePDF(t, reportPath)

	sheetPath := filepath.Join(t.TempDir(), "ficha.pdf")
	_, err = env.run("export", "pdf", "--id", record.ID, "--output", sheetPath)
	require.NoError(t, err)
	requirePDF(t, sheetPath)

	_, err = env.run("export", "pdf")
	require.Equal(t, ExitCodeUsage, exitCode(err))

	other := newCLIEnv(t)
	out, err = other.run("--json", "import", "xlsx", "--from", xlsxPath)
	require.NoError(t, err)
	var result app.ImportResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	require.Equal(t, 2, result.Counts.Created)

	out, err = other.run("import", "xlsx", "--from", xlsxPath)
	require.NoError(t, err)
	require.Contains(t, out, "skipped=2")

	out, err = other.run("import", "xlsx", "--from", xlsxPath, "--mode", "overwrite")
	require.NoError(t, err)
	require.Contains(t, out, "updated=2")

	_, err = other.run("import", "xlsx", "--from", xlsxPath, "--mode", "merge")
	require.Equal(t, ExitCodeUsage, exitCode(err))

	_, err = other.run("import", "xlsx", "--from", filepath.Join(t.TempDir(), "missing.xlsx"))
	require.Equal(t, ExitCodeIO, exitCode(err))

	require.Len(t, other.listAssets(), 2)
}

func TestBackupRestoreThroughCLI(t *testing.T) {
	t.Parallel()

	env := newCLIEnv(t)
	env.addAsset("Ana Ruiz", "SN-001")
	backupPath := filepath.Join(t.TempDir(), "inventario.backup")

	_, err := env.run("backup", "create", "--output", backupPath)
	require.Equal(t, ExitCodeUsage, exitCode(err))

	out, err := env.runWithStdin("backup-pass\n", "backup", "create", "--output", backupPath, "--passphrase-stdin")
	require.NoError(t, err)
	require.Contains(t, out, "1 records")

	info, err := os.Stat(backupPath)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	target := newCLIEnv(t)
	_, err = target.run("backup", "restore", "--from", backupPath, "--passphrase", "backup-pass")
	require.Equal(t, ExitCodeUsage, exitCode(err))
	require.ErrorIs(t, err, app.ErrConfirmRequired)

	_, err = target.run("--yes", "backup", "restore", "--from", backupPath, "--passphrase", "wrong-pass")
	require.Equal(t, ExitCodeAuthFailed, exitCode(err))

	_, err = target.run("--yes", "backup", "restore", "--from", backupPath, "--passphrase", "backup-pass")
	require.NoError(t, err)

	records := target.listAssets()
	require.Len(t, records, 1)
	require.Equal(t, "Ana Ruiz", records[0].FullName)
}

func TestAuditAndStatusThroughCLI(t *testing.T) {
	t.Parallel()

	env := newCLIEnv(t)
	record := env.addAsset("Ana Ruiz", "SN-001")
	_, err := env.run("catalog", "location", "add", "Querétaro")
	require.NoError(t, err)

	out, err := env.run("--json", "audit", "ls")
	require.NoError(t, err)
	var events []audit.RecordedEvent
	require.NoError(t, json.Unmarshal([]byte(out), &events))
	require.Len(t, events, 2)
	require.Equal(t, audit.ActionAssetCreate, events[0].Action)
	require.Equal(t, record.ID, events[0].TargetID)
	require.Equal(t, audit.ActionLocationAdd, events[1].Action)

	out, err = env.run("audit", "ls", "--action", audit.ActionLocationAdd)
	require.NoError(t, err)
	require.Equal(t, 1, strings.Count(out, "action="))

	out, err = env.run("--json", "audit", "verify")
	require.NoError(t, err)
	var verify audit.VerifyResult
	require.NoError(t, json.Unmarshal([]byte(out), &verify))
	require.True(t, verify.Valid)
	require.Equal(t, 2, verify.EventCount)

	out, err = env.run("--json", "status")
	require.NoError(t, err)
	var status struct {
		Database        string         `json:"database"`
		WriteGeneration uint64         `json:"write_generation"`
		Boot            app.BootReport `json:"boot"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &status))
	require.Equal(t, env.dbPath, status.Database)
	require.Equal(t, uint64(2), status.WriteGeneration)
	require.Equal(t, app.BootSourceStored, status.Boot.Source)
	require.Equal(t, 1, status.Boot.Records)

	out, err = env.run("doctor")
	require.NoError(t, err)
	require.Contains(t, out, "snapshot: ok")
	require.Contains(t, out, "audit: ok")
}

func TestDoctorReportsDanglingReferencesWithoutFailing(t *testing.T) {
	t.Parallel()

	env := newCLIEnv(t)
	env.addAsset("Ana Ruiz", "SN-001")
	_, err := env.run("catalog", "brand", "rm", "Dell")
	require.NoError(t, err)

	out, err := env.run("doctor")
	require.NoError(t, err)
	require.Contains(t, out, "1 records reference removed catalog entries")
}

func TestDoctorWritesBundleWithoutRecordData(t *testing.T) {
	t.Parallel()

	env := newCLIEnv(t)
	env.addAsset("Ana Ruiz", "SN-001")

	bundlePath := filepath.Join(t.TempDir(), "support", "bundle.json")
	out, err := env.run("doctor", "--bundle", bundlePath)
	require.NoError(t, err)
	require.Contains(t, out, "bundle written")

	raw, err := os.ReadFile(bundlePath)
	require.NoError(t, err)
	require.NotContains(t, string(raw), "Ana Ruiz")
	require.NotContains(t, string(raw), "SN-001")

	var bundle debug.Bundle
	require.NoError(t, json.Unmarshal(raw, &bundle))
	require.Equal(t, "1.2.3", bundle.Version["version"])
	require.Equal(t, "stored", bundle.Storage["boot_source"])
	require.EqualValues(t, 1, bundle.Storage["records"])
	require.False(t, bundle.Failed())
}

func TestQuietSuppressesOutput(t *testing.T) {
	t.Parallel()

	env := newCLIEnv(t)
	out, err := env.run(append([]string{"--quiet"}, assetArgs("Ana Ruiz", "SN-001")...)...)
	require.NoError(t, err)
	require.Empty(t, out)
}

func TestCompletionGenerationBashZshFish(t *testing.T) {
	t.Parallel()

	out, err := runCLI(t, "", "completion", "bash")
	require.NoError(t, err)
	require.Contains(t, out, "__start_inventario")

	out, err = runCLI(t, "", "completion", "zsh")
	require.NoError(t, err)
	require.Contains(t, out, "#compdef inventario")

	out, err = runCLI(t, "", "completion", "fish")
	require.NoError(t, err)
	require.Contains(t, out, "complete -c inventario")
}

func TestGenerateManPagesCreatesFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, GenerateManPages(dir, testBuildInfo()))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.NotEmpty(t, entries)
}

func TestMapCommandErrorCodes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want int
	}{
		{err: app.ErrNotFound, want: ExitCodeNotFound},
		{err: app.ErrInvalidReference, want: ExitCodeInvalidReference},
		{err: app.ErrValidation, want: ExitCodeValidation},
		{err: app.ErrConfirmRequired, want: ExitCodeUsage},
		{err: &os.PathError{Op: "open", Path: "x", Err: os.ErrPermission}, want: ExitCodeIO},
		{err: errors.New("boom"), want: ExitCodeGeneric},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, exitCode(mapCommandError(tt.err)), tt.err.Error())
	}
	require.NoError(t, mapCommandError(nil))
}

type cliEnv struct {
	t          *testing.T
	dbPath     string
	configPath string
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	dir := t.TempDir()
	return &cliEnv{
		t:          t,
		dbPath:     filepath.Join(dir, "inventario.db"),
		configPath: filepath.Join(dir, "config.toml"),
	}
}

func (e *cliEnv) run(args ...string) (string, error) {
	return e.runWithStdin("", args...)
}

func (e *cliEnv) runWithStdin(stdin string, args ...string) (string, error) {
	e.t.Helper()
	full := append([]string{"--db", e.dbPath, "--config", e.configPath, "--log-level", "error"}, args...)
	return runCLI(e.t, stdin, full...)
}

func (e *cliEnv) addAsset(name, serial string) inventory.AssetRecord {
	e.t.Helper()
	out, err := e.run(append([]string{"--json"}, assetArgs(name, serial)...)...)
	require.NoError(e.t, err)
	var record inventory.AssetRecord
	require.NoError(e.t, json.Unmarshal([]byte(out), &record))
	return record
}

func (e *cliEnv) listAssets(args ...string) []inventory.AssetRecord {
	e.t.Helper()
	out, err := e.run(append([]string{"--json", "asset", "ls"}, args...)...)
	require.NoError(e.t, err)
	var records []inventory.AssetRecord
	require.NoError(e.t, json.Unmarshal([]byte(out), &records))
	return records
}

func assetArgs(name, serial string) []string {
	return []string{
		"asset", "add",
		"--location", "Corporativo",
		"--department", "TI",
		"--name", name,
		"--position", "Analista",
		"--email", "usuario@servyre.mx",
		"--device-type", "Laptop",
		"--brand", "Dell",
		"--model", "Latitude 3420",
		"--serial", serial,
		"--ram", "16",
		"--storage", "512",
	}
}

func requirePDF(t *testing.T, path string) {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
}

func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	var out, errOut bytes.Buffer
	cmd := NewRootCommand(&out, testBuildInfo())
	cmd.SetErr(&errOut)
	if stdin != "" {
		cmd.SetIn(strings.NewReader(stdin))
	}
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func testBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   "1.2.3",
		Commit:    "abc123",
		BuildTime: "2026-02-19T00:00:00Z",
	}
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var withExit interface{ ExitCode() int }
	if errors.As(err, &withExit) {
		return withExit.ExitCode()
	}
	return -1
}
