package app

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/servyre/inventario/internal/audit"
	"github.com/servyre/inventario/internal/codec"
	cryptopkg "github.com/servyre/inventario/internal/crypto"
)

const (
	backupFormatVersion = 1
	backupKDF           = "argon2id"

	// maxBackupFileSize caps reads of untrusted backup files.
	maxBackupFileSize = 256 << 20
)

var backupAAD = []byte("inventario.backup.v1")

var (
	backupEncoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	backupDecoder, _ = zstd.NewReader(nil, zstd.WithDecoderMaxMemory(maxBackupFileSize), zstd.WithDecoderConcurrency(0))
)

type backupEnvelope struct {
	Version      int                    `json:"version"`
	KDF          string                 `json:"kdf"`
	Argon2Params cryptopkg.Argon2Params `json:"argon2_params"`
	Salt         []byte                 `json:"salt"`
	Sealed       []byte                 `json:"sealed"`
}

type backupPayload struct {
	Manifest BackupManifest  `json:"manifest"`
	Snapshot json.RawMessage `json:"snapshot"`
}

type BackupOption func(*BackupService)

// WithBackupArgon2Params overrides the KDF cost used for new backups.
func WithBackupArgon2Params(params cryptopkg.Argon2Params) BackupOption {
	return func(s *BackupService) {
		s.params = params
	}
}

func WithBackupLogger(logger *slog.Logger) BackupOption {
	return func(s *BackupService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithBackupAuditRecorder(recorder audit.Recorder) BackupOption {
	return func(s *BackupService) {
		s.recorder = recorder
	}
}

// BackupService writes passphrase-encrypted copies of the inventory
// snapshot and restores them through the store's write-through path.
type BackupService struct {
	store    *InventoryStore
	params   cryptopkg.Argon2Params
	logger   *slog.Logger
	recorder audit.Recorder
}

func NewBackupService(store *InventoryStore, opts ...BackupOption) *BackupService {
	s := &BackupService{
		store:  store,
		params: cryptopkg.DefaultArgon2Params(),
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *BackupService) Create(ctx context.Context, req BackupCreateRequest) (*BackupManifest, error) {
	if s == nil || s.store == nil {
		return nil, fmt.Errorf("create backup: store is nil")
	}
	if strings.TrimSpace(req.OutputPath) == "" {
		return nil, fmt.Errorf("%w: output path is required", ErrValidation)
	}
	if len(req.Passphrase) == 0 {
		return nil, fmt.Errorf("%w: backup passphrase is required", ErrValidation)
	}
	if _, err := os.Stat(req.OutputPath); err == nil && !req.Overwrite {
		return nil, fmt.Errorf("%w: %s exists; pass --overwrite", ErrValidation, req.OutputPath)
	}

	snapshot := s.store.Snapshot()
	snapshotJSON, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("create backup: marshal snapshot: %w", err)
	}
	manifest := BackupManifest{
		Version:   backupFormatVersion,
		CreatedAt: time.Now().UTC().Format(time.RFC3339Nano),
		Records:   len(snapshot.Records),
		SHA256:    sha256Hex(snapshotJSON),
	}
	payload, err := json.Marshal(backupPayload{Manifest: manifest, Snapshot: snapshotJSON})
	if err != nil {
		return nil, fmt.Errorf("create backup: marshal payload: %w", err)
	}

	output, err := s.seal(backupEncoder.EncodeAll(payload, nil), req.Passphrase)
	if err != nil {
		return nil, err
	}
	if err := writeFileAtomic(req.OutputPath, output); err != nil {
		return nil, fmt.Errorf("create backup: %w", err)
	}

	s.logger.Info("backup created", "path", req.OutputPath, "records", manifest.Records)
	s.record(ctx, audit.Event{
		Action:     audit.ActionBackupCreate,
		TargetType: "backup",
		TargetID:   filepath.Base(req.OutputPath),
		Details:    countDetails{Records: manifest.Records},
	})
	return &manifest, nil
}

// Restore replaces the whole inventory with the backup contents.
func (s *BackupService) Restore(ctx context.Context, req BackupRestoreRequest) (*BackupManifest, error) {
	if s == nil || s.store == nil {
		return nil, fmt.Errorf("restore backup: store is nil")
	}
	if strings.TrimSpace(req.InputPath) == "" {
		return nil, fmt.Errorf("%w: input path is required", ErrValidation)
	}
	if !req.Confirm {
		return nil, fmt.Errorf("restore backup: %w: restore replaces the current inventory", ErrConfirmRequired)
	}

	compressed, err := readBackupPayload(req.InputPath, req.Passphrase)
	if err != nil {
		return nil, err
	}
	raw, err := backupDecoder.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("restore backup: decompress: %w", err)
	}

	var payload backupPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("restore backup: decode payload: %w", err)
	}
	if payload.Manifest.Version != backupFormatVersion {
		return nil, fmt.Errorf("restore backup: unsupported backup version %d", payload.Manifest.Version)
	}
	if got := sha256Hex(payload.Snapshot); !strings.EqualFold(got, payload.Manifest.SHA256) {
		return nil, fmt.Errorf("restore backup: snapshot checksum mismatch")
	}

	var snapshot codec.Snapshot
	if err := json.Unmarshal(payload.Snapshot, &snapshot); err != nil {
		return nil, fmt.Errorf("restore backup: decode snapshot: %w", err)
	}
	if err := s.store.Restore(ctx, snapshot); err != nil {
		return nil, fmt.Errorf("restore backup: %w", err)
	}

	s.logger.Info("backup restored", "path", req.InputPath, "records", len(snapshot.Records))
	s.record(ctx, audit.Event{
		Action:     audit.ActionBackupRestore,
		TargetType: "backup",
		TargetID:   filepath.Base(req.InputPath),
		Details:    countDetails{Records: len(snapshot.Records)},
	})
	return &payload.Manifest, nil
}

func (s *BackupService) seal(payload, passphrase []byte) ([]byte, error) {
	salt, err := cryptopkg.RandomSalt(s.params.SaltLen)
	if err != nil {
		return nil, fmt.Errorf("create backup: generate salt: %w", err)
	}
	key, err := cryptopkg.DeriveKeyFromPassphrase(passphrase, salt, s.params)
	if err != nil {
		return nil, fmt.Errorf("create backup: derive backup key: %w", err)
	}
	cipher, err := cryptopkg.NewKeyedCipher(key, backupAAD)
	if err != nil {
		return nil, fmt.Errorf("create backup: %w", err)
	}
	defer cipher.Destroy()

	sealed, err := cipher.Seal(payload)
	if err != nil {
		return nil, fmt.Errorf("create backup: encrypt payload: %w", err)
	}

	output, err := json.Marshal(backupEnvelope{
		Version:      backupFormatVersion,
		KDF:          backupKDF,
		Argon2Params: s.params,
		Salt:         salt,
		Sealed:       sealed,
	})
	if err != nil {
		return nil, fmt.Errorf("create backup: encode envelope: %w", err)
	}
	return output, nil
}

func readBackupPayload(path string, passphrase []byte) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read backup payload: %w", err)
	}
	defer f.Close()

	raw, err := io.ReadAll(io.LimitReader(f, maxBackupFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("read backup payload: %w", err)
	}
	if len(raw) > maxBackupFileSize {
		return nil, fmt.Errorf("read backup payload: file exceeds %d MiB limit", maxBackupFileSize>>20)
	}

	var envelope backupEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("read backup payload: decode envelope: %w", err)
	}
	if envelope.Version != backupFormatVersion {
		return nil, fmt.Errorf("read backup payload: unsupported backup version %d", envelope.Version)
	}
	if envelope.KDF != backupKDF {
		return nil, fmt.Errorf("read backup payload: unsupported kdf %q", envelope.KDF)
	}
	if len(passphrase) == 0 {
		return nil, fmt.Errorf("%w: backup passphrase is required", ErrValidation)
	}

	key, err := cryptopkg.DeriveKeyFromPassphrase(passphrase, envelope.Salt, envelope.Argon2Params)
	if err != nil {
		return nil, fmt.Errorf("read backup payload: derive key from passphrase: %w", err)
	}
	cipher, err := cryptopkg.NewKeyedCipher(key, backupAAD)
	if err != nil {
		return nil, fmt.Errorf("read backup payload: %w", err)
	}
	defer cipher.Destroy()

	plaintext, err := cipher.Open(envelope.Sealed)
	if err != nil {
		return nil, fmt.Errorf("read backup payload: passphrase authentication failed: %w", err)
	}
	return plaintext, nil
}

func (s *BackupService) record(ctx context.Context, event audit.Event) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.Record(ctx, event); err != nil {
		s.logger.Error("audit record failed", "action", event.Action, "error", err)
	}
}

// writeFileAtomic writes to a sibling temp file and renames it over path.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}

func sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
