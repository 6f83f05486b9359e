package app

import (
	"errors"
	"fmt"

	"github.com/servyre/inventario/internal/catalog"
	"github.com/servyre/inventario/internal/inventory"
)

var (
	ErrValidation       = inventory.ErrValidation
	ErrNotFound         = inventory.ErrNotFound
	ErrInvalidReference = catalog.ErrInvalidReference
	ErrNotBooted        = errors.New("app: store not booted")
	ErrConfirmRequired  = errors.New("app: confirmation required")
)

// DefaultSlotKey is the storage key the encrypted snapshot lives under.
const DefaultSlotKey = "servyre_inventory_secure_v2"

type BootSource string

const (
	BootSourceStored    BootSource = "stored"
	BootSourceFirstRun  BootSource = "first_run"
	BootSourceRecovered BootSource = "recovered"
)

// BootReport says where the in-memory state came from. Recovered means a
// blob was present but could not be decoded, so defaults were loaded.
type BootReport struct {
	Source    BootSource `json:"source"`
	Records   int        `json:"records"`
	Brands    int        `json:"brands"`
	Locations int        `json:"locations"`
	Reason    string     `json:"reason,omitempty"`
}

type ImportWarning struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

type ConflictMode string

const (
	ConflictModeSkip      ConflictMode = "skip"
	ConflictModeOverwrite ConflictMode = "overwrite"
)

func ParseConflictMode(raw string) (ConflictMode, error) {
	switch ConflictMode(raw) {
	case "", ConflictModeSkip:
		return ConflictModeSkip, nil
	case ConflictModeOverwrite:
		return ConflictModeOverwrite, nil
	default:
		return "", fmt.Errorf("%w: conflict mode %q must be skip or overwrite", ErrValidation, raw)
	}
}

type ImportCounts struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

type ImportResult struct {
	Counts   ImportCounts    `json:"counts"`
	Warnings []ImportWarning `json:"warnings"`
}

type BackupCreateRequest struct {
	OutputPath string
	Passphrase []byte
	Overwrite  bool
}

type BackupRestoreRequest struct {
	InputPath  string
	Passphrase []byte
	Confirm    bool
}

type BackupManifest struct {
	Version   int    `json:"version"`
	CreatedAt string `json:"created_at"`
	Records   int    `json:"records"`
	SHA256    string `json:"sha256"`
}
