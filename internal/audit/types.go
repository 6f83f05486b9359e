package audit

import "time"

const (
	ActionAssetCreate = "asset.create"
	ActionAssetUpdate = "asset.update"
	ActionAssetDelete = "asset.delete"

	ActionBrandAdd       = "catalog.brand-add"
	ActionBrandRemove    = "catalog.brand-remove"
	ActionModelAdd       = "catalog.model-add"
	ActionModelRemove    = "catalog.model-remove"
	ActionLocationAdd    = "catalog.location-add"
	ActionLocationRemove = "catalog.location-remove"

	ActionStoreRecovered = "store.recovered"
	ActionStoreRestore   = "store.restore"

	ActionBackupCreate  = "backup.create"
	ActionBackupRestore = "backup.restore"

	ActionImportXLSX = "import.xlsx"
	ActionExportXLSX = "export.xlsx"
	ActionExportPDF  = "export.pdf"
)

var AllActionTypes = []string{
	ActionAssetCreate,
	ActionAssetUpdate,
	ActionAssetDelete,
	ActionBrandAdd,
	ActionBrandRemove,
	ActionModelAdd,
	ActionModelRemove,
	ActionLocationAdd,
	ActionLocationRemove,
	ActionStoreRecovered,
	ActionStoreRestore,
	ActionBackupCreate,
	ActionBackupRestore,
	ActionImportXLSX,
	ActionExportXLSX,
	ActionExportPDF,
}

type Event struct {
	Timestamp  time.Time
	Action     string
	TargetType string
	TargetID   string
	Result     string
	Details    any
}

type Filter struct {
	Action   string
	TargetID string
	Since    *time.Time
	Until    *time.Time
	Limit    int
}

type RecordedEvent struct {
	ID          string    `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	Action      string    `json:"action"`
	TargetType  string    `json:"target_type,omitempty"`
	TargetID    string    `json:"target_id,omitempty"`
	Result      string    `json:"result"`
	DetailsJSON string    `json:"details"`
	PrevHash    string    `json:"prev_hash"`
	EventHash   string    `json:"event_hash"`
}

type VerifyResult struct {
	Valid      bool   `json:"valid"`
	EventCount int    `json:"event_count"`
	ChainTip   string `json:"chain_tip"`
	BrokenAt   string `json:"broken_at,omitempty"`
	Error      string `json:"error,omitempty"`
}
