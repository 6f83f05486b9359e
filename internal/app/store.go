package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/servyre/inventario/internal/audit"
	"github.com/servyre/inventario/internal/catalog"
	"github.com/servyre/inventario/internal/codec"
	"github.com/servyre/inventario/internal/inventory"
	"github.com/servyre/inventario/internal/storage"
)

type StoreOption func(*InventoryStore)

func WithSlotKey(key string) StoreOption {
	return func(s *InventoryStore) {
		if strings.TrimSpace(key) != "" {
			s.slotKey = key
		}
	}
}

func WithLogger(logger *slog.Logger) StoreOption {
	return func(s *InventoryStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithAuditRecorder(recorder audit.Recorder) StoreOption {
	return func(s *InventoryStore) {
		s.recorder = recorder
	}
}

func WithIDGenerator(gen inventory.IDGenerator) StoreOption {
	return func(s *InventoryStore) {
		s.idGen = gen
	}
}

// InventoryStore owns the catalog registry and the record repository.
// Every successful mutation is encoded and written to the key-value slot
// before it returns; memory is only updated once the write succeeded.
type InventoryStore struct {
	kv       storage.KeyValue
	codec    *codec.Codec
	slotKey  string
	logger   *slog.Logger
	recorder audit.Recorder
	idGen    inventory.IDGenerator

	mu       sync.Mutex
	booted   bool
	catalogs *catalog.Registry
	records  *inventory.Repository
}

func NewInventoryStore(kv storage.KeyValue, c *codec.Codec, opts ...StoreOption) (*InventoryStore, error) {
	if kv == nil {
		return nil, fmt.Errorf("new inventory store: key-value store is nil")
	}
	if c == nil {
		return nil, fmt.Errorf("new inventory store: codec is nil")
	}
	s := &InventoryStore{
		kv:      kv,
		codec:   c,
		slotKey: DefaultSlotKey,
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Boot loads the stored snapshot. A missing slot seeds the default
// catalogs; an undecodable blob does the same and reports recovered.
// Boot never writes.
func (s *InventoryStore) Boot(ctx context.Context) (BootReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	report := BootReport{Source: BootSourceStored}
	snapshot := codec.Snapshot{Catalogs: catalog.DefaultState()}

	blob, err := s.kv.Get(ctx, s.slotKey)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		report.Source = BootSourceFirstRun
	case err != nil:
		return BootReport{}, fmt.Errorf("boot inventory store: read slot: %w", err)
	default:
		decoded, decodeErr := s.codec.Decode(blob)
		if decodeErr != nil {
			report.Source = BootSourceRecovered
			report.Reason = decodeErr.Error()
			s.logger.Warn("stored snapshot unreadable, starting from defaults", "slot", s.slotKey, "error", decodeErr)
		} else {
			snapshot = decoded
		}
	}

	s.catalogs = catalog.NewRegistry(snapshot.Catalogs)
	s.records = s.newRepository(snapshot.Records)
	s.booted = true

	report.Records = s.records.Len()
	report.Brands = len(s.catalogs.Brands())
	report.Locations = len(s.catalogs.Locations())
	s.logger.Debug("inventory store booted", "source", report.Source, "records", report.Records)

	if report.Source == BootSourceRecovered {
		s.record(ctx, audit.Event{
			Action:     audit.ActionStoreRecovered,
			TargetType: "store",
			TargetID:   s.slotKey,
			Result:     "warning",
		})
	}
	return report, nil
}

func (s *InventoryStore) CreateAsset(ctx context.Context, fields inventory.Fields) (inventory.AssetRecord, error) {
	fields = fields.Normalize()
	var created inventory.AssetRecord
	err := s.mutate(ctx, func(cat *catalog.Registry, repo *inventory.Repository) (bool, error) {
		if err := validateFields(cat, fields); err != nil {
			return false, err
		}
		record, err := repo.Create(fields)
		if err != nil {
			return false, err
		}
		created = record
		return true, nil
	})
	if err != nil {
		return inventory.AssetRecord{}, fmt.Errorf("create asset: %w", err)
	}
	s.logger.Info("asset created", "id", created.ID, "serial", created.SerialNumber)
	s.record(ctx, assetEvent(audit.ActionAssetCreate, created))
	return created, nil
}

// UpdateAsset replaces every field of the record; it is not a patch.
func (s *InventoryStore) UpdateAsset(ctx context.Context, id string, fields inventory.Fields) (inventory.AssetRecord, error) {
	fields = fields.Normalize()
	var updated inventory.AssetRecord
	err := s.mutate(ctx, func(cat *catalog.Registry, repo *inventory.Repository) (bool, error) {
		if _, ok := repo.Find(id); !ok {
			return false, fmt.Errorf("%w: record %q", ErrNotFound, id)
		}
		if err := validateFields(cat, fields); err != nil {
			return false, err
		}
		record, err := repo.Update(id, fields)
		if err != nil {
			return false, err
		}
		updated = record
		return true, nil
	})
	if err != nil {
		return inventory.AssetRecord{}, fmt.Errorf("update asset: %w", err)
	}
	s.logger.Info("asset updated", "id", updated.ID)
	s.record(ctx, assetEvent(audit.ActionAssetUpdate, updated))
	return updated, nil
}

// DeleteAsset reports whether a record was removed. Deleting an unknown
// id is not an error and does not write.
func (s *InventoryStore) DeleteAsset(ctx context.Context, id string) (bool, error) {
	var removed inventory.AssetRecord
	changed, err := s.mutateReport(ctx, func(_ *catalog.Registry, repo *inventory.Repository) (bool, error) {
		record, ok := repo.Find(id)
		if !ok {
			return false, nil
		}
		removed = record
		return repo.Delete(id), nil
	})
	if err != nil {
		return false, fmt.Errorf("delete asset: %w", err)
	}
	if changed {
		s.logger.Info("asset deleted", "id", id)
		s.record(ctx, assetEvent(audit.ActionAssetDelete, removed))
	}
	return changed, nil
}

func (s *InventoryStore) GetAsset(id string) (inventory.AssetRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.booted {
		return inventory.AssetRecord{}, ErrNotBooted
	}
	record, ok := s.records.Find(id)
	if !ok {
		return inventory.AssetRecord{}, fmt.Errorf("get asset: %w: record %q", ErrNotFound, id)
	}
	return record, nil
}

// FindBySerial matches serial numbers case-insensitively after trimming.
func (s *InventoryStore) FindBySerial(serial string) (inventory.AssetRecord, bool) {
	serial = strings.TrimSpace(serial)
	if serial == "" {
		return inventory.AssetRecord{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.booted {
		return inventory.AssetRecord{}, false
	}
	matches := s.records.Filter(func(r inventory.AssetRecord) bool {
		return strings.EqualFold(r.SerialNumber, serial)
	})
	if len(matches) == 0 {
		return inventory.AssetRecord{}, false
	}
	return matches[0], true
}

func (s *InventoryStore) ListAssets() []inventory.AssetRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.booted {
		return []inventory.AssetRecord{}
	}
	return s.records.All()
}

// Search matches fullName, serialNumber or location by case-insensitive
// substring. The empty query returns every record.
func (s *InventoryStore) Search(query string) []inventory.AssetRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.booted {
		return []inventory.AssetRecord{}
	}
	if query == "" {
		return s.records.All()
	}
	needle := strings.ToLower(query)
	return s.records.Filter(func(r inventory.AssetRecord) bool {
		return strings.Contains(strings.ToLower(r.FullName), needle) ||
			strings.Contains(strings.ToLower(r.SerialNumber), needle) ||
			strings.Contains(strings.ToLower(r.Location), needle)
	})
}

func (s *InventoryStore) AddBrand(ctx context.Context, name string) (bool, error) {
	return s.catalogOp(ctx, audit.ActionBrandAdd, name, func(cat *catalog.Registry) (bool, error) {
		return cat.AddBrand(name)
	})
}

// RemoveBrand drops the brand and all its models. Records that still
// reference it are left as they are.
func (s *InventoryStore) RemoveBrand(ctx context.Context, name string) (bool, error) {
	return s.catalogOp(ctx, audit.ActionBrandRemove, name, func(cat *catalog.Registry) (bool, error) {
		return cat.RemoveBrand(name)
	})
}

func (s *InventoryStore) AddModel(ctx context.Context, brand, name string) (bool, error) {
	return s.catalogOp(ctx, audit.ActionModelAdd, brand+"/"+name, func(cat *catalog.Registry) (bool, error) {
		return cat.AddModel(brand, name)
	})
}

func (s *InventoryStore) RemoveModel(ctx context.Context, brand, name string) (bool, error) {
	return s.catalogOp(ctx, audit.ActionModelRemove, brand+"/"+name, func(cat *catalog.Registry) (bool, error) {
		return cat.RemoveModel(brand, name)
	})
}

func (s *InventoryStore) AddLocation(ctx context.Context, name string) (bool, error) {
	return s.catalogOp(ctx, audit.ActionLocationAdd, name, func(cat *catalog.Registry) (bool, error) {
		return cat.AddLocation(name)
	})
}

func (s *InventoryStore) RemoveLocation(ctx context.Context, name string) (bool, error) {
	return s.catalogOp(ctx, audit.ActionLocationRemove, name, func(cat *catalog.Registry) (bool, error) {
		return cat.RemoveLocation(name)
	})
}

func (s *InventoryStore) Brands() []string {
	return s.readCatalog(func(cat *catalog.Registry) []string { return cat.Brands() })
}

func (s *InventoryStore) ModelsFor(brand string) []string {
	return s.readCatalog(func(cat *catalog.Registry) []string { return cat.ModelsFor(brand) })
}

func (s *InventoryStore) Locations() []string {
	return s.readCatalog(func(cat *catalog.Registry) []string { return cat.Locations() })
}

// Snapshot is a deep copy; callers may keep or modify it freely.
func (s *InventoryStore) Snapshot() codec.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.booted {
		return codec.Snapshot{Records: []inventory.AssetRecord{}, Catalogs: catalog.NewRegistry(catalog.State{}).State()}
	}
	return codec.Snapshot{Records: s.records.All(), Catalogs: s.catalogs.State()}
}

// Restore replaces the whole state with snapshot and persists it. Record
// ids must be present and unique; catalog references are not checked so
// historical records survive a restore.
func (s *InventoryStore) Restore(ctx context.Context, snapshot codec.Snapshot) error {
	seen := make(map[string]struct{}, len(snapshot.Records))
	for i, record := range snapshot.Records {
		if strings.TrimSpace(record.ID) == "" {
			return fmt.Errorf("restore snapshot: %w: record %d has no id", ErrValidation, i)
		}
		if _, dup := seen[record.ID]; dup {
			return fmt.Errorf("restore snapshot: %w: duplicate record id %q", ErrValidation, record.ID)
		}
		seen[record.ID] = struct{}{}
	}

	s.mu.Lock()
	cat := catalog.NewRegistry(snapshot.Catalogs)
	repo := s.newRepository(snapshot.Records)
	if err := s.persist(ctx, cat, repo); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("restore snapshot: %w", err)
	}
	s.catalogs, s.records, s.booted = cat, repo, true
	s.mu.Unlock()

	s.logger.Info("inventory restored", "records", repo.Len())
	s.record(ctx, audit.Event{
		Action:     audit.ActionStoreRestore,
		TargetType: "store",
		TargetID:   s.slotKey,
		Details:    countDetails{Records: repo.Len()},
	})
	return nil
}

type mutation func(cat *catalog.Registry, repo *inventory.Repository) (bool, error)

func (s *InventoryStore) mutate(ctx context.Context, fn mutation) error {
	_, err := s.mutateReport(ctx, fn)
	return err
}

// mutateReport runs fn against clones, persists them when fn reports a
// change and only then publishes them.
func (s *InventoryStore) mutateReport(ctx context.Context, fn mutation) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.booted {
		return false, ErrNotBooted
	}

	cat := s.catalogs.Clone()
	repo := s.records.Clone()
	changed, err := fn(cat, repo)
	if err != nil || !changed {
		return false, err
	}
	if err := s.persist(ctx, cat, repo); err != nil {
		return false, err
	}
	s.catalogs, s.records = cat, repo
	return true, nil
}

func (s *InventoryStore) persist(ctx context.Context, cat *catalog.Registry, repo *inventory.Repository) error {
	blob, err := s.codec.Encode(codec.Snapshot{Records: repo.All(), Catalogs: cat.State()})
	if err != nil {
		return fmt.Errorf("persist snapshot: %w", err)
	}
	if err := s.kv.Set(ctx, s.slotKey, blob); err != nil {
		return fmt.Errorf("persist snapshot: %w", err)
	}
	return nil
}

func (s *InventoryStore) catalogOp(ctx context.Context, action, target string, fn func(cat *catalog.Registry) (bool, error)) (bool, error) {
	changed, err := s.mutateReport(ctx, func(cat *catalog.Registry, _ *inventory.Repository) (bool, error) {
		changed, err := fn(cat)
		if errors.Is(err, catalog.ErrInvalidName) {
			return false, fmt.Errorf("%w: %w", ErrValidation, err)
		}
		return changed, err
	})
	if err != nil {
		return false, fmt.Errorf("%s: %w", action, err)
	}
	if changed {
		s.logger.Info("catalog updated", "action", action, "target", target)
		s.record(ctx, audit.Event{Action: action, TargetType: "catalog", TargetID: strings.TrimSpace(target)})
	}
	return changed, nil
}

func (s *InventoryStore) readCatalog(fn func(cat *catalog.Registry) []string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.booted {
		return []string{}
	}
	return fn(s.catalogs)
}

func (s *InventoryStore) newRepository(records []inventory.AssetRecord) *inventory.Repository {
	if s.idGen != nil {
		return inventory.NewRepository(records, inventory.WithIDGenerator(s.idGen))
	}
	return inventory.NewRepository(records)
}

// record never fails the caller: the snapshot is already persisted.
func (s *InventoryStore) record(ctx context.Context, event audit.Event) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.Record(ctx, event); err != nil {
		s.logger.Error("audit record failed", "action", event.Action, "error", err)
	}
}

// validateFields checks the record against the catalogs as they are now.
func validateFields(cat *catalog.Registry, fields inventory.Fields) error {
	if err := fields.Validate(); err != nil {
		return err
	}
	if !cat.HasLocation(fields.Location) {
		return fmt.Errorf("%w: unknown location %q", ErrInvalidReference, fields.Location)
	}
	if !cat.HasBrand(fields.Brand) {
		return fmt.Errorf("%w: unknown brand %q", ErrInvalidReference, fields.Brand)
	}
	if !cat.HasModel(fields.Brand, fields.Model) {
		return fmt.Errorf("%w: model %q is not offered under brand %q", ErrInvalidReference, fields.Model, fields.Brand)
	}
	return nil
}

type assetDetails struct {
	SerialNumber string `json:"serial_number"`
	Brand        string `json:"brand"`
	Model        string `json:"model"`
	Location     string `json:"location"`
}

type countDetails struct {
	Records int `json:"records"`
}

func assetEvent(action string, record inventory.AssetRecord) audit.Event {
	return audit.Event{
		Action:     action,
		TargetType: "asset",
		TargetID:   record.ID,
		Details: assetDetails{
			SerialNumber: record.SerialNumber,
			Brand:        record.Brand,
			Model:        record.Model,
			Location:     record.Location,
		},
	}
}
