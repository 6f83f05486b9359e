package app

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/servyre/inventario/internal/audit"
	"github.com/servyre/inventario/internal/codec"
	"github.com/servyre/inventario/internal/inventory"
	"github.com/servyre/inventario/internal/storage"
	"github.com/stretchr/testify/require"
)

var errInjected = errors.New("injected failure")

// flakyKV wraps a MemoryKV and fails Get or Set on demand.
type flakyKV struct {
	*storage.MemoryKV

	mu      sync.Mutex
	failGet bool
	failSet bool
	sets    int
}

func newFlakyKV() *flakyKV {
	return &flakyKV{MemoryKV: storage.NewMemoryKV()}
}

func (k *flakyKV) Get(ctx context.Context, key string) (string, error) {
	k.mu.Lock()
	fail := k.failGet
	k.mu.Unlock()
	if fail {
		return "", errInjected
	}
	return k.MemoryKV.Get(ctx, key)
}

func (k *flakyKV) Set(ctx context.Context, key, value string) error {
	k.mu.Lock()
	fail := k.failSet
	if !fail {
		k.sets++
	}
	k.mu.Unlock()
	if fail {
		return errInjected
	}
	return k.MemoryKV.Set(ctx, key, value)
}

func (k *flakyKV) setFailSet(fail bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.failSet = fail
}

func (k *flakyKV) writes() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.sets
}

type captureRecorder struct {
	mu     sync.Mutex
	events []audit.Event
	err    error
}

func (r *captureRecorder) Record(_ context.Context, event audit.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, event)
	return nil
}

func (r *captureRecorder) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, event := range r.events {
		out = append(out, event.Action)
	}
	return out
}

func newTestCodec(t *testing.T) *codec.Codec {
	t.Helper()
	c, err := codec.NewDefault()
	require.NoError(t, err)
	return c
}

func newTestStore(t *testing.T, kv storage.KeyValue, opts ...StoreOption) *InventoryStore {
	t.Helper()
	store, err := NewInventoryStore(kv, newTestCodec(t), opts...)
	require.NoError(t, err)
	return store
}

func newBootedStore(t *testing.T, kv storage.KeyValue, opts ...StoreOption) *InventoryStore {
	t.Helper()
	store := newTestStore(t, kv, opts...)
	_, err := store.Boot(context.Background())
	require.NoError(t, err)
	return store
}

func validFields(name, serial string) inventory.Fields {
	return inventory.Fields{
		Location:        "Corporativo",
		Department:      "Sistemas",
		FullName:        name,
		Position:        "Analista",
		Email:           "usuario@servyre.example",
		DeviceType:      "Laptop",
		Brand:           "Dell",
		Model:           "Latitude 3420",
		SerialNumber:    serial,
		RAM:             16,
		StorageCapacity: 512,
		StorageType:     inventory.StorageSSD,
		Status:          inventory.StatusActive,
	}
}
