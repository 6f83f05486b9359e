// Package codec turns a full inventory snapshot into one opaque string and
// back. Encoding is JSON, then zstd, then the configured BlobCipher, then
// base64 behind a version prefix.
package codec

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/servyre/inventario/internal/catalog"
	"github.com/servyre/inventario/internal/crypto"
	"github.com/servyre/inventario/internal/inventory"
)

const (
	blobPrefix = "inv1."

	// maxDecodedSize bounds zstd output for hostile blobs.
	maxDecodedSize = 64 << 20
)

// AAD binds sealed blobs to this format version.
var AAD = []byte("inventario.snapshot.v1")

// ErrNoData is returned for every blob that cannot be turned back into a
// snapshot. Callers treat it the same as "nothing stored yet".
var ErrNoData = errors.New("codec: no usable data")

// Snapshot is the unit of persistence.
type Snapshot struct {
	Records  []inventory.AssetRecord `json:"inventory"`
	Catalogs catalog.State           `json:"catalogs"`
}

var (
	encoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	decoder, _ = zstd.NewReader(nil, zstd.WithDecoderMaxMemory(maxDecodedSize), zstd.WithDecoderConcurrency(0))
)

type Codec struct {
	cipher crypto.BlobCipher
}

func New(cipher crypto.BlobCipher) *Codec {
	return &Codec{cipher: cipher}
}

// NewDefault returns a codec keyed by crypto.EmbeddedSecret.
func NewDefault() (*Codec, error) {
	c, err := crypto.NewStaticCipher(crypto.EmbeddedSecret, AAD)
	if err != nil {
		return nil, fmt.Errorf("new default codec: %w", err)
	}
	return New(c), nil
}

func (c *Codec) Encode(snapshot Snapshot) (string, error) {
	if c == nil || c.cipher == nil {
		return "", fmt.Errorf("encode snapshot: cipher is nil")
	}
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return "", fmt.Errorf("encode snapshot: marshal: %w", err)
	}
	sealed, err := c.cipher.Seal(encoder.EncodeAll(payload, nil))
	if err != nil {
		return "", fmt.Errorf("encode snapshot: seal: %w", err)
	}
	return blobPrefix + base64.StdEncoding.EncodeToString(sealed), nil
}

// Decode never panics on bad input; every failure wraps ErrNoData.
func (c *Codec) Decode(blob string) (Snapshot, error) {
	if c == nil || c.cipher == nil {
		return Snapshot{}, fmt.Errorf("%w: cipher is nil", ErrNoData)
	}
	if blob == "" {
		return Snapshot{}, ErrNoData
	}
	encoded, ok := strings.CutPrefix(blob, blobPrefix)
	if !ok {
		return Snapshot{}, fmt.Errorf("%w: unknown blob format", ErrNoData)
	}
	sealed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return Snapshot{}, fmt.Errorf("%w: base64: %v", ErrNoData, err)
	}
	compressed, err := c.cipher.Open(sealed)
	if err != nil {
		return Snapshot{}, fmt.Errorf("%w: open: %v", ErrNoData, err)
	}
	payload, err := decoder.DecodeAll(compressed, nil)
	if err != nil {
		return Snapshot{}, fmt.Errorf("%w: decompress: %v", ErrNoData, err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(payload, &snapshot); err != nil {
		return Snapshot{}, fmt.Errorf("%w: unmarshal: %v", ErrNoData, err)
	}
	return snapshot, nil
}
