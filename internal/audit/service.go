package audit

import (
	"bytes"
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/servyre/inventario/internal/storage"
)

const (
	resultSuccess = "success"

	// verifyLimit caps the rows Verify reads in its single pass.
	verifyLimit = 1_000_000
)

// Recorder is what mutating services depend on to emit audit events.
type Recorder interface {
	Record(ctx context.Context, event Event) error
}

var _ Recorder = (*Service)(nil)

// Service appends inventory events to a SHA-256 hash chain stored next to
// the snapshot. Each link hashes the previous link's hash together with the
// canonical JSON of the event, so editing or dropping any row breaks every
// later link.
//
// The tip is read from the repository on every append rather than cached:
// each CLI invocation is its own process and must extend the chain the
// previous one left behind.
type Service struct {
	repo storage.AuditRepository
	mu   sync.Mutex
}

func NewService(repo storage.AuditRepository) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("new audit service: repository is nil")
	}
	return &Service{repo: repo}, nil
}

func (s *Service) Record(ctx context.Context, event Event) error {
	if strings.TrimSpace(event.Action) == "" {
		return fmt.Errorf("record audit event: action is required")
	}
	at := event.Timestamp.UTC()
	if event.Timestamp.IsZero() {
		at = time.Now().UTC()
	}
	result := event.Result
	if result == "" {
		result = resultSuccess
	}
	details, err := redactedDetails(event.Details)
	if err != nil {
		return fmt.Errorf("record audit event %s: %w", event.Action, err)
	}

	l := link{
		At:         at.Format(time.RFC3339Nano),
		Action:     event.Action,
		TargetType: event.TargetType,
		TargetID:   event.TargetID,
		Result:     result,
		Details:    details,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev, err := s.repo.ChainTip(ctx)
	if err != nil {
		return fmt.Errorf("record audit event %s: read chain tip: %w", event.Action, err)
	}
	hash, err := l.hash(prev)
	if err != nil {
		return fmt.Errorf("record audit event %s: %w", event.Action, err)
	}
	row := &storage.AuditEvent{
		Action:      l.Action,
		TargetType:  l.TargetType,
		TargetID:    l.TargetID,
		Result:      l.Result,
		DetailsJSON: string(details),
		PrevHash:    prev,
		EventHash:   hash,
		CreatedAt:   at,
	}
	if err := s.repo.AppendWithTip(ctx, row, hash); err != nil {
		return fmt.Errorf("record audit event %s: %w", event.Action, err)
	}
	return nil
}

// Verify walks the chain from the first event and recomputes every link.
// A broken chain is reported in the result, not as an error; errors are
// reserved for failing to read the chain at all.
func (s *Service) Verify(ctx context.Context) (*VerifyResult, error) {
	rows, err := s.repo.List(ctx, storage.AuditFilter{Limit: verifyLimit})
	if err != nil {
		return nil, fmt.Errorf("verify audit chain: %w", err)
	}

	result := &VerifyResult{EventCount: len(rows)}
	prev := ""
	for _, row := range rows {
		expected, err := linkFromRow(row).hash(prev)
		if err != nil {
			result.ChainTip = prev
			result.BrokenAt = row.ID
			result.Error = fmt.Sprintf("event %s: %v", row.ID, err)
			return result, nil
		}
		if !hashesEqual(row.PrevHash, prev) || !hashesEqual(row.EventHash, expected) {
			result.ChainTip = prev
			result.BrokenAt = row.ID
			result.Error = fmt.Sprintf("hash mismatch at event %s", row.ID)
			return result, nil
		}
		prev = row.EventHash
	}
	result.ChainTip = prev

	stored, err := s.repo.ChainTip(ctx)
	if err != nil {
		return nil, fmt.Errorf("verify audit chain: read chain tip: %w", err)
	}
	if !hashesEqual(stored, prev) {
		result.Error = "hash mismatch at chain tip"
		return result, nil
	}
	result.Valid = true
	return result, nil
}

func (s *Service) List(ctx context.Context, filter Filter) ([]RecordedEvent, error) {
	rows, err := s.repo.List(ctx, storage.AuditFilter{
		Action:   filter.Action,
		TargetID: filter.TargetID,
		Since:    filter.Since,
		Until:    filter.Until,
		Limit:    filter.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}

	out := make([]RecordedEvent, len(rows))
	for i, row := range rows {
		out[i] = RecordedEvent{
			ID:          row.ID,
			Timestamp:   row.CreatedAt,
			Action:      row.Action,
			TargetType:  row.TargetType,
			TargetID:    row.TargetID,
			Result:      row.Result,
			DetailsJSON: row.DetailsJSON,
			PrevHash:    row.PrevHash,
			EventHash:   row.EventHash,
		}
	}
	return out, nil
}

// link is the hashed form of one event. Field order does not matter:
// canonicalJSON sorts keys.
type link struct {
	At         string          `json:"at"`
	Action     string          `json:"action"`
	TargetType string          `json:"target_type,omitempty"`
	TargetID   string          `json:"target_id,omitempty"`
	Result     string          `json:"result"`
	Details    json.RawMessage `json:"details"`
}

func linkFromRow(row storage.AuditEvent) link {
	details := strings.TrimSpace(row.DetailsJSON)
	if details == "" {
		details = "{}"
	}
	result := row.Result
	if result == "" {
		result = resultSuccess
	}
	return link{
		At:         row.CreatedAt.UTC().Format(time.RFC3339Nano),
		Action:     row.Action,
		TargetType: row.TargetType,
		TargetID:   row.TargetID,
		Result:     result,
		Details:    json.RawMessage(details),
	}
}

func (l link) hash(prev string) (string, error) {
	if !json.Valid(l.Details) {
		return "", fmt.Errorf("details are not valid json")
	}
	payload, err := canonicalJSON(l)
	if err != nil {
		return "", err
	}
	h := sha256.New()
	h.Write([]byte(prev))
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil)), nil
}

func hashesEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// redactedDetails turns the caller's details value into canonical JSON with
// every sensitive key removed at any depth. Audit rows are stored in the
// clear, so nothing from the encrypted snapshot beyond ids and counts should
// reach them.
func redactedDetails(details any) (json.RawMessage, error) {
	if details == nil {
		return json.RawMessage(`{}`), nil
	}
	tree, err := decodeTree(details)
	if err != nil {
		return nil, fmt.Errorf("details: %w", err)
	}
	out, err := marshalTree(dropSensitive(tree))
	if err != nil {
		return nil, fmt.Errorf("details: %w", err)
	}
	return out, nil
}

func dropSensitive(value any) any {
	switch v := value.(type) {
	case map[string]any:
		for key, nested := range v {
			if sensitiveDetailKey(key) {
				delete(v, key)
				continue
			}
			v[key] = dropSensitive(nested)
		}
		return v
	case []any:
		for i := range v {
			v[i] = dropSensitive(v[i])
		}
		return v
	default:
		return value
	}
}

var sensitiveDetailPatterns = []string{
	"secret", "passphrase", "password", "token",
	"credential", "api_key", "ciphertext", "blob",
	"salt", "nonce", "master_key", "email",
}

func sensitiveDetailKey(key string) bool {
	normalized := strings.ToLower(strings.TrimSpace(key))
	for _, pattern := range sensitiveDetailPatterns {
		if strings.Contains(normalized, pattern) {
			return true
		}
	}
	return false
}

// canonicalJSON renders a struct with sorted keys, no insignificant
// whitespace and numbers kept verbatim. Bare maps are refused so every
// hashed payload has a declared shape.
func canonicalJSON(v any) ([]byte, error) {
	if v == nil {
		return nil, fmt.Errorf("canonical json: value is nil")
	}
	root := reflect.ValueOf(v)
	for root.Kind() == reflect.Pointer {
		if root.IsNil() {
			return nil, fmt.Errorf("canonical json: nil pointer")
		}
		root = root.Elem()
	}
	if root.Kind() == reflect.Map {
		return nil, fmt.Errorf("canonical json: map input is not allowed")
	}
	tree, err := decodeTree(v)
	if err != nil {
		return nil, fmt.Errorf("canonical json: %w", err)
	}
	return marshalTree(tree)
}

// decodeTree round-trips v through encoding/json into generic values.
// json.Number keeps integer details such as record counts exact.
func decodeTree(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var tree any
	if err := dec.Decode(&tree); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return tree, nil
}

// marshalTree relies on encoding/json writing map keys in sorted order.
func marshalTree(tree any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(tree); err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
