package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/klauspost/compress/zstd"

	"konditer/internal/core/id"
	"konditer/internal/domain/audit"
)

// CompressionAlgo specifies the compression algorithm used.
type CompressionAlgo string

const (
	CompressionNone CompressionAlgo = "none"
	CompressionZstd CompressionAlgo = "zstd"
)

// defaultCompressThreshold is the payload size above which changes are zstd-compressed.
const defaultCompressThreshold = 10 * 1024

// AuditEntry represents a single sys_audit row.
type AuditEntry struct {
	ID                id.ID           `db:"id"`
	EntityType        string          `db:"entity_type"`
	EntityID          id.ID           `db:"entity_id"`
	Action            audit.Action    `db:"action"`
	UserID            string          `db:"user_id"`
	Changes           json.RawMessage `db:"changes"`
	ChangesCompressed []byte          `db:"changes_compressed"`
	CompressionAlgo   CompressionAlgo `db:"compression_algo"`
	CreatedAt         time.Time       `db:"created_at"`
}

// AuditService writes document transitions to sys_audit. Production orders with
// many lines produce large snapshots, hence the compression.
type AuditService struct {
	txManager         *TxManager
	encoder           *zstd.Encoder
	decoder           *zstd.Decoder
	compressThreshold int
}

var (
	_ audit.Recorder = (*AuditService)(nil)
	_ audit.Reader   = (*AuditService)(nil)
)

// NewAuditService creates a new audit service.
func NewAuditService(txManager *TxManager) (*AuditService, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	return &AuditService{
		txManager:         txManager,
		encoder:           encoder,
		decoder:           decoder,
		compressThreshold: defaultCompressThreshold,
	}, nil
}

// Record implements audit.Recorder.
func (s *AuditService) Record(ctx context.Context, rec audit.Record) error {
	changes, err := json.Marshal(rec.Changes)
	if err != nil {
		return fmt.Errorf("marshal audit changes: %w", err)
	}

	entry := AuditEntry{
		ID:              id.New(),
		EntityType:      rec.EntityType,
		EntityID:        rec.EntityID,
		Action:          rec.Action,
		UserID:          rec.Actor,
		CreatedAt:       rec.At,
		CompressionAlgo: CompressionNone,
	}
	entry.Changes, entry.ChangesCompressed, entry.CompressionAlgo = s.encode(changes)

	_, err = s.txManager.GetQuerier(ctx).Exec(ctx, `
		INSERT INTO sys_audit (
			id, entity_type, entity_id, action, user_id,
			changes, changes_compressed, compression_algo, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		entry.ID, entry.EntityType, entry.EntityID, entry.Action, entry.UserID,
		entry.Changes, entry.ChangesCompressed, entry.CompressionAlgo, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

func (s *AuditService) encode(changes []byte) (json.RawMessage, []byte, CompressionAlgo) {
	if len(changes) <= s.compressThreshold {
		return changes, nil, CompressionNone
	}
	return nil, s.encoder.EncodeAll(changes, nil), CompressionZstd
}

func (s *AuditService) decode(e *AuditEntry) error {
	if e.CompressionAlgo != CompressionZstd || len(e.ChangesCompressed) == 0 {
		return nil
	}
	raw, err := s.decoder.DecodeAll(e.ChangesCompressed, nil)
	if err != nil {
		return fmt.Errorf("decompress changes: %w", err)
	}
	e.Changes = raw
	e.ChangesCompressed = nil
	return nil
}

// History implements audit.Reader.
func (s *AuditService) History(ctx context.Context, entityType string, entityID id.ID, limit int) ([]audit.Entry, error) {
	rows, err := s.txManager.GetQuerier(ctx).Query(ctx, `
		SELECT id, entity_type, entity_id, action, user_id,
		       changes, changes_compressed, compression_algo, created_at
		FROM sys_audit
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY created_at DESC
		LIMIT $3
	`, entityType, entityID, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var out []audit.Entry
	for rows.Next() {
		var e AuditEntry
		if err := rows.Scan(
			&e.ID, &e.EntityType, &e.EntityID, &e.Action, &e.UserID,
			&e.Changes, &e.ChangesCompressed, &e.CompressionAlgo, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		if err := s.decode(&e); err != nil {
			return nil, err
		}
		out = append(out, audit.Entry{
			ID:         e.ID,
			EntityType: e.EntityType,
			EntityID:   e.EntityID,
			Action:     e.Action,
			Actor:      e.UserID,
			Changes:    e.Changes,
			CreatedAt:  e.CreatedAt,
		})
	}
	return out, rows.Err()
}
