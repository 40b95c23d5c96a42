package catalogue

import (
	"context"
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// toolOriginRow is the persistent row for one ToolOrigin, keyed by
// "{server.url}-{tool.name}" (spec.md §4.5). The origin payload itself is
// stored as a JSON column, written and read whole; no JSON-path access into
// it is offered. Built on the pack's own ORM rather than a bespoke client,
// mirroring shaneholloman-mcp-jungle's Tool/McpServer row shape.
type toolOriginRow struct {
	StoreKey string         `gorm:"primaryKey;column:store_key"`
	Payload  datatypes.JSON `gorm:"column:payload;type:jsonb"`
}

func (toolOriginRow) TableName() string { return "tool_origins" }

// GormStore is the persistent Store variant, backed by any gorm dialect
// (postgres, sqlite) the caller configures.
type GormStore struct {
	db *gorm.DB
}

var _ Store = (*GormStore)(nil)

// NewGormStore runs the row's auto-migration and returns a GormStore over
// db.
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(&toolOriginRow{}); err != nil {
		return nil, fmt.Errorf("catalogue: automigrate: %w", err)
	}
	return &GormStore{db: db}, nil
}

func (s *GormStore) Upsert(ctx context.Context, key string, origin ToolOrigin) error {
	payload, err := json.Marshal(origin)
	if err != nil {
		return fmt.Errorf("catalogue: marshal origin: %w", err)
	}

	row := toolOriginRow{StoreKey: key, Payload: datatypes.JSON(payload)}
	return s.db.WithContext(ctx).
		Where(toolOriginRow{StoreKey: key}).
		Assign(toolOriginRow{Payload: row.Payload}).
		FirstOrCreate(&toolOriginRow{}).Error
}

func (s *GormStore) Delete(ctx context.Context, key string) error {
	return s.db.WithContext(ctx).Where("store_key = ?", key).Delete(&toolOriginRow{}).Error
}

// BatchGet issues one WHERE store_key IN (...) query and re-sorts the
// results into keys' input order, with nil for any key not found.
func (s *GormStore) BatchGet(ctx context.Context, keys []string) ([]*ToolOrigin, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	var rows []toolOriginRow
	if err := s.db.WithContext(ctx).Where("store_key IN ?", keys).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("catalogue: batch get query: %w", err)
	}

	byKey := make(map[string]*ToolOrigin, len(rows))
	for _, r := range rows {
		var origin ToolOrigin
		if err := json.Unmarshal(r.Payload, &origin); err != nil {
			return nil, fmt.Errorf("catalogue: unmarshal row %s: %w", r.StoreKey, err)
		}
		copied := origin
		byKey[r.StoreKey] = &copied
	}

	out := make([]*ToolOrigin, len(keys))
	for i, k := range keys {
		out[i] = byKey[k]
	}
	return out, nil
}

func (s *GormStore) Scan(ctx context.Context, limit int) (map[string]ToolOrigin, error) {
	query := s.db.WithContext(ctx).Order("store_key")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var rows []toolOriginRow
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("catalogue: scan query: %w", err)
	}

	out := make(map[string]ToolOrigin, len(rows))
	for _, r := range rows {
		var origin ToolOrigin
		if err := json.Unmarshal(r.Payload, &origin); err != nil {
			return nil, fmt.Errorf("catalogue: unmarshal row %s: %w", r.StoreKey, err)
		}
		out[r.StoreKey] = origin
	}
	return out, nil
}
