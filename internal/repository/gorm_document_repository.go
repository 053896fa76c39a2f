package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lshigami/gradebridge/internal/model"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type gormDocumentRepository struct {
	db *gorm.DB
}

// NewGormDocumentRepository stores documents as JSON rows of the documents table.
func NewGormDocumentRepository(db *gorm.DB) DocumentRepository {
	return &gormDocumentRepository{db: db}
}

func (r *gormDocumentRepository) Get(ctx context.Context, collection, id string) (*Snapshot, error) {
	var row model.Document
	err := r.db.WithContext(ctx).
		Where("collection = ? AND id = ?", collection, id).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrDocumentNotFound
	}
	if err != nil {
		return nil, err
	}
	snap := toSnapshot(row)
	return &snap, nil
}

func (r *gormDocumentRepository) QueryEquals(ctx context.Context, collection, field string, value any, limit int) ([]Snapshot, error) {
	query := r.db.WithContext(ctx).
		Where("collection = ?", collection).
		Where(datatypes.JSONQuery("data").Equals(value, strings.Split(field, ".")...)).
		Order("created_at").Order("id")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var rows []model.Document
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return toSnapshots(rows), nil
}

func (r *gormDocumentRepository) Insert(ctx context.Context, collection string, data Document) (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate document id: %w", err)
	}
	row := model.Document{
		Collection: collection,
		ID:         id.String(),
		Data:       datatypes.JSONMap(data),
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return "", err
	}
	return row.ID, nil
}

func (r *gormDocumentRepository) Set(ctx context.Context, collection, id string, data Document) error {
	row := model.Document{
		Collection: collection,
		ID:         id,
		Data:       datatypes.JSONMap(data),
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "collection"}, {Name: "id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"data":       datatypes.JSONMap(data),
				"updated_at": time.Now(),
				"version":    gorm.Expr("documents.version + 1"),
			}),
		}).
		Create(&row).Error
}

func (r *gormDocumentRepository) Update(ctx context.Context, collection, id string, data Document) error {
	result := r.db.WithContext(ctx).
		Model(&model.Document{}).
		Where("collection = ? AND id = ?", collection, id).
		Updates(map[string]any{
			"data":       datatypes.JSONMap(data),
			"updated_at": time.Now(),
			"version":    gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrDocumentNotFound
	}
	return nil
}

// Modify is optimistic: the write only lands if the row still has the version
// that was read, and creation only lands if no row appeared meanwhile.
func (r *gormDocumentRepository) Modify(ctx context.Context, collection, id string, fn ModifyFunc) error {
	for attempt := 0; attempt < maxModifyAttempts; attempt++ {
		var row model.Document
		err := r.db.WithContext(ctx).
			Where("collection = ? AND id = ?", collection, id).
			First(&row).Error
		exists := true
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			exists = false
		case err != nil:
			return err
		}

		current := Document{}
		if exists {
			current = toSnapshot(row).Data
		}
		next, err := fn(current, exists)
		if err != nil {
			return err
		}

		var result *gorm.DB
		if exists {
			result = r.db.WithContext(ctx).
				Model(&model.Document{}).
				Where("collection = ? AND id = ? AND version = ?", collection, id, row.Version).
				Updates(map[string]any{
					"data":       datatypes.JSONMap(next),
					"updated_at": time.Now(),
					"version":    gorm.Expr("version + 1"),
				})
		} else {
			result = r.db.WithContext(ctx).
				Clauses(clause.OnConflict{DoNothing: true}).
				Create(&model.Document{Collection: collection, ID: id, Data: datatypes.JSONMap(next)})
		}
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 1 {
			return nil
		}
	}
	return ErrConflict
}

func (r *gormDocumentRepository) List(ctx context.Context, collection string) ([]Snapshot, error) {
	var rows []model.Document
	err := r.db.WithContext(ctx).
		Where("collection = ?", collection).
		Order("created_at").Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return toSnapshots(rows), nil
}

func (r *gormDocumentRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func toSnapshot(row model.Document) Snapshot {
	data := Document(row.Data)
	if data == nil {
		data = Document{}
	}
	return Snapshot{ID: row.ID, Data: data, CreatedAt: row.CreatedAt}
}

func toSnapshots(rows []model.Document) []Snapshot {
	snaps := make([]Snapshot, 0, len(rows))
	for _, row := range rows {
		snaps = append(snaps, toSnapshot(row))
	}
	return snaps
}
