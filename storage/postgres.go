package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GraphNode ist die relationale Abbildung eines Knotens.
type GraphNode struct {
	ID         string            `gorm:"primaryKey;size:128"`
	Label      string            `gorm:"index;size:32;not null"`
	Properties datatypes.JSONMap `gorm:"type:jsonb"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (GraphNode) TableName() string { return "graph_nodes" }

// GraphEdge ist die relationale Abbildung einer Kante. Der Unique-Index verhindert doppelte Kanten.
type GraphEdge struct {
	ID         uint              `gorm:"primaryKey"`
	Label      string            `gorm:"index:idx_graph_edges_unique_edge,unique;size:32;not null"`
	FromID     string            `gorm:"index:idx_graph_edges_unique_edge,unique;size:128;not null"`
	ToID       string            `gorm:"index:idx_graph_edges_unique_edge,unique;index;size:128;not null"`
	Properties datatypes.JSONMap `gorm:"type:jsonb"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (GraphEdge) TableName() string { return "graph_edges" }

// PostgresStore ist das Graph-Backend auf Basis von PostgreSQL (gorm).
type PostgresStore struct {
	DB *gorm.DB
}

// NewPostgresStore migriert die Tabellen und liefert den Store.
func NewPostgresStore(db *gorm.DB) (*PostgresStore, error) {
	if err := db.AutoMigrate(&GraphNode{}, &GraphEdge{}); err != nil {
		return nil, fmt.Errorf("migrate graph tables: %w", err)
	}
	return &PostgresStore{DB: db}, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*Node, error) {
	var row GraphNode
	err := s.DB.WithContext(ctx).First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNodeNotFound
	}
	if err != nil {
		return nil, err
	}
	return nodeFromRow(&row), nil
}

func (s *PostgresStore) MergeNode(ctx context.Context, label, id string, props map[string]any) (*Node, error) {
	if err := checkLabel(label); err != nil {
		return nil, err
	}
	if err := checkKeys(props); err != nil {
		return nil, err
	}

	var out GraphNode
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row GraphNode
		err := tx.First(&row, "id = ?", id).Error
		exists := err == nil
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			row = GraphNode{ID: id, Label: label}
		case err != nil:
			return err
		case row.Label != label:
			return fmt.Errorf("node %s exists with label %s", id, row.Label)
		}
		row.Properties = datatypes.JSONMap(mergeProps(map[string]any(row.Properties), props))
		row.Properties["id"] = id

		if exists {
			if err := tx.Save(&row).Error; err != nil {
				return err
			}
		} else if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"properties", "updated_at"}),
		}).Create(&row).Error; err != nil {
			return err
		}
		out = row
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("merge node %s: %w", id, err)
	}
	return nodeFromRow(&out), nil
}

func (s *PostgresStore) MergeEdge(ctx context.Context, label, fromID, toID string, props map[string]any) (*Edge, error) {
	if err := checkRel(label); err != nil {
		return nil, err
	}
	if err := checkKeys(props); err != nil {
		return nil, err
	}

	var out GraphEdge
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&GraphNode{}).Where("id IN ?", []string{fromID, toID}).Count(&count).Error; err != nil {
			return err
		}
		want := int64(2)
		if fromID == toID {
			want = 1
		}
		if count != want {
			return fmt.Errorf("%s -> %s: %w", fromID, toID, ErrNodeNotFound)
		}

		var row GraphEdge
		err := tx.Where("label = ? AND from_id = ? AND to_id = ?", label, fromID, toID).First(&row).Error
		exists := err == nil
		if errors.Is(err, gorm.ErrRecordNotFound) {
			row = GraphEdge{Label: label, FromID: fromID, ToID: toID}
		} else if err != nil {
			return err
		}
		row.Properties = datatypes.JSONMap(mergeProps(map[string]any(row.Properties), props))

		if exists {
			if err := tx.Save(&row).Error; err != nil {
				return err
			}
		} else if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "label"}, {Name: "from_id"}, {Name: "to_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"properties", "updated_at"}),
		}).Create(&row).Error; err != nil {
			return err
		}
		out = row
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("merge edge %s %s->%s: %w", label, fromID, toID, err)
	}
	return edgeFromRow(&out), nil
}

func (s *PostgresStore) Query(ctx context.Context, f Filter) ([]*Node, error) {
	if err := checkLabel(f.Label); err != nil {
		return nil, err
	}
	if err := checkKeys(f.Where); err != nil {
		return nil, err
	}

	keys := sortedKeys(f.Where)

	q := s.DB.WithContext(ctx).Where("label = ?", f.Label)
	for _, k := range keys {
		q = q.Where(datatypes.JSONQuery("properties").Equals(f.Where[k], k))
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}

	var rows []GraphNode
	if err := q.Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("query %s: %w", f.Label, err)
	}
	out := make([]*Node, 0, len(rows))
	for i := range rows {
		out = append(out, nodeFromRow(&rows[i]))
	}
	return out, nil
}

func (s *PostgresStore) Edges(ctx context.Context, f EdgeFilter) ([]*Edge, error) {
	q := s.DB.WithContext(ctx).Model(&GraphEdge{})
	if f.Label != "" {
		q = q.Where("label = ?", f.Label)
	}
	if f.FromID != "" {
		q = q.Where("from_id = ?", f.FromID)
	}
	if f.ToID != "" {
		q = q.Where("to_id = ?", f.ToID)
	}
	var rows []GraphEdge
	if err := q.Order("from_id, to_id, label").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*Edge, 0, len(rows))
	for i := range rows {
		out = append(out, edgeFromRow(&rows[i]))
	}
	return out, nil
}

func (s *PostgresStore) DeleteNode(ctx context.Context, id string) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("from_id = ? OR to_id = ?", id, id).Delete(&GraphEdge{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&GraphNode{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNodeNotFound
		}
		return nil
	})
}

func nodeFromRow(r *GraphNode) *Node {
	return &Node{Label: r.Label, ID: r.ID, Props: rowProps(r.Properties)}
}

func edgeFromRow(r *GraphEdge) *Edge {
	return &Edge{Label: r.Label, FromID: r.FromID, ToID: r.ToID, Props: rowProps(r.Properties)}
}

// rowProps kopiert die JSON-Eigenschaften einer Zeile. JSONMap dekodiert Zahlen als json.Number,
// die anderen Backends liefern float64.
func rowProps(m datatypes.JSONMap) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = jsonValue(v)
	}
	return out
}

func jsonValue(v any) any {
	switch x := v.(type) {
	case json.Number:
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = jsonValue(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = jsonValue(e)
		}
		return out
	}
	return v
}
