package storage

import (
	"context"
	"encoding/json"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"hyperblend/models"
)

// RunLog protokolliert Batch-Läufe in PostgreSQL.
type RunLog struct {
	DB *gorm.DB
}

// NewRunLog migriert die Tabelle und liefert das Protokoll.
func NewRunLog(db *gorm.DB) (*RunLog, error) {
	if err := db.AutoMigrate(&models.EnrichmentRun{}); err != nil {
		return nil, err
	}
	return &RunLog{DB: db}, nil
}

// Save speichert den Bericht eines Laufs.
func (l *RunLog) Save(ctx context.Context, trigger string, rep *models.BatchReport) error {
	raw, err := json.Marshal(rep)
	if err != nil {
		return err
	}
	run := models.EnrichmentRun{
		ID:         rep.RunID,
		Trigger:    trigger,
		StartedAt:  rep.StartedAt,
		FinishedAt: rep.FinishedAt,
		Items:      len(rep.Items),
		Enriched:   rep.CompoundsEnriched,
		Failed:     len(rep.Failures),
		Report:     datatypes.JSON(raw),
	}
	return l.DB.WithContext(ctx).Create(&run).Error
}

// Recent liefert die letzten Läufe, neueste zuerst.
func (l *RunLog) Recent(ctx context.Context, limit int) ([]models.EnrichmentRun, error) {
	var runs []models.EnrichmentRun
	err := l.DB.WithContext(ctx).Order("started_at desc").Limit(limit).Find(&runs).Error
	return runs, err
}
