package models

import (
	"time"

	"gorm.io/datatypes"
)

// EnrichmentRun protokolliert einen abgeschlossenen Batch-Lauf in PostgreSQL.
type EnrichmentRun struct {
	ID         string         `json:"id" gorm:"primaryKey;size:64"`
	CreatedAt  time.Time      `json:"created_at"`
	Trigger    string         `json:"trigger" gorm:"index;size:32"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Items      int            `json:"items"`
	Enriched   int            `json:"enriched"`
	Failed     int            `json:"failed"`
	Report     datatypes.JSON `json:"report" gorm:"type:jsonb"`
}

func (EnrichmentRun) TableName() string { return "enrichment_runs" }
