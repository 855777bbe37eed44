package storage

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"hyperblend/config"
)

// OpenDB verbindet sich mit PostgreSQL. Ohne DB_HOST wird nil geliefert.
func OpenDB(cfg *config.Config) (*gorm.DB, error) {
	if !cfg.HasDatabase() {
		return nil, nil
	}
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return db, nil
}

// OpenBackend öffnet das konfigurierte Graph-Backend. close gibt die Verbindung wieder frei.
func OpenBackend(ctx context.Context, cfg *config.Config, db *gorm.DB, log *zap.Logger) (Backend, func(), error) {
	switch cfg.GraphBackend {
	case "neo4j":
		s, err := NewNeo4jStore(ctx, cfg, log)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close(context.Background()) }, nil
	case "postgres":
		if db == nil {
			return nil, nil, fmt.Errorf("postgres graph backend needs DB_HOST")
		}
		s, err := NewPostgresStore(db)
		if err != nil {
			return nil, nil, err
		}
		return s, func() {}, nil
	case "memory":
		log.Warn("Graph liegt nur im Speicher, Daten gehen beim Beenden verloren")
		return NewMemoryStore(), func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown graph backend %q", cfg.GraphBackend)
}
