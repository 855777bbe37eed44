package main

import (
	"context"
	"log"
	"time"

	"go.uber.org/zap"

	"hyperblend/config"
	"hyperblend/storage"
)

func main() {
	log.Println("Starte Snapshot-Prozess...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Fehler beim Laden der Konfiguration: %v", err)
	}
	if !cfg.HasS3() {
		log.Fatalf("Kein S3-Ziel konfiguriert (STRATO_S3_URL, STRATO_S3_BUCKET)")
	}

	logging, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logging.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	db, err := storage.OpenDB(cfg)
	if err != nil {
		log.Fatalf("Fehler beim Verbinden mit der Datenbank: %v", err)
	}
	store, closeStore, err := storage.OpenBackend(ctx, cfg, db, logging)
	if err != nil {
		log.Fatalf("Fehler beim Öffnen des Graphen: %v", err)
	}
	defer closeStore()

	// 1. Graph exportieren
	snap, err := storage.ExportSnapshot(ctx, store, time.Now())
	if err != nil {
		log.Fatalf("Fehler beim Export des Graphen: %v", err)
	}
	data, err := snap.Gzip()
	if err != nil {
		log.Fatalf("Fehler beim Komprimieren des Snapshots: %v", err)
	}
	log.Printf("Snapshot erstellt: %d Knoten, %d Kanten", len(snap.Nodes), len(snap.Edges))

	// 2. S3-Client erstellen
	client, err := storage.NewS3Client(ctx, cfg)
	if err != nil {
		log.Fatalf("Fehler beim Erstellen des S3-Clients: %v", err)
	}

	// 3. Snapshot hochladen
	link, err := storage.UploadFile(ctx, client, cfg, snap.Key(), data)
	if err != nil {
		log.Fatalf("Fehler beim Hochladen nach S3: %v", err)
	}
	log.Printf("Snapshot erfolgreich nach %s hochgeladen", link)

	// 4. Alte Snapshots rotieren
	deleted, err := storage.RotateObjects(ctx, client, cfg.StratoS3Bucket, storage.SnapshotPrefix, cfg.KeepSnapshots, logging)
	if err != nil {
		log.Fatalf("Fehler bei der Rotation alter Snapshots: %v", err)
	}
	log.Printf("%d alte Snapshots gelöscht", deleted)

	log.Println("Snapshot-Prozess erfolgreich abgeschlossen.")
}
