package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config enthält alle Konfigurationsparameter aus Umgebungsvariablen.
type Config struct {
	// Graph-Backend: neo4j, postgres oder memory
	GraphBackend string `envconfig:"GRAPH_BACKEND" default:"neo4j"`

	Neo4jURI      string `envconfig:"NEO4J_URI" default:"bolt://localhost:7687"`
	Neo4jUser     string `envconfig:"NEO4J_USER" default:"neo4j"`
	Neo4jPassword string `envconfig:"NEO4J_PASSWORD"`
	Neo4jDatabase string `envconfig:"NEO4J_DATABASE" default:"neo4j"`

	// PostgreSQL wird für das postgres-Backend und das Protokoll der Batch-Läufe genutzt.
	DBHost     string `envconfig:"DB_HOST"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER"`
	DBPassword string `envconfig:"DB_PASSWORD"`
	DBName     string `envconfig:"DB_NAME" default:"hyperblend"`

	HTTPPort string `envconfig:"HTTP_PORT" default:"4242"`

	CronSchedule string `envconfig:"CRON_SCHEDULE" default:"0 3 * * 0"`

	// Externe Datenquellen
	PubChemBaseURL   string `envconfig:"PUBCHEM_BASE_URL" default:"https://pubchem.ncbi.nlm.nih.gov/rest/pug"`
	PubChemSynonyms  int    `envconfig:"PUBCHEM_MAX_SYNONYMS" default:"20"`
	ChEMBLBaseURL    string `envconfig:"CHEMBL_BASE_URL" default:"https://www.ebi.ac.uk/chembl/api/data"`
	UniProtBaseURL   string `envconfig:"UNIPROT_BASE_URL" default:"https://rest.uniprot.org"`
	NapralertBaseURL string `envconfig:"NAPRALERT_BASE_URL" default:"https://napralert.org/api/v1"`
	CoconutBaseURL   string `envconfig:"COCONUT_BASE_URL" default:"https://coconut.naturalproducts.net/api/v1"`
	CoconutToken     string `envconfig:"COCONUT_TOKEN"`

	// Reihenfolge der Adapter beim Anreichern einer Verbindung
	AdapterPriority string `envconfig:"ADAPTER_PRIORITY" default:"pubchem,chembl,napralert"`

	RequestTimeout   time.Duration `envconfig:"REQUEST_TIMEOUT" default:"30s"`
	MaxRetries       int           `envconfig:"MAX_RETRIES" default:"3"`
	RetryDelay       time.Duration `envconfig:"RETRY_DELAY" default:"1s"`
	RequestsPerSec   float64       `envconfig:"REQUESTS_PER_SECOND" default:"5"`
	RequestBurst     int           `envconfig:"REQUEST_BURST" default:"5"`
	BatchConcurrency int           `envconfig:"BATCH_CONCURRENCY" default:"8"`
	DiscoverTargets  bool          `envconfig:"DISCOVER_TARGETS" default:"true"`

	// Optionale Snapshots nach S3
	StratoS3Key    string `envconfig:"STRATO_S3_KEY"`
	StratoS3Secret string `envconfig:"STRATO_S3_SECRET"`
	StratoS3URL    string `envconfig:"STRATO_S3_URL"`
	StratoS3Region string `envconfig:"STRATO_S3_REGION" default:"eu-central-1"`
	StratoS3Bucket string `envconfig:"STRATO_S3_BUCKET"`
	KeepSnapshots  int    `envconfig:"KEEP_SNAPSHOTS" default:"4"`
}

// DSN gibt den Data Source Name für die PostgreSQL-Verbindung zurück.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort)
}

// HasDatabase meldet, ob eine PostgreSQL-Verbindung konfiguriert ist.
func (c *Config) HasDatabase() bool {
	return c.DBHost != ""
}

// HasS3 meldet, ob ein S3-Ziel für Snapshots konfiguriert ist.
func (c *Config) HasS3() bool {
	return c.StratoS3URL != "" && c.StratoS3Bucket != ""
}

// Priority liefert die Adapter-Reihenfolge als bereinigte Liste.
func (c *Config) Priority() []string {
	return splitList(c.AdapterPriority)
}

// Validate prüft Kombinationen, die envconfig allein nicht abdecken kann.
func (c *Config) Validate() error {
	switch c.GraphBackend {
	case "neo4j", "memory":
	case "postgres":
		if !c.HasDatabase() {
			return fmt.Errorf("GRAPH_BACKEND=postgres benötigt DB_HOST")
		}
	default:
		return fmt.Errorf("unbekanntes GRAPH_BACKEND %q", c.GraphBackend)
	}
	if c.BatchConcurrency < 1 {
		return fmt.Errorf("BATCH_CONCURRENCY muss mindestens 1 sein")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("MAX_RETRIES darf nicht negativ sein")
	}
	if len(c.Priority()) == 0 {
		return fmt.Errorf("ADAPTER_PRIORITY ist leer")
	}
	return nil
}

// Load lädt die Konfiguration aus den Umgebungsvariablen.
func Load() (*Config, error) {
	_ = godotenv.Load()
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return &c, err
	}
	return &c, c.Validate()
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
