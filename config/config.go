package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config enthält alle Konfigurationsparameter aus Umgebungsvariablen.
type Config struct {
	DBHost     string `envconfig:"DB_HOST" required:"true"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" required:"true"`
	DBPassword string `envconfig:"DB_PASSWORD" required:"true"`
	DBName     string `envconfig:"DB_NAME" required:"true"`

	HTTPPort string `envconfig:"HTTP_PORT" default:"8000"`

	// Katalog-Provider
	GoogleBooksBaseURL string `envconfig:"GOOGLE_BOOKS_BASE_URL" default:"https://www.googleapis.com/books/v1"`
	GoogleBooksKey     string `envconfig:"GOOGLE_BOOKS_KEY"`
	OpenLibraryBaseURL string `envconfig:"OPEN_LIBRARY_BASE_URL" default:"https://openlibrary.org"`
	ArchiveBaseURL     string `envconfig:"ARCHIVE_BASE_URL" default:"https://archive.org"`
	GutenbergBaseURL   string `envconfig:"GUTENBERG_BASE_URL" default:"https://gutendex.com"`
	EnabledProviders   string `envconfig:"ENABLED_PROVIDERS" default:"google,openlibrary,ia,gutenberg"`

	// Embedding-API (OpenAI-kompatibel)
	EmbeddingBaseURL string `envconfig:"EMBEDDING_BASE_URL" default:"https://api.openai.com/v1"`
	EmbeddingAPIKey  string `envconfig:"EMBEDDING_API_KEY" required:"true"`
	EmbeddingModel   string `envconfig:"EMBEDDING_MODEL" default:"text-embedding-3-small"`

	// Blob-Storage: Primär-Bucket plus Best-Effort-Replikat
	S3Key           string `envconfig:"S3_KEY" required:"true"`
	S3Secret        string `envconfig:"S3_SECRET" required:"true"`
	S3URL           string `envconfig:"S3_URL" required:"true"`
	S3Region        string `envconfig:"S3_REGION" required:"true"`
	S3Bucket        string `envconfig:"S3_BUCKET" required:"true"`
	S3ReplicaBucket string `envconfig:"S3_REPLICA_BUCKET" required:"true"`

	// Aufräum-Job für verwaiste Ingests
	CleanupSchedule   string        `envconfig:"CLEANUP_SCHEDULE" default:"*/30 * * * *"`
	CleanupStaleAfter time.Duration `envconfig:"CLEANUP_STALE_AFTER" default:"1h"`
}

// DSN gibt den Data Source Name für die PostgreSQL-Verbindung zurück.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort)
}

// Load lädt die Konfiguration aus den Umgebungsvariablen.
func Load() (*Config, error) {
	_ = godotenv.Load()
	var c Config
	err := envconfig.Process("", &c)
	return &c, err
}
