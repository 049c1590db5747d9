package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"book-query/config"
	"book-query/embedding"
	"book-query/models"
	"book-query/providers"
	"book-query/providers/archive"
	"book-query/providers/googlebooks"
	"book-query/providers/gutenberg"
	"book-query/providers/openlibrary"
	"book-query/services"
	"book-query/storage"
)

var importsCounter prometheus.Counter

func init() {
	importsCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "documents_imported_total",
			Help: "Total number of accepted import requests.",
		},
	)
	prometheus.MustRegister(importsCounter)
}

func main() {
	logging, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logging.Sync()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal("Config load error", zap.Error(err))
	}

	// Setup Database Connection
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		logging.Fatal("Failed to connect to database", zap.Error(err))
	}
	logging.Info("Successfully connected to document database.")

	logging.Info("Running database auto-migration...")
	if err := db.AutoMigrate(&models.Document{}, &models.Chunk{}); err != nil {
		logging.Fatal("Auto-migration failed", zap.Error(err))
	}

	// Setup Providers
	enabledProviderNames := strings.Split(cfg.EnabledProviders, ",")
	providerMap := make(map[string]providers.Provider)
	var providerList []providers.Provider
	for _, name := range enabledProviderNames {
		var p providers.Provider
		switch strings.TrimSpace(name) {
		case "google":
			p = googlebooks.NewFetcher(cfg, logging)
		case "openlibrary":
			p = openlibrary.NewFetcher(cfg, logging)
		case "ia":
			p = archive.NewFetcher(cfg, logging)
		case "gutenberg":
			p = gutenberg.NewFetcher(cfg, logging)
		default:
			logging.Warn("Unknown provider in config", zap.String("provider_name", name))
			continue
		}
		providerMap[p.Name()] = p
		providerList = append(providerList, p)
	}
	if len(providerList) == 0 {
		logging.Fatal("No valid providers enabled. Check ENABLED_PROVIDERS in .env")
	}
	logging.Info("Active providers loaded", zap.Strings("providers", enabledProviderNames))

	// Setup Services
	blobStore, err := storage.NewS3Store(cfg)
	if err != nil {
		logging.Fatal("S3 store creation failed", zap.Error(err))
	}
	embedder, err := embedding.NewOpenAIClient(embedding.OpenAIConfig{
		BaseURL: cfg.EmbeddingBaseURL,
		APIKey:  cfg.EmbeddingAPIKey,
		Model:   cfg.EmbeddingModel,
	})
	if err != nil {
		logging.Fatal("Embedding client creation failed", zap.Error(err))
	}
	searchService := services.NewSearchService(providerList, logging)
	ingestService := services.NewIngestService(cfg, db, blobStore, embedder,
		services.NewPDFExtractor(), logging, providerMap)
	progressService := services.NewProgressService(db, ingestService, logging)

	// Setup Router
	router := gin.Default()
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Setup Routes
	setupSearchRoutes(router, searchService)
	setupImportRoutes(router, ingestService, logging)
	setupDocumentRoutes(router, ingestService, logging)
	setupProgressRoutes(router, progressService, logging)
	setupHealthRoutes(router, db, logging)

	// Setup Cron: verwaiste Ingests regelmäßig abräumen
	cronScheduler := cron.New()
	cronScheduler.AddFunc(cfg.CleanupSchedule, func() {
		logging.Info("Running scheduled stale-ingest sweep...")
		count, err := ingestService.SweepStale(context.Background())
		if err != nil {
			logging.Error("Stale-ingest sweep failed", zap.Error(err))
		} else {
			logging.Info("Stale-ingest sweep completed", zap.Int("cleaned", count))
		}
	})
	cronScheduler.Start()

	logging.Info("Starting server", zap.String("port", cfg.HTTPPort))
	srv := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: router,
		// Kein Read/WriteTimeout: die WebSocket-Verbindungen des
		// Progress-Kanals leben länger als jedes sinnvolle Limit.
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil {
		logging.Fatal("Failed to run server", zap.Error(err))
	}
}

func setupSearchRoutes(router *gin.Engine, searchService *services.SearchService) {
	router.GET("/search", func(c *gin.Context) {
		query := c.Query("q")
		if query == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "query parameter 'q' is required"})
			return
		}
		candidates := searchService.SearchAll(c.Request.Context(), query)
		c.JSON(http.StatusOK, candidates)
	})
}

func setupImportRoutes(router *gin.Engine, ingestService *services.IngestService, log *zap.Logger) {
	router.POST("/import", func(c *gin.Context) {
		var req services.ImportRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		result, err := ingestService.Import(c.Request.Context(), req)
		switch {
		case err == nil:
			importsCounter.Inc()
			c.JSON(http.StatusAccepted, result)
		case errors.Is(err, services.ErrInvalidSource):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid source"})
		case errors.Is(err, services.ErrDownloadNotPermitted):
			c.JSON(http.StatusForbidden, gin.H{"error": "Download not permitted"})
		case errors.Is(err, services.ErrImportInFlight):
			c.JSON(http.StatusConflict, gin.H{"error": "Import already in progress"})
		case errors.Is(err, services.ErrAlreadyImported):
			c.JSON(http.StatusConflict, gin.H{"error": "Document already imported"})
		default:
			log.Error("Import failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Import failed"})
		}
	})
}

func setupDocumentRoutes(router *gin.Engine, ingestService *services.IngestService, log *zap.Logger) {
	router.GET("/documents/:id/file", func(c *gin.Context) {
		id := c.Param("id")
		body, length, err := ingestService.Blobs.Get(c.Request.Context(), services.BlobKey(id))
		if err != nil {
			log.Debug("Stored file not found", zap.String("document_id", id), zap.Error(err))
			c.JSON(http.StatusNotFound, gin.H{"error": "file not found"})
			return
		}
		defer body.Close()
		c.DataFromReader(http.StatusOK, length, "application/pdf", body, nil)
	})
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Das Frontend läuft hinter eigener Origin; Auth ist kein Ziel dieses
	// Dienstes.
	CheckOrigin: func(r *http.Request) bool { return true },
}

func setupProgressRoutes(router *gin.Engine, progressService *services.ProgressService, log *zap.Logger) {
	router.GET("/ws/documents/:id", func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Warn("WebSocket upgrade failed", zap.Error(err))
			return
		}
		// Nach dem Hijack trägt der Request-Context nichts mehr; Abbruch
		// erkennt die Lese-Pumpe im Service.
		progressService.Forward(context.Background(), conn, c.Param("id"))
	})
}

func setupHealthRoutes(router *gin.Engine, db *gorm.DB, log *zap.Logger) {
	router.GET("/health", func(c *gin.Context) {
		var docCount, chunkCount int64
		if err := db.Model(&models.Document{}).Count(&docCount).Error; err != nil {
			log.Error("Health check failed", zap.Error(err))
			c.JSON(http.StatusOK, gin.H{"status": "error", "error": err.Error()})
			return
		}
		if err := db.Model(&models.Chunk{}).Count(&chunkCount).Error; err != nil {
			log.Error("Health check failed", zap.Error(err))
			c.JSON(http.StatusOK, gin.H{"status": "error", "error": err.Error()})
			return
		}

		var recent []models.Document
		if err := db.Order("created_at desc").Limit(5).Find(&recent).Error; err != nil {
			log.Error("Health check failed", zap.Error(err))
			c.JSON(http.StatusOK, gin.H{"status": "error", "error": err.Error()})
			return
		}

		recentDocs := make([]gin.H, 0, len(recent))
		for _, doc := range recent {
			recentDocs = append(recentDocs, gin.H{
				"id":     doc.ID,
				"title":  doc.Title,
				"status": doc.Status,
			})
		}

		c.JSON(http.StatusOK, gin.H{
			"status":           "ok",
			"documents_total":  docCount,
			"chunks_total":     chunkCount,
			"recent_documents": recentDocs,
		})
	})
}
