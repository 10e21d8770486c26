package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	_ "github.com/johnquangdev/meeting-recorder/docs"
	"github.com/johnquangdev/meeting-recorder/internal/adapter/handler"
	"github.com/johnquangdev/meeting-recorder/internal/adapter/repository"
	"github.com/johnquangdev/meeting-recorder/internal/domain/repositories"
	"github.com/johnquangdev/meeting-recorder/internal/infrastructure/audio"
	"github.com/johnquangdev/meeting-recorder/internal/infrastructure/cache"
	"github.com/johnquangdev/meeting-recorder/internal/infrastructure/capture"
	"github.com/johnquangdev/meeting-recorder/internal/infrastructure/database"
	httpmw "github.com/johnquangdev/meeting-recorder/internal/infrastructure/http/middleware"
	"github.com/johnquangdev/meeting-recorder/internal/infrastructure/metrics"
	"github.com/johnquangdev/meeting-recorder/internal/infrastructure/storage"
	"github.com/johnquangdev/meeting-recorder/internal/infrastructure/websocket"
	"github.com/johnquangdev/meeting-recorder/internal/usecase/recording"
	pkgai "github.com/johnquangdev/meeting-recorder/pkg/ai"
	"github.com/johnquangdev/meeting-recorder/pkg/config"
	"github.com/johnquangdev/meeting-recorder/pkg/jwt"
	"github.com/johnquangdev/meeting-recorder/pkg/logger"
	pkgvalidator "github.com/johnquangdev/meeting-recorder/pkg/validator"
)

// @title           Meeting Recorder API
// @version         1.0
// @description     Local control API for the crash-resilient meeting recorder.

// @contact.name   API Support
// @contact.email  support@infoquang.id.vn

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @host      127.0.0.1:8080
// @BasePath  /v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zl, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zl.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize Echo instance
	e := echo.New()
	e.Validator = pkgvalidator.New()
	e.HideBanner = true
	e.HidePort = false

	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "${time_rfc3339} | ${status} | ${method} ${uri} | ${latency_human}\n",
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.Server.AllowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	log.Println("🔧 Initializing dependencies...")

	// Meeting index
	var meetings repositories.MeetingRepository
	if cfg.Database.Enabled {
		log.Println("📦 Connecting to database...")
		db, err := database.NewDB(cfg)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer database.CloseDB(db)
		migrate(cfg, db)
		meetings = repository.NewMeetingRepository(db)
	} else {
		log.Println("📦 Meeting index disabled")
	}

	// Live status and event fan-out
	hub := websocket.NewHub(zl)
	var statusStore repositories.StatusStore
	publishers := []repositories.EventPublisher{hub}
	if cfg.Redis.Enabled {
		log.Println("📦 Connecting to Redis...")
		redisClient, err := cache.NewRedisClient(ctx, cfg)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisClient.Close()
		statusStore = cache.NewRedisStatusStore(redisClient)
		publishers = append(publishers, cache.NewRedisPublisher(redisClient, cfg.Redis.Channel))
	} else {
		memory := cache.NewMemoryStore()
		defer memory.Close()
		statusStore = memory
	}
	notifier := recording.NewNotifier(statusStore, cfg.Redis.StatusTTL, zl, publishers...)

	// Metrics
	var (
		m              *metrics.Metrics
		metricsHandler http.Handler
	)
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		m = metrics.NewMetrics(reg)
		metricsHandler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
	}

	var opts []recording.ManagerOption

	// Remote artifact copies
	var uploader *recording.ArtifactUploader
	if cfg.Storage.Enabled {
		log.Println("🪣 Connecting to object storage...")
		store, err := storage.NewMinIOClient(ctx, &cfg.Storage)
		if err != nil {
			log.Fatalf("Failed to initialize storage: %v", err)
		}
		uploader = recording.NewArtifactUploader(store, zl)
		opts = append(opts, recording.WithSavedListener(uploader))
	}

	// Transcription engine is optional
	var engine repositories.TranscriptionEngine
	if assembly := pkgai.NewAssemblyAIEngine(cfg.Transcription, zl); assembly != nil {
		log.Println("🤖 AssemblyAI retranscription enabled")
		engine = assembly
	}

	// Capture backends
	mixer := capture.NewMixer()
	streams := capture.NewFFmpegStreams(cfg.Recording.FfmpegPath, runtime.GOOS, cfg.Recording.SampleRate, mixer, zl)

	store := repository.NewSessionRepository()
	deps := recording.Dependencies{
		Lister:   capture.NewDeviceLister(runtime.GOOS),
		Streams:  streams,
		Pipeline: mixer,
		Selector: audio.NewDeviceSelector(runtime.GOOS),
		Store:    store,
		Prefs:    config.NewPreferencesStore(cfg.Recording.PreferencesFile, cfg.Recording.Preferences()),
		Engine:   engine,
		Notifier: notifier,
	}
	if meetings != nil {
		deps.Index = recording.NewMeetingIndexer(meetings, store, zl)
	}

	manager := recording.NewRecordingManager(recording.ManagerConfigFrom(cfg.Recording), deps, zl, m, opts...)
	streams.OnStreamError(manager.ReportStreamError)

	// Routes
	var authMW echo.MiddlewareFunc
	if cfg.AuthEnabled() {
		log.Println("🔑 Bearer token auth enabled")
		authMW = httpmw.EchoAuth(jwt.NewManager(cfg.Auth.Secret, cfg.Auth.TokenExpiry, cfg.Auth.Issuer))
	} else {
		log.Println("⚠️  Control API is unauthenticated (set MEETREC_AUTH_SECRET to enable tokens)")
	}

	recordingHandler := handler.NewRecordingHandler(manager, meetings, zl)
	router := handler.NewRouter(cfg, recordingHandler, hub, metricsHandler, authMW, zl)
	router.Setup(e)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return hub.Run(gctx) })
	g.Go(func() error { return manager.RunDeviceEvents(gctx) })
	g.Go(func() error {
		addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
		log.Printf("🚀 Starting server on %s", addr)
		log.Printf("📝 Environment: %s", cfg.Server.Environment)
		log.Printf("🔗 Health check: http://%s/health", addr)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Println("🛑 Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if manager.IsActive() {
			zl.Info("💾 Saving active recording before exit")
			if _, err := manager.StopRecording(shutdownCtx); err != nil {
				zl.Error("❌ Failed to save active recording", zap.Error(err))
				manager.CleanupWithoutSave(shutdownCtx)
			}
		}
		if err := manager.Close(shutdownCtx); err != nil {
			zl.Warn("⚠️ Failed to close recording manager", zap.Error(err))
		}
		if uploader != nil {
			uploader.Wait()
		}
		return e.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		zl.Error("❌ Server stopped with error", zap.Error(err))
		os.Exit(1)
	}
	log.Println("✅ Server stopped gracefully")
}

func migrate(cfg *config.Config, db *gorm.DB) {
	if !cfg.Database.AutoMigrate {
		log.Println("🔄 Skipping migrations; apply migrations/ with sql-migrate")
		return
	}
	if cfg.Server.Environment == "production" && cfg.Database.Driver == "postgres" {
		log.Fatalf("AutoMigrate is enabled in production. Disable MEETREC_DB_AUTO_MIGRATE and manage schema with sql-migrate.")
	}
	n, err := database.AutoMigrate(db, cfg.Database.Driver, database.MigrationsDir)
	if err != nil {
		log.Fatalf("Failed to apply migrations: %v", err)
	}
	log.Printf("🔄 Applied %d migration(s)", n)
}
