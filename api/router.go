// Package api contains all endpoints available
package api

import (
	"creatorhub/media-api/db"
	"creatorhub/media-api/internal/service"
	"creatorhub/media-api/internal/storage"
	"creatorhub/media-api/pkg/middleware"
	"fmt"
	"time"

	cache "github.com/chenyahui/gin-cache"
	"github.com/chenyahui/gin-cache/persist"
	ginzap "github.com/gin-contrib/zap"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"
)

const (
	gray  = "\x1b[90m"
	reset = "\x1b[0m"
)

var store = persist.NewMemoryStore(time.Minute)

type API struct {
	DB           *gorm.DB
	Router       *gin.Engine
	Chunks       *service.ChunkStore
	Assembler    *service.Assembler
	Orchestrator *service.Orchestrator
	Progress     *service.ProgressTracker
}

func NewRouter() (*API, error) {
	a := &API{}

	database, err := db.New()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database, %w", err)
	}
	a.DB = database

	makeLogger()

	layout := storage.NewLayout()

	var s3c *storage.S3Client
	if viper.GetString("storage.type") == "s3" {
		s3c, err = storage.NewS3()
		if err != nil {
			return nil, fmt.Errorf("failed to initialize S3 client, %w", err)
		}
	}

	chunkSize := viper.GetInt64("upload.chunk_size")

	a.Chunks = service.NewChunkStore(database, layout, chunkSize)
	a.Assembler = service.NewAssembler(database, layout, chunkSize)
	a.Progress = service.NewProgressTracker(database, chunkSize)

	transformer := service.NewMediaTransformer(layout, s3c, viper.GetInt("processing.max_image_width"))
	a.Orchestrator = service.NewOrchestrator(
		database,
		transformer,
		layout,
		viper.GetInt("processing.workers"),
		viper.GetInt("processing.queue_size"),
	)

	router := gin.New()
	a.Router = router

	router.Use(
		cors.New(cors.Config{
			AllowOrigins:     []string{"http://localhost:5173"},
			AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders:    []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}),
		gin.Recovery(),
		middleware.NewRequestIDMiddleware(),
		ginzap.GinzapWithConfig(zap.L(), &ginzap.Config{
			TimeFormat: "15:04:05.000",
			UTC:        true,
			Skipper: func(c *gin.Context) bool {
				return c.Request.Method == "HEAD"
			},
			Context: func(c *gin.Context) []zapcore.Field {
				fields := []zapcore.Field{}

				if v := c.GetString("requestID"); v != "" {
					fields = append(fields, zap.String("request_id", v))
				}

				if v := c.Param("mediaID"); v != "" {
					fields = append(fields, zap.String("media_id", v))
				}

				return fields
			},
		}),
	)

	router.HandleMethodNotAllowed = true
	router.RedirectFixedPath = true

	main := router.Group("/api")
	{
		// HEAD /api/heartbeat 		-> Used to check if the server is alive
		main.HEAD("/heartbeat", a.Heartbeat)
	}

	media := main.Group("/media")
	{
		// POST /api/media 				-> Registers a new media asset in PENDING state
		media.POST("", middleware.BodySizeLimiter(1<<20), a.MediaCreate)

		// GET /api/media/:mediaID 			-> Returns the asset record, used to poll processing status
		media.GET("/:mediaID", a.MediaFetch)

		// POST /api/media/:mediaID/chunks/:index 	-> Uploads one raw chunk of the file
		media.POST("/:mediaID/chunks/:index", middleware.BodySizeLimiter(chunkSize), a.ChunkUpload)

		// POST /api/media/:mediaID/complete 		-> Assembles the chunks and enqueues processing
		media.POST("/:mediaID/complete", a.MediaComplete)

		// GET /api/media/:mediaID/progress 		-> Returns the upload completion percentage
		media.GET("/:mediaID/progress", cacheFor(1), a.MediaProgress)
	}

	a.Orchestrator.StartWorkerPool()

	return a, nil
}

func makeLogger() {
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.EncoderConfig.EncodeTime = func(t time.Time, pae zapcore.PrimitiveArrayEncoder) {
		pae.AppendString(gray + t.Format("15:04:05.000") + reset)
	}
	cfg.EncoderConfig.EncodeCaller = func(ec zapcore.EntryCaller, pae zapcore.PrimitiveArrayEncoder) {
		pae.AppendString(gray + ec.TrimmedPath() + reset)
	}

	cfg.DisableStacktrace = true

	log, _ := cfg.Build()
	zap.ReplaceGlobals(log)
}

func cacheFor(sec int) gin.HandlerFunc {
	return cache.CacheByRequestURI(store, time.Second*time.Duration(sec))
}
