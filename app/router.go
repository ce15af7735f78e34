// Package app wires the router, middleware and dependencies together
package app

import (
	"fmt"
	"time"

	"github.com/EllieBekrian/cab432/app/admin"
	appevents "github.com/EllieBekrian/cab432/app/events"
	"github.com/EllieBekrian/cab432/app/root"
	"github.com/EllieBekrian/cab432/app/upload"
	"github.com/EllieBekrian/cab432/app/user"
	"github.com/EllieBekrian/cab432/app/weather"
	"github.com/EllieBekrian/cab432/aws"
	"github.com/EllieBekrian/cab432/internal"
	"github.com/EllieBekrian/cab432/internal/cache"
	"github.com/EllieBekrian/cab432/internal/events"
	"github.com/EllieBekrian/cab432/internal/service"
	"github.com/EllieBekrian/cab432/internal/store"
	"github.com/EllieBekrian/cab432/pkg/middleware"
	"github.com/EllieBekrian/cab432/pkg/security"

	gincache "github.com/chenyahui/gin-cache"
	"github.com/chenyahui/gin-cache/persist"
	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	gray  = "\x1b[90m"
	reset = "\x1b[0m"
)

var cacheStore = persist.NewMemoryStore(time.Minute)

func NewRouter() (*gin.Engine, error) {
	makeLogger()

	d := &internal.Deps{}

	s, err := store.New()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize durable store, %w", err)
	}
	d.Store = s

	d.Cache = cache.New()
	d.Bus = events.NewBus()
	d.Meta = service.NewMetadata(d.Store, d.Cache, d.Bus)
	d.Pipeline = service.NewPipeline(d.Meta, service.NewFFmpegRunner())
	d.Weather = service.NewWeather(d.Cache)
	d.Argon = security.New()

	if viper.GetString("aws.bucket") != "" {
		s3, err := aws.NewS3()
		if err != nil {
			return nil, fmt.Errorf("failed to initialize S3 client, %w", err)
		}

		d.Transfers = service.NewTransfers(d.Store, s3)
	}

	router := gin.New()

	router.Use(
		cors.New(cors.Config{
			AllowOrigins:     viper.GetStringSlice("host.cors"),
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
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

				if v := c.GetString("username"); v != "" {
					fields = append(fields, zap.String("username", v))
				}

				return fields
			},
		}),
	)

	router.HandleMethodNotAllowed = true
	router.RedirectFixedPath = true

	rateLimit := viper.GetInt("security.rate_limit")

	auth := middleware.NewAuthMiddleware()
	rateLimiter := middleware.RateLimiterMiddleware(middleware.RateLimiterConfig{
		RequestsPerSecond: rateLimit,
		Burst:             rateLimit * 2,
	})

	m := router.Group("/api", rateLimiter)
	{
		// HEAD /api/heartbeat 		-> Used to check if the server is alive
		m.HEAD("/heartbeat", root.Heartbeat)
	}

	u := m.Group("/v1/users", middleware.BodySizeLimiter(1<<20))
	{
		// POST /api/v1/users 		-> Registers a new user
		u.POST("", func(c *gin.Context) { user.UserRegister(c, d) })

		// POST /api/v1/users/login 	-> Logs in a user and returns a JWT token
		u.POST("/login", func(c *gin.Context) { user.UserLogin(c, d) })
	}

	up := m.Group("/v1/upload", auth, middleware.BodySizeLimiter(1<<20))
	{
		// POST /api/v1/upload		-> Registers an upload and starts transcoding
		up.POST("", func(c *gin.Context) { upload.UploadRegister(c, d) })

		// GET /api/v1/upload/files	-> Lists the caller's files
		up.GET("/files", func(c *gin.Context) { upload.FileList(c, d) })

		// DELETE /api/v1/upload/files/:fileName -> Deletes one of the caller's files
		up.DELETE("/files/:fileName", func(c *gin.Context) { upload.FileDelete(c, d) })

		// GET /api/v1/upload/progress/:fileName -> Returns the live progress of a file
		up.GET("/progress/:fileName", func(c *gin.Context) { upload.ProgressFetch(c, d) })

		// POST /api/v1/upload/presign	-> Issues a presigned upload URL
		up.POST("/presign", func(c *gin.Context) { upload.PresignUpload(c, d) })

		// GET /api/v1/upload/download	-> Issues a presigned download URL
		up.GET("/download", func(c *gin.Context) { upload.PresignDownload(c, d) })
	}

	// GET /api/v1/events		-> Live update stream
	m.GET("/v1/events", auth, func(c *gin.Context) { appevents.Stream(c, d) })

	// GET /weather			-> Cached weather lookup
	router.GET("/weather", rateLimiter, func(c *gin.Context) { weather.Fetch(c, d) })

	adm := router.Group("/admin", rateLimiter, auth, middleware.AdminOnly())
	{
		// GET /admin/files		-> Lists every file across all users
		adm.GET("/files", cacheFor(30), func(c *gin.Context) { admin.Files(c, d) })

		// GET /admin/users		-> Lists every registered user
		adm.GET("/users", cacheFor(30), func(c *gin.Context) { admin.Users(c, d) })
	}

	d.Pipeline.StartWorkerPool()

	return router, nil
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

	if lvl, err := zapcore.ParseLevel(viper.GetString("app.log_level")); err == nil {
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}

	log, _ := cfg.Build()
	zap.ReplaceGlobals(log)
}

func cacheFor(sec int) gin.HandlerFunc {
	return gincache.CacheByRequestURI(cacheStore, time.Second*time.Duration(sec))
}
