package http

import (
	stdhttp "net/http"

	"github.com/benbjohnson/clock"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/dmview/internal/config"
	"github.com/vovakirdan/dmview/internal/store"
)

// NewServer builds an HTTP server exposing the document store's REST surface
// for the messages collection.
func NewServer(st store.DocumentStore, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           NewRouter(st, cfg, logger),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

// NewRouter registers the routes on a fresh gin engine.
func NewRouter(st store.DocumentStore, cfg *config.Config, logger *zerolog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery(), LoggerMiddleware(logger), MetricsMiddleware())

	router.GET("/health", func(c *gin.Context) {
		c.String(stdhttp.StatusOK, "ok")
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	limiter := newRateLimiter(cfg.WriteRateLimit, clock.New())
	writes := RateLimitMiddleware(limiter)

	docs := NewDocumentHandlers(st, store.MessagesCollection, logger)
	collection := "/" + store.MessagesCollection
	router.GET(collection+".json", docs.List)
	router.POST(collection+".json", writes, docs.Push)
	router.GET(collection+"/:key", docs.Get)
	router.PUT(collection+"/:key", writes, docs.Put)
	router.PATCH(collection+"/:key", writes, docs.Patch)
	router.DELETE(collection+"/:key", writes, docs.Delete)

	return router
}
