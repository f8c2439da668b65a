package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nguyentantai21042004/article-flow/internal/config"
	"github.com/nguyentantai21042004/article-flow/internal/logger"
	"github.com/nguyentantai21042004/article-flow/internal/pipeline"
)

type implServer struct {
	cfg    config.ServerConfig
	pipe   pipeline.Pipeline
	logger logger.Logger
	router *gin.Engine
	http   *http.Server
}

// New creates the HTTP server and registers its routes
func New(cfg config.ServerConfig, pipe pipeline.Pipeline, log logger.Logger) Server {
	s := &implServer{
		cfg:    cfg,
		pipe:   pipe,
		logger: log,
	}
	s.setupRouter()

	s.http = &http.Server{
		Addr:    cfg.Addr,
		Handler: s.router,
	}
	return s
}

func (s *implServer) setupRouter() {
	s.router = gin.New()
	s.router.Use(gin.Recovery())
	s.router.Use(s.requestLogger())

	s.router.GET("/", s.index)
	s.router.GET("/healthz", s.healthz)

	api := s.router.Group("/api")
	api.POST("/articles", s.createArticle)
}
