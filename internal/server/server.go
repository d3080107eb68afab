package server

import (
	"net/http"
	"time"

	"draw-guess/internal/config"
	"draw-guess/internal/game"
	"draw-guess/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type Server struct {
	svc      *game.Service
	images   storage.Reader
	cfg      config.Config
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// New wires the transport around svc. images may be nil when the configured
// backend serves drawings itself.
func New(svc *game.Service, images storage.Reader, cfg config.Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	registerValidators()
	return &Server{
		svc:    svc,
		images: images,
		cfg:    cfg,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

func (s *Server) Handler() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())
	r.MaxMultipartMemory = int64(s.cfg.MaxImageBytes) + 1<<20

	r.GET("/healthz", s.handleHealth)
	r.GET("/ws", s.handleWebsocket)

	api := r.Group("/api")
	api.POST("/upload", s.handleUpload)
	api.GET("/rooms/:roomId/state", s.handleRoomState)

	if s.images != nil {
		r.GET(storage.PathPrefix+":key", s.handleImage)
	}
	return r
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if c.Request.URL.Path == "/healthz" {
			return
		}
		s.logger.Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

func (s *Server) newLimiter() *rate.Limiter {
	perSecond := s.cfg.WSMessagesPerSecond
	if perSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	burst := s.cfg.WSBurst
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}
