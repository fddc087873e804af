package httpapi

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/rickgao/signalhub/internal/auth"
	"github.com/rickgao/signalhub/internal/router"
)

// Default transport settings.
const (
	DefaultMaxBodyBytes   = 1 << 20
	DefaultStreamInterval = 250 * time.Millisecond
	DefaultPingInterval   = 30 * time.Second
	DefaultWriteTimeout   = 5 * time.Second
)

// Config configures the HTTP server.
type Config struct {
	RateLimit      RateLimitConfig
	MetricsPath    string       // Empty disables the metrics route
	MetricsHandler http.Handler // Served at MetricsPath
	MaxBodyBytes   int64
	StreamInterval time.Duration // How often a websocket feed polls its queue
	PingInterval   time.Duration
	WriteTimeout   time.Duration
}

// Server routes HTTP requests to a Router.
type Server struct {
	router   *router.Router
	creds    *auth.Credentials
	cfg      Config
	logger   *slog.Logger
	engine   *gin.Engine
	upgrader websocket.Upgrader

	done      chan struct{}
	closeOnce sync.Once
}

// New creates a server. creds guards every signal route.
func New(r *router.Router, creds *auth.Credentials, cfg Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if cfg.StreamInterval <= 0 {
		cfg.StreamInterval = DefaultStreamInterval
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = DefaultPingInterval
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = DefaultWriteTimeout
	}

	s := &Server{
		router: r,
		creds:  creds,
		cfg:    cfg,
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		done: make(chan struct{}),
	}
	s.engine = s.routes()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Close ends every open websocket feed. http.Server.Shutdown does not touch
// hijacked connections, so call Close first.
func (s *Server) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}

func (s *Server) routes() *gin.Engine {
	e := gin.New()
	e.Use(gin.Recovery(), requestLogger(s.logger))
	if s.cfg.RateLimit.RequestsPerSecond > 0 {
		e.Use(RateLimiter(s.cfg.RateLimit))
	}

	e.GET("/health", s.handleHealth)
	if s.cfg.MetricsPath != "" && s.cfg.MetricsHandler != nil {
		e.GET(s.cfg.MetricsPath, gin.WrapH(s.cfg.MetricsHandler))
	}

	keyed := e.Group("/", requireKey(s.creds))
	keyed.POST("/signal/:channel", s.handleSubmit)
	keyed.GET("/last/:channel", s.handleLast)
	keyed.GET("/ws/:channel", s.handleStream)

	return e
}
