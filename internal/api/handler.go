package api

import (
	"net/http"
	"time"

	"backtest-core/internal/backtest"
	"backtest-core/internal/data"
	"backtest-core/internal/events"
	"backtest-core/internal/monitor"

	"github.com/gin-gonic/gin"
)

// Server exposes the backtester over HTTP.
type Server struct {
	Router       *gin.Engine
	Bus          *events.Bus
	Metrics      *monitor.Metrics
	Config       backtest.Config
	Klines       []data.Kline
	SweepWorkers int
	JWTSecret    string
	Meta         SystemMeta
}

// SystemMeta describes the loaded price history.
type SystemMeta struct {
	Symbol   string `json:"symbol"`
	Interval string `json:"interval"`
	Source   string `json:"source"`
	Version  string `json:"version"`
}

// NewServer builds the router. klines may be empty, in which case only raw
// signal backtests are served. An empty jwtSecret leaves /api open.
func NewServer(cfg backtest.Config, klines []data.Kline, bus *events.Bus, metrics *monitor.Metrics, meta SystemMeta, jwtSecret string) *Server {
	r := gin.New()

	// Middleware stack (order matters!)
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(RequestLogger(metrics))
	r.Use(RateLimitMiddleware(newIPLimiter(20, 50)))
	r.Use(TimeoutMiddleware(2 * time.Minute))
	r.Use(CORSMiddleware())

	s := &Server{
		Router:    r,
		Bus:       bus,
		Metrics:   metrics,
		Config:    cfg,
		Klines:    klines,
		JWTSecret: jwtSecret,
		Meta:      meta,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.Router.GET("/health", s.health)

	api := s.Router.Group("/api")
	if s.JWTSecret != "" {
		api.Use(AuthMiddleware(s.JWTSecret))
	}
	{
		api.GET("/system/status", s.getSystemStatus)
		api.GET("/metrics", s.getMetrics)
		api.GET("/strategies/defaults", s.getDefaultParams)
		api.POST("/backtests", s.createBacktest)
		api.POST("/sweeps", s.createSweep)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) Start(addr string) error {
	return s.Router.Run(addr)
}
