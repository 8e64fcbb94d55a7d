// Package api provides the REST control surface for opendmx
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/james-see/opendmx/pkg/controller"
	"github.com/james-see/opendmx/pkg/dmx"
	"github.com/james-see/opendmx/pkg/pattern"
)

// @title OpenDMX API
// @version 1.0
// @description Control surface for a running Open DMX512 output
// @host localhost:8080
// @BasePath /api/v1

// Source is the name intents from this package are tagged with
const Source = "http"

// shutdownTimeout bounds how long Serve waits for in-flight requests
const shutdownTimeout = 5 * time.Second

// Engine is the generator status the API reports
type Engine interface {
	Stage() controller.Stage
	Frames() uint64
}

// Server serves the HTTP control API
type Server struct {
	app      controller.Applier
	state    *controller.State
	engine   Engine
	gatherer prometheus.Gatherer
	logger   *slog.Logger
	router   *gin.Engine
}

// StateResponse describes the shared state and generator progress
type StateResponse struct {
	Mode     string `json:"mode"`
	Stage    string `json:"stage"`
	Stopping bool   `json:"stopping"`
	Frames   uint64 `json:"frames"`
	Channels []int  `json:"channels"`
}

// ModeRequest selects a display mode
type ModeRequest struct {
	Mode string `json:"mode" binding:"required"`
}

// LevelRequest sets every channel to one level
type LevelRequest struct {
	Level *int `json:"level" binding:"required,min=0,max=255"`
}

// NewServer creates a Server. gatherer may be nil to disable /metrics.
func NewServer(app controller.Applier, state *controller.State, engine Engine, gatherer prometheus.Gatherer, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		app:      app,
		state:    state,
		engine:   engine,
		gatherer: gatherer,
		logger:   logger,
	}
	s.router = s.routes()
	return s
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	// CORS middleware
	r.Use(corsMiddleware())

	// Health check
	r.GET("/health", s.healthCheck)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		v1.GET("/health", s.healthCheck)
		v1.GET("/state", s.getState)
		v1.GET("/modes", listModes)
		v1.PUT("/mode", s.putMode)
		v1.PUT("/level", s.putLevel)
		v1.POST("/blackout", s.postBlackout)
		v1.POST("/stop", s.postStop)
	}

	if s.gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	}

	// Swagger docs
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}

// Serve listens on addr until ctx ends, then shuts down gracefully
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("http api listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.logger.Info("http api stopped")
	return nil
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"took", time.Since(start))
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, PUT, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// healthCheck godoc
// @Summary Health check endpoint
// @Description Returns the health status of the API and the generator stage
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "opendmx",
		"stage":   s.engine.Stage().String(),
	})
}

// getState godoc
// @Summary Current output state
// @Description Returns the mode, generator stage, frame count and all 512 channel levels
// @Tags state
// @Produce json
// @Success 200 {object} StateResponse
// @Router /api/v1/state [get]
func (s *Server) getState(c *gin.Context) {
	snap := s.state.Snapshot()
	channels := make([]int, dmx.Channels)
	for i, v := range snap.Universe {
		channels[i] = int(v)
	}
	c.JSON(http.StatusOK, StateResponse{
		Mode:     snap.Mode.String(),
		Stage:    s.engine.Stage().String(),
		Stopping: snap.Stopping,
		Frames:   s.engine.Frames(),
		Channels: channels,
	})
}

// listModes godoc
// @Summary List display modes
// @Tags info
// @Produce json
// @Success 200 {object} map[string][]string
// @Router /api/v1/modes [get]
func listModes(c *gin.Context) {
	names := make([]string, 0, len(pattern.Modes()))
	for _, m := range pattern.Modes() {
		names = append(names, m.String())
	}
	c.JSON(http.StatusOK, gin.H{"modes": names})
}

// putMode godoc
// @Summary Select display mode
// @Tags control
// @Accept json
// @Produce json
// @Param request body ModeRequest true "Mode name"
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /api/v1/mode [put]
func (s *Server) putMode(c *gin.Context) {
	var req ModeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	m, err := pattern.ParseMode(req.Mode)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.apply(c, controller.SetMode(m))
}

// putLevel godoc
// @Summary Set all channels
// @Description Switches to static mode with every channel at the given level
// @Tags control
// @Accept json
// @Produce json
// @Param request body LevelRequest true "Level 0-255"
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /api/v1/level [put]
func (s *Server) putLevel(c *gin.Context) {
	var req LevelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.apply(c, controller.SetAllChannels(uint8(*req.Level)))
}

// postBlackout godoc
// @Summary Blackout
// @Tags control
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /api/v1/blackout [post]
func (s *Server) postBlackout(c *gin.Context) {
	s.apply(c, controller.Blackout())
}

// postStop godoc
// @Summary Fade out and stop output
// @Tags control
// @Produce json
// @Success 202 {object} map[string]string
// @Router /api/v1/stop [post]
func (s *Server) postStop(c *gin.Context) {
	if err := s.app.Apply(controller.Stop()); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"applied": controller.Stop().String()})
}

func (s *Server) apply(c *gin.Context, in controller.Intent) {
	if err := s.app.Apply(in); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"applied": in.String()})
}

func (s *Server) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, controller.ErrStopped):
		status = http.StatusConflict
	case errors.Is(err, dmx.ErrIntent):
		status = http.StatusBadRequest
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
