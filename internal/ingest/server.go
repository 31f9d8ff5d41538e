// Package ingest runs the localhost endpoint the companion browser
// extension feeds camera frames and tab context into. The agent never
// talks to capture hardware itself; whatever the extension last posted is
// what the capture scheduler samples.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/examtrace/proctor-agent/internal/model"
	"github.com/examtrace/proctor-agent/internal/validator"
)

// Frames larger than this are rejected; a webcam JPEG has no business
// being bigger.
const maxFrameBytes = 4 << 20

// Server is the extension-facing HTTP listener.
type Server struct {
	feed *Feed
	addr string
	log  zerolog.Logger
	srv  *http.Server
}

// NewServer creates the ingest server for the given feed. allowedOrigins
// restricts CORS; empty means allow-all (dev default).
func NewServer(feed *Feed, addr string, allowedOrigins []string, log zerolog.Logger) *Server {
	s := &Server{
		feed: feed,
		addr: addr,
		log:  log.With().Str("component", "ingest").Logger(),
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	corsCfg := cors.DefaultConfig()
	if len(allowedOrigins) == 0 {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = allowedOrigins
	}
	corsCfg.AllowMethods = []string{http.MethodGet, http.MethodPost}
	engine.Use(cors.New(corsCfg))

	engine.GET("/healthz", s.handleHealthz)
	engine.POST("/frame", s.handleFrame)
	engine.POST("/context", s.handleContext)

	s.srv = &http.Server{
		Addr:         addr,
		Handler:      engine,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) handleHealthz(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

// handleFrame accepts one multipart JPEG under the "frame" field.
func (s *Server) handleFrame(c *gin.Context) {
	file, err := c.FormFile("frame")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "frame file is required"})
		return
	}
	if file.Size > maxFrameBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"detail": "frame too large"})
		return
	}

	f, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "unreadable frame"})
		return
	}
	defer f.Close()

	jpeg, err := io.ReadAll(io.LimitReader(f, maxFrameBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "unreadable frame"})
		return
	}

	s.feed.PutFrame(jpeg, time.Now())
	c.Status(http.StatusNoContent)
}

// contextRequest is the extension's tab-context payload.
type contextRequest struct {
	AppName  string `json:"app_name" binding:"required,max=512"`
	TabTitle string `json:"tab_title" binding:"max=512"`
}

func (s *Server) handleContext(c *gin.Context) {
	var req contextRequest
	if fields := validator.Bind(c, &req); fields != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid context payload", "fields": fields})
		return
	}

	s.feed.PutContext(model.ScreenContext{
		AppName:  req.AppName,
		TabTitle: req.TabTitle,
	}, time.Now())
	c.Status(http.StatusNoContent)
}

// Start begins listening in the background.
func (s *Server) Start() error {
	ln := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.addr).Msg("Ingest endpoint listening")
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			ln <- err
		}
	}()

	// Surface immediate bind failures (port in use) instead of limping on
	// without a media source.
	select {
	case err := <-ln:
		return fmt.Errorf("ingest listen: %w", err)
	case <-time.After(100 * time.Millisecond):
		return nil
	}
}

// Shutdown stops the listener gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
