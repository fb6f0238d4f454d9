// Package server exposes the cover editor over HTTP: the document and its
// edit operations as JSON, the live preview frame, exports and a QR code
// pointing at the editor.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"tools.zach/dev/coverkit/internal/canvas"
	"tools.zach/dev/coverkit/internal/document"
	"tools.zach/dev/coverkit/internal/export"
	"tools.zach/dev/coverkit/internal/preset"
	"tools.zach/dev/coverkit/internal/preview"
)

// Server serves the editor API.
type Server struct {
	store    *document.Store
	comp     *canvas.Compositor
	exporter *export.Exporter
	presets  *preset.Registry
	follower *preview.Follower

	// baseURL is encoded by /qr.png.
	baseURL   string
	exportDir string

	engine *gin.Engine
}

// Options configures a [Server].
type Options struct {
	// BaseURL is the address clients reach the editor at.
	BaseURL string
	// ExportDir receives files written by POST /api/export.
	ExportDir string
}

// New builds the router and starts following store edits. Call
// [Server.Close] to stop.
func New(ctx context.Context, store *document.Store, comp *canvas.Compositor, exp *export.Exporter, presets *preset.Registry, opts Options) *Server {
	s := &Server{
		store:     store,
		comp:      comp,
		exporter:  exp,
		presets:   presets,
		baseURL:   opts.BaseURL,
		exportDir: opts.ExportDir,
	}
	s.follower = preview.Follow(ctx, store, comp, nil)

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())
	s.routes(r)
	s.engine = r
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.engine }

// Close stops following the store.
func (s *Server) Close() { s.follower.Stop() }

// Run serves on addr until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		slog.Info("editor listening", "addr", addr, "url", s.baseURL)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve %s: %w", addr, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	slog.Info("editor stopped")
	return nil
}

func (s *Server) routes(r *gin.Engine) {
	r.GET("/", s.index)
	r.GET("/preview.png", s.previewPNG)
	r.GET("/qr.png", s.qrPNG)
	r.GET("/export", s.download)

	api := r.Group("/api")
	{
		api.GET("/health", health)
		api.GET("/document", s.getDocument)
		api.PUT("/document/fields/:key", s.setField)
		api.POST("/reset", s.reset)
		api.POST("/reload-images", s.reloadImages)

		api.GET("/themes", s.listThemes)
		api.POST("/theme", s.selectTheme)
		api.PUT("/theme/colors/:field", s.setThemeColor)

		api.POST("/social", s.addSocialLink)
		api.PATCH("/social/:index", s.updateSocialLink)
		api.DELETE("/social/:index", s.removeSocialLink)

		api.POST("/apps", s.addApp)
		api.PATCH("/apps/:index", s.updateApp)
		api.DELETE("/apps/:index", s.removeApp)

		api.GET("/presets", s.listPresets)
		api.GET("/options", listOptions)

		api.POST("/export", s.exportFile)
		api.POST("/copy", s.copy)
	}
}

// requestLogger logs each request through slog.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.Debug("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
