package server

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/disintegration/imaging"
	"github.com/gin-gonic/gin"
	qrcode "github.com/skip2/go-qrcode"
	"tools.zach/dev/coverkit/internal/document"
	"tools.zach/dev/coverkit/internal/export"
	"tools.zach/dev/coverkit/internal/theme"
)

// ///////////////////////////////////////////////
// Errors
// ///////////////////////////////////////////////

// statusFor maps store and export errors to HTTP status codes.
func statusFor(err error) int {
	var ee *export.ExportError
	switch {
	case errors.Is(err, document.ErrIndexOutOfRange):
		return http.StatusNotFound
	case errors.Is(err, document.ErrTooManyApps):
		return http.StatusConflict
	case errors.As(err, &ee):
		if ee.Op == "options" {
			return http.StatusBadRequest
		}
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

func fail(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{"message": err.Error()})
}

func paramIndex(c *gin.Context, key string) (int, bool) {
	i, err := strconv.Atoi(c.Param(key))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": fmt.Sprintf("invalid %s %q", key, c.Param(key))})
		return 0, false
	}
	return i, true
}

// ///////////////////////////////////////////////
// Document
// ///////////////////////////////////////////////

func health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) getDocument(c *gin.Context) {
	c.JSON(http.StatusOK, s.store.Snapshot())
}

// respond writes the document after a successful edit, or the error.
func (s *Server) respond(c *gin.Context, err error) {
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s.store.Snapshot())
}

func (s *Server) setField(c *gin.Context) {
	raw, err := c.GetRawData()
	if err != nil {
		fail(c, err)
		return
	}
	s.respond(c, s.store.SetField(c.Param("key"), raw))
}

func (s *Server) reset(c *gin.Context) {
	if err := s.store.Reset(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, s.store.Snapshot())
}

func (s *Server) reloadImages(c *gin.Context) {
	s.comp.ForceReload()
	if !s.follower.Render(s.store.Snapshot()) {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "render failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Images reloaded"})
}

// ///////////////////////////////////////////////
// Theme
// ///////////////////////////////////////////////

func (s *Server) listThemes(c *gin.Context) {
	type entry struct {
		Key string `json:"key"`
		theme.Theme
	}
	out := make([]entry, 0, len(theme.Keys()))
	for _, k := range theme.Keys() {
		t, _ := theme.Lookup(k)
		out = append(out, entry{Key: k, Theme: t})
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) selectTheme(c *gin.Context) {
	var req struct {
		Key string `json:"key" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, err)
		return
	}
	s.respond(c, s.store.SelectTheme(req.Key))
}

func (s *Server) setThemeColor(c *gin.Context) {
	var req struct {
		Value string `json:"value" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, err)
		return
	}
	s.respond(c, s.store.SetThemeColor(c.Param("field"), req.Value))
}

// ///////////////////////////////////////////////
// Social Links and Apps
// ///////////////////////////////////////////////

func (s *Server) addSocialLink(c *gin.Context) {
	link := document.NewSocialLink()
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&link); err != nil {
			fail(c, err)
			return
		}
	}
	if err := s.store.AddSocialLink(link); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, s.store.Snapshot())
}

func (s *Server) updateSocialLink(c *gin.Context) {
	i, ok := paramIndex(c, "index")
	if !ok {
		return
	}
	var p document.SocialLinkPatch
	if err := c.ShouldBindJSON(&p); err != nil {
		fail(c, err)
		return
	}
	s.respond(c, s.store.UpdateSocialLink(i, p))
}

func (s *Server) removeSocialLink(c *gin.Context) {
	i, ok := paramIndex(c, "index")
	if !ok {
		return
	}
	s.respond(c, s.store.RemoveSocialLink(i))
}

func (s *Server) addApp(c *gin.Context) {
	app := document.NewApp()
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&app); err != nil {
			fail(c, err)
			return
		}
	}
	added, err := s.store.AddApp(app)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, added)
}

func (s *Server) updateApp(c *gin.Context) {
	i, ok := paramIndex(c, "index")
	if !ok {
		return
	}
	var p document.AppPatch
	if err := c.ShouldBindJSON(&p); err != nil {
		fail(c, err)
		return
	}
	s.respond(c, s.store.UpdateApp(i, p))
}

func (s *Server) removeApp(c *gin.Context) {
	i, ok := paramIndex(c, "index")
	if !ok {
		return
	}
	s.respond(c, s.store.RemoveApp(i))
}

// ///////////////////////////////////////////////
// Catalogues
// ///////////////////////////////////////////////

func (s *Server) listPresets(c *gin.Context) {
	type entry struct {
		Key         string   `json:"key"`
		Name        string   `json:"name"`
		Width       int      `json:"width"`
		Height      int      `json:"height"`
		LargeFormat bool     `json:"largeFormat"`
		Scales      []string `json:"scales"`
	}
	var out []entry
	for _, p := range s.presets.All() {
		out = append(out, entry{
			Key:         p.Key,
			Name:        p.Name,
			Width:       p.Width,
			Height:      p.Height,
			LargeFormat: p.LargeFormat,
			Scales:      []string{p.ScaleLabel(1), p.ScaleLabel(2)},
		})
	}
	c.JSON(http.StatusOK, out)
}

func listOptions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"watermarkStyles": document.WatermarkStyles,
		"safeZoneViews":   document.SafeZoneViews,
		"watermarkDensity": gin.H{
			"min": document.MinWatermarkDensity, "max": document.MaxWatermarkDensity, "step": 1,
		},
		"watermarkOpacity": gin.H{
			"min": document.MinWatermarkOpacity, "max": document.MaxWatermarkOpacity, "step": 0.01,
		},
		"maxApps": document.MaxAppCards,
	})
}

// ///////////////////////////////////////////////
// Images
// ///////////////////////////////////////////////

// previewPNG serves the last published frame, which includes the safe-zone
// overlay when enabled. ?fresh=1 renders the current document first.
func (s *Server) previewPNG(c *gin.Context) {
	if c.Query("fresh") != "" || s.comp.Frame() == nil {
		s.follower.Render(s.store.Snapshot())
	}
	frame := s.comp.Frame()
	if frame == nil || frame.Image == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"message": "no frame rendered yet"})
		return
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, frame.Image, imaging.PNG); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Header("X-Frame-Generation", strconv.FormatUint(frame.Generation, 10))
	c.Data(http.StatusOK, "image/png", buf.Bytes())
}

// exportRequest carries export options. Empty format and zero scale fall
// back to the document's export settings, as does an absent quality.
type exportRequest struct {
	Format  string   `json:"format" form:"format"`
	Scale   int      `json:"scale" form:"scale"`
	Quality *float64 `json:"quality" form:"quality"`
}

func (r exportRequest) options(doc document.Document) (export.Options, error) {
	opts := export.OptionsFor(doc)
	if r.Format != "" {
		f, err := export.ParseFormat(r.Format)
		if err != nil {
			return opts, &export.ExportError{Op: "options", Err: err}
		}
		opts.Format = f
	}
	if r.Scale != 0 {
		opts.Scale = r.Scale
	}
	if r.Quality != nil {
		opts.Quality = *r.Quality
	}
	return opts, nil
}

// download streams an export as an attachment.
func (s *Server) download(c *gin.Context) {
	var req exportRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		fail(c, err)
		return
	}
	doc := s.store.Snapshot()
	opts, err := req.options(doc)
	if err != nil {
		fail(c, err)
		return
	}
	var buf bytes.Buffer
	if err := s.exporter.Encode(c.Request.Context(), &buf, doc, opts); err != nil {
		fail(c, err)
		return
	}
	if opts.Scale == 0 {
		opts.Scale = 1
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, export.FileName(opts.Scale, opts.Format)))
	c.Data(http.StatusOK, "image/"+string(opts.Format), buf.Bytes())
}

func (s *Server) exportFile(c *gin.Context) {
	var req exportRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, err)
			return
		}
	}
	doc := s.store.Snapshot()
	opts, err := req.options(doc)
	if err != nil {
		fail(c, err)
		return
	}
	path, err := s.exporter.WriteFile(c.Request.Context(), s.exportDir, doc, opts)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Exported " + path, "path": path})
}

func (s *Server) copy(c *gin.Context) {
	if err := s.exporter.CopyToClipboard(c.Request.Context(), s.store.Snapshot()); err != nil {
		c.JSON(statusFor(err), gin.H{"message": "Failed to copy to clipboard", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Copied to clipboard!"})
}

// qrPNG encodes the editor URL as a QR code. ?size= sets the pixel size.
func (s *Server) qrPNG(c *gin.Context) {
	size := 256
	if v, err := strconv.Atoi(c.Query("size")); err == nil {
		size = min(max(v, 64), 1024)
	}
	url := s.baseURL
	if url == "" {
		url = "http://" + c.Request.Host + "/"
	}
	png, err := qrcode.Encode(url, qrcode.Medium, size)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

func (s *Server) index(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", indexHTML)
}

var indexHTML = []byte(`<!doctype html>
<html>
<head><meta charset="utf-8"><title>coverkit</title>
<style>body{background:#0f172a;color:#e2e8f0;font-family:sans-serif;margin:2rem}img{max-width:100%}</style>
</head>
<body>
<h1>coverkit</h1>
<p><img id="preview" src="/preview.png?fresh=1" alt="cover preview"></p>
<p><a href="/export?format=png&scale=1">PNG 1x</a> · <a href="/export?format=png&scale=2">PNG 2x</a> · <a href="/export?format=jpeg&scale=1">JPEG</a></p>
<script>setInterval(function(){document.getElementById("preview").src="/preview.png?t="+Date.now()},2000)</script>
</body>
</html>
`)
