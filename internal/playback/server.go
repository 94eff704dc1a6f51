package playback

import (
	"context"
	"errors"
	"mime"
	"net"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/jdefrancesco/vidshelf/internal/catalog"
	"github.com/jdefrancesco/vidshelf/internal/vlog"
)

// videoTypes covers containers missing from many system mime tables.
var videoTypes = map[string]string{
	".mp4":  "video/mp4",
	".m4v":  "video/x-m4v",
	".webm": "video/webm",
	".mov":  "video/quicktime",
	".mkv":  "video/x-matroska",
	".avi":  "video/x-msvideo",
	".flv":  "video/x-flv",
	".pdf":  "application/pdf",
}

// ContentType returns the MIME type for a file name.
func ContentType(name string) string {
	ext := strings.ToLower(path.Ext(name))
	if t, ok := videoTypes[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return "application/octet-stream"
}

// Server streams registered sources over HTTP.
type Server struct {
	reg    *Registry
	engine *gin.Engine
	srv    *http.Server
}

// NewServer builds the router for reg.
func NewServer(reg *Registry) *Server {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger())
	r.Use(corsMiddleware())

	s := &Server{
		reg:    reg,
		engine: r,
		srv: &http.Server{
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
	r.GET("/health", s.health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET(playPrefix+":token", s.stream)
	r.HEAD(playPrefix+":token", s.stream)
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.engine }

// Listen binds addr. The listener's address decides the registry base URL,
// so callers listen before creating the registry when the port is 0.
func Listen(addr string) (net.Listener, error) {
	return net.Listen("tcp", addr)
}

// Serve blocks serving ln until Shutdown. After Shutdown it closes ln and
// returns nil at once.
func (s *Server) Serve(ln net.Listener) error {
	vlog.Vlogger.Infof("Playback server listening on %s", ln.Addr())
	if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server, waiting for open streams until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   "vidshelf",
		"live_urls": s.reg.Len(),
		"timestamp": time.Now().Unix(),
	})
}

// stream serves a registered source with range support for seeking.
func (s *Server) stream(c *gin.Context) {
	token := c.Param("token")
	src, ok := s.reg.Resolve(token)
	if !ok {
		StreamRequestsTotal.WithLabelValues("not_found").Inc()
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown or revoked playback URL"})
		return
	}

	serveSource(c, src)
}

func serveSource(c *gin.Context, src catalog.Source) {
	rc, err := src.Open()
	if err != nil {
		vlog.Vlogger.Errorf("Failed to open %s: %v", src.Name(), err)
		StreamRequestsTotal.WithLabelValues("open_error").Inc()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to open file"})
		return
	}
	defer rc.Close()

	c.Header("Content-Type", ContentType(src.Name()))
	c.Header("Cache-Control", "no-store")
	http.ServeContent(c.Writer, c.Request, src.Name(), time.Time{}, rc)

	result := "ok"
	if c.Writer.Status() == http.StatusPartialContent {
		result = "partial"
	}
	StreamRequestsTotal.WithLabelValues(result).Inc()
	StreamBytesTotal.Add(float64(max(c.Writer.Size(), 0)))
}

// requestLogger writes one logrus line per request.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		vlog.Vlogger.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"bytes":    c.Writer.Size(),
			"range":    c.GetHeader("Range"),
			"duration": time.Since(start),
		}).Debug("playback request")
	}
}

// corsMiddleware lets browser based players on any origin fetch streams.
func corsMiddleware() gin.HandlerFunc {
	config := cors.DefaultConfig()
	config.AllowAllOrigins = true
	config.AllowMethods = []string{"GET", "HEAD", "OPTIONS"}
	config.AllowHeaders = []string{"Origin", "Range"}
	config.ExposeHeaders = []string{"Content-Length", "Content-Range", "Accept-Ranges"}
	return cors.New(config)
}
