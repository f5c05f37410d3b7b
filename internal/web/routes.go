package web

import (
	"io"
	"mime"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/kozaktomas/roll-call/internal/web/handlers"
	"github.com/kozaktomas/roll-call/internal/web/static"
)

// requestTimeout bounds every API request except the camera feed.
const requestTimeout = 2 * time.Minute

func (s *Server) setupRoutes() {
	svc := s.services

	// Create handlers
	studentsHandler := handlers.NewStudentsHandler(svc.Ledger, svc.Enroller, svc.Remover)
	attendanceHandler := handlers.NewAttendanceHandler(svc.Ledger, svc.Attendance)
	imagesHandler := handlers.NewImagesHandler(svc.Images)
	configHandler := handlers.NewConfigHandler(s.config)
	statsHandler := handlers.NewStatsHandler(svc.Ledger, svc.Gallery)

	// Health check
	s.router.Get("/api/v1/health", handlers.HealthCheck)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(chiMiddleware.Timeout(requestTimeout))

			// Config & stats
			r.Get("/config", configHandler.Get)
			r.Get("/stats", statsHandler.Get)

			// Students
			r.Get("/students", studentsHandler.List)
			r.Post("/students", studentsHandler.Enroll)
			r.Get("/students/{id}", studentsHandler.Get)
			r.Delete("/students/{id}", studentsHandler.Delete)

			// Attendance
			r.Post("/attendance", attendanceHandler.Mark)
			r.Get("/attendance", attendanceHandler.History)
			r.Post("/recognize", attendanceHandler.Recognize)

			// Stored photos
			r.Get("/images/{name}", imagesHandler.Get)
		})

		if svc.Pipeline != nil {
			cameraHandler := handlers.NewCameraHandler(svc.Pipeline)
			r.Get("/camera", cameraHandler.Status)
			r.Post("/camera/start", cameraHandler.Start)
			r.Post("/camera/stop", cameraHandler.Stop)
			r.Post("/camera/capture", cameraHandler.Capture)
			r.Get("/camera/feed", cameraHandler.Feed)
		}
	})

	// Serve the embedded web UI
	s.router.Get("/*", s.serveUI)
}

// serveUI serves the embedded single-page UI
func (s *Server) serveUI(w http.ResponseWriter, r *http.Request) {
	fs := static.GetFileSystem()
	name := r.URL.Path
	if name == "/" {
		name = "/index.html"
	}

	f, err := fs.Open(name)
	if err == nil {
		defer f.Close()
		if stat, err := f.Stat(); err == nil && !stat.IsDir() {
			contentType := mime.TypeByExtension(path.Ext(name))
			if contentType == "" {
				contentType = "application/octet-stream"
			}
			w.Header().Set("Content-Type", contentType)
			w.WriteHeader(http.StatusOK)
			io.Copy(w, f)
			return
		}
	}

	// Unknown paths fall back to the UI, assets do not
	if strings.HasPrefix(name, "/assets/") {
		http.NotFound(w, r)
		return
	}
	index, err := fs.Open("/index.html")
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer index.Close()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	io.Copy(w, index)
}
