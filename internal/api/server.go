package api

import (
	"context"
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"stellaris/internal/booking"
	"stellaris/internal/database"
	"stellaris/internal/export"
	"stellaris/internal/ratelimit"
)

// AuditStore is the read side of the audit log.
type AuditStore interface {
	export.TableExporter
	ListAudit(ctx context.Context, limit int) ([]database.AuditEntry, error)
}

// Options configures the HTTP server.
type Options struct {
	Addr           string
	AdminAPIKey    string
	PublicDir      string
	AllowedOrigins []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	// Limiter guards public booking creation. Nil disables rate limiting.
	Limiter ratelimit.Limiter
	// Audit backs the audit and export endpoints. Nil leaves the export without audit sheets.
	Audit AuditStore
}

// HTTPServer exposes the booking service over JSON.
type HTTPServer struct {
	svc    *booking.Service
	opts   Options
	log    zerolog.Logger
	now    func() time.Time
	server *http.Server
}

func NewHTTPServer(svc *booking.Service, opts Options, logger zerolog.Logger) *HTTPServer {
	s := &HTTPServer{
		svc:  svc,
		opts: opts,
		log:  logger.With().Str("component", "api").Logger(),
		now:  time.Now,
	}

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "X-Admin-Key"},
	})

	s.server = &http.Server{
		Addr:         opts.Addr,
		Handler:      c.Handler(s.routes()),
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
	}
	return s
}

func (s *HTTPServer) routes() *httprouter.Router {
	r := httprouter.New()

	r.GET("/api/health", s.handleHealth)

	r.GET("/api/slots", s.handleSlots)
	r.GET("/api/slots/grouped", s.handleSlotsGrouped)
	r.GET("/api/slots/next", s.handleNextSlot)

	createBooking := s.handleCreateBooking
	if s.opts.Limiter != nil {
		createBooking = ratelimit.Middleware(s.opts.Limiter, s.log, createBooking)
	}
	r.POST("/api/bookings", createBooking)

	r.GET("/api/admin/schedule", s.admin(s.handleGetSchedule))
	r.PUT("/api/admin/schedule", s.admin(s.handlePutSchedule))
	r.GET("/api/admin/slots", s.admin(s.handleAdminSlots))
	r.POST("/api/admin/slots/block", s.admin(s.handleBlockSlot))
	r.POST("/api/admin/slots/unblock", s.admin(s.handleUnblockSlot))
	r.GET("/api/admin/slots/blocked", s.admin(s.handleBlockedSlots))
	r.GET("/api/admin/bookings", s.admin(s.handleListBookings))
	r.POST("/api/admin/bookings", s.admin(s.handleAdminCreateBooking))
	r.GET("/api/admin/bookings/export", s.admin(s.handleExportBookings))
	r.POST("/api/admin/bookings/:id/confirm", s.admin(s.handleConfirmBooking))
	r.POST("/api/admin/bookings/:id/reject", s.admin(s.handleRejectBooking))
	r.GET("/api/admin/audit", s.admin(s.handleAudit))

	if s.opts.PublicDir != "" {
		r.NotFound = newStaticHandler(s.opts.PublicDir)
	}
	return r
}

// Handler returns the root handler, CORS included.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

// Start serves until the listener fails or Shutdown is called.
func (s *HTTPServer) Start() error {
	s.log.Info().Str("addr", s.opts.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// admin requires the X-Admin-Key header to match the configured key.
func (s *HTTPServer) admin(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		key := r.Header.Get("X-Admin-Key")
		if key == "" || subtle.ConstantTimeCompare([]byte(key), []byte(s.opts.AdminAPIKey)) != 1 {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r, ps)
	}
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": s.now().UTC().Format(time.RFC3339Nano),
	})
}
