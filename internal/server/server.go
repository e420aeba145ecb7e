package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mobapp/domicilio/internal/provisioning"
	"github.com/mobapp/domicilio/internal/quote"
	"github.com/mobapp/domicilio/internal/session"
	"github.com/mobapp/domicilio/internal/telemetry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// PlatformAgent is the User-Agent fragment the platform sends on rate requests.
const PlatformAgent = "TiendaNubeAPI"

const maxRatesBody = 1 << 20

// Server is the HTTP server for the carrier service.
type Server struct {
	port         int
	writeTimeout time.Duration
	gatherer     prometheus.Gatherer
	sessions     *session.Manager
	workflow     *provisioning.Workflow
	engine       *quote.Engine
	logger       *otelzap.Logger
	metrics      *telemetry.Metrics
}

// Config holds server configuration.
type Config struct {
	Port int
	// WriteTimeout bounds a response. It must cover the slowest install
	// callback. Defaults to two minutes.
	WriteTimeout time.Duration
	// Gatherer backs /metrics. Defaults to the global registry.
	Gatherer prometheus.Gatherer
}

// New creates a new server instance.
func New(cfg Config, sessions *session.Manager, workflow *provisioning.Workflow, engine *quote.Engine, logger *otelzap.Logger, metrics *telemetry.Metrics) *Server {
	if cfg.Gatherer == nil {
		cfg.Gatherer = prometheus.DefaultGatherer
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 2 * time.Minute
	}
	return &Server{
		port:         cfg.Port,
		writeTimeout: cfg.WriteTimeout,
		gatherer:     cfg.Gatherer,
		sessions:     sessions,
		workflow:     workflow,
		engine:       engine,
		logger:       logger,
		metrics:      metrics,
	}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.observe)

	r.Get("/", s.handleIndex)
	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	r.Get("/install", s.handleInstall)
	r.Get("/oauth_callback", s.handleCallback)

	r.Route("/api", func(r chi.Router) {
		r.Use(s.checkAgent)
		r.Post("/shipping_rates", s.handleRates)
	})

	return r
}

// Run starts the HTTP server and blocks until context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: s.writeTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting server", zap.Int("port", s.port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// ============================================================================
// Middleware
// ============================================================================

func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.metrics.RecordRequest(route, strconv.Itoa(status), time.Since(start).Seconds())
	})
}

// checkAgent warns about rate requests that do not come from the platform.
// They are still served.
func (s *Server) checkAgent(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ua := r.UserAgent(); !strings.Contains(ua, PlatformAgent) {
			s.logger.Ctx(r.Context()).Warn("Rates request from unexpected user agent",
				zap.String("user_agent", ua),
				zap.String("remote_addr", r.RemoteAddr),
			)
		}
		next.ServeHTTP(w, r)
	})
}

// ============================================================================
// Handlers
// ============================================================================

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("API Shipping Carrier DOMICILIO funcionando. Ir a /install para instalar en la tienda."))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *Server) handleInstall(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sess, err := s.sessions.Load(r)
	if sess == nil {
		s.logger.Ctx(ctx).Error("Failed to start session", zap.Error(err))
		http.Error(w, "Error durante la instalación.", http.StatusInternalServerError)
		return
	}
	if err != nil {
		s.logger.Ctx(ctx).Warn("Session store unavailable, starting fresh session", zap.Error(err))
	}

	url, err := s.workflow.Begin(ctx, sess)
	if err != nil {
		s.logger.Ctx(ctx).Error("Failed to begin install", zap.Error(err))
		http.Error(w, "Error durante la instalación.", http.StatusInternalServerError)
		return
	}
	if err := s.sessions.Save(ctx, w, sess); err != nil {
		s.logger.Ctx(ctx).Error("Failed to save session", zap.Error(err))
		http.Error(w, "Error durante la instalación.", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, url, http.StatusFound)
}

func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	params := provisioning.CallbackParams{
		Code:             q.Get("code"),
		State:            q.Get("state"),
		Error:            q.Get("error"),
		ErrorDescription: q.Get("error_description"),
	}
	s.logger.Ctx(ctx).Info("OAuth callback received",
		zap.Bool("has_code", params.Code != ""),
		zap.Bool("has_state", params.State != ""),
		zap.String("error", params.Error),
	)

	sess, err := s.sessions.Load(r)
	if sess == nil {
		s.logger.Ctx(ctx).Error("Failed to load session", zap.Error(err))
		http.Error(w, "Error durante la instalación.", http.StatusInternalServerError)
		return
	}
	if err != nil {
		// An unreadable session behaves exactly like a missing one.
		s.logger.Ctx(ctx).Warn("Session store unavailable", zap.Error(err))
	}

	report, err := s.workflow.Callback(ctx, sess, params)
	if err != nil {
		http.Error(w, provisioning.PublicMessage(err), provisioning.HTTPStatus(err))
		return
	}

	var buf bytes.Buffer
	if err := confirmation.Execute(&buf, newConfirmationView(report)); err != nil {
		s.logger.Ctx(ctx).Error("Failed to render confirmation", zap.Error(err))
		http.Error(w, "Error durante la instalación.", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w)
}

func (s *Server) handleRates(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// The platform disables the carrier for every buyer on a non-200 answer.
	defer func() {
		if rec := recover(); rec != nil {
			s.logger.Ctx(ctx).Error("Recovered panic in rates handler", zap.Any("panic", rec))
			writeJSON(w, quote.Failed())
		}
	}()

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRatesBody))
	if err != nil {
		s.logger.Ctx(ctx).Error("Failed to read rates request", zap.Error(err))
		writeJSON(w, quote.Failed())
		return
	}

	req, err := quote.ParseRequest(body)
	if err != nil {
		s.logger.Ctx(ctx).Error("Malformed rates request", zap.Error(err))
		writeJSON(w, quote.Failed())
		return
	}

	writeJSON(w, s.engine.Quote(ctx, req))
}

func writeJSON(w http.ResponseWriter, resp *quote.Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(resp)
}

// ============================================================================
// Confirmation page
// ============================================================================

var confirmation = template.Must(template.New("confirmation").Parse(`<!doctype html>
<html lang="es">
<head><meta charset="utf-8"><title>{{.Carrier}} instalado</title></head>
<body>
<h1>Carrier '{{.Carrier}}' instalado (DOMICILIO)</h1>
<p>Opciones creadas: {{.Options}}</p>
{{- if .Failed}}
<p>Opciones que no se pudieron crear: {{.Failed}}</p>
{{- end}}
<p>Endpoint tarifas: {{.RatesURL}}</p>
<p>Probar en checkout.</p>
</body>
</html>
`))

type confirmationView struct {
	Carrier  string
	Options  string
	Failed   string
	RatesURL string
}

func newConfirmationView(report *provisioning.Report) confirmationView {
	attempted := make([]string, 0, len(report.Attempted))
	for _, o := range report.Attempted {
		attempted = append(attempted, o.Name)
	}
	failed := make([]string, 0, len(report.Failed))
	for _, f := range report.Failed {
		failed = append(failed, f.Option.Name)
	}

	return confirmationView{
		Carrier:  report.Carrier.Name,
		Options:  strings.Join(attempted, ", "),
		Failed:   strings.Join(failed, ", "),
		RatesURL: report.RatesURL(),
	}
}
