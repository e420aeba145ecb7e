package provisioning

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mobapp/domicilio/internal/session"
	"github.com/mobapp/domicilio/internal/telemetry"
	"github.com/mobapp/domicilio/pkg/shipper"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RatesPath is where the platform calls back for quotes.
const RatesPath = "/api/shipping_rates"

// Config holds install settings.
type Config struct {
	CarrierName string
	PublicURL   string // public base URL of this service
	Catalog     shipper.Catalog
	Settler     Settler
	OptionRate  float64 // option creations per second; 0 disables pacing
}

// CallbackParams are the query parameters of the OAuth callback.
type CallbackParams struct {
	Code             string
	State            string
	Error            string
	ErrorDescription string
}

// OptionFailure is a catalog entry the platform refused to create.
type OptionFailure struct {
	Option shipper.CarrierOption
	Err    error
}

// Report describes a finished install attempt.
type Report struct {
	RunID     string
	State     State
	History   []State
	StoreID   string
	Carrier   *shipper.Carrier
	Attempted []shipper.CarrierOption
	Succeeded []shipper.CarrierOption
	Failed    []OptionFailure
}

// Degraded reports whether the carrier exists but some options are missing.
func (r *Report) Degraded() bool {
	return r.Carrier != nil && len(r.Failed) > 0
}

// Reached reports whether the run passed through s.
func (r *Report) Reached(s State) bool {
	for _, h := range r.History {
		if h == s {
			return true
		}
	}
	return false
}

// RatesURL returns the quotation endpoint registered on the carrier.
func (r *Report) RatesURL() string {
	if r.Carrier == nil {
		return ""
	}
	return r.Carrier.CallbackURL
}

// Workflow runs installs. It holds no per-install state; everything an install
// needs travels through the session and the Run.
type Workflow struct {
	cfg      Config
	identity shipper.Identity
	platform shipper.Platform
	limiter  *rate.Limiter
	logger   *otelzap.Logger
	metrics  *telemetry.Metrics
	tracer   trace.Tracer
}

// New creates a Workflow.
func New(cfg Config, identity shipper.Identity, platform shipper.Platform, logger *otelzap.Logger, metrics *telemetry.Metrics, tracer trace.Tracer) *Workflow {
	if tracer == nil {
		tracer = otel.Tracer("provisioning")
	}
	if cfg.Catalog == nil {
		cfg.Catalog = shipper.DefaultCatalog
	}

	var limiter *rate.Limiter
	if cfg.OptionRate > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.OptionRate), 1)
	}

	return &Workflow{
		cfg:      cfg,
		identity: identity,
		platform: platform,
		limiter:  limiter,
		logger:   logger,
		metrics:  metrics,
		tracer:   tracer,
	}
}

// Bound returns the longest a callback can run when every external call is
// limited to call: the token exchange, the settled carrier creation and one
// paced creation per catalog entry.
func (w *Workflow) Bound(call time.Duration) time.Duration {
	n := len(w.cfg.Catalog)
	total := call + w.cfg.Settler.Bound(call) + time.Duration(n)*call
	if w.cfg.OptionRate > 0 && n > 1 {
		total += time.Duration(float64(n-1) / w.cfg.OptionRate * float64(time.Second))
	}
	return total
}

// Begin issues a fresh OAuth state into sess and returns the authorization URL.
// The caller persists sess.
func (w *Workflow) Begin(ctx context.Context, sess *session.Session) (string, error) {
	state, err := newState()
	if err != nil {
		return "", err
	}
	sess.Data.OAuthState = state

	url := w.identity.AuthorizeURL(state)
	w.metrics.RecordInstallStep(StateAuthorizing.String(), "ok")
	w.logger.Ctx(ctx).Info("Redirecting to platform authorization", zap.String("url", url))
	return url, nil
}

// Callback completes the install started by Begin. The returned report is never
// nil; on error it records how far the run got.
//
// Option failures do not fail the install. They are listed in Report.Failed.
func (w *Workflow) Callback(ctx context.Context, sess *session.Session, p CallbackParams) (*Report, error) {
	// A browser that gives up must not abort an install half way through.
	ctx = context.WithoutCancel(ctx)

	run := newRun(StateAuthorizing)
	ctx, span := w.tracer.Start(ctx, "provisioning.Callback", trace.WithAttributes(
		attribute.String("install.run_id", run.ID),
	))
	defer span.End()

	log := w.logger.Ctx(ctx).WithOptions(zap.Fields(zap.String("run_id", run.ID)))
	report := &Report{RunID: run.ID}

	fail := func(err *Error) (*Report, error) {
		w.metrics.RecordInstallStep(err.State.String(), "failed")
		run.advance(StateFailed)
		report.State, report.History = run.State, run.History
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Error("Install aborted", zap.Stringer("state", err.State), zap.Error(err))
		return report, err
	}

	run.advance(StateCallbackReceived)

	if p.Error != "" {
		reason := p.ErrorDescription
		if reason == "" {
			reason = p.Error
		}
		return fail(protocolError(run.State, "Error de Tienda Nube: "+reason,
			fmt.Errorf("%w: %s", shipper.ErrOAuthDenied, reason)))
	}

	// Consume the stored state before comparing so it can never be replayed.
	stored := sess.Data.OAuthState
	sess.Data.OAuthState = ""
	persist(ctx, log, sess, "Failed to persist consumed oauth state")
	if !stateMatches(stored, p.State) {
		return fail(protocolError(run.State, "Error de seguridad: estado inválido.", shipper.ErrStateMismatch))
	}

	if p.Code == "" {
		return fail(protocolError(run.State, "Falta el código de autorización.", shipper.ErrMissingCode))
	}

	cred, err := w.identity.Exchange(ctx, p.Code)
	if err == nil && !cred.Valid() {
		err = errors.New("token response lacks access token or store id")
	}
	if err != nil {
		return fail(fatalError(run.State, "Error al obtener token o ID de tienda.",
			fmt.Errorf("%w: %w", shipper.ErrIncompleteCredential, err)))
	}
	run.advance(StateTokenExchanged)
	w.metrics.RecordInstallStep(StateTokenExchanged.String(), "ok")
	report.StoreID = cred.StoreID
	log = log.WithOptions(zap.Fields(zap.String("store_id", cred.StoreID)))
	span.SetAttributes(attribute.String("store.id", cred.StoreID))

	sess.Data.AccessToken = cred.AccessToken
	sess.Data.StoreID = cred.StoreID
	persist(ctx, log, sess, "Failed to persist credential in session")
	log.Info("OAuth exchange complete")

	carrier, err := w.createCarrier(ctx, log, *cred)
	if err != nil {
		return fail(fatalError(run.State, "Error durante la instalación: no se pudo registrar el carrier.",
			fmt.Errorf("%w: %w", shipper.ErrCarrierCreate, err)))
	}
	run.advance(StateCarrierCreated)
	w.metrics.RecordInstallStep(StateCarrierCreated.String(), "ok")
	report.Carrier = carrier
	log.Info("Carrier created", zap.String("carrier_id", carrier.ID), zap.String("name", carrier.Name))

	w.createOptions(ctx, log, *cred, carrier.ID, report)

	run.advance(StateOptionsCreated)
	w.metrics.RecordInstallStep(StateOptionsCreated.String(), "ok")
	report.State, report.History = run.State, run.History

	if report.Degraded() {
		span.SetAttributes(attribute.Int("options.failed", len(report.Failed)))
		log.Warn("Install finished with missing options",
			zap.Int("succeeded", len(report.Succeeded)),
			zap.Int("failed", len(report.Failed)),
		)
	} else {
		log.Info("Install finished", zap.Int("options", len(report.Succeeded)))
	}
	return report, nil
}

func (w *Workflow) createCarrier(ctx context.Context, log otelzap.LoggerWithCtx, cred shipper.Credential) (*shipper.Carrier, error) {
	req := &shipper.CreateCarrierRequest{
		Name:        w.cfg.CarrierName,
		CallbackURL: strings.TrimRight(w.cfg.PublicURL, "/") + RatesPath,
		Types:       shipper.FulfillmentShip,
	}

	log.Info("Waiting for the platform to settle before creating carrier",
		zap.Duration("delay", w.cfg.Settler.Delay))

	var carrier *shipper.Carrier
	err := w.cfg.Settler.Run(ctx, func(ctx context.Context) error {
		c, err := w.platform.CreateCarrier(ctx, cred, req)
		if err != nil {
			return err
		}
		carrier = c
		return nil
	}, func(err error, next time.Duration) {
		log.Warn("Platform not ready, retrying carrier creation",
			zap.Duration("next", next), zap.Error(err))
	})
	if err != nil {
		return nil, err
	}
	return carrier, nil
}

// createOptions creates the catalog one entry at a time. A failed entry is
// recorded and the loop moves on.
func (w *Workflow) createOptions(ctx context.Context, log otelzap.LoggerWithCtx, cred shipper.Credential, carrierID string, report *Report) {
	report.Attempted = w.cfg.Catalog.Options()

	for _, opt := range report.Attempted {
		err := w.pace(ctx)
		var created *shipper.CarrierOption
		if err == nil {
			created, err = w.platform.CreateOption(ctx, cred, carrierID, opt)
		}
		if err != nil {
			w.metrics.RecordOptionFailure(opt.Code)
			log.Error("Failed to create carrier option",
				zap.String("code", opt.Code),
				zap.String("name", opt.Name),
				zap.Error(err),
			)
			report.Failed = append(report.Failed, OptionFailure{Option: opt, Err: err})
			continue
		}
		log.Info("Carrier option created", zap.String("code", opt.Code), zap.String("name", opt.Name))
		report.Succeeded = append(report.Succeeded, *created)
	}
}

func (w *Workflow) pace(ctx context.Context) error {
	if w.limiter == nil {
		return nil
	}
	return w.limiter.Wait(ctx)
}

// persist saves sess unless it was never handed to a browser; a callback that
// arrives without a session cookie leaves nothing behind in the store.
func persist(ctx context.Context, log otelzap.LoggerWithCtx, sess *session.Session, msg string) {
	if sess.New {
		log.Debug("Session not bound to a browser, not persisting")
		return
	}
	if err := sess.Save(ctx); err != nil {
		log.Warn(msg, zap.Error(err))
	}
}
