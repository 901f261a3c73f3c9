// Package httpapi exposes the directory, ledger, reports and messaging over
// HTTP/JSON, plus the gRPC report service.
package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/esrabs/evaluation-commerciale-be/internal/apperr"
	"github.com/esrabs/evaluation-commerciale-be/internal/audit"
	"github.com/esrabs/evaluation-commerciale-be/internal/auth"
	"github.com/esrabs/evaluation-commerciale-be/internal/messaging"
	"github.com/esrabs/evaluation-commerciale-be/internal/obs"
	"github.com/esrabs/evaluation-commerciale-be/internal/org"
	"github.com/esrabs/evaluation-commerciale-be/internal/sales"
	"github.com/esrabs/evaluation-commerciale-be/internal/stream"
)

const serviceName = "sales-eval-api"

// ReadyProbe is a simple readiness check (database ping when one is configured).
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

type readinessChecker interface {
	Check(ctx context.Context) error
}

// Config wires the core services into the HTTP layer.
type Config struct {
	Directory *org.Service
	Sales     *sales.Service
	Messages  *messaging.Service
	Tokens    *auth.TokenService
	Stream    *stream.Stream
	Ready     readinessChecker
	Version   string

	CORSOrigins  []string
	RateBurst    int
	RatePerSec   float64
	MaxBodyBytes int64
}

// API is the HTTP layer.
type API struct {
	mux       *http.ServeMux
	directory *org.Service
	sales     *sales.Service
	messages  *messaging.Service
	tokens    *auth.TokenService
	stream    *stream.Stream
	ready     readinessChecker
	version   string

	corsOrigins  []string
	rateBurst    int
	ratePerSec   float64
	maxBodyBytes int64
}

func New(cfg Config) *API {
	a := &API{
		mux:          http.NewServeMux(),
		directory:    cfg.Directory,
		sales:        cfg.Sales,
		messages:     cfg.Messages,
		tokens:       cfg.Tokens,
		stream:       cfg.Stream,
		ready:        cfg.Ready,
		version:      cfg.Version,
		corsOrigins:  cfg.CORSOrigins,
		rateBurst:    cfg.RateBurst,
		ratePerSec:   cfg.RatePerSec,
		maxBodyBytes: cfg.MaxBodyBytes,
	}
	if a.ready == nil {
		a.ready = ReadyProbe{}
	}
	if a.rateBurst <= 0 {
		a.rateBurst = 50
	}
	if a.ratePerSec <= 0 {
		a.ratePerSec = 25
	}
	if a.maxBodyBytes <= 0 {
		a.maxBodyBytes = 1 << 20
	}

	// health/ready/info
	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)
	a.mux.Handle("/metrics", obs.Handler())

	// directory
	a.mux.HandleFunc("/v1/contacts", a.handleContacts)
	a.mux.HandleFunc("/v1/accounts", a.handleAccountsCollection)
	a.mux.HandleFunc("/v1/accounts/", a.handleAccountResource)
	a.mux.HandleFunc("/v1/squads", a.handleSquadsCollection)
	a.mux.HandleFunc("/v1/squads/", a.handleSquadResource)

	// ledger and reports
	a.mux.HandleFunc("/v1/sales", a.handleSalesCollection)
	a.mux.HandleFunc("/v1/sales/", a.handleSaleResource)
	a.mux.HandleFunc("/v1/stats/", a.handleStats)
	a.mux.HandleFunc("/v1/stream/sales", a.Stream)

	// messaging
	a.mux.HandleFunc("/v1/messages", a.handleMessagesCollection)
	a.mux.HandleFunc("/v1/messages/", a.handleMessageResource)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "resource not found")
	})

	return a
}

// Handler returns the fully wrapped handler for the server.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.mux
	h = a.withAuth(h)
	h = MaxBodyBytes(h, a.maxBodyBytes)
	h = RateLimit(h, a.rateBurst, a.ratePerSec)
	h = CORS(h, a.corsOrigins...)
	h = SecurityHeaders(h)
	h = LoggingJSON(h)
	h = RequestID(h)
	return obs.Instrument(h)
}

// --- Handlers ---

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": serviceName,
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.ready.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    serviceName,
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string, ids ...string) {
	payload := map[string]any{
		"error": msg,
	}
	if len(ids) > 0 {
		payload["ids"] = ids
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

// handleError maps core errors onto HTTP statuses.
func handleError(w http.ResponseWriter, r *http.Request, err error) {
	ids := apperr.IDs(err)
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		writeError(w, r, http.StatusNotFound, err.Error(), ids...)
	case errors.Is(err, apperr.ErrConflict):
		writeError(w, r, http.StatusConflict, err.Error(), ids...)
	case errors.Is(err, apperr.ErrInvalidRole):
		writeError(w, r, http.StatusUnprocessableEntity, err.Error(), ids...)
	case errors.Is(err, apperr.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error(), ids...)
	case errors.Is(err, apperr.ErrForbidden):
		writeError(w, r, http.StatusForbidden, err.Error(), ids...)
	default:
		obs.Logger().Error("request failed",
			"request_id", RequestIDFromContext(r.Context()),
			"path", r.URL.Path,
			"error", err.Error(),
		)
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
}

// actor returns the authenticated actor or answers 401.
func actor(w http.ResponseWriter, r *http.Request) (org.Actor, bool) {
	act, ok := auth.ActorFromContext(r.Context())
	if !ok {
		w.Header().Set("WWW-Authenticate", `Bearer realm="sales-eval"`)
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return org.Actor{}, false
	}
	return act, true
}

// splitResource splits "/v1/<prefix>/<id>[/<sub>]" into id and sub.
func splitResource(path, prefix string) (id, sub string, ok bool) {
	rest := strings.Trim(strings.TrimPrefix(path, prefix), "/")
	if rest == "" {
		return "", "", false
	}
	parts := strings.Split(rest, "/")
	switch len(parts) {
	case 1:
		return parts[0], "", true
	case 2:
		return parts[0], parts[1], parts[1] != ""
	}
	return "", "", false
}

func parseRange(r *http.Request) (sales.Range, error) {
	q := r.URL.Query()
	return sales.ParseRange(q.Get("from"), q.Get("to"))
}

func (a *API) audit(ctx context.Context, event, resourceType, resourceID string, meta map[string]any) {
	fields := map[string]any{
		"resource_type": resourceType,
		"resource_id":   resourceID,
	}
	for k, v := range meta {
		fields[k] = v
	}
	if err := audit.LogEvent(ctx, event, fields); err != nil {
		obs.Logger().Warn("audit log failed", "event", event, "error", err.Error())
	}
}
