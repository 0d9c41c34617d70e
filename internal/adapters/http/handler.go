// Package http exposes the controller over HTTP: module and property
// commands, status, checks, session reset and Prometheus metrics.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/bft-labs/shipctl/internal/app"
	"github.com/bft-labs/shipctl/internal/domain"
	"github.com/bft-labs/shipctl/internal/ports"
)

// RequesterHeader carries the id command output is delivered to. A fresh
// id is generated when it is absent.
const RequesterHeader = "X-Requester-ID"

const (
	requestTimeout  = 10 * time.Second
	maxCommandBytes = 4 << 10
)

// Handler serves the controller API.
type Handler struct {
	ctrl   app.Controller
	logger ports.Logger
	router chi.Router
}

// NewHandler builds the router. metrics may be nil.
func NewHandler(ctrl app.Controller, metrics http.Handler, logger ports.Logger) *Handler {
	h := &Handler{ctrl: ctrl, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))

	r.Get("/healthz", h.health)
	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics)
	}

	r.Post("/check", h.check)
	r.Post("/reset", h.reset)
	r.Post("/commands", h.command)

	r.Route("/modules", func(r chi.Router) {
		r.Get("/", h.listModules)
		r.Route("/{module}", func(r chi.Router) {
			r.Get("/", h.getModule)
			r.Post("/{action}", h.moduleAction)
			r.Get("/properties/{property}", h.getProperty)
			r.Post("/properties/{property}/{action}", h.propertyAction)
		})
	})

	h.router = r
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func requester(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get(RequesterHeader)); id != "" {
		return id
	}
	return uuid.NewString()
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	st, err := h.ctrl.Status(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	code := http.StatusOK
	if st.Phase != "Running" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]string{"phase": st.Phase, "session": st.Session})
}

func (h *Handler) listModules(w http.ResponseWriter, r *http.Request) {
	st, err := h.ctrl.Status(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *Handler) getModule(w http.ResponseWriter, r *http.Request) {
	st, err := h.ctrl.Module(r.Context(), chi.URLParam(r, "module"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *Handler) moduleAction(w http.ResponseWriter, r *http.Request) {
	ctx, module, req := r.Context(), chi.URLParam(r, "module"), requester(r)

	var (
		reply app.Reply
		err   error
	)
	switch chi.URLParam(r, "action") {
	case "toggle":
		reply, err = h.ctrl.ToggleState(ctx, module, req)
	case "on":
		reply, err = h.ctrl.SetState(ctx, module, req, true)
	case "off":
		reply, err = h.ctrl.SetState(ctx, module, req, false)
	case "fix":
		reply, err = h.ctrl.TryFixError(ctx, module, req)
	case "standby":
		reply, err = h.ctrl.Standby(ctx, module, req)
	default:
		http.NotFound(w, r)
		return
	}
	h.writeReply(w, reply, err)
}

func (h *Handler) getProperty(w http.ResponseWriter, r *http.Request) {
	reply, err := h.ctrl.GetProperty(r.Context(), chi.URLParam(r, "module"), chi.URLParam(r, "property"), requester(r))
	h.writeReply(w, reply, err)
}

func (h *Handler) propertyAction(w http.ResponseWriter, r *http.Request) {
	ctx, req := r.Context(), requester(r)
	module, property := chi.URLParam(r, "module"), chi.URLParam(r, "property")

	var (
		reply app.Reply
		err   error
	)
	switch chi.URLParam(r, "action") {
	case "toggle":
		reply, err = h.ctrl.ToggleProperty(ctx, module, property, req)
	case "on":
		reply, err = h.ctrl.SetProperty(ctx, module, property, req, true)
	case "off":
		reply, err = h.ctrl.SetProperty(ctx, module, property, req, false)
	default:
		http.NotFound(w, r)
		return
	}
	h.writeReply(w, reply, err)
}

func (h *Handler) check(w http.ResponseWriter, r *http.Request) {
	queued, err := h.ctrl.Check(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]bool{"queued": queued})
}

func (h *Handler) reset(w http.ResponseWriter, r *http.Request) {
	if err := h.ctrl.Reset(r.Context(), "http reset"); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "resetting"})
}

// command runs a textual console command from the request body.
func (h *Handler) command(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxCommandBytes))
	if err != nil {
		code := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			code = http.StatusRequestEntityTooLarge
		}
		writeJSON(w, code, errorBody{Error: err.Error()})
		return
	}
	reply, err := app.Execute(r.Context(), h.ctrl, string(body), requester(r))
	h.writeReply(w, reply, err)
}

type errorBody struct {
	Error string `json:"error"`
}

func (h *Handler) writeReply(w http.ResponseWriter, reply app.Reply, err error) {
	if err != nil {
		if reply.Text != "" && (errors.Is(err, domain.ErrUnknownModule) || errors.Is(err, domain.ErrNotRunning)) {
			writeJSON(w, statusFor(err), reply)
			return
		}
		h.writeError(w, err)
		return
	}
	writeJSON(w, replyStatus(reply), reply)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		h.logger.Warn("request failed", ports.Err(err))
	}
	writeJSON(w, code, errorBody{Error: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrUnknownModule):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrNotRunning):
		return http.StatusServiceUnavailable
	case errors.Is(err, app.ErrEmptyCommand), errors.Is(err, app.ErrUnknownCommand), errors.Is(err, app.ErrMissingArguments):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// replyStatus maps a module reply to a status code: rejections are
// conflicts with the module's current state, unknown properties are 404.
func replyStatus(reply app.Reply) int {
	switch {
	case domain.Result(reply.Code) == domain.ResultNotFound && reply.Property != "":
		return http.StatusNotFound
	case reply.IsError:
		return http.StatusConflict
	default:
		return http.StatusOK
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
