// Package http provides the admin channel: an HTTP view of a running
// component graph and its lifecycle.
package http

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"net/http"
	"slices"
	"time"

	"github.com/artpar/deepgraph/core/edge"
	"github.com/artpar/deepgraph/core/errs"
	"github.com/artpar/deepgraph/pkg/jsonapi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

const componentType = "components"

// Config configures the admin channel.
type Config struct {
	// Lifecycle receives lifecycle commands. Its "starter" is the root
	// served under /components unless Root is set.
	Lifecycle edge.Edge

	// Root overrides the root taken from Lifecycle.
	Root edge.Edge

	// Gatherer serves /metrics when set.
	Gatherer prometheus.Gatherer

	// Token guards invoke and lifecycle calls. When empty the running
	// root's own token is required.
	Token string

	Version string
	Logger  zerolog.Logger
}

// Handler serves the admin channel.
type Handler struct {
	cfg    Config
	logger zerolog.Logger
}

// NewHandler creates the admin handler.
func NewHandler(cfg Config) *Handler {
	return &Handler{
		cfg:    cfg,
		logger: cfg.Logger.With().Str("component", "admin").Logger(),
	}
}

// InvokeRequest is the body of an invoke call. Intent is a verb, or an
// array of the verb followed by path segments.
type InvokeRequest struct {
	Intent  any            `json:"intent"`
	Path    []any          `json:"path,omitempty"`
	Data    any            `json:"data,omitempty"`
	Options map[string]any `json:"options,omitempty"`
}

// Router returns the admin router.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(NewLoggingMiddleware(h.logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", h.Health)
	r.Get("/version", h.Version)
	if h.cfg.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(h.cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/components", func(r chi.Router) {
		r.Get("/", h.ListComponents)
		r.Get("/{id}", h.GetComponent)
		r.With(h.AuthMiddleware).Post("/{id}/invoke", h.InvokeComponent)
	})
	r.With(h.AuthMiddleware).Post("/lifecycle/{command}", h.Lifecycle)

	return r
}

func (h *Handler) root() (edge.Edge, error) {
	if h.cfg.Root != nil {
		return h.cfg.Root, nil
	}
	if h.cfg.Lifecycle == nil {
		return nil, errs.Unavailable.Errorf("no root")
	}
	starter, err := edge.Get(h.cfg.Lifecycle, edge.P("starter"))
	if err != nil {
		return nil, err
	}
	root, ok := starter.(edge.Edge)
	if !ok || root == nil {
		return nil, errs.Unavailable.Errorf("system is not started")
	}
	return root, nil
}

// Health reports liveness and the lifecycle state.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	meta := jsonapi.Meta{"status": "ok"}
	if h.cfg.Lifecycle != nil {
		if state, err := edge.Get(h.cfg.Lifecycle, edge.P("state")); err == nil && state != nil {
			meta["state"] = state
		}
	}
	jsonapi.WriteMeta(w, http.StatusOK, meta)
}

// Version reports the build version.
func (h *Handler) Version(w http.ResponseWriter, r *http.Request) {
	jsonapi.WriteMeta(w, http.StatusOK, jsonapi.Meta{"version": h.cfg.Version, "service": "deepgraph"})
}

// ListComponents lists the registered components.
func (h *Handler) ListComponents(w http.ResponseWriter, r *http.Request) {
	root, err := h.root()
	if err != nil {
		writeError(w, err)
		return
	}
	all, err := edge.Get(root, nil)
	if err != nil {
		writeError(w, err)
		return
	}
	components, ok := all.(map[string]edge.Edge)
	if !ok {
		writeError(w, errs.Invalid.Errorf("root lists %T, not components", all))
		return
	}

	resources := make([]jsonapi.Resource, 0, len(components))
	for _, id := range slices.Sorted(maps.Keys(components)) {
		resources = append(resources, jsonapi.NewResource(componentType, id).
			Attr("kind", kindOf(components[id])).
			Build())
	}
	jsonapi.WriteCollection(w, http.StatusOK, resources)
}

// GetComponent reads a registered component, or the value at the dotted
// path given by the "path" query parameter.
func (h *Handler) GetComponent(w http.ResponseWriter, r *http.Request) {
	root, err := h.root()
	if err != nil {
		writeError(w, err)
		return
	}
	id := chi.URLParam(r, "id")
	sub := edge.ParsePath(r.URL.Query().Get("path"))

	comp, err := edge.Get(root, edge.P(id))
	if err != nil {
		writeError(w, err)
		return
	}
	if comp == nil {
		jsonapi.WriteError(w, jsonapi.ErrNotFound("component", id))
		return
	}

	rb := jsonapi.NewResource(componentType, id).Attr("kind", kindOf(comp))
	if len(sub) > 0 {
		value, err := edge.Get(comp, sub)
		if err != nil {
			writeError(w, err)
			return
		}
		rb.Attr("path", sub.String()).Attr("value", render(value))
	} else if value, err := edge.Get(comp, nil); err == nil && value != nil {
		rb.Attr("value", render(value))
	}
	jsonapi.WriteResource(w, http.StatusOK, rb.Build())
}

// InvokeComponent loads a component through the root and invokes it.
func (h *Handler) InvokeComponent(w http.ResponseWriter, r *http.Request) {
	root, err := h.root()
	if err != nil {
		writeError(w, err)
		return
	}
	id := chi.URLParam(r, "id")

	var req InvokeRequest
	if err := decodeBody(r, &req); err != nil {
		jsonapi.WriteError(w, jsonapi.ErrBadRequest(err.Error()))
		return
	}
	intent, err := edge.ParseIntent(req.Intent)
	if err == nil && intent.Verb == "" {
		err = errs.Invalid.Errorf("intent is required")
	}
	if err != nil {
		jsonapi.WriteError(w, jsonapi.NewError(http.StatusBadRequest, "invalid", "Bad Request").
			Detail(err.Error()).
			Pointer("/intent").
			Build())
		return
	}
	intent.Path = append(intent.Path, req.Path...)

	ctx := r.Context()
	loaded, err := root.Invoke(ctx, edge.Do("load"), id, nil)
	if err != nil {
		writeError(w, err)
		return
	}
	comp, ok := loaded.(edge.Edge)
	if !ok {
		writeError(w, errs.Invalid.Errorf("%s is not a component", id))
		return
	}

	res, err := comp.Invoke(ctx, intent, req.Data, edge.Options(req.Options))
	if err != nil {
		h.logger.Warn().Err(err).Str("id", id).Str("intent", intent.String()).Msg("invoke failed")
		writeError(w, err)
		return
	}
	jsonapi.WriteMeta(w, http.StatusOK, jsonapi.Meta{"result": render(res)})
}

// Lifecycle forwards start, stop or restart to the lifecycle controller.
func (h *Handler) Lifecycle(w http.ResponseWriter, r *http.Request) {
	if h.cfg.Lifecycle == nil {
		writeError(w, errs.Unavailable.Errorf("no lifecycle controller"))
		return
	}
	command := chi.URLParam(r, "command")
	switch command {
	case "start", "stop", "restart":
	default:
		writeError(w, errs.UnknownIntent(command))
		return
	}

	var req InvokeRequest
	if err := decodeBody(r, &req); err != nil {
		jsonapi.WriteError(w, jsonapi.ErrBadRequest(err.Error()))
		return
	}

	res, err := h.cfg.Lifecycle.Invoke(r.Context(), edge.Do(command), req.Data, edge.Options(req.Options))
	if err != nil {
		writeError(w, err)
		return
	}
	h.logger.Info().Str("command", command).Msg("lifecycle command")

	meta := jsonapi.Meta{"result": render(res)}
	if state, err := edge.Get(h.cfg.Lifecycle, edge.P("state")); err == nil && state != nil {
		meta["state"] = state
	}
	jsonapi.WriteMeta(w, http.StatusOK, meta)
}

// decodeBody decodes an optional JSON body.
func decodeBody(r *http.Request, out any) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(out)
	if err == io.EOF {
		return nil
	}
	return err
}

// render turns a value into something JSON can encode: containers show
// their contents, other components their type.
func render(v any) any {
	switch x := v.(type) {
	case nil, string, bool, int, int64, float64:
		return x
	case interface{ Inner() any }:
		return render(x.Inner())
	case edge.Edge:
		return kindOf(x)
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, val := range x {
			out[k] = render(val)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, val := range x {
			out[i] = render(val)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(x))
		for k, val := range x {
			out[fmt.Sprint(k)] = render(val)
		}
		return out
	}
	return v
}

func kindOf(v any) string {
	return fmt.Sprintf("%T", v)
}
