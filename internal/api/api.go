// Package api serves a read-only HTTP view of the canonical dataset.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/sells-group/pubenrich/internal/model"
)

// Loader returns the current dataset. It is called on every request so the
// API reflects the file as last saved.
type Loader func() ([]model.Publication, error)

// Options configures the router.
type Options struct {
	Load           Loader
	Profile        model.Profile
	CostPerRecord  float64
	CORSOrigins    []string
	Gatherer       prometheus.Gatherer
	MaxPageSize    int
	DefaultPageLen int
}

// ListResponse is the body of GET /publications.
type ListResponse struct {
	Total  int                 `json:"total"`
	Offset int                 `json:"offset"`
	Items  []model.Publication `json:"items"`
}

// NewRouter builds the API handler.
func NewRouter(opts Options) http.Handler {
	if opts.MaxPageSize <= 0 {
		opts.MaxPageSize = 500
	}
	if opts.DefaultPageLen <= 0 {
		opts.DefaultPageLen = 100
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}
	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	h := &handler{opts: opts}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", h.health)
	r.Route("/publications", func(r chi.Router) {
		r.Get("/", h.list)
		r.Get("/stats", h.stats)
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	return r
}

type handler struct {
	opts Options
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) list(w http.ResponseWriter, r *http.Request) {
	pubs, err := h.opts.Load()
	if err != nil {
		zap.L().Error("api: load dataset", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "dataset unavailable")
		return
	}

	q := r.URL.Query()
	f, err := parseFilter(q.Get, h.opts.Profile)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	matched := f.apply(pubs)

	offset, limit, err := page(q.Get, h.opts.DefaultPageLen, h.opts.MaxPageSize)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	resp := ListResponse{Total: len(matched), Offset: offset, Items: []model.Publication{}}
	if offset < len(matched) {
		end := min(offset+limit, len(matched))
		resp.Items = matched[offset:end]
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) stats(w http.ResponseWriter, r *http.Request) {
	pubs, err := h.opts.Load()
	if err != nil {
		zap.L().Error("api: load dataset", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "dataset unavailable")
		return
	}
	profile := h.opts.Profile
	if p := r.URL.Query().Get("profile"); p != "" {
		profile, err = model.ParseProfile(p)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	writeJSON(w, http.StatusOK, model.ComputeStats(pubs, profile, h.opts.CostPerRecord))
}

func page(get func(string) string, def, maxLen int) (offset, limit int, err error) {
	limit = def
	if v := get("limit"); v != "" {
		if limit, err = strconv.Atoi(v); err != nil || limit < 1 {
			return 0, 0, errBadParam("limit")
		}
	}
	if v := get("offset"); v != "" {
		if offset, err = strconv.Atoi(v); err != nil || offset < 0 {
			return 0, 0, errBadParam("offset")
		}
	}
	return offset, min(limit, maxLen), nil
}

type paramError string

func (e paramError) Error() string { return "invalid " + string(e) }

func errBadParam(name string) error { return paramError(name) }

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		zap.L().Debug("api: write response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Debug("api: request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
