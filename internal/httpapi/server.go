package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ampd/internal/engine"
	"ampd/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	Resources() []types.ResourceState
	SetResource(id types.ResourceID, path string) error
	Status() types.StatusResponse
	SavePreset(name string) error
	LoadPreset(name string) error
	Presets() ([]string, error)
	Files() ([]types.FileEntry, error)
	Ready() bool
}

// presetRequest is the optional body of the preset endpoints. An empty
// body targets the configured default preset.
type presetRequest struct {
	Name string `json:"name"`
}

func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	// Compression for JSON endpoints
	r.Use(middleware.Compress(5))
	r.Use(MetricsMiddleware)
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: orDefault(corsAllowedOrigins, []string{"*"}),
			AllowedMethods: orDefault(corsAllowedMethods, []string{"GET", "PUT", "POST", "DELETE", "OPTIONS"}),
			AllowedHeaders: orDefault(corsAllowedHeaders, []string{"Accept", "Content-Type"}),
		}))
	}

	r.Get("/resources", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"resources": svc.Resources()})
	})

	r.Get("/resources/{id}", func(w http.ResponseWriter, r *http.Request) {
		id := types.ResourceID(chi.URLParam(r, "id"))
		for _, rs := range svc.Resources() {
			if rs.ID == id {
				writeJSON(w, rs)
				return
			}
		}
		writeJSONError(w, http.StatusNotFound, "unknown resource: "+string(id))
	})

	r.Put("/resources/{id}", func(w http.ResponseWriter, r *http.Request) {
		ct := r.Header.Get("Content-Type")
		if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
			writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		var req types.SetResourceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if strings.TrimSpace(req.Path) == "" {
			writeJSONError(w, http.StatusBadRequest, "path is required")
			return
		}
		id := types.ResourceID(chi.URLParam(r, "id"))
		start := time.Now()
		if err := svc.SetResource(id, req.Path); err != nil {
			respondServiceError(w, r, err)
			return
		}
		if z := logEvent(); z != nil {
			if rid := middleware.GetReqID(r.Context()); rid != "" {
				z = z.Str("request_id", rid)
			}
			z.Str("resource", string(id)).Str("path", req.Path).Dur("dur", time.Since(start)).Msg("set resource")
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		_ = json.NewEncoder(w).Encode(map[string]any{"id": id, "path": req.Path})
	})

	r.Delete("/resources/{id}", func(w http.ResponseWriter, r *http.Request) {
		id := types.ResourceID(chi.URLParam(r, "id"))
		if err := svc.SetResource(id, types.Sentinel); err != nil {
			respondServiceError(w, r, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		_ = json.NewEncoder(w).Encode(map[string]any{"id": id, "path": types.Sentinel})
	})

	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, svc.Status())
	})

	r.Get("/files", func(w http.ResponseWriter, r *http.Request) {
		files, err := svc.Files()
		if err != nil {
			respondServiceError(w, r, err)
			return
		}
		writeJSON(w, map[string]any{"files": files})
	})

	r.Get("/presets", func(w http.ResponseWriter, r *http.Request) {
		names, err := svc.Presets()
		if err != nil {
			respondServiceError(w, r, err)
			return
		}
		writeJSON(w, map[string]any{"presets": names})
	})

	r.Post("/preset/save", func(w http.ResponseWriter, r *http.Request) {
		name, ok := decodePresetName(w, r)
		if !ok {
			return
		}
		if err := svc.SavePreset(name); err != nil {
			respondServiceError(w, r, err)
			return
		}
		writeJSON(w, map[string]any{"saved": true, "name": name})
	})

	r.Post("/preset/load", func(w http.ResponseWriter, r *http.Request) {
		name, ok := decodePresetName(w, r)
		if !ok {
			return
		}
		if err := svc.LoadPreset(name); err != nil {
			respondServiceError(w, r, err)
			return
		}
		writeJSON(w, map[string]any{"loaded": true, "name": name})
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("loading"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	return r
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to encode response")
	}
}

// decodePresetName reads the optional preset body. Missing or empty bodies
// select the default preset.
func decodePresetName(w http.ResponseWriter, r *http.Request) (string, bool) {
	if r.Body == nil || r.ContentLength == 0 {
		return "", true
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req presetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return "", false
	}
	return req.Name, true
}

// respondServiceError maps well-known engine errors to HTTP status codes.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case engine.IsUnknownResource(err):
		writeJSONError(w, http.StatusNotFound, err.Error())
	case engine.IsTooBusy(err):
		IncrementBackpressure("control_queue")
		writeJSONError(w, http.StatusTooManyRequests, err.Error())
	default:
		if he, ok := err.(HTTPError); ok {
			writeJSONError(w, he.StatusCode(), he.Error())
			return
		}
		writeJSONError(w, http.StatusInternalServerError, err.Error())
	}
	if z := logEvent(); z != nil {
		if rid := middleware.GetReqID(r.Context()); rid != "" {
			z = z.Str("request_id", rid)
		}
		z.Err(err).Str("path", r.URL.Path).Msg("request failed")
	}
}

func orDefault(v, def []string) []string {
	if len(v) == 0 {
		return def
	}
	return v
}
