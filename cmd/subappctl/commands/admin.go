package commands

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	subapp "github.com/mitchellsimoens/SubAppDemo"
)

// destroyer is implemented by main views that can be destroyed on request,
// such as *subapp.View.
type destroyer interface {
	Destroy()
}

type subAppView struct {
	ID          string                `json:"id"`
	State       subapp.LifecycleState `json:"state"`
	Controllers []string              `json:"controllers"`
	Styles      []string              `json:"styles"`
	Error       string                `json:"error,omitempty"`
}

func viewOf(s *subapp.SubApplication) subAppView {
	v := subAppView{
		ID:          s.ID(),
		State:       s.State(),
		Controllers: []string{},
		Styles:      []string{},
	}
	for _, entry := range s.Controllers() {
		v.Controllers = append(v.Controllers, entry.ID)
	}
	for _, h := range s.StyleHandles() {
		v.Styles = append(v.Styles, h.Source)
	}
	if err := s.Err(); err != nil {
		v.Error = err.Error()
	}
	return v
}

// newAdminRouter exposes app over HTTP:
//
//	GET  /healthz
//	GET  /subapps
//	GET  /subapps/{id}
//	POST /subapps/{id}/destroy
//	POST /events/{event}?selector=...
//	GET  /stats
//	GET  /metrics
func newAdminRouter(app *subapp.Application, registry *prometheus.Registry) chi.Router {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, "ok")
	})

	r.Route("/subapps", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			out := []subAppView{}
			for _, s := range app.SubApplications() {
				out = append(out, viewOf(s))
			}
			writeJSON(w, http.StatusOK, out)
		})

		r.Get("/{id}", func(w http.ResponseWriter, req *http.Request) {
			s, ok := app.SubApplication(chi.URLParam(req, "id"))
			if !ok {
				writeError(w, http.StatusNotFound, errors.New("sub-application not found"))
				return
			}
			writeJSON(w, http.StatusOK, viewOf(s))
		})

		r.Post("/{id}/destroy", func(w http.ResponseWriter, req *http.Request) {
			s, ok := app.SubApplication(chi.URLParam(req, "id"))
			if !ok {
				writeError(w, http.StatusNotFound, errors.New("sub-application not found"))
				return
			}
			view, ok := s.View().(destroyer)
			if !ok {
				writeError(w, http.StatusConflict, errors.New("sub-application has no destroyable main view"))
				return
			}
			view.Destroy()
			writeJSON(w, http.StatusOK, map[string]any{"id": s.ID(), "state": s.State()})
		})
	})

	r.Post("/events/{event}", func(w http.ResponseWriter, req *http.Request) {
		var data map[string]any
		if req.ContentLength != 0 {
			if err := json.NewDecoder(req.Body).Decode(&data); err != nil && !errors.Is(err, io.EOF) {
				writeError(w, http.StatusBadRequest, err)
				return
			}
		}

		event := subapp.NewRoutedEvent(chi.URLParam(req, "event"), req.URL.Query().Get("selector"), data)
		n, err := app.Dispatch(req.Context(), event)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]any{"handlers": n, "error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"handlers": n})
	})

	r.Get("/stats", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, app.Stats())
	})

	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
