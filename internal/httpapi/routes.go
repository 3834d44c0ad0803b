// Package httpapi is a thin net/http adapter over the controller's
// control-plane operations: every handler translates a JSON request body
// into a plain Go call on *controller.Controller (or mounts another
// module's own http.Handler, e.g. the frontend websocket endpoint) and
// translates the result back to JSON. No operation's semantics live here.
package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/hellocym/SwarmClone/internal/controller"
	"github.com/hellocym/SwarmClone/internal/message"
	"github.com/hellocym/SwarmClone/internal/role"
	"github.com/hellocym/SwarmClone/internal/sidecar"
	"github.com/hellocym/SwarmClone/internal/trace"
)

// Deps bundles everything the routes need: the controller plus an
// optional frontend handler to mount at /ws and an optional trace store for
// the read-only /traces routes.
type Deps struct {
	Controller *controller.Controller
	Frontend   http.Handler // may be nil if no FRONTEND module is wired
	Trace      *trace.Store // may be nil if turn tracing is disabled
	Log        *slog.Logger
}

// NewMux builds the full control-plane mux.
func NewMux(d Deps) *http.ServeMux {
	if d.Log == nil {
		d.Log = slog.Default()
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /get_version", d.handleGetVersion)
	mux.HandleFunc("GET /get_status", d.handleGetStatus)
	mux.HandleFunc("GET /startup_param", d.handleStartupParam)
	mux.HandleFunc("POST /start", d.handleStart)
	mux.HandleFunc("POST /stop", d.handleStop)
	mux.HandleFunc("GET /get_messages", d.handleGetMessages)
	mux.HandleFunc("POST /api", d.handleAPI)
	mux.HandleFunc("GET /sidecars", d.handleSidecarStatusAll)
	mux.HandleFunc("POST /sidecars/{name}/start", d.handleSidecarStart)
	mux.HandleFunc("POST /sidecars/{name}/stop", d.handleSidecarStop)
	if d.Frontend != nil {
		mux.Handle("/ws", d.Frontend)
	}
	if d.Trace != nil {
		mux.HandleFunc("GET /traces", d.handleListTraces)
		mux.HandleFunc("GET /traces/{id}", d.handleGetTraceSession)
		mux.HandleFunc("GET /traces/{id}/{runID}", d.handleGetTraceRun)
	}
	return mux
}

func (d Deps) handleGetVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": d.Controller.GetVersion()})
}

func (d Deps) handleGetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, d.Controller.GetStatus())
}

func (d Deps) handleStartupParam(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, d.Controller.StartupParam())
}

// startRequest mirrors the wire shape: cfg is keyed by role then module
// name; selected restricts instantiation to that subset of entries.
type startRequest struct {
	Cfg      map[role.Role]map[string]map[string]any `json:"cfg"`
	Selected []string                                `json:"selected"`
}

func (d Deps) handleStart(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	selected := make(map[string]struct{}, len(req.Selected))
	for _, name := range req.Selected {
		selected[name] = struct{}{}
	}

	var specs []controller.StartSpec
	for ro, byName := range req.Cfg {
		for name, fields := range byName {
			if _, ok := selected[name]; !ok {
				continue
			}
			unescaped, err := unescapeFields(fields)
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			specs = append(specs, controller.StartSpec{Role: ro, Name: name, Fields: unescaped})
		}
	}

	unknown, err := d.Controller.Start(specs)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if len(unknown) > 0 {
		writeJSON(w, http.StatusNotFound, map[string]any{"unknown": unknown})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "OK"})
}

func (d Deps) handleStop(w http.ResponseWriter, r *http.Request) {
	d.Controller.Stop()
	writeJSON(w, http.StatusOK, map[string]string{})
}

func (d Deps) handleGetMessages(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, d.Controller.GetMessages())
}

type apiRequest struct {
	Module      string `json:"module"`
	SpeakerName string `json:"speaker_name"`
	Message     string `json:"message"`
}

func (d Deps) handleAPI(w http.ResponseWriter, r *http.Request) {
	var req apiRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if req.Module != string(role.ASR) {
		http.Error(w, "unsupported module for synthetic injection", http.StatusBadRequest)
		return
	}
	d.Controller.InjectAPI(req.SpeakerName, req.Message)
	writeJSON(w, http.StatusOK, map[string]string{"status": "OK"})
}

// handleSidecarStatusAll reports every managed sidecar's lifecycle status,
// probing the live "sidecars" PLUGIN module's control endpoints directly —
// it is only reachable once a start request has selected that module.
func (d Deps) handleSidecarStatusAll(w http.ResponseWriter, r *http.Request) {
	sc, ok := d.sidecarModule()
	if !ok {
		http.Error(w, "sidecars module not running", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, sc.StatusAll(r.Context()))
}

func (d Deps) handleSidecarStart(w http.ResponseWriter, r *http.Request) {
	sc, ok := d.sidecarModule()
	if !ok {
		http.Error(w, "sidecars module not running", http.StatusNotFound)
		return
	}
	if err := sc.Start(r.Context(), r.PathValue("name")); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "OK"})
}

func (d Deps) handleSidecarStop(w http.ResponseWriter, r *http.Request) {
	sc, ok := d.sidecarModule()
	if !ok {
		http.Error(w, "sidecars module not running", http.StatusNotFound)
		return
	}
	if err := sc.Stop(r.Context(), r.PathValue("name")); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "OK"})
}

func (d Deps) sidecarModule() (*sidecar.Module, bool) {
	mod, ok := d.Controller.Module(role.PLUGIN, "sidecars")
	if !ok {
		return nil, false
	}
	sc, ok := mod.(*sidecar.Module)
	return sc, ok
}

// handleListTraces implements the turn-trace session listing, paginated via
// ?limit=&offset= query parameters (defaulting to the first 50).
func (d Deps) handleListTraces(w http.ResponseWriter, r *http.Request) {
	limit, offset := 50, 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			offset = n
		}
	}
	sessions, total, err := d.Trace.ListSessions(limit, offset)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": sessions, "total": total})
}

func (d Deps) handleGetTraceSession(w http.ResponseWriter, r *http.Request) {
	sess, runs, err := d.Trace.GetSession(r.PathValue("id"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"session": sess, "runs": runs})
}

func (d Deps) handleGetTraceRun(w http.ResponseWriter, r *http.Request) {
	run, spans, err := d.Trace.GetRun(r.PathValue("id"), r.PathValue("runID"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"run": run, "spans": spans})
}

// unescapeFields decodes every string-typed field value per §6's escape
// contract before the fields reach a module constructor.
func unescapeFields(fields map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		s, ok := v.(string)
		if !ok {
			out[k] = v
			continue
		}
		un, err := message.UnescapeAll(s)
		if err != nil {
			return nil, err
		}
		out[k] = un
	}
	return out, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
