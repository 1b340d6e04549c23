// Package dispatch exposes the dispatch orchestrator over HTTP. Handlers
// translate JSON requests into orchestrator calls and map domain errors to
// status codes.
package dispatch

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	coredispatch "github.com/fleetops/tripdispatch/core/dispatch"
	"github.com/fleetops/tripdispatch/core/model"
	"github.com/fleetops/tripdispatch/infra/logger"
)

// Handler serves the dispatch API. Requests must include an Authorization
// header with "Bearer <token>" when token is non-empty.
type Handler struct {
	orch  *coredispatch.Orchestrator
	token string
	log   logger.Logger
}

// NewHandler builds a Handler around the orchestrator.
func NewHandler(orch *coredispatch.Orchestrator, token string) *Handler {
	return &Handler{orch: orch, token: token, log: logger.New("api")}
}

// Register mounts all dispatch routes on the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/dispatch/availability", h.auth(h.availability))
	mux.HandleFunc("POST /api/dispatch/assign", h.auth(h.assign))
	mux.HandleFunc("POST /api/dispatch/reassign", h.auth(h.reassign))
	mux.HandleFunc("POST /api/trips/{id}/unassign", h.auth(h.unassign))
	mux.HandleFunc("POST /api/trips/{id}/start", h.auth(h.start))
	mux.HandleFunc("POST /api/trips/{id}/complete", h.auth(h.complete))
	mux.HandleFunc("POST /api/trips/{id}/accept", h.auth(h.accept))
	mux.HandleFunc("GET /api/trips/{id}/suggestions", h.auth(h.suggestions))
	mux.HandleFunc("GET /api/trips/{id}/history", h.auth(h.history))
	mux.HandleFunc("GET /api/trips/pending", h.auth(h.pending))
}

func (h *Handler) auth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.token != "" && r.Header.Get("Authorization") != "Bearer "+h.token {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

type errorBody struct {
	Error string `json:"error"`
}

func (h *Handler) writeErr(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case coredispatch.IsNotFound(err):
		status = http.StatusNotFound
	case coredispatch.IsConflict(err):
		status = http.StatusConflict
	case coredispatch.IsStateError(err):
		status = http.StatusUnprocessableEntity
	default:
		h.log.Errorf("request failed: %v", err)
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	return id, err == nil && id > 0
}

func (h *Handler) availability(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	branchID, _ := strconv.ParseInt(q.Get("branchId"), 10, 64)
	categoryID, err := strconv.ParseInt(q.Get("categoryId"), 10, 64)
	if err != nil || categoryID <= 0 {
		http.Error(w, "categoryId is required", http.StatusBadRequest)
		return
	}
	start, err := time.Parse(time.RFC3339, q.Get("start"))
	if err != nil {
		http.Error(w, "start must be RFC3339", http.StatusBadRequest)
		return
	}
	end, err := time.Parse(time.RFC3339, q.Get("end"))
	if err != nil || !end.After(start) {
		http.Error(w, "end must be RFC3339 and after start", http.StatusBadRequest)
		return
	}
	quantity := 1
	if s := q.Get("quantity"); s != "" {
		if quantity, err = strconv.Atoi(s); err != nil || quantity < 1 {
			http.Error(w, "quantity must be a positive integer", http.StatusBadRequest)
			return
		}
	}
	res, err := h.orch.Availability(r.Context(), branchID, categoryID, model.TimeWindow{Start: start, End: end}, quantity)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) assign(w http.ResponseWriter, r *http.Request) {
	h.assignClass(w, r, h.orch.Assign)
}

func (h *Handler) reassign(w http.ResponseWriter, r *http.Request) {
	h.assignClass(w, r, h.orch.Reassign)
}

func (h *Handler) assignClass(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, req coredispatch.AssignRequest) (coredispatch.Result, error)) {
	var req coredispatch.AssignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if req.BookingID <= 0 {
		http.Error(w, "bookingId is required", http.StatusBadRequest)
		return
	}
	if !req.AutoAssign && req.DriverID <= 0 && req.VehicleID <= 0 {
		http.Error(w, "driverId, vehicleId or autoAssign is required", http.StatusBadRequest)
		return
	}
	res, err := op(r.Context(), req)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type actorBody struct {
	Actor    string `json:"actor"`
	DriverID int64  `json:"driverId"`
	Note     string `json:"note"`
}

func decodeActor(r *http.Request) actorBody {
	var b actorBody
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&b)
	}
	return b
}

func (h *Handler) unassign(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.Error(w, "invalid trip id", http.StatusBadRequest)
		return
	}
	b := decodeActor(r)
	if err := h.orch.Unassign(r.Context(), id, b.Actor, b.Note); err != nil {
		h.writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) start(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.Error(w, "invalid trip id", http.StatusBadRequest)
		return
	}
	trip, err := h.orch.Start(r.Context(), id, decodeActor(r).Actor)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, trip)
}

func (h *Handler) complete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.Error(w, "invalid trip id", http.StatusBadRequest)
		return
	}
	trip, err := h.orch.Complete(r.Context(), id, decodeActor(r).Actor)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, trip)
}

func (h *Handler) accept(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.Error(w, "invalid trip id", http.StatusBadRequest)
		return
	}
	b := decodeActor(r)
	if b.DriverID <= 0 {
		http.Error(w, "driverId is required", http.StatusBadRequest)
		return
	}
	if err := h.orch.Accept(r.Context(), id, b.DriverID, b.Note); err != nil {
		h.writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) suggestions(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.Error(w, "invalid trip id", http.StatusBadRequest)
		return
	}
	sug, err := h.orch.Suggestions(r.Context(), id)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sug)
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.Error(w, "invalid trip id", http.StatusBadRequest)
		return
	}
	recs, err := h.orch.History(r.Context(), id)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

func (h *Handler) pending(w http.ResponseWriter, r *http.Request) {
	branchID, _ := strconv.ParseInt(r.URL.Query().Get("branchId"), 10, 64)
	trips, err := h.orch.PendingTrips(r.Context(), branchID)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, trips)
}
