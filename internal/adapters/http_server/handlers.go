package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"lodging/internal/app"
	"lodging/internal/domain"
)

const maxBodyBytes = 1 << 20

type Handlers struct {
	Q *app.QueryService
	C *app.CommandService
	A *app.AvailabilityService
}

type problem struct {
	Type   string           `json:"type"`
	Title  string           `json:"title"`
	Status int              `json:"status"`
	Detail string           `json:"detail,omitempty"`
	Errors ValidationErrors `json:"errors,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })

	s.mux.Route("/v1", func(r chi.Router) {
		r.Route("/lodgings", func(r chi.Router) {
			r.Get("/", h.listLodgings)
			r.Post("/", h.createLodging)
			r.Get("/available", h.findAvailable)
			r.Get("/{id}", h.getLodging)
			r.Put("/{id}", h.updateLodging)
			r.Delete("/{id}", h.deleteLodging)
			r.Get("/{id}/images", h.listLodgingImages)
		})
		r.Route("/rentals", func(r chi.Router) {
			r.Get("/", h.listRentals)
			r.Post("/", h.createRental)
			r.Get("/{id}", h.getRental)
			r.Put("/{id}", h.updateRental)
			r.Delete("/{id}", h.deleteRental)
		})
		r.Route("/reviews", func(r chi.Router) {
			r.Get("/", h.listReviews)
			r.Post("/", h.createReview)
			r.Get("/{id}", h.getReview)
			r.Put("/{id}", h.updateReview)
			r.Delete("/{id}", h.deleteReview)
		})
		r.Route("/images", func(r chi.Router) {
			r.Post("/", h.createImage)
			r.Get("/{id}", h.getImage)
			r.Delete("/{id}", h.deleteImage)
		})
	})
}

// ---- response helpers ----

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	writeProblemDoc(w, problem{Type: "about:blank", Title: title, Status: status, Detail: detail})
}

func writeProblemDoc(w http.ResponseWriter, p problem) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(p.Status)
	if err := json.NewEncoder(w).Encode(p); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// writeError maps service errors onto problem responses.
func writeError(w http.ResponseWriter, r *http.Request, err error, what string) {
	var verrs ValidationErrors
	switch {
	case errors.As(err, &verrs):
		writeProblemDoc(w, problem{Type: "about:blank", Title: "Validation Failed", Status: http.StatusBadRequest, Errors: verrs})
	case errors.Is(err, domain.ErrNotFound):
		writeProblem(w, http.StatusNotFound, "Not Found", what+" not found")
	case errors.Is(err, domain.ErrConflict):
		writeProblem(w, http.StatusConflict, "Conflict", what+" conflicts with existing data")
	default:
		log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

// writeCached answers with a weak ETag and short-circuits to 304 when the
// client already holds this version.
func writeCached(w http.ResponseWriter, r *http.Request, v any) {
	etag, body := calcETagAndBody(v)
	if body == nil {
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "")
		return
	}
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("failed to write body")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to write JSON body")
	}
}

// ---- request helpers ----

func idParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "id must be a positive number")
		return 0, false
	}
	return id, true
}

// decode reads a JSON body into dst and runs its validation tags.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		detail := "body must be a JSON document"
		if errors.Is(err, io.EOF) {
			detail = "body is empty"
		}
		writeProblem(w, http.StatusBadRequest, "Invalid Body", detail)
		return false
	}
	if err := validateStruct(dst); err != nil {
		writeError(w, r, err, "")
		return false
	}
	return true
}

// ---- lodgings ----

func (h *Handlers) listLodgings(w http.ResponseWriter, r *http.Request) {
	out, err := h.Q.ListLodgings(r.Context())
	if err != nil {
		writeError(w, r, err, "lodgings")
		return
	}
	writeCached(w, r, out)
}

// findAvailable serves GET /v1/lodgings/available?city=&state=&country=&occupancy=.
// A missing occupancy means any rental that is available qualifies.
func (h *Handlers) findAvailable(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	occupancy := 0
	if s := q.Get("occupancy"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid occupancy", "occupancy must be an integer")
			return
		}
		occupancy = n
	}

	out, err := h.A.FindAvailable(r.Context(), occupancy, q.Get("city"), q.Get("state"), q.Get("country"))
	if err != nil {
		log.Error().Err(err).Int("occupancy", occupancy).Msg("availability search failed")
		writeProblem(w, http.StatusServiceUnavailable, "Service Unavailable", "lodging store unavailable")
		return
	}
	writeCached(w, r, out)
}

func (h *Handlers) getLodging(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	l, err := h.Q.GetLodging(r.Context(), id)
	if err != nil {
		writeError(w, r, err, "lodging")
		return
	}
	writeCached(w, r, l)
}

func (h *Handlers) createLodging(w http.ResponseWriter, r *http.Request) {
	var req lodgingRequest
	if !decode(w, r, &req) {
		return
	}
	l := req.toDomain(0)
	if err := h.C.CreateLodging(r.Context(), &l); err != nil {
		writeError(w, r, err, "lodging")
		return
	}
	writeJSON(w, http.StatusAccepted, l)
}

func (h *Handlers) updateLodging(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var req lodgingRequest
	if !decode(w, r, &req) {
		return
	}
	l := req.toDomain(id)
	if err := h.C.UpdateLodging(r.Context(), l); err != nil {
		writeError(w, r, err, "lodging")
		return
	}
	out, err := h.Q.GetLodging(r.Context(), id)
	if err != nil {
		writeError(w, r, err, "lodging")
		return
	}
	writeJSON(w, http.StatusAccepted, out)
}

func (h *Handlers) deleteLodging(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := h.C.DeleteLodging(r.Context(), id); err != nil {
		writeError(w, r, err, "lodging")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) listLodgingImages(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if _, err := h.Q.GetLodging(r.Context(), id); err != nil {
		writeError(w, r, err, "lodging")
		return
	}
	out, err := h.Q.ListImages(r.Context(), id)
	if err != nil {
		writeError(w, r, err, "images")
		return
	}
	writeCached(w, r, out)
}

// ---- rentals ----

func (h *Handlers) listRentals(w http.ResponseWriter, r *http.Request) {
	out, err := h.Q.ListRentals(r.Context())
	if err != nil {
		writeError(w, r, err, "rentals")
		return
	}
	writeCached(w, r, out)
}

func (h *Handlers) getRental(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	rt, err := h.Q.GetRental(r.Context(), id)
	if err != nil {
		writeError(w, r, err, "rental")
		return
	}
	writeCached(w, r, rt)
}

func (h *Handlers) createRental(w http.ResponseWriter, r *http.Request) {
	var req rentalRequest
	if !decode(w, r, &req) {
		return
	}
	rt := req.toDomain(0)
	if err := h.C.CreateRental(r.Context(), &rt); err != nil {
		writeError(w, r, err, fmt.Sprintf("rental for lodging %d", req.LodgingID))
		return
	}
	writeJSON(w, http.StatusAccepted, rt)
}

func (h *Handlers) updateRental(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var req rentalRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.C.UpdateRental(r.Context(), req.toDomain(id)); err != nil {
		writeError(w, r, err, "rental")
		return
	}
	out, err := h.Q.GetRental(r.Context(), id)
	if err != nil {
		writeError(w, r, err, "rental")
		return
	}
	writeJSON(w, http.StatusAccepted, out)
}

func (h *Handlers) deleteRental(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := h.C.DeleteRental(r.Context(), id); err != nil {
		writeError(w, r, err, "rental")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---- reviews ----

func (h *Handlers) listReviews(w http.ResponseWriter, r *http.Request) {
	out, err := h.Q.ListReviews(r.Context())
	if err != nil {
		writeError(w, r, err, "reviews")
		return
	}
	writeCached(w, r, out)
}

func (h *Handlers) getReview(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	rv, err := h.Q.GetReview(r.Context(), id)
	if err != nil {
		writeError(w, r, err, "review")
		return
	}
	writeCached(w, r, rv)
}

func (h *Handlers) createReview(w http.ResponseWriter, r *http.Request) {
	var req reviewRequest
	if !decode(w, r, &req) {
		return
	}
	rv := req.toDomain(0)
	if err := h.C.CreateReview(r.Context(), &rv); err != nil {
		writeError(w, r, err, fmt.Sprintf("review for lodging %d", req.LodgingID))
		return
	}
	writeJSON(w, http.StatusAccepted, rv)
}

func (h *Handlers) updateReview(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var req reviewRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.C.UpdateReview(r.Context(), req.toDomain(id)); err != nil {
		writeError(w, r, err, "review")
		return
	}
	out, err := h.Q.GetReview(r.Context(), id)
	if err != nil {
		writeError(w, r, err, "review")
		return
	}
	writeJSON(w, http.StatusAccepted, out)
}

func (h *Handlers) deleteReview(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := h.C.DeleteReview(r.Context(), id); err != nil {
		writeError(w, r, err, "review")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---- images ----

func (h *Handlers) getImage(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	img, err := h.Q.GetImage(r.Context(), id)
	if err != nil {
		writeError(w, r, err, "image")
		return
	}
	writeCached(w, r, img)
}

func (h *Handlers) createImage(w http.ResponseWriter, r *http.Request) {
	var req imageRequest
	if !decode(w, r, &req) {
		return
	}
	img := req.toDomain()
	if err := h.C.CreateImage(r.Context(), &img); err != nil {
		writeError(w, r, err, fmt.Sprintf("image for lodging %d", req.LodgingID))
		return
	}
	writeJSON(w, http.StatusAccepted, img)
}

func (h *Handlers) deleteImage(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := h.C.DeleteImage(r.Context(), id); err != nil {
		writeError(w, r, err, "image")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
