// internal/adapters/http_server/handlers.go
package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"staybook/internal/app"
	"staybook/internal/auth"
	"staybook/internal/domain"
	"staybook/internal/querycache"
	"staybook/internal/wizard"
)

const maxBody = 1 << 20

// Handlers exposes the application services. Payments may be nil when no
// ledger is configured; the confirm route then answers 503.
type Handlers struct {
	Search      *app.SearchService
	Properties  *app.PropertyService
	Experiences *app.ExperienceService
	Bookings    *app.BookingService
	Payments    *app.PaymentService
	Vendors     *app.VendorService
	Wizards     *app.WizardService
	Refresher   auth.Refresher
}

type problem struct {
	Type   string            `json:"type"`
	Title  string            `json:"title"`
	Status int               `json:"status"`
	Detail string            `json:"detail,omitempty"`
	Errors map[string]string `json:"errors,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })

	s.mux.Route("/v1", func(r chi.Router) {
		r.Use(Session(h.Refresher))

		r.Get("/properties/search", h.searchProperties)
		r.Post("/properties", h.createProperty)
		r.Get("/properties/{id}", h.getProperty)
		r.Put("/properties/{id}", h.updateProperty)
		r.Delete("/properties/{id}", h.deleteProperty)

		r.Get("/experiences", h.listExperiences)
		r.Get("/experiences/{id}", h.getExperience)

		r.Get("/bookings/mine", h.myBookings)
		r.Post("/bookings", h.createBooking)
		r.Post("/bookings/quote", h.quoteBooking)
		r.Get("/bookings/{id}", h.getBooking)

		r.Get("/payments/confirm", h.confirmPayment)

		r.Post("/wizards/{wizard}", h.startWizard)
		r.Get("/wizards/{wizard}", h.getWizard)
		r.Patch("/wizards/{wizard}", h.setWizard)
		r.Post("/wizards/{wizard}/next", h.nextWizard)
		r.Post("/wizards/{wizard}/back", h.backWizard)
		r.Post("/wizards/{wizard}/attachments", h.attachWizard)
		r.Post("/wizards/{wizard}/submit", h.submitWizard)

		r.Get("/vendors/profile", h.vendorProfile)
		r.Get("/vendors/coupons", h.listCoupons)
		r.Post("/vendors/coupons", h.createCoupon)
		r.Put("/vendors/coupons/{id}", h.updateCoupon)
		r.Delete("/vendors/coupons/{id}", h.deleteCoupon)
		r.Get("/vendors/services", h.listServices)
		r.Post("/vendors/services", h.createService)
		r.Put("/vendors/services/{id}", h.updateService)
		r.Delete("/vendors/services/{id}", h.deleteService)
	})
}

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

// writeError maps service and upstream errors onto problem responses.
func writeError(w http.ResponseWriter, err error) {
	var verrs wizard.ValidationErrors
	if errors.As(err, &verrs) {
		writeProblemDoc(w, problem{Type: "about:blank", Title: "Validation Failed", Status: http.StatusUnprocessableEntity, Errors: verrs})
		return
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, wizard.ErrDraftNotFound), errors.Is(err, wizard.ErrUnknownFlow):
		status = http.StatusNotFound
	case errors.Is(err, wizard.ErrUnknownField), errors.Is(err, app.ErrInvalidStay), errors.Is(err, app.ErrTooManyGuests):
		status = http.StatusBadRequest
	case errors.Is(err, wizard.ErrAtStart), errors.Is(err, wizard.ErrAtEnd), errors.Is(err, wizard.ErrNotTerminal),
		errors.Is(err, domain.ErrInvalidTransition), errors.Is(err, app.ErrPaymentMismatch):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrCouponExpired), errors.Is(err, domain.ErrCouponExhausted),
		errors.Is(err, domain.ErrCouponMinOrder), errors.Is(err, app.ErrStayTooShort):
		status = http.StatusUnprocessableEntity
	default:
		if up := domain.StatusOf(err); up >= 500 {
			status = http.StatusBadGateway
		} else if up >= 400 {
			status = up
		}
	}
	if status >= 500 {
		log.Error().Err(err).Int("status", status).Msg("request failed")
	}
	writeProblem(w, status, http.StatusText(status), err.Error())
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

// writeJSON answers GETs with a weak ETag and honours If-None-Match.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	etag, body := calcETagAndBody(v)
	if r.Method == http.MethodGet && etag != "" {
		if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
			w.Header().Set("ETag", etag)
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", etag)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("failed to write body")
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.ContentLength == 0 {
		return true
	}
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody)).Decode(v)
	if err != nil && !errors.Is(err, io.EOF) {
		writeProblem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "id must be a positive number")
		return 0, false
	}
	return id, true
}

func queryPage(w http.ResponseWriter, r *http.Request) (int, bool) {
	ps := r.URL.Query().Get("page")
	if ps == "" {
		return 1, true
	}
	p, err := strconv.Atoi(ps)
	if err != nil || p < 1 {
		writeProblem(w, http.StatusBadRequest, "Invalid page", "page must be a positive integer")
		return 0, false
	}
	return p, true
}

// ---- properties ----

func (h *Handlers) searchProperties(w http.ResponseWriter, r *http.Request) {
	if _, ok := queryPage(w, r); !ok {
		return
	}
	res, err := h.Search.Search(r.Context(), querycache.ParamsFromQuery(r.URL.Query()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}

func (h *Handlers) getProperty(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	p, err := h.Properties.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, r, http.StatusOK, p)
}

func (h *Handlers) createProperty(w http.ResponseWriter, r *http.Request) {
	var in domain.PropertyInput
	if !decode(w, r, &in) {
		return
	}
	p, err := h.Properties.Create(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, p)
}

func (h *Handlers) updateProperty(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var in domain.PropertyInput
	if !decode(w, r, &in) {
		return
	}
	p, err := h.Properties.Update(r.Context(), id, in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, r, http.StatusOK, p)
}

func (h *Handlers) deleteProperty(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.Properties.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---- bookings ----

func (h *Handlers) listExperiences(w http.ResponseWriter, r *http.Request) {
	page, ok := queryPage(w, r)
	if !ok {
		return
	}
	out, err := h.Experiences.List(r.Context(), page)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, r, http.StatusOK, out)
}

func (h *Handlers) getExperience(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	x, err := h.Experiences.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, r, http.StatusOK, x)
}

func (h *Handlers) myBookings(w http.ResponseWriter, r *http.Request) {
	page, ok := queryPage(w, r)
	if !ok {
		return
	}
	out, err := h.Bookings.Mine(r.Context(), page)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, r, http.StatusOK, out)
}

func (h *Handlers) getBooking(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	b, err := h.Bookings.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, r, http.StatusOK, b)
}

func (h *Handlers) createBooking(w http.ResponseWriter, r *http.Request) {
	var req domain.BookingRequest
	if !decode(w, r, &req) {
		return
	}
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = r.Header.Get("Idempotency-Key")
	}
	b, err := h.Bookings.Create(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, b)
}

func (h *Handlers) quoteBooking(w http.ResponseWriter, r *http.Request) {
	var req domain.BookingRequest
	if !decode(w, r, &req) {
		return
	}
	t, err := h.Bookings.Quote(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, r, http.StatusOK, t)
}

// ---- payments ----

// confirmPayment is the return URL of the hosted checkout page.
func (h *Handlers) confirmPayment(w http.ResponseWriter, r *http.Request) {
	if h.Payments == nil {
		writeProblem(w, http.StatusServiceUnavailable, "Payments Unavailable", "payment confirmation is not configured")
		return
	}
	q := r.URL.Query()
	sessionID := q.Get("session_id")
	if sessionID == "" {
		writeProblem(w, http.StatusBadRequest, "Missing session_id", "session_id is required")
		return
	}
	var bookingID int64
	if bs := q.Get("booking_id"); bs != "" {
		id, err := strconv.ParseInt(bs, 10, 64)
		if err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid booking_id", "booking_id must be a number")
			return
		}
		bookingID = id
	}
	rec, err := h.Payments.Confirm(r.Context(), bookingID, sessionID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, r, http.StatusOK, rec)
}

// ---- vendors ----

func (h *Handlers) vendorProfile(w http.ResponseWriter, r *http.Request) {
	p, err := h.Vendors.Profile(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, r, http.StatusOK, p)
}

func (h *Handlers) listCoupons(w http.ResponseWriter, r *http.Request) {
	if code := r.URL.Query().Get("code"); code != "" {
		c, err := h.Vendors.FindCoupon(r.Context(), code)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, r, http.StatusOK, c)
		return
	}
	cs, err := h.Vendors.Coupons(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, r, http.StatusOK, cs)
}

func (h *Handlers) createCoupon(w http.ResponseWriter, r *http.Request) {
	var c domain.Coupon
	if !decode(w, r, &c) {
		return
	}
	out, err := h.Vendors.CreateCoupon(r.Context(), c)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, out)
}

func (h *Handlers) updateCoupon(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var c domain.Coupon
	if !decode(w, r, &c) {
		return
	}
	c.ID = id
	out, err := h.Vendors.UpdateCoupon(r.Context(), c)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, r, http.StatusOK, out)
}

func (h *Handlers) deleteCoupon(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.Vendors.DeleteCoupon(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) listServices(w http.ResponseWriter, r *http.Request) {
	out, err := h.Vendors.Services(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, r, http.StatusOK, out)
}

func (h *Handlers) createService(w http.ResponseWriter, r *http.Request) {
	var v domain.VendorService
	if !decode(w, r, &v) {
		return
	}
	out, err := h.Vendors.CreateService(r.Context(), v)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, out)
}

func (h *Handlers) updateService(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var v domain.VendorService
	if !decode(w, r, &v) {
		return
	}
	v.ID = id
	out, err := h.Vendors.UpdateService(r.Context(), v)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, r, http.StatusOK, out)
}

func (h *Handlers) deleteService(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.Vendors.DeleteService(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
