package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// The {wizard} segment is the flow name when starting and the draft id
// everywhere else.

func (h *Handlers) startWizard(w http.ResponseWriter, r *http.Request) {
	var fields map[string]string
	if !decode(w, r, &fields) {
		return
	}
	v, err := h.Wizards.Start(r.Context(), chi.URLParam(r, "wizard"), fields)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Location", "/v1/wizards/"+v.ID)
	writeJSON(w, r, http.StatusCreated, v)
}

func (h *Handlers) getWizard(w http.ResponseWriter, r *http.Request) {
	v, err := h.Wizards.Get(r.Context(), chi.URLParam(r, "wizard"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, r, http.StatusOK, v)
}

func (h *Handlers) setWizard(w http.ResponseWriter, r *http.Request) {
	var fields map[string]string
	if !decode(w, r, &fields) {
		return
	}
	v, err := h.Wizards.Set(r.Context(), chi.URLParam(r, "wizard"), fields)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, r, http.StatusOK, v)
}

func (h *Handlers) nextWizard(w http.ResponseWriter, r *http.Request) {
	var fields map[string]string
	if !decode(w, r, &fields) {
		return
	}
	v, err := h.Wizards.Next(r.Context(), chi.URLParam(r, "wizard"), fields)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, r, http.StatusOK, v)
}

func (h *Handlers) backWizard(w http.ResponseWriter, r *http.Request) {
	v, err := h.Wizards.Back(r.Context(), chi.URLParam(r, "wizard"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, r, http.StatusOK, v)
}

type attachRequest struct {
	Refs []string `json:"refs"`
}

func (h *Handlers) attachWizard(w http.ResponseWriter, r *http.Request) {
	var req attachRequest
	if !decode(w, r, &req) {
		return
	}
	if len(req.Refs) == 0 {
		writeProblem(w, http.StatusBadRequest, "Missing refs", "refs must list at least one file")
		return
	}
	v, err := h.Wizards.Attach(r.Context(), chi.URLParam(r, "wizard"), req.Refs...)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, r, http.StatusOK, v)
}

func (h *Handlers) submitWizard(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "wizard")
	res, err := h.Wizards.Submit(r.Context(), id, func(done, total, pct int) {
		log.Debug().Str("wizard", id).Int("done", done).Int("total", total).Int("percent", pct).Msg("upload progress")
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, res)
}
