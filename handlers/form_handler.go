package handlers

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"location_form/controller"
	"location_form/gateway"
	"location_form/logger"
	"location_form/models"
	"location_form/validation"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type SelectRequest struct {
	Value string `json:"value"`
}

type FormResponse struct {
	ID         string              `json:"id"`
	Form       controller.Snapshot `json:"form"`
	Submission *models.Submission  `json:"submission,omitempty"`
	Error      string              `json:"error,omitempty"`
	Errors     validation.Errors   `json:"errors,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}

// FormHandler exposes the controller operations of each form session.
type FormHandler struct {
	store *FormStore
	log   *zap.SugaredLogger
}

func NewFormHandler(store *FormStore) *FormHandler {
	return &FormHandler{
		store: store,
		log:   logger.For(logger.ComponentHTTP),
	}
}

// CreateForm opens a form session and loads its countries.
func (h *FormHandler) CreateForm(w http.ResponseWriter, r *http.Request) {
	id, ctrl := h.store.Create()
	h.log.Infof("CreateForm: opened form %s", id)

	err := ctrl.Initialize(r.Context())
	if err != nil {
		h.log.Warnf("CreateForm: loading countries for form %s failed: %v", id, err)
	}

	resp := FormResponse{ID: id, Form: ctrl.Snapshot()}
	if err != nil {
		resp.Error = err.Error()
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (h *FormHandler) GetForm(w http.ResponseWriter, r *http.Request) {
	id, ctrl, ok := h.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, FormResponse{ID: id, Form: ctrl.Snapshot()})
}

func (h *FormHandler) DeleteForm(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.store.Delete(id); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	h.log.Infof("DeleteForm: closed form %s", id)
	w.WriteHeader(http.StatusNoContent)
}

// SelectLevel assigns the value in the body to the level named in the path.
func (h *FormHandler) SelectLevel(w http.ResponseWriter, r *http.Request) {
	id, ctrl, ok := h.lookup(w, r)
	if !ok {
		return
	}
	level, ok := parseLevel(w, r)
	if !ok {
		return
	}

	var req SelectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Debugf("SelectLevel: error decoding request body: %v", err)
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	h.log.Debugf("SelectLevel: form %s %s=%q", id, level, req.Value)
	err := ctrl.Select(r.Context(), level, req.Value)
	h.respond(w, id, ctrl, err)
}

// RefreshLevel fetches the options of a level again, typically after a
// failed fetch.
func (h *FormHandler) RefreshLevel(w http.ResponseWriter, r *http.Request) {
	id, ctrl, ok := h.lookup(w, r)
	if !ok {
		return
	}
	level, ok := parseLevel(w, r)
	if !ok {
		return
	}

	err := ctrl.Refresh(r.Context(), level)
	h.respond(w, id, ctrl, err)
}

func (h *FormHandler) SubmitForm(w http.ResponseWriter, r *http.Request) {
	id, ctrl, ok := h.lookup(w, r)
	if !ok {
		return
	}

	submission, err := ctrl.Submit(r.Context())
	if err != nil {
		h.respond(w, id, ctrl, err)
		return
	}

	h.log.Infof("SubmitForm: form %s submitted", id)
	writeJSON(w, http.StatusOK, FormResponse{ID: id, Form: ctrl.Snapshot(), Submission: &submission})
}

// AcknowledgeForm dismisses the submission confirmation.
func (h *FormHandler) AcknowledgeForm(w http.ResponseWriter, r *http.Request) {
	id, ctrl, ok := h.lookup(w, r)
	if !ok {
		return
	}
	h.respond(w, id, ctrl, ctrl.Acknowledge(r.Context()))
}

func (h *FormHandler) lookup(w http.ResponseWriter, r *http.Request) (string, *controller.Controller, bool) {
	id := mux.Vars(r)["id"]
	ctrl, err := h.store.Get(id)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return id, nil, false
	}
	return id, ctrl, true
}

func parseLevel(w http.ResponseWriter, r *http.Request) (models.Level, bool) {
	level, err := models.ParseLevel(mux.Vars(r)["level"])
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return 0, false
	}
	return level, true
}

// respond writes the form snapshot with a status derived from err.
func (h *FormHandler) respond(w http.ResponseWriter, id string, ctrl *controller.Controller, err error) {
	resp := FormResponse{ID: id, Form: ctrl.Snapshot()}
	status := statusFor(err)
	if err != nil {
		resp.Error = err.Error()
		var verrs validation.Errors
		if errors.As(err, &verrs) {
			resp.Errors = verrs
		}
		if status >= http.StatusInternalServerError {
			h.log.Errorf("Form %s: %v", id, err)
		}
	}
	writeJSON(w, status, resp)
}

func statusFor(err error) int {
	var verrs validation.Errors
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &verrs), errors.Is(err, controller.ErrNotAnOption):
		return http.StatusUnprocessableEntity
	case errors.Is(err, controller.ErrUnknownLevel):
		return http.StatusBadRequest
	case errors.Is(err, controller.ErrStaleResponse),
		errors.Is(err, controller.ErrAncestorUnset),
		errors.Is(err, controller.ErrAwaitingAcknowledgement),
		errors.Is(err, controller.ErrNothingToAcknowledge):
		return http.StatusConflict
	case errors.Is(err, gateway.ErrNetwork):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.S().Named(logger.ComponentHTTP).Errorf("Error encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg, Code: status})
}
