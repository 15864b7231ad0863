package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/getsentry/sentry-go"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"auto-focus.app/updates/internal/entitlement"
	"auto-focus.app/updates/internal/logger"
	"auto-focus.app/updates/internal/models"
)

func (s *Server) SyncMaintenance(w http.ResponseWriter, r *http.Request) {
	s.inFlight.Inc()
	defer s.inFlight.Dec()

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req models.SyncRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		s.metrics.ObserveBadRequest()
		writeErrorResponse(w, r, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	if err := s.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 && verrs[0].Field() == "Email" {
			s.metrics.ObserveBadRequest()
			writeErrorResponse(w, r, http.StatusBadRequest, "email must be a valid e-mail address")
			return
		}
		s.metrics.ObserveSync(entitlement.ErrMissingLicenseKey)
		writeErrorResponse(w, r, http.StatusBadRequest, entitlement.ErrMissingLicenseKey.Error())
		return
	}

	window, err := s.service.Sync(r.Context(), req.LicenseKey)
	s.metrics.ObserveSync(err)
	if err != nil {
		s.syncFailed(w, r, req, err)
		return
	}

	logger.Info("Maintenance window synced", map[string]interface{}{
		"request_id":    requestIDFrom(r.Context()),
		"license_key":   req.LicenseKey,
		"updates_until": window.Date(),
	})

	render.JSON(w, r, models.SyncResponse{
		Status:       models.StatusActive,
		UpdatesUntil: window.Date(),
	})
}

func (s *Server) syncFailed(w http.ResponseWriter, r *http.Request, req models.SyncRequest, err error) {
	status := entitlement.HTTPStatus(err)
	fields := map[string]interface{}{
		"request_id":  requestIDFrom(r.Context()),
		"license_key": req.LicenseKey,
		"status":      status,
		"error":       err.Error(),
	}

	switch {
	case errors.Is(err, context.Canceled):
		// The client went away; not a server fault.
		logger.Warn("Maintenance sync abandoned by client", fields)
	case status >= http.StatusInternalServerError:
		logger.Error("Maintenance sync failed", fields)
		if hub := sentry.GetHubFromContext(r.Context()); hub != nil {
			hub.CaptureException(err)
		} else {
			sentry.CaptureException(err)
		}
	default:
		logger.Warn("Maintenance sync rejected", fields)
	}

	writeErrorResponse(w, r, status, entitlement.PublicMessage(err))
}

func writeErrorResponse(w http.ResponseWriter, r *http.Request, status int, message string) {
	render.Status(r, status)
	render.JSON(w, r, map[string]string{"error": message})
}
