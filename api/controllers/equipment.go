package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ian1hx/equiploan-backend/api/responses"
	"github.com/ian1hx/equiploan-backend/internal/equipment"
	pkgerrors "github.com/ian1hx/equiploan-backend/pkg/errors"
	"github.com/ian1hx/equiploan-backend/pkg/logger"
)

// EquipmentAvailability returns one catalog entry with its live in-stock count.
func EquipmentAvailability(svc equipment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "equipment service unavailable"))
			return
		}

		raw := strings.TrimSpace(chi.URLParam(r, "equipmentId"))
		if raw == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "equipment id is required"))
			return
		}
		equipmentID, err := uuid.Parse(raw)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid equipment id"))
			return
		}

		availability, err := svc.GetAvailability(r.Context(), equipmentID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, availability)
	}
}
