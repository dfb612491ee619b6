package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ian1hx/equiploan-backend/api/middleware"
	"github.com/ian1hx/equiploan-backend/api/responses"
	"github.com/ian1hx/equiploan-backend/api/validators"
	internalorders "github.com/ian1hx/equiploan-backend/internal/orders"
	pkgerrors "github.com/ian1hx/equiploan-backend/pkg/errors"
	"github.com/ian1hx/equiploan-backend/pkg/logger"
	"github.com/ian1hx/equiploan-backend/pkg/pagination"
)

type makeOrderRequest struct {
	EquipmentID         string    `json:"equipment_id" validate:"required,uuid4"`
	Quantity            int       `json:"quantity" validate:"required,min=1"`
	EstimatedPickupTime time.Time `json:"estimated_pickup_time" validate:"required"`
	Day                 int       `json:"day" validate:"required,min=1"`
}

// MakeOrder files a new loan request for the authenticated user. Status and
// order time are assigned server-side regardless of what the client sends.
func MakeOrder(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		userID, err := subjectID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req makeOrderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		equipmentID, err := uuid.Parse(req.EquipmentID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid equipment id"))
			return
		}

		summary, err := svc.Create(r.Context(), internalorders.CreateOrderInput{
			UserID:              userID,
			EquipmentID:         equipmentID,
			Quantity:            req.Quantity,
			EstimatedPickupTime: req.EstimatedPickupTime,
			Day:                 req.Day,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, summary)
	}
}

// ListMyOrders returns the authenticated user's orders, newest first.
func ListMyOrders(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		userID, err := subjectID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cursor := strings.TrimSpace(r.URL.Query().Get("cursor"))

		list, err := svc.ListUserOrders(r.Context(), internalorders.ListParams{
			UserID: userID,
			Limit:  limit,
			Cursor: cursor,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func subjectID(r *http.Request) (uuid.UUID, error) {
	raw := middleware.SubjectIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing identity")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid identity")
	}
	return id, nil
}
