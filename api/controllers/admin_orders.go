package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ian1hx/equiploan-backend/api/responses"
	"github.com/ian1hx/equiploan-backend/api/validators"
	"github.com/ian1hx/equiploan-backend/internal/fulfillment"
	internalorders "github.com/ian1hx/equiploan-backend/internal/orders"
	"github.com/ian1hx/equiploan-backend/pkg/enums"
	pkgerrors "github.com/ian1hx/equiploan-backend/pkg/errors"
	"github.com/ian1hx/equiploan-backend/pkg/logger"
	"github.com/ian1hx/equiploan-backend/pkg/pagination"
)

type decideOrderRequest struct {
	Reply   string   `json:"reply" validate:"required,oneof=approve deny"`
	ItemIDs []string `json:"item_ids" validate:"omitempty,dive,uuid4"`
}

type cancelOrderRequest struct {
	Reason string `json:"reason" validate:"omitempty,max=500"`
}

// DecideOrder approves or denies a pending order. Approval allocates the
// named items atomically; a lost race surfaces as a conflict.
func DecideOrder(svc fulfillment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "fulfillment service unavailable"))
			return
		}

		adminID, err := subjectID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := orderIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req decideOrderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		reply, err := enums.ParseDecisionReply(req.Reply)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid reply"))
			return
		}

		itemIDs := make([]uuid.UUID, 0, len(req.ItemIDs))
		for _, raw := range req.ItemIDs {
			id, parseErr := uuid.Parse(raw)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid item id"))
				return
			}
			itemIDs = append(itemIDs, id)
		}

		err = svc.Decide(r.Context(), fulfillment.DecideInput{
			OrderID: orderID,
			AdminID: adminID,
			Reply:   reply,
			ItemIDs: itemIDs,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{
			"order_id": orderID.String(),
			"reply":    string(reply),
		})
	}
}

// CancelOrder cancels an approved order and returns its items to stock.
func CancelOrder(svc fulfillment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "fulfillment service unavailable"))
			return
		}

		adminID, err := subjectID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := orderIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req cancelOrderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		err = svc.Cancel(r.Context(), fulfillment.CancelInput{
			OrderID: orderID,
			AdminID: adminID,
			Reason:  strings.TrimSpace(req.Reason),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{
			"order_id": orderID.String(),
			"status":   string(enums.OrderStatusCanceled),
		})
	}
}

// AdminPendingOrders returns the approval queue, oldest first.
func AdminPendingOrders(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		summaries, err := svc.ListPendingOrders(r.Context(), limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summaries)
	}
}

// AdminOrderDetail returns one order with its allocations.
func AdminOrderDetail(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		orderID, err := orderIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.GetOrder(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

func orderIDParam(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "orderId"))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id")
	}
	return id, nil
}
