package orders

import (
	"context"

	"github.com/google/uuid"

	pkgerrors "github.com/ian1hx/equiploan-backend/pkg/errors"
	"github.com/ian1hx/equiploan-backend/pkg/pagination"
)

const (
	defaultListLimit = pagination.DefaultLimit
	maxListLimit     = pagination.MaxLimit
)

// ListParams configures the user order listing.
type ListParams struct {
	UserID uuid.UUID
	Limit  int
	Cursor string
}

// ListResult returns one page of orders plus the cursor for the next page.
type ListResult struct {
	Items  []OrderSummary `json:"items"`
	Cursor string         `json:"cursor"`
}

type listQuery struct {
	userID uuid.UUID
	limit  int
	cursor *pagination.Cursor
}

func (s *service) ListUserOrders(ctx context.Context, params ListParams) (*ListResult, error) {
	if params.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	query := listQuery{
		userID: params.UserID,
		limit:  limit + 1,
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.cursor = cursor
	}

	rows, err := s.repo.ListByUser(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}

	nextCursor := ""
	if len(rows) > limit {
		next := rows[limit]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: next.OrderTime,
			ID:        next.ID,
		})
		rows = rows[:limit]
	}

	items := make([]OrderSummary, len(rows))
	for i, row := range rows {
		items[i] = summarize(row)
	}

	return &ListResult{Items: items, Cursor: nextCursor}, nil
}
