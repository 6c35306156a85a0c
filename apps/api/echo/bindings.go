package echoapi

import (
	"github.com/labstack/echo/v4"

	"github.com/trezcool/mwalimu/core"
)

const orderingParam = "ordering"

// bindOrdering reads `?ordering=title,-created_at`, keeping the allowed fields only.
func bindOrdering(ctx echo.Context, allowed []string) []core.DBOrdering {
	return core.ParseOrdering(ctx.QueryParam(orderingParam), allowed...)
}

// s3DeleteRequest is the body of DELETE /api/s3/delete.
type s3DeleteRequest struct {
	Key string `json:"key"`
}
