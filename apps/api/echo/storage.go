package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/mwalimu/core"
)

type storageApi struct {
	store  core.ObjectStore
	logger core.Logger
}

func registerStorageAPI(g *echo.Group, store core.ObjectStore, logger core.Logger) {
	api := storageApi{store: store, logger: logger}
	g.DELETE("/s3/delete", api.deleteObject, requireInstructor(false))
}

// deleteObject answers with its own {message}|{error} shape, consumed by the upload widget.
func (api *storageApi) deleteObject(ctx echo.Context) error {
	var data s3DeleteRequest
	if err := ctx.Bind(&data); err != nil || core.CleanString(data.Key) == "" {
		return ctx.JSON(http.StatusBadRequest, echo.Map{"error": msgMissingKey})
	}

	if err := api.store.DeleteObject(ctx.Request().Context(), data.Key); err != nil {
		api.logger.Error("S3 Delete Error", errors.Wrap(err, "deleting object"), mustSession(ctx))
		msg := errors.Cause(err).Error()
		if msg == "" {
			msg = "Failed to delete object"
		}
		return ctx.JSON(http.StatusInternalServerError, echo.Map{"error": msg})
	}
	return ctx.JSON(http.StatusOK, echo.Map{"message": "File deleted successfully"})
}
