package api

import (
	"errors"
	"io/fs"
	"net/http"

	"KronosAlign/internal/domain/models"
	"KronosAlign/internal/services/alignment"
	"KronosAlign/internal/usecase"
	xhttp "KronosAlign/pkg/http"
)

// toAppError maps domain errors onto HTTP errors. Unknown errors become 500.
func toAppError(err error) *xhttp.AppError {
	var (
		appErr *xhttp.AppError
		schema *models.SchemaError
		insuff *models.InsufficientDataError
		cad    *models.CadenceError
		fc     *models.ForecasterError
		status *xhttp.StatusError
	)
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, fs.ErrNotExist):
		return xhttp.NotFoundError("file not found").WithError(err)
	case errors.As(err, &schema):
		e := xhttp.NewAppError("ERR_SCHEMA", "", schema.Error(), http.StatusBadRequest).WithError(err)
		if len(schema.Columns) > 0 {
			e.WithParam("columns", schema.Columns)
		}
		return e
	case errors.Is(err, alignment.ErrUnsupportedFormat):
		return xhttp.NewAppError("ERR_UNSUPPORTED_FORMAT", "file_path", err.Error(), http.StatusBadRequest).WithError(err)
	case errors.As(err, &insuff):
		e := xhttp.NewAppError("ERR_INSUFFICIENT_DATA", "", insuff.Error(), http.StatusBadRequest).
			WithParam("required", insuff.Required).
			WithParam("available", insuff.Available).
			WithError(err)
		if insuff.Anchor != nil {
			e.WithParam("anchor", insuff.Anchor.UTC())
		}
		return e
	case errors.As(err, &cad):
		return xhttp.NewAppError("ERR_CADENCE", "", cad.Error(), http.StatusBadRequest).WithError(err)
	case errors.Is(err, models.ErrInvalidWindow):
		return xhttp.NewAppError("ERR_INVALID_WINDOW", "", err.Error(), http.StatusBadRequest).WithError(err)
	case errors.Is(err, models.ErrModelNotLoaded):
		return xhttp.NewAppError("ERR_MODEL_NOT_LOADED", "", models.ErrModelNotLoaded.Error(), http.StatusBadRequest).WithError(err)
	case errors.As(err, &fc):
		return xhttp.NewAppError("ERR_FORECASTER", "", fc.Error(), http.StatusBadGateway).WithError(err)
	case errors.As(err, &status):
		return xhttp.BadGatewayError("upstream request failed").WithParam("upstream_status", status.StatusCode).WithError(err)
	case errors.Is(err, usecase.ErrNoMarketData):
		return xhttp.NotFoundError(err.Error()).WithError(err)
	case errors.Is(err, usecase.ErrRefreshRunning):
		return xhttp.ConflictError(err.Error()).WithError(err)
	default:
		return xhttp.InternalError("internal error").WithError(err)
	}
}
