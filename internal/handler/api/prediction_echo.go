package api

import (
	"time"

	models "KronosAlign/internal/domain/models"
	"KronosAlign/internal/service/metrics"
	"KronosAlign/internal/service/ratelimit"
	"KronosAlign/internal/usecase"
	xhttp "KronosAlign/pkg/http"
	xlogger "KronosAlign/pkg/logger"

	"github.com/labstack/echo/v4"
)

// PredictionEchoHandler serves the data, model and prediction endpoints.
type PredictionEchoHandler struct {
	logger  *xlogger.Logger
	predict *usecase.PredictionUseCase
	data    *usecase.DataUseCase
	model   *usecase.ModelUseCase
	fetch   *usecase.FetchUseCase
	limiter *ratelimit.Limiter
}

func NewPredictionEchoHandler(
	logger *xlogger.Logger,
	predict *usecase.PredictionUseCase,
	data *usecase.DataUseCase,
	model *usecase.ModelUseCase,
	fetch *usecase.FetchUseCase,
	limiter *ratelimit.Limiter,
) *PredictionEchoHandler {
	metrics.Register()
	return &PredictionEchoHandler{
		logger:  logger,
		predict: predict,
		data:    data,
		model:   model,
		fetch:   fetch,
		limiter: limiter,
	}
}

func (h *PredictionEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/data-files", h.DataFiles)
	g.POST("/load-data", h.LoadData)
	g.POST("/predict", h.Predict)
	g.POST("/load-model", h.LoadModel)
	g.GET("/available-models", h.AvailableModels)
	g.GET("/model-status", h.ModelStatus)
	g.GET("/predictions", h.Predictions)

	var mw []echo.MiddlewareFunc
	if h.limiter != nil {
		mw = append(mw, h.limiter.Middleware())
	}
	g.POST("/fetch-data", h.FetchData, mw...)
}

// observe records endpoint latency and returns a func that records failures.
func observe(endpoint string) (done func(), fail func(*xhttp.AppError)) {
	start := time.Now()
	done = func() { metrics.APILatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }
	fail = func(e *xhttp.AppError) { metrics.APIErrors.WithLabelValues(endpoint, e.Code).Inc() }
	return done, fail
}

func (h *PredictionEchoHandler) fail(c echo.Context, endpoint string, err error, record func(*xhttp.AppError)) error {
	appErr := toAppError(err)
	record(appErr)
	if appErr.Status >= 500 {
		h.logger.Error(endpoint+" failed", xlogger.Error(err))
	}
	return xhttp.AppErrorResponse(c, appErr)
}

func (h *PredictionEchoHandler) DataFiles(c echo.Context) error {
	done, record := observe("data_files")
	defer done()
	files, err := h.data.ListFiles()
	if err != nil {
		return h.fail(c, "data_files", err, record)
	}
	return xhttp.ListResponse(c, files, int64(len(files)))
}

func (h *PredictionEchoHandler) LoadData(c echo.Context) error {
	done, record := observe("load_data")
	defer done()
	req := &models.LoadDataRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.data.LoadData(c.Request().Context(), req.FilePath)
	if err != nil {
		return h.fail(c, "load_data", err, record)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *PredictionEchoHandler) Predict(c echo.Context) error {
	done, record := observe("predict")
	defer done()
	req := &models.PredictRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.predict.Predict(c.Request().Context(), *req)
	if err != nil {
		return h.fail(c, "predict", err, record)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *PredictionEchoHandler) LoadModel(c echo.Context) error {
	done, record := observe("load_model")
	defer done()
	req := &models.LoadModelRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.model.Load(c.Request().Context(), *req)
	if err != nil {
		return h.fail(c, "load_model", xhttp.BadGatewayError(err.Error()).WithError(err), record)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *PredictionEchoHandler) AvailableModels(c echo.Context) error {
	done, _ := observe("available_models")
	defer done()
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"models":          h.model.Available(),
		"model_available": h.model.Status(c.Request().Context()).Available,
	})
}

func (h *PredictionEchoHandler) ModelStatus(c echo.Context) error {
	done, _ := observe("model_status")
	defer done()
	return xhttp.SuccessResponse(c, h.model.Status(c.Request().Context()))
}

func (h *PredictionEchoHandler) FetchData(c echo.Context) error {
	done, record := observe("fetch_data")
	defer done()
	req := &models.FetchDataRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.fetch.Fetch(c.Request().Context(), *req)
	if err != nil {
		return h.fail(c, "fetch_data", err, record)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *PredictionEchoHandler) Predictions(c echo.Context) error {
	done, record := observe("predictions")
	defer done()
	req := &models.ListRunsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	runs, err := h.data.RecentRuns(c.Request().Context(), req.Limit)
	if err != nil {
		return h.fail(c, "predictions", err, record)
	}
	return xhttp.ListResponse(c, runs, int64(len(runs)))
}
