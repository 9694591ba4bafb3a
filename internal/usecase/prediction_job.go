package usecase

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"

	"KronosAlign/internal/domain/models"
	pkgkafka "KronosAlign/pkg/kafka"
	applogger "KronosAlign/pkg/logger"
)

// PredictionJobHandler runs prediction requests consumed from Kafka. The
// payload is the body of the predict endpoint.
type PredictionJobHandler struct {
	topic    string
	uc       *PredictionUseCase
	validate *validator.Validate
	l        *applogger.Logger
}

var _ pkgkafka.MessageHandler = (*PredictionJobHandler)(nil)

func NewPredictionJobHandler(topic string, uc *PredictionUseCase, l *applogger.Logger) *PredictionJobHandler {
	return &PredictionJobHandler{topic: topic, uc: uc, validate: validator.New(), l: l}
}

func (h *PredictionJobHandler) Topic() string { return h.topic }

func (h *PredictionJobHandler) Handle(ctx context.Context, b []byte) error {
	var req models.PredictRequest
	if err := defaults.Set(&req); err != nil {
		return fmt.Errorf("set defaults: %w", err)
	}
	if err := json.Unmarshal(b, &req); err != nil {
		h.uc.metrics.RecordError("job_unmarshal")
		return fmt.Errorf("decode prediction job: %w", err)
	}
	if err := h.validate.Struct(&req); err != nil {
		h.uc.metrics.RecordError("job_validate")
		return fmt.Errorf("invalid prediction job: %w", err)
	}

	res, err := h.uc.Predict(ctx, req)
	if err != nil {
		return err
	}
	fields := []applogger.Field{
		applogger.String("record_id", res.RecordID),
		applogger.String("file", req.FilePath),
		applogger.String("trace_id", pkgkafka.TraceIDFromContext(ctx)),
	}
	if len(res.Warnings) > 0 {
		fields = append(fields, applogger.Strings("warnings", res.Warnings))
	}
	h.l.Info("prediction job done", fields...)
	return nil
}
