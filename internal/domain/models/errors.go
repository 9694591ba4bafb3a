package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrInvalidWindow is returned for a non-positive lookback or horizon.
	ErrInvalidWindow = errors.New("lookback and horizon must be positive")
	// ErrModelNotLoaded is returned when a forecast is requested before load-model.
	ErrModelNotLoaded = errors.New("model not loaded, please load a model first")
)

// SchemaError reports malformed or incomplete input.
type SchemaError struct {
	Message string
	Columns []string
}

func (e *SchemaError) Error() string {
	if len(e.Columns) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Message, strings.Join(e.Columns, ", "))
}

// InsufficientDataError reports a window the series cannot serve.
type InsufficientDataError struct {
	Mode      WindowMode
	Anchor    *time.Time
	Required  int
	Available int
}

func (e *InsufficientDataError) Error() string {
	if e.Anchor != nil {
		return fmt.Sprintf("insufficient data from %s: need at least %d rows, only %d available",
			e.Anchor.UTC().Format("2006-01-02 15:04"), e.Required, e.Available)
	}
	return fmt.Sprintf("insufficient data: need at least %d rows, only %d available", e.Required, e.Available)
}

// CadenceError is returned when the sampling interval cannot be inferred.
type CadenceError struct {
	Rows   int
	Reason string
}

func (e *CadenceError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("cannot infer cadence: %s", e.Reason)
	}
	return fmt.Sprintf("cannot infer cadence from %d rows, need at least 2", e.Rows)
}

// ForecasterError wraps a failure of the external model.
type ForecasterError struct {
	Err error
}

func (e *ForecasterError) Error() string {
	return fmt.Sprintf("forecaster: %v", e.Err)
}

func (e *ForecasterError) Unwrap() error { return e.Err }

// PersistenceWarning records a sink that failed to store a record.
// It never fails the request that produced the record.
type PersistenceWarning struct {
	Store    string
	RecordID string
	Err      error
}

func (w *PersistenceWarning) Error() string {
	return fmt.Sprintf("persist record %s to %s: %v", w.RecordID, w.Store, w.Err)
}

func (w *PersistenceWarning) Unwrap() error { return w.Err }
