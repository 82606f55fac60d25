package params

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"loan-matchmaker/internal/metrics"
	"loan-matchmaker/internal/models"
	"loan-matchmaker/internal/utils"
)

// Tracker validates parameter writes and keeps the tracking record current.
// Callers serialize operations per session.
type Tracker struct {
	store   Store
	logger  *zap.Logger
	metrics *metrics.Recorder
	now     func() time.Time
}

// NewTracker creates a tracker over store.
func NewTracker(store Store, logger *zap.Logger, recorder *metrics.Recorder) *Tracker {
	return &Tracker{
		store:   store,
		logger:  utils.OrNop(logger),
		metrics: recorder,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Update validates value and writes it for the session. A rejected value
// leaves the stored record untouched and returns a *models.ValidationError.
func (t *Tracker) Update(ctx context.Context, sessionID string, name models.ParameterName, value any) (*models.TrackingResult, error) {
	validated, err := Validate(name, value)
	if err != nil {
		t.metrics.ParameterUpdate(string(name), false)
		t.logger.Debug("Parameter rejected",
			zap.String("session_id", sessionID),
			zap.String("parameter", string(name)),
			zap.Error(err))
		return nil, err
	}

	rec, err := t.Snapshot(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if err := rec.Parameters.Set(name, validated); err != nil {
		return nil, err
	}
	rec.Tracking = models.ComputeTracking(&rec.Parameters)
	rec.UpdatedAt = t.now()

	if err := t.store.Put(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to save parameters: %w", err)
	}

	t.metrics.ParameterUpdate(string(name), true)
	t.logger.Info("Parameter updated",
		zap.String("session_id", sessionID),
		zap.String("parameter", string(name)),
		zap.Int("completion", rec.Tracking.CompletionPercentage))

	return &models.TrackingResult{
		SessionID:         sessionID,
		Updated:           models.ParameterValue{Name: name, Value: validated},
		Parameters:        rec.Parameters,
		Tracking:          rec.Tracking,
		MissingParameters: models.MissingParameters(&rec.Parameters),
		IsComplete:        rec.Tracking.IsComplete(),
	}, nil
}

// Snapshot returns the session's parameter record, or an empty one when nothing
// has been collected yet.
func (t *Tracker) Snapshot(ctx context.Context, sessionID string) (*models.ParameterRecord, error) {
	rec, err := t.store.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load parameters: %w", err)
	}
	if rec == nil {
		rec = &models.ParameterRecord{SessionID: sessionID}
	}
	rec.Tracking = models.ComputeTracking(&rec.Parameters)
	return rec, nil
}

// MissingParameters returns the uncollected mandatory parameters in asking order.
func (t *Tracker) MissingParameters(ctx context.Context, sessionID string) ([]models.ParameterName, error) {
	rec, err := t.Snapshot(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return models.MissingParameters(&rec.Parameters), nil
}

// IsComplete reports whether all mandatory parameters are collected.
func (t *Tracker) IsComplete(ctx context.Context, sessionID string) (bool, error) {
	rec, err := t.Snapshot(ctx, sessionID)
	if err != nil {
		return false, err
	}
	return rec.Tracking.IsComplete(), nil
}

// Profile returns the complete matching profile for the session.
func (t *Tracker) Profile(ctx context.Context, sessionID string) (models.Profile, error) {
	rec, err := t.Snapshot(ctx, sessionID)
	if err != nil {
		return models.Profile{}, err
	}
	return rec.Parameters.Profile()
}
