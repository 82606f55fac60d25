// Package conversation drives the advisor conversation: it applies extracted
// parameters, moves the session through its states and triggers matching.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"loan-matchmaker/internal/metrics"
	"loan-matchmaker/internal/models"
	"loan-matchmaker/internal/services/matcher"
	"loan-matchmaker/internal/services/params"
	"loan-matchmaker/internal/utils"
)

// DefaultCollaboratorTimeout bounds a single extractor or advisor attempt.
const DefaultCollaboratorTimeout = 15 * time.Second

// Deps are the collaborators a Service is built from.
type Deps struct {
	Sessions            SessionStore
	Tracker             *params.Tracker
	Engine              *matcher.Engine
	Results             matcher.ResultStore
	Locker              Locker
	Extractor           Extractor
	Advisor             Advisor
	CollaboratorTimeout time.Duration
	Logger              *zap.Logger
	Metrics             *metrics.Recorder
}

// Service is the conversation state machine. All writes for one session are
// serialized; different sessions run in parallel. Writes take the in-process
// lock first and then Deps.Locker, when set, so replicas sharing a database
// also serialize.
type Service struct {
	sessions  SessionStore
	tracker   *params.Tracker
	engine    *matcher.Engine
	results   matcher.ResultStore
	extractor Extractor
	advisor   Advisor
	timeout   time.Duration
	locks     *sessionLocks
	shared    Locker
	logger    *zap.Logger
	metrics   *metrics.Recorder
	now       func() time.Time
}

// NewService wires a Service from its dependencies.
func NewService(d Deps) *Service {
	timeout := d.CollaboratorTimeout
	if timeout <= 0 {
		timeout = DefaultCollaboratorTimeout
	}
	return &Service{
		sessions:  d.Sessions,
		tracker:   d.Tracker,
		engine:    d.Engine,
		results:   d.Results,
		extractor: d.Extractor,
		advisor:   d.Advisor,
		timeout:   timeout,
		locks:     newSessionLocks(),
		shared:    d.Locker,
		logger:    utils.OrNop(d.Logger),
		metrics:   d.Metrics,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// ApplyResult reports what ExtractAndApply did with a message.
type ApplyResult struct {
	Extracted int
	Applied   []models.ParameterValue
	Warning   string
	OffTopic  bool
	Tracking  models.ParameterTracking
	Missing   []models.ParameterName
}

// StartSession creates a new session in the collecting state.
func (s *Service) StartSession(ctx context.Context) (*models.Session, error) {
	now := s.now()
	sess := &models.Session{
		ID:        uuid.NewString(),
		State:     models.StateCollecting,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	s.logger.Info("Session started", zap.String("session_id", sess.ID))
	return sess, nil
}

// Session returns the session with its parameters and tracking.
func (s *Service) Session(ctx context.Context, sessionID string) (*models.SessionSnapshot, error) {
	sess, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	rec, err := s.tracker.Snapshot(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return &models.SessionSnapshot{
		Session:           *sess,
		Parameters:        rec.Parameters,
		Tracking:          rec.Tracking,
		MissingParameters: models.MissingParameters(&rec.Parameters),
	}, nil
}

// EndSession moves the session to the terminal state. Ending an ended session
// is a no-op.
func (s *Service) EndSession(ctx context.Context, sessionID string) (*models.Session, error) {
	unlock, err := s.lock(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	sess, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.IsEnded() {
		return sess, nil
	}

	now := s.now()
	sess.EndedAt = &now
	if err := s.transition(ctx, sess, models.StateEnded); err != nil {
		return nil, err
	}
	return sess, nil
}

// UpdateParameter writes one parameter directly, with the same validation
// extracted values get.
func (s *Service) UpdateParameter(ctx context.Context, sessionID string, name models.ParameterName, value any) (*models.TrackingResult, error) {
	unlock, err := s.lock(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	sess, err := s.loadActive(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	res, err := s.tracker.Update(ctx, sessionID, name, value)
	if err != nil {
		return nil, err
	}

	if res.IsComplete && sess.State == models.StateCollecting {
		if err := s.transition(ctx, sess, models.StateReadyToMatch); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// ExtractAndApply runs extraction on rawText and applies every returned value.
func (s *Service) ExtractAndApply(ctx context.Context, sessionID, rawText string) (*ApplyResult, error) {
	unlock, err := s.lock(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	sess, err := s.loadActive(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	res, err := s.extractAndApply(ctx, sess.ID, rawText)
	if err != nil {
		return nil, err
	}
	if res.Tracking.IsComplete() && sess.State == models.StateCollecting {
		if err := s.transition(ctx, sess, models.StateReadyToMatch); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// RunMatching ranks the catalog for the session's complete profile and stores
// the result, replacing any earlier one.
func (s *Service) RunMatching(ctx context.Context, sessionID string) (*matcher.Result, error) {
	unlock, err := s.lock(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	sess, err := s.loadActive(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return s.runMatching(ctx, sess)
}

// Matches returns the last stored match list for the session.
func (s *Service) Matches(ctx context.Context, sessionID string) ([]models.LenderMatch, error) {
	if _, err := s.load(ctx, sessionID); err != nil {
		return nil, err
	}
	matches, err := s.results.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load matches: %w", err)
	}
	return matches, nil
}

// HandleMessage processes one user message and returns the response envelope.
// When the advisor cannot be reached the envelope is still returned, together
// with an error wrapping models.ErrCollaboratorUnavailable.
func (s *Service) HandleMessage(ctx context.Context, sessionID, text string) (*models.ChatResponse, error) {
	unlock, err := s.lock(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	sess, err := s.loadActive(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	applied, err := s.extractAndApply(ctx, sess.ID, text)
	if err != nil {
		return nil, err
	}

	resp := &models.ChatResponse{
		SessionID:            sess.ID,
		Warning:              applied.Warning,
		CompletionPercentage: applied.Tracking.CompletionPercentage,
		MissingParameters:    applied.Missing,
	}
	if n := len(applied.Applied); n > 0 {
		last := applied.Applied[n-1]
		resp.ParameterUpdate = &last
	}
	if len(applied.Missing) > 0 {
		resp.NextParameter = applied.Missing[0]
	}

	switch {
	case len(applied.Applied) > 0 && applied.Tracking.IsComplete():
		if sess.State == models.StateCollecting {
			if err := s.transition(ctx, sess, models.StateReadyToMatch); err != nil {
				return nil, err
			}
		}
		result, err := s.runMatching(ctx, sess)
		if err != nil {
			return nil, err
		}
		resp.Action = models.ActionTriggerMatching
		resp.Matches = result.Matches

	case applied.Extracted > 0 && sess.State == models.StateCollecting:
		resp.Action = models.ActionCollectParameter

	case applied.OffTopic:
		resp.Action = models.ActionRedirect

	default:
		resp.Action = models.ActionAnswerQuestion
	}
	resp.State = sess.State

	rec, err := s.tracker.Snapshot(ctx, sess.ID)
	if err != nil {
		return nil, err
	}

	reply, err := s.respond(ctx, AdvisorRequest{
		Message:       text,
		Action:        resp.Action,
		State:         resp.State,
		Parameters:    rec.Parameters,
		Tracking:      rec.Tracking,
		Missing:       resp.MissingParameters,
		NextParameter: resp.NextParameter,
		Warning:       resp.Warning,
		Matches:       resp.Matches,
	})
	if err != nil {
		s.logger.Warn("Advisor unavailable",
			zap.String("session_id", sess.ID),
			zap.String("action", string(resp.Action)),
			zap.Error(err))
		return resp, fmt.Errorf("advisor: %w", err)
	}
	resp.Message = reply

	s.logger.Info("Message handled",
		zap.String("session_id", sess.ID),
		zap.String("action", string(resp.Action)),
		zap.String("state", string(resp.State)),
		zap.Int("completion", resp.CompletionPercentage))

	return resp, nil
}

// extractAndApply assumes the caller holds the session lock.
func (s *Service) extractAndApply(ctx context.Context, sessionID, text string) (*ApplyResult, error) {
	rec, err := s.tracker.Snapshot(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	result := &ApplyResult{}

	var extraction *Extraction
	err = s.callCollaborator(ctx, "extractor", func(cctx context.Context) error {
		var callErr error
		extraction, callErr = s.extractor.Extract(cctx, ExtractionRequest{
			Message:    text,
			Parameters: rec.Parameters,
			Missing:    models.MissingParameters(&rec.Parameters),
		})
		return callErr
	})
	if err != nil {
		// Unreadable or unreachable extraction counts as nothing extracted.
		s.logger.Warn("Extraction failed, continuing without parameters",
			zap.String("session_id", sessionID),
			zap.Error(err))
		extraction = &Extraction{}
	}
	if extraction == nil {
		extraction = &Extraction{}
	}
	result.OffTopic = extraction.OffTopic
	result.Extracted = len(extraction.Parameters)

	for _, pv := range extraction.Parameters {
		res, err := s.tracker.Update(ctx, sessionID, pv.Name, pv.Value)
		if err != nil {
			if !errors.Is(err, models.ErrValidation) {
				return nil, err
			}
			if result.Warning == "" {
				result.Warning = err.Error()
			}
			continue
		}
		result.Applied = append(result.Applied, res.Updated)
	}

	rec, err = s.tracker.Snapshot(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	result.Tracking = rec.Tracking
	result.Missing = models.MissingParameters(&rec.Parameters)
	return result, nil
}

// runMatching assumes the caller holds the session lock.
func (s *Service) runMatching(ctx context.Context, sess *models.Session) (*matcher.Result, error) {
	profile, err := s.tracker.Profile(ctx, sess.ID)
	if err != nil {
		return nil, err
	}

	result := s.engine.Match(ctx, profile)
	if err := s.results.Save(ctx, sess.ID, result.Matches); err != nil {
		return nil, fmt.Errorf("failed to save matches: %w", err)
	}

	if sess.State != models.StateMatched {
		if err := s.transition(ctx, sess, models.StateMatched); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (s *Service) respond(ctx context.Context, req AdvisorRequest) (string, error) {
	var reply string
	err := s.callCollaborator(ctx, "advisor", func(cctx context.Context) error {
		var callErr error
		reply, callErr = s.advisor.Respond(cctx, req)
		if callErr == nil && reply == "" {
			callErr = fmt.Errorf("%w: empty reply", models.ErrMalformedCollaboratorOutput)
		}
		return callErr
	})
	return reply, err
}

// callCollaborator runs fn with the per-attempt timeout and retries once when
// the collaborator was unavailable. Timeouts count as unavailability.
func (s *Service) callCollaborator(ctx context.Context, name string, fn func(context.Context) error) error {
	var err error
	for attempt := 1; attempt <= 2; attempt++ {
		cctx, cancel := context.WithTimeout(ctx, s.timeout)
		err = fn(cctx)
		cancel()

		if err == nil {
			s.metrics.CollaboratorCall(name, "ok")
			return nil
		}
		if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, models.ErrCollaboratorUnavailable) {
			err = fmt.Errorf("%w: %w", models.ErrCollaboratorUnavailable, err)
		}
		if !errors.Is(err, models.ErrCollaboratorUnavailable) || ctx.Err() != nil || attempt == 2 {
			break
		}
		s.metrics.CollaboratorCall(name, "retry")
	}
	s.metrics.CollaboratorCall(name, "error")
	return err
}

func (s *Service) lock(ctx context.Context, sessionID string) (func(), error) {
	unlock := s.locks.lock(sessionID)
	if s.shared == nil {
		return unlock, nil
	}
	release, err := s.shared.Lock(ctx, sessionID)
	if err != nil {
		unlock()
		return nil, fmt.Errorf("failed to lock session: %w", err)
	}
	return func() {
		release()
		unlock()
	}, nil
}

func (s *Service) load(ctx context.Context, sessionID string) (*models.Session, error) {
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if sess == nil {
		return nil, fmt.Errorf("session %s: %w", sessionID, models.ErrSessionNotFound)
	}
	return sess, nil
}

func (s *Service) loadActive(ctx context.Context, sessionID string) (*models.Session, error) {
	sess, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.IsEnded() {
		return nil, fmt.Errorf("session %s: %w", sessionID, models.ErrSessionEnded)
	}
	return sess, nil
}

func (s *Service) transition(ctx context.Context, sess *models.Session, to models.SessionState) error {
	from := sess.State
	sess.State = to
	sess.UpdatedAt = s.now()
	if err := s.sessions.Update(ctx, sess); err != nil {
		sess.State = from
		return fmt.Errorf("failed to update session state: %w", err)
	}

	s.metrics.StateTransition(string(from), string(to))
	s.logger.Debug("Session state changed",
		zap.String("session_id", sess.ID),
		zap.String("from", string(from)),
		zap.String("to", string(to)))
	return nil
}
