package conversation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loan-matchmaker/internal/models"
	"loan-matchmaker/internal/services/matcher"
	"loan-matchmaker/internal/services/params"
)

type extractFunc func(ctx context.Context, req ExtractionRequest) (*Extraction, error)

type fakeExtractor struct {
	fn    extractFunc
	calls atomic.Int32
}

func (f *fakeExtractor) Extract(ctx context.Context, req ExtractionRequest) (*Extraction, error) {
	f.calls.Add(1)
	return f.fn(ctx, req)
}

// scriptedExtractor returns the given values for each exact message text.
func scriptedExtractor(script map[string][]models.ParameterValue) *fakeExtractor {
	return &fakeExtractor{fn: func(_ context.Context, req ExtractionRequest) (*Extraction, error) {
		if req.Message == "tell me a joke" {
			return &Extraction{OffTopic: true}, nil
		}
		return &Extraction{Parameters: script[req.Message]}, nil
	}}
}

type fakeAdvisor struct {
	err      error
	calls    atomic.Int32
	mu       sync.Mutex
	requests []AdvisorRequest
}

func (f *fakeAdvisor) Respond(_ context.Context, req AdvisorRequest) (string, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	return fmt.Sprintf("reply for %s", req.Action), nil
}

func (f *fakeAdvisor) last() AdvisorRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func testLenders() []models.Lender {
	return []models.Lender{
		{
			ID: 1, Name: "HomeFund Bank", InterestRate: 8.9,
			MinLoanAmount: 100000, MaxLoanAmount: 5000000, MinIncome: 500000, MinCreditScore: 650,
			EmploymentTypes: []string{"salaried"}, LoanPurpose: "home",
		},
		{
			ID: 2, Name: "FastCash", InterestRate: 12.5,
			MinLoanAmount: 100000, MaxLoanAmount: 500000, MinIncome: 200000, MinCreditScore: 600,
			EmploymentTypes: []string{"any"}, LoanPurpose: "any",
		},
		{
			ID: 3, Name: "Prime Only", InterestRate: 7.5,
			MinLoanAmount: 100000, MaxLoanAmount: 5000000, MinIncome: 500000, MinCreditScore: 780,
			EmploymentTypes: []string{"salaried"}, LoanPurpose: "home",
		},
	}
}

type fixture struct {
	svc       *Service
	extractor *fakeExtractor
	advisor   *fakeAdvisor
	results   *matcher.MemoryResultStore
}

func newFixture(extractor *fakeExtractor) *fixture {
	advisor := &fakeAdvisor{}
	results := matcher.NewMemoryResultStore()
	svc := NewService(Deps{
		Sessions:  NewMemorySessionStore(),
		Tracker:   params.NewTracker(params.NewMemoryStore(), nil, nil),
		Engine:    matcher.NewEngine(testLenders()),
		Results:   results,
		Extractor: extractor,
		Advisor:   advisor,
	})
	return &fixture{svc: svc, extractor: extractor, advisor: advisor, results: results}
}

var conversationScript = map[string][]models.ParameterValue{
	"I need 3 lakh for a house": {
		{Name: models.ParamLoanAmount, Value: "3 lakh"},
		{Name: models.ParamLoanPurpose, Value: "house"},
	},
	"I earn 9,00,000 a year, salaried, score 720": {
		{Name: models.ParamAnnualIncome, Value: "9,00,000"},
		{Name: models.ParamEmploymentStatus, Value: "salaried"},
		{Name: models.ParamCreditScore, Value: 720},
	},
	"my score is 200 and I need 4 lakh": {
		{Name: models.ParamCreditScore, Value: 200},
		{Name: models.ParamLoanAmount, Value: 400000},
	},
	"actually make it 4 lakh": {
		{Name: models.ParamLoanAmount, Value: 400000},
	},
}

func TestHandleMessage_CollectsThenMatches(t *testing.T) {
	ctx := context.Background()
	f := newFixture(scriptedExtractor(conversationScript))

	sess, err := f.svc.StartSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.StateCollecting, sess.State)

	resp, err := f.svc.HandleMessage(ctx, sess.ID, "I need 3 lakh for a house")
	require.NoError(t, err)
	assert.Equal(t, models.ActionCollectParameter, resp.Action)
	assert.Equal(t, 40, resp.CompletionPercentage)
	assert.Equal(t, models.ParamAnnualIncome, resp.NextParameter)
	assert.Equal(t, []models.ParameterName{
		models.ParamAnnualIncome, models.ParamCreditScore, models.ParamEmploymentStatus,
	}, resp.MissingParameters)
	require.NotNil(t, resp.ParameterUpdate)
	assert.Equal(t, models.ParamLoanPurpose, resp.ParameterUpdate.Name)
	assert.Equal(t, models.PurposeHome, resp.ParameterUpdate.Value)
	assert.Equal(t, "reply for collect_parameter", resp.Message)
	assert.Empty(t, resp.Matches)

	resp, err = f.svc.HandleMessage(ctx, sess.ID, "I earn 9,00,000 a year, salaried, score 720")
	require.NoError(t, err)
	assert.Equal(t, models.ActionTriggerMatching, resp.Action)
	assert.Equal(t, models.StateMatched, resp.State)
	assert.Equal(t, 100, resp.CompletionPercentage)
	assert.Empty(t, resp.MissingParameters)
	require.Len(t, resp.Matches, 2, "Prime Only requires 780")
	assert.Equal(t, int64(1), resp.Matches[0].Lender.ID)

	stored, err := f.svc.Matches(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, resp.Matches, stored)

	assert.Equal(t, resp.Matches, f.advisor.last().Matches, "advisor sees the ranked list")
}

func TestHandleMessage_ValidationFailureIsWarning(t *testing.T) {
	ctx := context.Background()
	f := newFixture(scriptedExtractor(conversationScript))
	sess, err := f.svc.StartSession(ctx)
	require.NoError(t, err)

	resp, err := f.svc.HandleMessage(ctx, sess.ID, "my score is 200 and I need 4 lakh")
	require.NoError(t, err)

	assert.Contains(t, resp.Warning, "creditScore")
	assert.Equal(t, models.ActionCollectParameter, resp.Action)
	assert.Equal(t, 20, resp.CompletionPercentage, "loan amount still applied")
	require.NotNil(t, resp.ParameterUpdate)
	assert.Equal(t, models.ParamLoanAmount, resp.ParameterUpdate.Name)
	assert.Equal(t, resp.Warning, f.advisor.last().Warning)
}

func TestHandleMessage_QuestionAndRedirect(t *testing.T) {
	ctx := context.Background()
	f := newFixture(scriptedExtractor(conversationScript))
	sess, err := f.svc.StartSession(ctx)
	require.NoError(t, err)

	resp, err := f.svc.HandleMessage(ctx, sess.ID, "what is a credit score?")
	require.NoError(t, err)
	assert.Equal(t, models.ActionAnswerQuestion, resp.Action)
	assert.Equal(t, models.ParamLoanAmount, resp.NextParameter)
	assert.Nil(t, resp.ParameterUpdate)

	resp, err = f.svc.HandleMessage(ctx, sess.ID, "tell me a joke")
	require.NoError(t, err)
	assert.Equal(t, models.ActionRedirect, resp.Action)
	assert.Equal(t, "reply for redirect", resp.Message)
}

func TestEndedSessionRefusesWrites(t *testing.T) {
	ctx := context.Background()
	f := newFixture(scriptedExtractor(conversationScript))
	sess, err := f.svc.StartSession(ctx)
	require.NoError(t, err)

	_, err = f.svc.HandleMessage(ctx, sess.ID, "I need 3 lakh for a house")
	require.NoError(t, err)

	ended, err := f.svc.EndSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StateEnded, ended.State)
	require.NotNil(t, ended.EndedAt)

	_, err = f.svc.HandleMessage(ctx, sess.ID, "I earn 9,00,000 a year, salaried, score 720")
	assert.ErrorIs(t, err, models.ErrSessionEnded)

	_, err = f.svc.UpdateParameter(ctx, sess.ID, models.ParamCreditScore, 700)
	assert.ErrorIs(t, err, models.ErrSessionEnded)

	_, err = f.svc.RunMatching(ctx, sess.ID)
	assert.ErrorIs(t, err, models.ErrSessionEnded)

	_, err = f.svc.ExtractAndApply(ctx, sess.ID, "actually make it 4 lakh")
	assert.ErrorIs(t, err, models.ErrSessionEnded)

	again, err := f.svc.EndSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StateEnded, again.State)

	snap, err := f.svc.Session(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, 40, snap.Tracking.CompletionPercentage, "ended sessions stay readable")
}

func TestUnknownSession(t *testing.T) {
	f := newFixture(scriptedExtractor(conversationScript))

	_, err := f.svc.HandleMessage(context.Background(), "missing", "hi")
	assert.ErrorIs(t, err, models.ErrSessionNotFound)

	_, err = f.svc.Matches(context.Background(), "missing")
	assert.ErrorIs(t, err, models.ErrSessionNotFound)
}

func TestExtractorUnavailableIsRetriedOnceThenIgnored(t *testing.T) {
	ctx := context.Background()
	extractor := &fakeExtractor{fn: func(context.Context, ExtractionRequest) (*Extraction, error) {
		return nil, fmt.Errorf("%w: 503", models.ErrCollaboratorUnavailable)
	}}
	f := newFixture(extractor)
	sess, err := f.svc.StartSession(ctx)
	require.NoError(t, err)

	resp, err := f.svc.HandleMessage(ctx, sess.ID, "I need 3 lakh for a house")
	require.NoError(t, err)
	assert.Equal(t, int32(2), extractor.calls.Load())
	assert.Equal(t, models.ActionAnswerQuestion, resp.Action)
	assert.Equal(t, 0, resp.CompletionPercentage)
}

func TestExtractorMalformedIsNotRetried(t *testing.T) {
	ctx := context.Background()
	extractor := &fakeExtractor{fn: func(context.Context, ExtractionRequest) (*Extraction, error) {
		return nil, fmt.Errorf("%w: not json", models.ErrMalformedCollaboratorOutput)
	}}
	f := newFixture(extractor)
	sess, err := f.svc.StartSession(ctx)
	require.NoError(t, err)

	resp, err := f.svc.HandleMessage(ctx, sess.ID, "I need 3 lakh for a house")
	require.NoError(t, err)
	assert.Equal(t, int32(1), extractor.calls.Load())
	assert.Equal(t, models.ActionAnswerQuestion, resp.Action)
}

func TestExtractorTimeoutCountsAsUnavailable(t *testing.T) {
	ctx := context.Background()
	extractor := &fakeExtractor{fn: func(ctx context.Context, _ ExtractionRequest) (*Extraction, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	f := newFixture(extractor)
	f.svc.timeout = 10 * time.Millisecond

	sess, err := f.svc.StartSession(ctx)
	require.NoError(t, err)

	resp, err := f.svc.HandleMessage(ctx, sess.ID, "anything")
	require.NoError(t, err)
	assert.Equal(t, int32(2), extractor.calls.Load())
	assert.Equal(t, models.ActionAnswerQuestion, resp.Action)
}

func TestAdvisorUnavailableReturnsEnvelopeAndError(t *testing.T) {
	ctx := context.Background()
	f := newFixture(scriptedExtractor(conversationScript))
	f.advisor.err = fmt.Errorf("%w: quota", models.ErrCollaboratorUnavailable)

	sess, err := f.svc.StartSession(ctx)
	require.NoError(t, err)

	resp, err := f.svc.HandleMessage(ctx, sess.ID, "I need 3 lakh for a house")
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrCollaboratorUnavailable))
	assert.Equal(t, int32(2), f.advisor.calls.Load())

	require.NotNil(t, resp)
	assert.Empty(t, resp.Message)
	assert.Equal(t, models.ActionCollectParameter, resp.Action)
	assert.Equal(t, 40, resp.CompletionPercentage, "parameters persist even without a reply")
}

func TestUpdateParameterThenRunMatching(t *testing.T) {
	ctx := context.Background()
	f := newFixture(scriptedExtractor(conversationScript))
	sess, err := f.svc.StartSession(ctx)
	require.NoError(t, err)

	_, err = f.svc.RunMatching(ctx, sess.ID)
	assert.ErrorIs(t, err, models.ErrIncompleteProfile)

	values := []models.ParameterValue{
		{Name: models.ParamLoanAmount, Value: 300000},
		{Name: models.ParamLoanPurpose, Value: "home"},
		{Name: models.ParamAnnualIncome, Value: 900000},
		{Name: models.ParamCreditScore, Value: 720},
		{Name: models.ParamEmploymentStatus, Value: "salaried"},
	}
	for _, v := range values {
		_, err := f.svc.UpdateParameter(ctx, sess.ID, v.Name, v.Value)
		require.NoError(t, err)
	}

	snap, err := f.svc.Session(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StateReadyToMatch, snap.Session.State)

	_, err = f.svc.UpdateParameter(ctx, sess.ID, models.ParamCreditScore, 1000)
	assert.ErrorIs(t, err, models.ErrValidation)

	result, err := f.svc.RunMatching(ctx, sess.ID)
	require.NoError(t, err)
	assert.Len(t, result.Matches, 2)

	snap, err = f.svc.Session(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StateMatched, snap.Session.State)
}

func TestParameterChangeAfterMatchReplacesResults(t *testing.T) {
	ctx := context.Background()
	f := newFixture(scriptedExtractor(conversationScript))
	sess, err := f.svc.StartSession(ctx)
	require.NoError(t, err)

	_, err = f.svc.HandleMessage(ctx, sess.ID, "I need 3 lakh for a house")
	require.NoError(t, err)
	first, err := f.svc.HandleMessage(ctx, sess.ID, "I earn 9,00,000 a year, salaried, score 720")
	require.NoError(t, err)
	require.Equal(t, models.ActionTriggerMatching, first.Action)

	second, err := f.svc.HandleMessage(ctx, sess.ID, "actually make it 4 lakh")
	require.NoError(t, err)
	assert.Equal(t, models.ActionTriggerMatching, second.Action)
	assert.Equal(t, models.StateMatched, second.State)

	stored, err := f.svc.Matches(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, second.Matches, stored)
	assert.Len(t, stored, len(first.Matches))
}

func TestConcurrentSessionsAndSerializedWrites(t *testing.T) {
	ctx := context.Background()
	f := newFixture(scriptedExtractor(conversationScript))

	var ids []string
	for i := 0; i < 4; i++ {
		sess, err := f.svc.StartSession(ctx)
		require.NoError(t, err)
		ids = append(ids, sess.ID)
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		for _, msg := range []string{"I need 3 lakh for a house", "I earn 9,00,000 a year, salaried, score 720"} {
			wg.Add(1)
			go func(id, msg string) {
				defer wg.Done()
				_, _ = f.svc.HandleMessage(ctx, id, msg)
			}(id, msg)
		}
	}
	wg.Wait()

	for _, id := range ids {
		snap, err := f.svc.Session(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, 100, snap.Tracking.CompletionPercentage)
		assert.Equal(t, models.StateMatched, snap.Session.State)

		stored, err := f.svc.Matches(ctx, id)
		require.NoError(t, err)
		assert.Len(t, stored, 2)
	}
	assert.Equal(t, 0, f.svc.locks.size())
}

type failingLocker struct{ err error }

func (l failingLocker) Lock(context.Context, string) (func(), error) { return nil, l.err }

func TestSharedLockerSerializesReplicas(t *testing.T) {
	ctx := context.Background()
	sessions := NewMemorySessionStore()
	paramStore := params.NewMemoryStore()
	results := matcher.NewMemoryResultStore()
	shared := newSessionLocks()

	replica := func() *Service {
		return NewService(Deps{
			Sessions:  sessions,
			Tracker:   params.NewTracker(paramStore, nil, nil),
			Engine:    matcher.NewEngine(testLenders()),
			Results:   results,
			Locker:    shared,
			Extractor: scriptedExtractor(conversationScript),
			Advisor:   &fakeAdvisor{},
		})
	}
	a, b := replica(), replica()

	sess, err := a.StartSession(ctx)
	require.NoError(t, err)

	updates := []models.ParameterValue{
		{Name: models.ParamLoanAmount, Value: 300000},
		{Name: models.ParamLoanPurpose, Value: "home"},
		{Name: models.ParamAnnualIncome, Value: 900000},
		{Name: models.ParamCreditScore, Value: 720},
		{Name: models.ParamEmploymentStatus, Value: "salaried"},
	}
	var wg sync.WaitGroup
	for i, u := range updates {
		svc := a
		if i%2 == 1 {
			svc = b
		}
		wg.Add(1)
		go func(svc *Service, u models.ParameterValue) {
			defer wg.Done()
			_, err := svc.UpdateParameter(ctx, sess.ID, u.Name, u.Value)
			assert.NoError(t, err)
		}(svc, u)
	}
	wg.Wait()

	snap, err := b.Session(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, 100, snap.Tracking.CompletionPercentage)
	assert.Equal(t, models.StateReadyToMatch, snap.Session.State)
	assert.Equal(t, 0, shared.size())
}

func TestSharedLockerFailureReleasesLocalLock(t *testing.T) {
	ctx := context.Background()
	svc := NewService(Deps{
		Sessions:  NewMemorySessionStore(),
		Tracker:   params.NewTracker(params.NewMemoryStore(), nil, nil),
		Engine:    matcher.NewEngine(testLenders()),
		Results:   matcher.NewMemoryResultStore(),
		Locker:    failingLocker{err: errors.New("too many connections")},
		Extractor: scriptedExtractor(conversationScript),
		Advisor:   &fakeAdvisor{},
	})

	sess, err := svc.StartSession(ctx)
	require.NoError(t, err)

	_, err = svc.UpdateParameter(ctx, sess.ID, models.ParamCreditScore, 720)
	require.ErrorContains(t, err, "too many connections")
	_, err = svc.HandleMessage(ctx, sess.ID, "I need 3 lakh for a house")
	require.Error(t, err)
	assert.Equal(t, 0, svc.locks.size())
}
