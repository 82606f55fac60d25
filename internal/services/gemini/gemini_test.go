package gemini

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"loan-matchmaker/internal/models"
	"loan-matchmaker/internal/services/conversation"
)

type fakeModels struct {
	resp    *genai.GenerateContentResponse
	err     error
	model   string
	prompt  string
	config  *genai.GenerateContentConfig
	callCnt int
}

func (f *fakeModels) GenerateContent(_ context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.callCnt++
	f.model = model
	f.config = config
	if len(contents) > 0 && len(contents[0].Parts) > 0 {
		f.prompt = contents[0].Parts[0].Text
	}
	return f.resp, f.err
}

func textResponse(texts ...string) *genai.GenerateContentResponse {
	parts := make([]*genai.Part, 0, len(texts))
	for _, t := range texts {
		parts = append(parts, &genai.Part{Text: t})
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: parts}}},
	}
}

func newTestGenerator(f *fakeModels) *Generator {
	return &Generator{models: f, modelName: "gemini-test"}
}

func TestNewGeneratorRequiresKey(t *testing.T) {
	_, err := NewGenerator(context.Background(), "  ", "")
	require.Error(t, err)
}

func TestGenerate_JoinsPartsAndSetsConfig(t *testing.T) {
	f := &fakeModels{resp: textResponse(" first ", "", "second")}
	g := newTestGenerator(f)

	out, err := g.Generate(context.Background(), "system text", "hello", true)
	require.NoError(t, err)

	assert.Equal(t, "first\nsecond", out)
	assert.Equal(t, "gemini-test", f.model)
	assert.Equal(t, "hello", f.prompt)
	require.NotNil(t, f.config.SystemInstruction)
	assert.Equal(t, "system text", f.config.SystemInstruction.Parts[0].Text)
	assert.Equal(t, "application/json", f.config.ResponseMIMEType)
}

func TestGenerate_ErrorKinds(t *testing.T) {
	tests := []struct {
		name string
		resp *genai.GenerateContentResponse
		err  error
		want error
	}{
		{name: "rate limited", err: genai.APIError{Code: http.StatusTooManyRequests, Status: "RESOURCE_EXHAUSTED"}, want: models.ErrCollaboratorUnavailable},
		{name: "server error", err: genai.APIError{Code: http.StatusServiceUnavailable, Status: "UNAVAILABLE"}, want: models.ErrCollaboratorUnavailable},
		{name: "deadline", err: context.DeadlineExceeded, want: models.ErrCollaboratorUnavailable},
		{name: "connection refused", err: &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED}, want: models.ErrCollaboratorUnavailable},
		{name: "dns failure", err: &url.Error{Op: "Post", URL: "https://generativelanguage.googleapis.com", Err: &net.DNSError{Err: "no such host", IsNotFound: true}}, want: models.ErrCollaboratorUnavailable},
		{name: "truncated body", err: io.ErrUnexpectedEOF, want: models.ErrCollaboratorUnavailable},
		{name: "empty reply", resp: textResponse("   "), want: models.ErrMalformedCollaboratorOutput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newTestGenerator(&fakeModels{resp: tt.resp, err: tt.err})
			_, err := g.Generate(context.Background(), "", "prompt", false)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	g := newTestGenerator(&fakeModels{err: genai.APIError{Code: http.StatusBadRequest, Status: "INVALID_ARGUMENT"}})
	_, err := g.Generate(context.Background(), "", "prompt", false)
	require.Error(t, err)
	assert.False(t, errors.Is(err, models.ErrCollaboratorUnavailable), "client errors are not retryable")

	g = newTestGenerator(&fakeModels{err: context.Canceled})
	_, err = g.Generate(context.Background(), "", "prompt", false)
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, errors.Is(err, models.ErrCollaboratorUnavailable), "cancellation is not retried")
}

func TestExtractor_ParsesFencedJSON(t *testing.T) {
	f := &fakeModels{resp: textResponse("```json\n" +
		`{"parameters": {"loanPurpose": "home", "loanAmount": 500000, "creditScore": null, "nickname": "x"}, "offTopic": false}` +
		"\n```")}
	ex := NewExtractor(newTestGenerator(f), nil)

	got, err := ex.Extract(context.Background(), conversation.ExtractionRequest{
		Message: "I need 5 lakh for a flat",
		Missing: models.MandatoryParameters(),
	})
	require.NoError(t, err)

	assert.False(t, got.OffTopic)
	assert.Equal(t, []models.ParameterValue{
		{Name: models.ParamLoanAmount, Value: float64(500000)},
		{Name: models.ParamLoanPurpose, Value: "home"},
	}, got.Parameters)

	assert.Contains(t, f.prompt, "I need 5 lakh for a flat")
	assert.Contains(t, f.prompt, "Already known: nothing yet")
	assert.Contains(t, f.prompt, "loanAmount, loanPurpose, annualIncome")
}

func TestExtractor_OffTopicAndMalformed(t *testing.T) {
	ex := NewExtractor(newTestGenerator(&fakeModels{resp: textResponse(`{"parameters": {}, "offTopic": true}`)}), nil)
	got, err := ex.Extract(context.Background(), conversation.ExtractionRequest{Message: "weather?"})
	require.NoError(t, err)
	assert.True(t, got.OffTopic)
	assert.Empty(t, got.Parameters)

	ex = NewExtractor(newTestGenerator(&fakeModels{resp: textResponse("I could not find anything")}), nil)
	_, err = ex.Extract(context.Background(), conversation.ExtractionRequest{Message: "hi"})
	assert.ErrorIs(t, err, models.ErrMalformedCollaboratorOutput)

	ex = NewExtractor(newTestGenerator(&fakeModels{resp: textResponse(`{"parameters": [1, 2]}`)}), nil)
	_, err = ex.Extract(context.Background(), conversation.ExtractionRequest{Message: "hi"})
	assert.ErrorIs(t, err, models.ErrMalformedCollaboratorOutput)
}

func TestAdvisor_PromptCarriesMatches(t *testing.T) {
	f := &fakeModels{resp: textResponse("Here are your best options.")}
	adv := NewAdvisor(newTestGenerator(f))

	amount := 300000.0
	reply, err := adv.Respond(context.Background(), conversation.AdvisorRequest{
		Message:    "show me lenders",
		Action:     models.ActionTriggerMatching,
		State:      models.StateMatched,
		Parameters: models.LoanParameters{LoanAmount: &amount},
		Tracking:   models.ParameterTracking{CompletionPercentage: 100},
		Matches: []models.LenderMatch{{
			Lender:     models.Lender{Name: "HomeFund Bank", InterestRate: 8.9},
			FinalScore: 93.27,
			Reasons:    []string{"Specializes in home loans", "Good credit fit"},
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Here are your best options.", reply)

	assert.Contains(t, f.prompt, "Action: trigger_matching")
	assert.Contains(t, f.prompt, `"loanAmount":300000`)
	assert.Contains(t, f.prompt, "1. HomeFund Bank at 8.9% (score 93): Specializes in home loans; Good credit fit")
	assert.Contains(t, f.prompt, "Summarise the top matches")
	assert.NotContains(t, f.prompt, "Still missing")
	assert.Empty(t, f.config.ResponseMIMEType)
}

func TestAdvisor_WarningAndNextParameter(t *testing.T) {
	f := &fakeModels{resp: textResponse("What is your annual income?")}
	adv := NewAdvisor(newTestGenerator(f))

	_, err := adv.Respond(context.Background(), conversation.AdvisorRequest{
		Message:       "score is 200",
		Action:        models.ActionCollectParameter,
		State:         models.StateCollecting,
		Missing:       []models.ParameterName{models.ParamAnnualIncome, models.ParamCreditScore},
		NextParameter: models.ParamAnnualIncome,
		Warning:       "creditScore: must be between 300 and 850",
	})
	require.NoError(t, err)

	assert.Contains(t, f.prompt, "Still missing: annualIncome, creditScore")
	assert.Contains(t, f.prompt, "Ask next for: annualIncome")
	assert.Contains(t, f.prompt, "rejected: creditScore: must be between 300 and 850")
	assert.Contains(t, f.prompt, "ask one question for the next missing detail")
}

func TestExtractJSON(t *testing.T) {
	body, ok := extractJSON("Sure! {\"a\": {\"b\": 1}} hope that helps")
	require.True(t, ok)
	assert.Equal(t, `{"a": {"b": 1}}`, body)

	_, ok = extractJSON("no braces")
	assert.False(t, ok)
}
