package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loan-matchmaker/internal/config"
	"loan-matchmaker/internal/models"
)

func baseConfig() *config.Config {
	return &config.Config{
		Port:                8080,
		RateLimitRPS:        5,
		RateLimitBurst:      10,
		AWSRegion:           "ap-south-1",
		MatchCacheTTL:       time.Hour,
		CollaboratorTimeout: time.Second,
		MLTimeout:           time.Second,
	}
}

func TestNew_InMemoryDefaults(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, baseConfig(), nil)
	require.NoError(t, err)
	defer a.Close()

	assert.Len(t, a.Engine.Lenders(), 15)
	assert.Nil(t, a.Mailer)

	h := a.Health(ctx)
	assert.Equal(t, "healthy", h.Status)
	assert.Equal(t, 15, h.Lenders)
	assert.Equal(t, map[string]string{"database": "not configured", "redis": "not configured"}, h.Backends)

	_, err = a.Stats(ctx)
	assert.ErrorIs(t, err, ErrNoDatabase)

	sess, err := a.Conversation.StartSession(ctx)
	require.NoError(t, err)

	resp, err := a.Conversation.HandleMessage(ctx, sess.ID, "I need 5 lakh")
	require.ErrorIs(t, err, models.ErrCollaboratorUnavailable)
	require.NotNil(t, resp, "the envelope survives a missing language model")
	assert.Equal(t, models.ActionAnswerQuestion, resp.Action)
	assert.Equal(t, 0, resp.CompletionPercentage)

	updates := []models.ParameterValue{
		{Name: models.ParamLoanAmount, Value: "5 lakh"},
		{Name: models.ParamAnnualIncome, Value: 900000},
		{Name: models.ParamCreditScore, Value: 720},
		{Name: models.ParamEmploymentStatus, Value: "salaried"},
		{Name: models.ParamLoanPurpose, Value: "personal"},
	}
	for _, u := range updates {
		_, err := a.Conversation.UpdateParameter(ctx, sess.ID, u.Name, u.Value)
		require.NoError(t, err, u.Name)
	}

	res, err := a.Conversation.RunMatching(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ScoringRuleBased, res.Method)
	assert.NotEmpty(t, res.Matches)
}

func TestNew_CatalogAndModelFromFiles(t *testing.T) {
	dir := t.TempDir()
	catalogPath := filepath.Join(dir, "lenders.yaml")
	require.NoError(t, os.WriteFile(catalogPath, []byte(`
- id: 7
  name: Solo Lender
  interest_rate: 9.5
  min_loan_amount: 100000
  max_loan_amount: 2000000
  min_income: 300000
  min_credit_score: 650
  employment_types: [any]
  loan_purpose: any
`), 0o600))

	modelPath := filepath.Join(dir, "model.json")
	require.NoError(t, os.WriteFile(modelPath, []byte(`{
  "version": 2,
  "scaler": {"mean": [0,0,0,0,0,0,0,0,0,0], "scale": [1,1,1,1,1,1,1,1,1,1]},
  "layers": [{"weights": [[0,0,1,0,0,0,0,0,0,0]], "bias": [0], "activation": "sigmoid"}]
}`), 0o600))

	cfg := baseConfig()
	cfg.LenderCatalogPath = catalogPath
	cfg.MLEnabled = true
	cfg.MLModelPath = modelPath

	ctx := context.Background()
	a, err := New(ctx, cfg, nil)
	require.NoError(t, err)
	defer a.Close()

	lenders := a.Engine.Lenders()
	require.Len(t, lenders, 1)
	assert.Equal(t, "Solo Lender", lenders[0].Name)

	profile := models.Profile{
		LoanAmount:       500000,
		AnnualIncome:     600000,
		CreditScore:      700,
		EmploymentStatus: models.EmploymentSalaried,
		LoanPurpose:      models.PurposePersonal,
	}
	res := a.Engine.Match(ctx, profile)
	assert.Equal(t, models.ScoringML, res.Method)
}

func TestNew_Errors(t *testing.T) {
	t.Run("missing catalog", func(t *testing.T) {
		cfg := baseConfig()
		cfg.LenderCatalogPath = filepath.Join(t.TempDir(), "missing.yaml")
		_, err := New(context.Background(), cfg, nil)
		assert.Error(t, err)
	})

	t.Run("broken model", func(t *testing.T) {
		cfg := baseConfig()
		cfg.MLEnabled = true
		cfg.MLModelPath = filepath.Join(t.TempDir(), "missing.json")
		_, err := New(context.Background(), cfg, nil)
		assert.ErrorContains(t, err, "scoring model")
	})
}
