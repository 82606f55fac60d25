package gemini

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"loan-matchmaker/internal/models"
	"loan-matchmaker/internal/services/conversation"
	"loan-matchmaker/internal/utils"
)

const extractionSystem = "You are a precise information extraction service. Reply with JSON only."

type textGenerator interface {
	Generate(ctx context.Context, system, prompt string, jsonOutput bool) (string, error)
}

// Extractor reads loan parameters out of a borrower message.
type Extractor struct {
	gen    textGenerator
	logger *zap.Logger
}

// NewExtractor creates an Extractor backed by gen.
func NewExtractor(gen textGenerator, logger *zap.Logger) *Extractor {
	return &Extractor{gen: gen, logger: utils.OrNop(logger)}
}

type extractionReply struct {
	Parameters map[string]json.RawMessage `json:"parameters"`
	OffTopic   bool                       `json:"offTopic"`
}

// Extract implements conversation.Extractor.
func (e *Extractor) Extract(ctx context.Context, req conversation.ExtractionRequest) (*conversation.Extraction, error) {
	prompt, err := render("extract.tmpl", map[string]any{
		"Known":   knownParameters(req.Parameters),
		"Missing": parameterList(req.Missing),
		"Message": req.Message,
	})
	if err != nil {
		return nil, fmt.Errorf("render extraction prompt: %w", err)
	}

	raw, err := e.gen.Generate(ctx, extractionSystem, prompt, true)
	if err != nil {
		return nil, err
	}
	return e.parse(raw)
}

func (e *Extractor) parse(raw string) (*conversation.Extraction, error) {
	body, ok := extractJSON(raw)
	if !ok {
		return nil, fmt.Errorf("%w: no JSON object in extraction reply", models.ErrMalformedCollaboratorOutput)
	}

	var reply extractionReply
	if err := json.Unmarshal([]byte(body), &reply); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrMalformedCollaboratorOutput, err)
	}

	out := &conversation.Extraction{OffTopic: reply.OffTopic}
	for _, name := range models.AllParameters() {
		value, ok := reply.Parameters[string(name)]
		if !ok {
			continue
		}
		var v any
		if err := json.Unmarshal(value, &v); err != nil || v == nil {
			continue
		}
		out.Parameters = append(out.Parameters, models.ParameterValue{Name: name, Value: v})
	}

	for key := range reply.Parameters {
		if !models.ParameterName(key).IsKnown() {
			e.logger.Debug("Ignoring unknown extracted parameter", zap.String("name", key))
		}
	}
	return out, nil
}
