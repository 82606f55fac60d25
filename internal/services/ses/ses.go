// Package ses sends match summary emails through AWS SES.
package ses

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"go.uber.org/zap"

	"loan-matchmaker/internal/models"
	"loan-matchmaker/internal/utils"
)

// maxSummaryMatches caps how many lenders a summary email lists.
const maxSummaryMatches = 5

// ErrNoMatches is returned when there is nothing to summarize.
var ErrNoMatches = errors.New("session has no matches to send")

type emailAPI interface {
	SendEmail(ctx context.Context, in *ses.SendEmailInput, opts ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// Service handles SES email operations.
type Service struct {
	client    emailAPI
	fromEmail string
	logger    *zap.Logger
	now       func() time.Time
}

// EmailParams represents parameters for sending an email.
type EmailParams struct {
	To       string
	Subject  string
	HTMLBody string
	TextBody string
	ReplyTo  string
}

// SendEmailResult contains the result of sending an email.
type SendEmailResult struct {
	MessageID string    `json:"messageId"`
	SentAt    time.Time `json:"sentAt"`
}

// NewService creates a Service using the default AWS credential chain.
func NewService(ctx context.Context, region, fromEmail string, logger *zap.Logger) (*Service, error) {
	if fromEmail == "" {
		return nil, errors.New("sender email is required")
	}
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return newService(ses.NewFromConfig(cfg), fromEmail, logger), nil
}

func newService(client emailAPI, fromEmail string, logger *zap.Logger) *Service {
	return &Service{
		client:    client,
		fromEmail: fromEmail,
		logger:    utils.OrNop(logger),
		now:       time.Now,
	}
}

// SendEmail sends a basic email.
func (s *Service) SendEmail(ctx context.Context, params EmailParams) (*SendEmailResult, error) {
	input := &ses.SendEmailInput{
		Source: aws.String(s.fromEmail),
		Destination: &types.Destination{
			ToAddresses: []string{params.To},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data:    aws.String(params.Subject),
				Charset: aws.String("UTF-8"),
			},
			Body: &types.Body{},
		},
	}

	if params.HTMLBody != "" {
		input.Message.Body.Html = &types.Content{
			Data:    aws.String(params.HTMLBody),
			Charset: aws.String("UTF-8"),
		}
	}
	if params.TextBody != "" {
		input.Message.Body.Text = &types.Content{
			Data:    aws.String(params.TextBody),
			Charset: aws.String("UTF-8"),
		}
	}
	if params.ReplyTo != "" {
		input.ReplyToAddresses = []string{params.ReplyTo}
	}

	result, err := s.client.SendEmail(ctx, input)
	if err != nil {
		s.logger.Error("Failed to send email",
			zap.String("to", params.To),
			zap.String("subject", params.Subject),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to send email: %w", err)
	}

	messageID := aws.ToString(result.MessageId)
	s.logger.Info("Email sent successfully",
		zap.String("to", params.To),
		zap.String("messageId", messageID),
	)

	return &SendEmailResult{MessageID: messageID, SentAt: s.now()}, nil
}

// MatchSummary is the data rendered into a match summary email.
type MatchSummary struct {
	SessionID  string
	Parameters models.LoanParameters
	Matches    []models.LenderMatch
}

// SendMatchSummary emails the top ranked lenders for a session.
func (s *Service) SendMatchSummary(ctx context.Context, to string, summary MatchSummary) (*SendEmailResult, error) {
	if len(summary.Matches) == 0 {
		return nil, ErrNoMatches
	}
	if len(summary.Matches) > maxSummaryMatches {
		summary.Matches = summary.Matches[:maxSummaryMatches]
	}

	htmlBody, err := renderSummaryHTML(summary)
	if err != nil {
		return nil, fmt.Errorf("failed to render email template: %w", err)
	}

	return s.SendEmail(ctx, EmailParams{
		To:       to,
		Subject:  fmt.Sprintf("Your top %d lender matches", len(summary.Matches)),
		HTMLBody: htmlBody,
		TextBody: renderSummaryText(summary),
	})
}

var summaryTemplate = template.Must(template.New("match_summary").Funcs(template.FuncMap{
	"inc":    func(i int) int { return i + 1 },
	"rupees": formatRupees,
}).Parse(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: sans-serif; color: #333; max-width: 600px; margin: 0 auto;">
  <h2>Your loan matches</h2>
  {{with .Parameters.LoanAmount}}<p>Requested amount: {{rupees .}}</p>{{end}}
  {{range $i, $m := .Matches}}
  <div style="border: 1px solid #ddd; border-radius: 8px; padding: 12px; margin: 12px 0;">
    <h3 style="margin: 0;">{{inc $i}}. {{$m.Lender.Name}}</h3>
    <p>Interest rate {{printf "%.1f" $m.Lender.InterestRate}}% &middot; match score {{printf "%.0f" $m.FinalScore}}</p>
    <ul>{{range $m.Reasons}}<li>{{.}}</li>{{end}}</ul>
  </div>
  {{end}}
  <p style="font-size: 12px; color: #999;">Rates are indicative. Final terms are set by the lender.</p>
</body>
</html>`))

func renderSummaryHTML(summary MatchSummary) (string, error) {
	var buf bytes.Buffer
	if err := summaryTemplate.Execute(&buf, summary); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func renderSummaryText(summary MatchSummary) string {
	var b strings.Builder
	b.WriteString("Your loan matches\n\n")
	if summary.Parameters.LoanAmount != nil {
		fmt.Fprintf(&b, "Requested amount: %s\n\n", formatRupees(summary.Parameters.LoanAmount))
	}
	for i, m := range summary.Matches {
		fmt.Fprintf(&b, "%d. %s\n", i+1, m.Lender.Name)
		fmt.Fprintf(&b, "   Interest rate: %.1f%%\n", m.Lender.InterestRate)
		fmt.Fprintf(&b, "   Match score: %.0f\n", m.FinalScore)
		for _, r := range m.Reasons {
			fmt.Fprintf(&b, "   - %s\n", r)
		}
		b.WriteString("\n")
	}
	b.WriteString("Rates are indicative. Final terms are set by the lender.\n")
	return b.String()
}

// formatRupees renders an amount with Indian digit grouping, e.g. ₹12,34,567.
func formatRupees(amount *float64) string {
	if amount == nil {
		return ""
	}
	digits := fmt.Sprintf("%.0f", *amount)
	if len(digits) <= 3 {
		return "₹" + digits
	}

	head, tail := digits[:len(digits)-3], digits[len(digits)-3:]
	var groups []string
	for len(head) > 2 {
		groups = append([]string{head[len(head)-2:]}, groups...)
		head = head[:len(head)-2]
	}
	if head != "" {
		groups = append([]string{head}, groups...)
	}
	return "₹" + strings.Join(groups, ",") + "," + tail
}
