package anthropic

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Polisher defaults.
const (
	DefaultPolishModel = "claude-haiku-4-5-20251001"

	polishMaxTokens   = 1024
	polishTimeout     = 30 * time.Second
	polishRatePerSec  = 2
	polishBurst       = 4
	polishTemperature = 0.7
)

const polishSystemPrompt = `You rewrite rough business-opportunity drafts into crisp listing copy.
Respond with exactly two lines:
TITLE: <a concrete, specific title under 120 characters>
DESCRIPTION: <one paragraph, 2-4 sentences, grounded only in the evidence given>`

// PolishRequest carries the draft copy and supporting evidence.
type PolishRequest struct {
	DraftTitle       string
	DraftDescription string
	Category         string
	City             string
	SampleTitles     []string
	Keywords         []string
}

// PolishResult is the rewritten copy.
type PolishResult struct {
	Title       string
	Description string
}

// Polisher rewrites generated opportunity titles and descriptions through the
// Anthropic API. Calls are rate limited and bounded by a per-call timeout.
type Polisher struct {
	client  Client
	model   string
	limiter *rate.Limiter
}

// NewPolisher creates a Polisher over the given client. An empty model uses
// DefaultPolishModel.
func NewPolisher(client Client, model string) *Polisher {
	if model == "" {
		model = DefaultPolishModel
	}
	return &Polisher{
		client:  client,
		model:   model,
		limiter: rate.NewLimiter(rate.Limit(polishRatePerSec), polishBurst),
	}
}

// Polish rewrites the draft copy. Callers should fall back to the draft on
// error; a polish failure must never lose an opportunity.
func (p *Polisher) Polish(ctx context.Context, req PolishRequest) (*PolishResult, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "anthropic: polish rate limit")
	}

	callCtx, cancel := context.WithTimeout(ctx, polishTimeout)
	defer cancel()

	temp := polishTemperature
	resp, err := p.client.CreateMessage(callCtx, MessageRequest{
		Model:       p.model,
		MaxTokens:   polishMaxTokens,
		Temperature: &temp,
		System:      []SystemBlock{{Text: polishSystemPrompt}},
		Messages:    []Message{{Role: "user", Content: buildPolishPrompt(req)}},
	})
	if err != nil {
		return nil, eris.Wrap(err, "anthropic: polish")
	}
	resp.Usage.LogCost(p.model, "polish")

	result, err := parsePolishResponse(resp.Text())
	if err != nil {
		return nil, err
	}

	zap.L().Debug("anthropic: polished opportunity copy",
		zap.String("category", req.Category),
		zap.String("city", req.City),
	)
	return result, nil
}

func buildPolishPrompt(req PolishRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Category: %s\n", req.Category)
	if req.City != "" {
		fmt.Fprintf(&b, "City: %s\n", req.City)
	}
	if len(req.Keywords) > 0 {
		fmt.Fprintf(&b, "Recurring keywords: %s\n", strings.Join(req.Keywords, ", "))
	}
	if len(req.SampleTitles) > 0 {
		b.WriteString("Sample signal titles:\n")
		for _, t := range req.SampleTitles {
			fmt.Fprintf(&b, "- %s\n", t)
		}
	}
	fmt.Fprintf(&b, "\nDraft title: %s\n", req.DraftTitle)
	fmt.Fprintf(&b, "Draft description: %s\n", req.DraftDescription)
	return b.String()
}

// parsePolishResponse extracts the TITLE: and DESCRIPTION: lines. Both must
// be present and non-empty.
func parsePolishResponse(text string) (*PolishResult, error) {
	var result PolishResult
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "TITLE:"):
			result.Title = strings.TrimSpace(strings.TrimPrefix(line, "TITLE:"))
		case strings.HasPrefix(line, "DESCRIPTION:"):
			result.Description = strings.TrimSpace(strings.TrimPrefix(line, "DESCRIPTION:"))
		}
	}
	if result.Title == "" || result.Description == "" {
		return nil, eris.Errorf("anthropic: malformed polish response: %q", truncate(text, 120))
	}
	return &result, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
