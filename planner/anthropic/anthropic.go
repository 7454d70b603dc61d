// Package anthropic implements the planning and synthesis collaborators
// using the Anthropic Messages API.
package anthropic

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/hupe1980/planmesh/core"
	"github.com/hupe1980/planmesh/planner"
)

// Options configure the Anthropic planner adapter (model id, temperature,
// max tokens, API key). Extend via functional options to preserve stability.
type Options struct {
	Model       anthropic.Model
	Temperature float64
	MaxTokens   int64
	APIKey      string
	// ToolKinds lists the tool kinds plans may target, surfaced to the
	// model in the prompt. Defaults to the built-in kind set.
	ToolKinds []string
}

// Planner implements core.Planner and core.Synthesizer on top of the
// Anthropic Messages API.
type Planner struct {
	client *anthropic.Client
	opts   Options
}

// NewPlanner creates a new Anthropic planner using the official client.
func NewPlanner(optFns ...func(o *Options)) *Planner {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	client := anthropic.NewClient(clientOpts...)

	return &Planner{client: &client, opts: opts}
}

// NewPlannerFromClient creates a new Anthropic planner from an existing client.
func NewPlannerFromClient(client *anthropic.Client, optFns ...func(o *Options)) *Planner {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Planner{client: client, opts: opts}
}

func defaultOptions() Options {
	return Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0.2,
		MaxTokens:   4096,
		ToolKinds:   defaultToolKinds,
	}
}

var defaultToolKinds = []string{
	string(core.ToolKindWebSearch),
	string(core.ToolKindMessaging),
	string(core.ToolKindTicketing),
	string(core.ToolKindDataQuery),
	string(core.ToolKindApprovalGate),
	string(core.ToolKindExternalCheck),
	string(core.ToolKindWebhookTrigger),
	string(core.ToolKindNotification),
	string(core.ToolKindHTTPCall),
	string(core.ToolKindDataTransform),
	string(core.ToolKindDelay),
}

// GeneratePlan asks the model to decompose the objective into tasks.
func (p *Planner) GeneratePlan(ctx context.Context, objective string, metadata core.PlanMetadata) ([]core.SubTask, error) {
	raw, err := p.complete(ctx, planner.PlanPrompt(objective, metadata, p.opts.ToolKinds))
	if err != nil {
		return nil, fmt.Errorf("generate plan: %w", err)
	}
	return planner.ParseTasks(raw)
}

// Replan asks the model for a replacement task list after a failure.
func (p *Planner) Replan(ctx context.Context, plan *core.Plan, failingTaskID, cause string, retryCount int) ([]core.SubTask, error) {
	raw, err := p.complete(ctx, planner.ReplanPrompt(plan, failingTaskID, cause, retryCount, p.opts.ToolKinds))
	if err != nil {
		return nil, fmt.Errorf("replan: %w", err)
	}
	return planner.ParseTasks(raw)
}

// Synthesize asks the model to summarize the final execution state.
func (p *Planner) Synthesize(ctx context.Context, plan *core.Plan, state *core.ExecutionState) (*core.SynthesisResult, error) {
	raw, err := p.complete(ctx, planner.SynthesisPrompt(plan, state))
	if err != nil {
		return nil, fmt.Errorf("synthesize: %w", err)
	}
	return planner.ParseSynthesis(raw)
}

func (p *Planner) complete(ctx context.Context, prompt string) (string, error) {
	resp, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       p.opts.Model,
		MaxTokens:   p.opts.MaxTokens,
		Temperature: anthropic.Float(p.opts.Temperature),
		System: []anthropic.TextBlockParam{
			{Text: planner.SystemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic api error: %w", err)
	}

	var b strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			b.WriteString(block.AsText().Text)
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("anthropic returned no text content")
	}
	return b.String(), nil
}

var (
	_ core.Planner     = (*Planner)(nil)
	_ core.Synthesizer = (*Planner)(nil)
)
