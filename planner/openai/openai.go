// Package openai implements the planning and synthesis collaborators using
// the OpenAI Chat Completions API. It adapts the shared planner task
// contract onto the SDK's message format.
package openai

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"

	"github.com/hupe1980/planmesh/core"
	"github.com/hupe1980/planmesh/planner"
)

// Options configure the OpenAI planner adapter. Fields mirror a minimal
// subset of Chat Completion parameters; extend via functional options
// without breaking callers.
type Options struct {
	Model               string
	Temperature         float64
	MaxCompletionTokens int64
	// ToolKinds lists the tool kinds plans may target, surfaced to the
	// model in the prompt. Defaults to the built-in kind set.
	ToolKinds []string
}

// Planner implements core.Planner and core.Synthesizer on top of the OpenAI
// Chat Completions API.
type Planner struct {
	client *openai.Client
	opts   Options
}

// NewPlanner creates a new OpenAI planner using the official client.
func NewPlanner(optFns ...func(o *Options)) *Planner {
	client := openai.NewClient()
	return NewPlannerFromClient(&client, optFns...)
}

// NewPlannerFromClient creates a new OpenAI planner from an existing client.
func NewPlannerFromClient(client *openai.Client, optFns ...func(o *Options)) *Planner {
	opts := Options{
		Model:               openai.ChatModelGPT4oMini,
		Temperature:         0.2,
		MaxCompletionTokens: 4096,
		ToolKinds:           defaultToolKinds,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Planner{client: client, opts: opts}
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
	resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: p.opts.Model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(planner.SystemPrompt),
			openai.UserMessage(prompt),
		},
		Temperature:         openai.Float(p.opts.Temperature),
		MaxCompletionTokens: openai.Int(p.opts.MaxCompletionTokens),
	})
	if err != nil {
		return "", fmt.Errorf("openai api error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

var (
	_ core.Planner     = (*Planner)(nil)
	_ core.Synthesizer = (*Planner)(nil)
)
