package engine

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hupe1980/planmesh/core"
)

// Persisted state layout: three logical record kinds per plan, each
// independently addressable by plan id (escalations also by record id).
const (
	nsPlans       = "plans"
	nsStates      = "states"
	nsEscalations = "escalations"
)

func (e *Engine) loadPlan(ctx context.Context, planID string) (*core.Plan, error) {
	raw, ok, err := e.store.Get(ctx, nsPlans, planID)
	if err != nil {
		return nil, fmt.Errorf("load plan %s: %w", planID, err)
	}
	if !ok {
		return nil, fmt.Errorf("load plan %s: %w", planID, core.ErrPlanNotFound)
	}
	var plan core.Plan
	if err := json.Unmarshal(raw, &plan); err != nil {
		return nil, fmt.Errorf("decode plan %s: %w", planID, err)
	}
	return &plan, nil
}

func (e *Engine) savePlan(ctx context.Context, plan *core.Plan) error {
	raw, err := json.Marshal(plan)
	if err != nil {
		return fmt.Errorf("encode plan %s: %w", plan.ID, err)
	}
	return e.store.Set(ctx, nsPlans, plan.ID, raw)
}

func (e *Engine) loadState(ctx context.Context, planID string) (*core.ExecutionState, error) {
	raw, ok, err := e.store.Get(ctx, nsStates, planID)
	if err != nil {
		return nil, fmt.Errorf("load state %s: %w", planID, err)
	}
	if !ok {
		return nil, fmt.Errorf("load state %s: %w", planID, core.ErrPlanNotFound)
	}
	var state core.ExecutionState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("decode state %s: %w", planID, err)
	}
	return &state, nil
}

func (e *Engine) saveState(ctx context.Context, state *core.ExecutionState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode state %s: %w", state.PlanID, err)
	}
	return e.store.Set(ctx, nsStates, state.PlanID, raw)
}

func (e *Engine) saveEscalation(ctx context.Context, esc core.Escalation) error {
	raw, err := json.Marshal(esc)
	if err != nil {
		return fmt.Errorf("encode escalation %s: %w", esc.ID, err)
	}
	key := esc.PlanID + "/" + esc.ID
	return e.store.Set(ctx, nsEscalations, key, raw)
}

// ListEscalations returns every escalation recorded for the plan, ordered
// by record key.
func (e *Engine) ListEscalations(ctx context.Context, planID string) ([]core.Escalation, error) {
	values, err := e.store.ListAll(ctx, nsEscalations)
	if err != nil {
		return nil, fmt.Errorf("list escalations: %w", err)
	}
	var escalations []core.Escalation
	for _, raw := range values {
		var esc core.Escalation
		if err := json.Unmarshal(raw, &esc); err != nil {
			return nil, fmt.Errorf("decode escalation: %w", err)
		}
		if esc.PlanID == planID {
			escalations = append(escalations, esc)
		}
	}
	return escalations, nil
}
