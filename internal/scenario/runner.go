// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Netgrid Contributors

package scenario

import (
	"fmt"
	"strings"

	"github.com/netgrid/netgrid/internal/capability"
	"github.com/netgrid/netgrid/internal/filter"
	"github.com/netgrid/netgrid/internal/session"
)

// StepResult reports the outcome of one replayed event.
type StepResult struct {
	Step    int
	Kind    string
	Entity  string
	Outcome string
}

// Run drives the scenario's events through the session in declaration
// order. Event-level rejections (a penalty-locked target) become step
// outcomes, not errors; only malformed events abort the run.
func Run(sess *session.Session, sc *Scenario) ([]StepResult, error) {
	results := make([]StepResult, 0, len(sc.Events))
	for i, ev := range sc.Events {
		res, err := runEvent(sess, ev)
		if err != nil {
			return results, err
		}
		res.Step = i + 1
		results = append(results, res)
	}
	return results, nil
}

func runEvent(sess *session.Session, ev Event) (StepResult, error) {
	switch {
	case ev.Breach != nil:
		return runBreach(sess, ev.Breach)

	case ev.Scan != nil:
		rec, ok := sess.HandleScanFinished(ev.Scan.Position)
		outcome := "no breach record in range"
		if ok {
			outcome = fmt.Sprintf("matched breach at (%g, %g, %g)",
				rec.Position.X, rec.Position.Y, rec.Position.Z)
		}
		return StepResult{Kind: "scan", Outcome: outcome}, nil

	case ev.Incapacitate != nil:
		sess.HandleEntityIncapacitated(capability.EntityID(ev.Incapacitate.Entity))
		return StepResult{
			Kind:    "incapacitate",
			Entity:  ev.Incapacitate.Entity,
			Outcome: "grants revoked",
		}, nil

	case ev.Check != nil:
		accessible := sess.DeviceAccessible(capability.EntityID(ev.Check.Entity), ev.Check.At)
		outcome := "locked"
		if accessible {
			outcome = "accessible"
		}
		return StepResult{Kind: "check", Entity: ev.Check.Entity, Outcome: outcome}, nil
	}
	return StepResult{}, fmt.Errorf("event has no kind set")
}

func runBreach(sess *session.Session, b *BreachEvent) (StepResult, error) {
	breachCtx, err := filter.ParseBreachContext(b.Context)
	if err != nil {
		return StepResult{}, err
	}
	actorCats := make([]capability.Category, len(b.ActorCategories))
	for i, name := range b.ActorCategories {
		cat, err := capability.ParseCategory(name)
		if err != nil {
			return StepResult{}, err
		}
		actorCats[i] = cat
	}
	directives := make([]filter.Directive, len(b.Directives))
	for i, d := range b.Directives {
		directives[i] = filter.Directive(d)
	}

	out, err := sess.HandleBreachResolved(filter.Request{
		Target:          capability.EntityID(b.Target),
		Context:         breachCtx,
		Position:        b.Position,
		Now:             b.At,
		ActorCategories: actorCats,
		Directives:      directives,
	}, b.Success)

	res := StepResult{Kind: "breach", Entity: b.Target}
	switch {
	case err != nil:
		res.Outcome = "rejected: " + err.Error()
	case !b.Success:
		res.Outcome = "failed, penalty applied"
	default:
		kept := make([]string, len(out.Filter.Kept))
		for i, d := range out.Filter.Kept {
			kept[i] = string(d)
		}
		res.Outcome = fmt.Sprintf("kept [%s], removed %d",
			strings.Join(kept, " "), len(out.Filter.Removed))
	}
	return res, nil
}
