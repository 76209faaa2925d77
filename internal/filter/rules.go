// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Netgrid Contributors

package filter

import (
	"fmt"

	"github.com/netgrid/netgrid/internal/capability"
	"github.com/netgrid/netgrid/internal/network"
)

// BreachContext identifies the kind of entity a breach was resolved
// through. Several rules key off it: an agent unlock means nothing when the
// breach went through a vehicle.
type BreachContext int

// BreachContext constants define the recognized breach entry points.
const (
	ContextDirect      BreachContext = iota // direct
	ContextAccessPoint                      // access_point
	ContextAgent                            // agent
	ContextVehicle                          // vehicle
)

var contextStrings = [...]string{
	"direct",
	"access_point",
	"agent",
	"vehicle",
}

func (c BreachContext) String() string {
	if c >= 0 && int(c) < len(contextStrings) {
		return contextStrings[c]
	}
	return fmt.Sprintf("unknown(%d)", int(c))
}

// ParseBreachContext converts a serialized context name back to its
// BreachContext.
func ParseBreachContext(s string) (BreachContext, error) {
	for i, name := range contextStrings {
		if name == s {
			return BreachContext(i), nil
		}
	}
	return 0, fmt.Errorf("unknown breach context %q", s)
}

// allowedContexts lists the breach contexts each category may be granted
// from. Basic control travels through anything; specialized categories need
// a matching entry point.
var allowedContexts = map[capability.Category][]BreachContext{
	capability.CategoryBasic:  {ContextDirect, ContextAccessPoint, ContextAgent, ContextVehicle},
	capability.CategoryCamera: {ContextDirect, ContextAccessPoint},
	capability.CategoryTurret: {ContextDirect, ContextAccessPoint},
	capability.CategoryAgent:  {ContextAccessPoint, ContextAgent},
}

// evalCtx carries the per-run facts the rule predicates branch on. It is
// computed once per pipeline run, never per token.
type evalCtx struct {
	req *Request

	// device is nil when the target is unknown to the directory.
	device    *network.Device
	networked bool
	hub       bool

	// withinInfluence is true when the target position lies inside the
	// influence radius of a recorded breach.
	withinInfluence bool

	// composition holds the capability categories present among the
	// target and everything reachable from it.
	composition map[capability.Category]bool

	// maxRewardTier is the highest reward tier among the run's tokens;
	// rewardSeen flips once one instance of it has been kept.
	maxRewardTier int
	rewardSeen    bool
}

// rule is one entry of the ordered predicate chain. Evaluation stops at the
// first rule whose removes predicate fires; removal is final for the token.
type rule struct {
	name    string
	removes func(ctx *evalCtx, d Directive) bool
}

// Rule names, as reported to observers and metrics.
const (
	RuleBaseFilter      = "base-filter"
	RuleAlreadyUnlocked = "already-unlocked"
	RuleConnectivity    = "network-connectivity"
	RuleBackdoor        = "standalone-backdoor"
	RuleContext         = "controller-context"
	RuleActorClass      = "actor-class"
	RuleComposition     = "network-composition"
	RuleRedundantReward = "redundant-reward"
	RuleSpatialRange    = "spatial-range"
)

// ruleChain is the fixed predicate order. Tokens no predicate recognizes
// fall through and stay kept.
func ruleChain(p *Pipeline) []rule {
	return []rule{
		{RuleAlreadyUnlocked, p.ruleAlreadyUnlocked},
		{RuleConnectivity, ruleConnectivity},
		{RuleBackdoor, ruleBackdoor},
		{RuleContext, ruleContext},
		{RuleActorClass, ruleActorClass},
		{RuleComposition, ruleComposition},
		{RuleRedundantReward, ruleRedundantReward},
		{RuleSpatialRange, ruleSpatialRange},
	}
}

// ruleAlreadyUnlocked removes an unlock token whose category the target
// already holds.
func (p *Pipeline) ruleAlreadyUnlocked(ctx *evalCtx, d Directive) bool {
	cat, ok := d.UnlockCategory()
	if !ok {
		return false
	}
	return p.caps.IsUnlocked(ctx.req.Target, cat, ctx.req.Now, p.cfg.UnlockDurationHours)
}

// ruleConnectivity removes unlock tokens that cannot ride the breached
// network: the target is unknown, or a network breach landed on a
// standalone device with no backdoor of its own. This is the one generic
// rule that is re-applied manually to protected tokens.
func ruleConnectivity(ctx *evalCtx, d Directive) bool {
	if _, ok := d.UnlockCategory(); !ok {
		return false
	}
	if ctx.device == nil {
		return true
	}
	if ctx.networked || ctx.hub {
		return false
	}
	return ctx.req.Context == ContextAccessPoint && !ctx.device.HasBackdoor
}

// ruleBackdoor removes non-basic unlock tokens for standalone devices
// without a backdoor. Proximity influence carries basic control only;
// specialized categories need the device's own access point or a network.
func ruleBackdoor(ctx *evalCtx, d Directive) bool {
	cat, ok := d.UnlockCategory()
	if !ok || cat == capability.CategoryBasic {
		return false
	}
	if ctx.device == nil || ctx.networked || ctx.hub {
		return false
	}
	return !ctx.device.HasBackdoor
}

// ruleContext removes unlock tokens whose category cannot be granted from
// the breach entry point.
func ruleContext(ctx *evalCtx, d Directive) bool {
	cat, ok := d.UnlockCategory()
	if !ok {
		return false
	}
	for _, allowed := range allowedContexts[cat] {
		if ctx.req.Context == allowed {
			return false
		}
	}
	return true
}

// ruleActorClass removes unlock tokens for categories the acting runner is
// not licensed for. An empty license set means unrestricted.
func ruleActorClass(ctx *evalCtx, d Directive) bool {
	cat, ok := d.UnlockCategory()
	if !ok || len(ctx.req.ActorCategories) == 0 {
		return false
	}
	for _, licensed := range ctx.req.ActorCategories {
		if cat == licensed {
			return false
		}
	}
	return true
}

// ruleComposition removes unlock tokens for categories absent from the
// observed network composition: a camera unlock is useless on a network
// with no cameras.
func ruleComposition(ctx *evalCtx, d Directive) bool {
	cat, ok := d.UnlockCategory()
	if !ok {
		return false
	}
	return !ctx.composition[cat]
}

// ruleRedundantReward keeps exactly one reward token, the highest tier
// present in the run, and removes the rest. Tier comparison, not input
// order, so the partition is independent of token ordering.
func ruleRedundantReward(ctx *evalCtx, d Directive) bool {
	if !d.IsReward() {
		return false
	}
	if d.RewardTier() < ctx.maxRewardTier {
		return true
	}
	return ctx.rewardSeen
}

// ruleSpatialRange removes unlock tokens for direct attempts against
// standalone, backdoor-less devices that sit outside the influence radius
// of every recorded breach. When the spatial state is unavailable the
// check degrades to out-of-range.
func ruleSpatialRange(ctx *evalCtx, d Directive) bool {
	if _, ok := d.UnlockCategory(); !ok {
		return false
	}
	if ctx.device == nil || ctx.networked || ctx.hub || ctx.device.HasBackdoor {
		return false
	}
	if ctx.req.Context == ContextAccessPoint {
		return false
	}
	return !ctx.withinInfluence
}
