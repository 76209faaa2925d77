// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Netgrid Contributors

package filter

import (
	"log/slog"
	"time"

	"github.com/netgrid/netgrid/internal/capability"
	"github.com/netgrid/netgrid/internal/geo"
	"github.com/netgrid/netgrid/internal/network"
	"github.com/netgrid/netgrid/internal/spatial"
)

// BaseEvaluator is the opaque generic rule stage supplied by the host. It
// accepts or rejects tokens by its own independent rules; the pipeline only
// guarantees that its own tokens are kept out of its reach and still honor
// the connectivity rule.
type BaseEvaluator interface {
	// Filter returns the subset of tokens the evaluator accepts,
	// preserving their relative order.
	Filter(tokens []Directive) []Directive
}

// KeepAllEvaluator is the default BaseEvaluator; it accepts every token.
type KeepAllEvaluator struct{}

// Filter returns the tokens unchanged.
func (KeepAllEvaluator) Filter(tokens []Directive) []Directive { return tokens }

// Config holds the pipeline tunables.
type Config struct {
	// UnlockDurationHours bounds grant lifetime for the dedupe rule.
	// Zero means grants never expire.
	UnlockDurationHours float64

	// InfluenceRadiusMeters is the radius within which a past breach
	// lends influence to standalone devices.
	InfluenceRadiusMeters float64
}

// Request describes one resolved breach whose directive tokens need
// filtering.
type Request struct {
	// Target is the breached entity.
	Target capability.EntityID

	// Context is the kind of entry point the breach went through.
	Context BreachContext

	// Position is where the breach was resolved.
	Position geo.Point3

	// Now is the engine time of resolution, in seconds.
	Now float64

	// ActorCategories lists the categories the acting runner is licensed
	// for. Empty means unrestricted.
	ActorCategories []capability.Category

	// Directives is the token pool produced by the challenge resolution.
	Directives []Directive
}

// Result is the kept/removed partition of one pipeline run.
type Result struct {
	Kept    []Directive
	Removed []Removal
}

// KeptNonBonus counts accepted tokens that are not bonus directives.
func (r Result) KeptNonBonus() int {
	rec := newRecognizer()
	n := 0
	for _, d := range r.Kept {
		if !rec.isBonus(d) {
			n++
		}
	}
	return n
}

// Pipeline is the ordered rule-filtering pipeline. Construct once per
// session and reuse; runs are deterministic for a given store state.
type Pipeline struct {
	caps     *capability.StateStore
	dir      network.Directory
	prop     *network.Propagator
	breaches *spatial.Index
	base     BaseEvaluator
	obs      Observer
	rec      *recognizer
	rules    []rule
	cfg      Config
	log      *slog.Logger
}

// PipelineOption configures optional pipeline collaborators.
type PipelineOption func(*Pipeline)

// WithBaseEvaluator sets the generic base filtering stage.
func WithBaseEvaluator(base BaseEvaluator) PipelineOption {
	return func(p *Pipeline) { p.base = base }
}

// WithObserver sets the observability sink for rule firings.
func WithObserver(obs Observer) PipelineOption {
	return func(p *Pipeline) { p.obs = obs }
}

// WithLogger sets the structured logger.
func WithLogger(log *slog.Logger) PipelineOption {
	return func(p *Pipeline) { p.log = log }
}

// NewPipeline creates a Pipeline over the session's stores. The base
// evaluator defaults to KeepAllEvaluator and the observer to a slog-backed
// one; both are resolved once here, never re-probed per run.
func NewPipeline(cfg Config, caps *capability.StateStore, dir network.Directory, prop *network.Propagator, breaches *spatial.Index, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		caps:     caps,
		dir:      dir,
		prop:     prop,
		breaches: breaches,
		base:     KeepAllEvaluator{},
		rec:      newRecognizer(),
		cfg:      cfg,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.obs == nil {
		p.obs = NewSlogObserver(p.log)
	}
	p.rules = ruleChain(p)
	return p
}

// Run filters the request's directive tokens and returns the partition.
//
// Phases, in order: the pipeline's own unlock tokens are extracted so the
// base evaluator cannot discard them; the base evaluator filters the rest;
// the connectivity rule is re-applied manually to the protected tokens; the
// pool is merged back in input order; the fixed rule chain runs over it;
// finally bonus directives are injected from the accepted count.
func (p *Pipeline) Run(req Request) Result {
	start := time.Now()
	initial := len(req.Directives)
	live := initial

	removedAt := make([]string, len(req.Directives))
	removed := make([]Removal, 0, 4)

	drop := func(i int, ruleName string) {
		removedAt[i] = ruleName
		live--
		p.obs.OnRuleFired(ruleName, live+1, live, req.Directives[i])
		removed = append(removed, Removal{Directive: req.Directives[i], Rule: ruleName})
	}

	// Phase 1+2: extract-and-protect, then base-filter the general pool.
	general := make([]Directive, 0, len(req.Directives))
	generalIdx := make([]int, 0, len(req.Directives))
	for i, d := range req.Directives {
		if !p.rec.isOwn(d) {
			general = append(general, d)
			generalIdx = append(generalIdx, i)
		}
	}
	baseKept := p.base.Filter(general)
	keptCount := make(map[Directive]int, len(baseKept))
	for _, d := range baseKept {
		keptCount[d]++
	}
	for n, i := range generalIdx {
		d := general[n]
		if keptCount[d] > 0 {
			keptCount[d]--
			continue
		}
		drop(i, RuleBaseFilter)
	}

	ctx := p.buildEvalCtx(&req)
	for i, d := range req.Directives {
		if removedAt[i] != "" {
			continue
		}
		if tier := d.RewardTier(); tier > ctx.maxRewardTier {
			ctx.maxRewardTier = tier
		}
	}

	// Phase 3: the protected tokens still honor the connectivity rule.
	for i, d := range req.Directives {
		if !p.rec.isOwn(d) || removedAt[i] != "" {
			continue
		}
		if ruleConnectivity(ctx, d) {
			drop(i, RuleConnectivity)
		}
	}

	// Phase 4+5: merged pool through the ordered rule chain, first match
	// wins, removal terminal.
	for i, d := range req.Directives {
		if removedAt[i] != "" {
			continue
		}
		for _, r := range p.rules {
			if r.removes(ctx, d) {
				drop(i, r.name)
				break
			}
		}
		if removedAt[i] == "" && d.IsReward() {
			ctx.rewardSeen = true
		}
	}

	kept := make([]Directive, 0, live)
	for i, d := range req.Directives {
		if removedAt[i] == "" {
			kept = append(kept, d)
		}
	}

	// Phase 6: bonus injection from the accepted non-bonus count.
	kept = p.injectBonuses(kept)

	result := Result{Kept: kept, Removed: removed}
	p.obs.OnFilterSummary(initial, len(kept), removed)
	recordRunMetrics(time.Since(start), result)
	return result
}

// buildEvalCtx resolves the per-run facts the rule predicates consume.
// Missing references degrade to the restrictive reading and are logged.
func (p *Pipeline) buildEvalCtx(req *Request) *evalCtx {
	ctx := &evalCtx{
		req:         req,
		composition: make(map[capability.Category]bool),
	}

	device, ok := p.dir.Device(req.Target)
	if !ok {
		p.log.Warn("filter target unknown to directory", "target", string(req.Target))
		return ctx
	}
	ctx.device = device
	ctx.networked = len(p.dir.ControllersOf(req.Target)) > 0
	ctx.hub = !ctx.networked && len(p.dir.HubChildren(req.Target)) > 0
	ctx.withinInfluence = p.breaches.IsWithinInfluence(device.Position, p.cfg.InfluenceRadiusMeters)

	ctx.composition[device.Class.Category()] = true
	for _, d := range p.prop.ReachableEntities(req.Target, false) {
		ctx.composition[d.Class.Category()] = true
	}
	return ctx
}

// injectBonuses appends the auto-scan and tiered reward directives. The
// scan fires whenever at least one other directive was accepted; the reward
// tier follows the accepted non-bonus count and yields to any reward that
// survived from the input pool.
func (p *Pipeline) injectBonuses(kept []Directive) []Directive {
	nonBonus := 0
	scanPresent := false
	rewardPresent := false
	for _, d := range kept {
		switch {
		case d == DirectiveScan:
			scanPresent = true
		case d.IsReward():
			rewardPresent = true
		case !p.rec.isBonus(d):
			nonBonus++
		}
	}

	if len(kept) > 0 && !scanPresent {
		kept = append(kept, DirectiveScan)
		p.log.Debug("injected auto-scan directive")
	}
	if reward, ok := RewardForCount(nonBonus); ok && !rewardPresent {
		kept = append(kept, reward)
		p.log.Debug("injected reward directive", "token", string(reward))
	}
	return kept
}
