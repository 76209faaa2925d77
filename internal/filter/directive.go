// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Netgrid Contributors

// Package filter implements the ordered rule pipeline that decides which
// unlock directives survive a resolved breach.
package filter

import (
	"strings"

	"github.com/gobwas/glob"

	"github.com/netgrid/netgrid/internal/capability"
)

// Directive is an opaque token naming exactly one grant: a category unlock
// ("unlock:camera"), or a bonus ("bonus:scan", "bonus:reward:tier2").
// Tokens the pipeline does not recognize fall through the rule chain
// untouched.
type Directive string

// Bonus directive tokens injected by the pipeline.
const (
	DirectiveScan        Directive = "bonus:scan"
	DirectiveRewardTier1 Directive = "bonus:reward:tier1"
	DirectiveRewardTier2 Directive = "bonus:reward:tier2"
	DirectiveRewardTier3 Directive = "bonus:reward:tier3"
)

// Unlock returns the directive token for a category grant.
func Unlock(cat capability.Category) Directive {
	return Directive("unlock:" + cat.String())
}

// UnlockCategory parses an unlock token. The second return is false for
// bonus and unrecognized tokens.
func (d Directive) UnlockCategory() (capability.Category, bool) {
	name, ok := strings.CutPrefix(string(d), "unlock:")
	if !ok {
		return 0, false
	}
	cat, err := capability.ParseCategory(name)
	if err != nil {
		return 0, false
	}
	return cat, true
}

// IsReward reports whether the token is a tiered reward bundle.
func (d Directive) IsReward() bool {
	return strings.HasPrefix(string(d), "bonus:reward:")
}

// RewardTier returns the tier of a reward token, zero if it is not one.
func (d Directive) RewardTier() int {
	switch d {
	case DirectiveRewardTier1:
		return 1
	case DirectiveRewardTier2:
		return 2
	case DirectiveRewardTier3:
		return 3
	default:
		return 0
	}
}

// RewardForCount returns the reward directive for a count of accepted
// non-bonus directives: one maps to tier 1, two to tier 2, three or more to
// tier 3.
func RewardForCount(n int) (Directive, bool) {
	switch {
	case n <= 0:
		return "", false
	case n == 1:
		return DirectiveRewardTier1, true
	case n == 2:
		return DirectiveRewardTier2, true
	default:
		return DirectiveRewardTier3, true
	}
}

// recognizer classifies directive tokens with compiled glob patterns. The
// pipeline protects its own category-grant tokens from the generic base
// evaluator, whose type tags are ambiguous for them.
type recognizer struct {
	unlock glob.Glob
	bonus  glob.Glob
}

// newRecognizer compiles the token patterns. The patterns are constants, so
// compilation cannot fail; a panic here means a programming error.
func newRecognizer() *recognizer {
	return &recognizer{
		unlock: glob.MustCompile("unlock:*", ':'),
		bonus:  glob.MustCompile("bonus:**", ':'),
	}
}

// isOwn reports whether the token is one of this system's category grants.
func (r *recognizer) isOwn(d Directive) bool {
	if !r.unlock.Match(string(d)) {
		return false
	}
	_, ok := d.UnlockCategory()
	return ok
}

// isBonus reports whether the token is a bonus directive.
func (r *recognizer) isBonus(d Directive) bool {
	return r.bonus.Match(string(d))
}
