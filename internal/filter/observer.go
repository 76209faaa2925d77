// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Netgrid Contributors

package filter

import "log/slog"

// Removal records one token the pipeline dropped and the rule that fired.
type Removal struct {
	Directive Directive
	Rule      string
}

// Observer receives pure notifications about pipeline activity. Return
// values are never consumed; implementations must not block.
type Observer interface {
	// OnRuleFired reports a single removal with the live token count
	// before and after it.
	OnRuleFired(rule string, before, after int, token Directive)

	// OnFilterSummary reports the completed run.
	OnFilterSummary(initial, final int, removed []Removal)
}

// NopObserver discards all notifications.
type NopObserver struct{}

func (NopObserver) OnRuleFired(string, int, int, Directive) {}
func (NopObserver) OnFilterSummary(int, int, []Removal)     {}

// SlogObserver logs pipeline activity through a structured logger.
type SlogObserver struct {
	Log *slog.Logger
}

// NewSlogObserver creates a SlogObserver. A nil logger falls back to
// slog.Default().
func NewSlogObserver(log *slog.Logger) *SlogObserver {
	if log == nil {
		log = slog.Default()
	}
	return &SlogObserver{Log: log}
}

func (o *SlogObserver) OnRuleFired(rule string, before, after int, token Directive) {
	o.Log.Debug("filter rule fired",
		"rule", rule,
		"before", before,
		"after", after,
		"token", string(token),
	)
}

func (o *SlogObserver) OnFilterSummary(initial, final int, removed []Removal) {
	o.Log.Info("filter summary",
		"initial", initial,
		"final", final,
		"removed", len(removed),
	)
}
