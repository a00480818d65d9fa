// Package pricing derives per-shot and whole-scene credit costs. Live quotes
// come from the Generation Runner's pricing endpoint; when that call fails
// the estimator reports "pricing unavailable" (a nil estimate) rather than
// fabricating numbers, and callers fall back to the static credit totals
// carried by the scene analysis.
package pricing

import (
	"context"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/jtallis/sceneforge/internal/resolve"
	"github.com/jtallis/sceneforge/internal/runner"
	"github.com/jtallis/sceneforge/internal/scene"
)

// PremiumSurcharge is the fixed credit premium a premium-tier scene pays for
// its establishing/master shot. Added exactly once to the scene total, never
// per shot.
const PremiumSurcharge = 100

// Estimate is a live per-shot price quote from the runner.
type Estimate struct {
	Shots []runner.ShotPrice `json:"shots"`
}

// ShotPrice returns the quote for a slot, or nil when the runner did not
// price it.
func (e *Estimate) ShotPrice(slot int) *runner.ShotPrice {
	for i := range e.Shots {
		if e.Shots[i].ShotSlot == slot {
			return &e.Shots[i]
		}
	}
	return nil
}

// Options carries per-shot overrides forwarded to the pricing endpoint.
type Options struct {
	DurationOverrides map[int]int
	ModelOverrides    map[int]string
	QualityTier       scene.QualityTier
}

// Estimator quotes credit prices through the Generation Runner.
type Estimator struct {
	runner *runner.Client
}

// NewEstimator creates an Estimator backed by the given runner client.
func NewEstimator(client *runner.Client) *Estimator {
	return &Estimator{runner: client}
}

// Estimate asks the runner to price the given shots. A transport failure or
// runner-side error returns (nil, err): the caller must surface "pricing
// unavailable" and may fall back to StaticTotal, but must never render a
// fabricated live price.
func (e *Estimator) Estimate(ctx context.Context, shots []runner.PriceShot, opts Options) (*Estimate, error) {
	req := &runner.PriceRequest{
		Shots:       shots,
		QualityTier: opts.QualityTier,
	}
	if len(opts.DurationOverrides) > 0 {
		req.DurationOverrides = make(map[string]int, len(opts.DurationOverrides))
		for slot, d := range opts.DurationOverrides {
			req.DurationOverrides[strconv.Itoa(slot)] = d
		}
	}
	if len(opts.ModelOverrides) > 0 {
		req.ModelOverrides = make(map[string]string, len(opts.ModelOverrides))
		for slot, m := range opts.ModelOverrides {
			req.ModelOverrides[strconv.Itoa(slot)] = m
		}
	}

	resp, err := e.runner.Price(ctx, req)
	if err != nil {
		log.Warn().Err(err).Msg("Live pricing unavailable, caller should fall back to static estimate")
		return nil, err
	}
	if !resp.Success {
		log.Warn().Str("error", resp.Error).Msg("Runner declined pricing request")
		return nil, errRunnerDeclined(resp.Error)
	}

	return &Estimate{Shots: resp.Shots}, nil
}

type errRunnerDeclined string

func (e errRunnerDeclined) Error() string {
	return "runner declined pricing request: " + string(e)
}

// StaticTotals is the offline scene estimate computed from analysis credits.
type StaticTotals struct {
	TotalShots   int `json:"totalShots"`
	TotalCredits int `json:"totalCredits"`
}

// StaticTotal sums the credits of enabled shots and applies the premium
// surcharge once for premium scenes. Disabled shots contribute nothing:
// both TotalShots and TotalCredits are recomputed from the enabled subset.
func StaticTotal(analysis *scene.Analysis, st *resolve.State, tier scene.QualityTier) StaticTotals {
	var totals StaticTotals
	for _, shot := range analysis.Shots {
		if !st.Enabled(shot.Slot) {
			continue
		}
		totals.TotalShots++
		totals.TotalCredits += shot.Credits
	}

	if tier == scene.TierPremium {
		totals.TotalCredits += PremiumSurcharge
	}
	return totals
}

// EnabledPriceShots converts the enabled subset of a scene's shots into
// pricing-request entries.
func EnabledPriceShots(analysis *scene.Analysis, st *resolve.State) []runner.PriceShot {
	var shots []runner.PriceShot
	for _, shot := range analysis.Shots {
		if st.Enabled(shot.Slot) {
			shots = append(shots, runner.PriceShot{Slot: shot.Slot, Credits: shot.Credits})
		}
	}
	return shots
}
