package alerts

import (
	"fmt"
	"sort"

	"FinSightSaas/api/intelligence/forecast"
	"FinSightSaas/internal/config"
)

// Alert types.
const (
	TypeCashflowRisk  = "cashflow_risk"
	TypeConcentration = "customer_concentration"
	TypeSpendingSpike = "spending_spike"
)

// Severities and lifecycle states.
const (
	SeverityMedium = "medium"
	SeverityHigh   = "high"

	StatusActive       = "active"
	StatusAcknowledged = "acknowledged"
	StatusDismissed    = "dismissed"
)

// Candidate is a detector finding before persistence and deduplication.
type Candidate struct {
	Type     string                 `json:"type"`
	Severity string                 `json:"severity"`
	Title    string                 `json:"title"`
	Message  string                 `json:"message"`
	Data     map[string]interface{} `json:"data,omitempty"`
}

// DetectCashflowRisk flags a horizon where predicted daily net cashflow
// dips below the risk threshold. High severity when it goes negative.
// Returns nil when the forecast did not run or nothing dips.
func DetectCashflowRisk(fc forecast.Result) *Candidate {
	if fc.Status != forecast.StatusOK || len(fc.Points) == 0 {
		return nil
	}
	minPredicted := fc.Points[0].Predicted
	minDate := fc.Points[0].Date
	for _, p := range fc.Points[1:] {
		if p.Predicted < minPredicted {
			minPredicted = p.Predicted
			minDate = p.Date
		}
	}
	if minPredicted >= config.CashflowRiskThreshold {
		return nil
	}
	severity := SeverityMedium
	if minPredicted < 0 {
		severity = SeverityHigh
	}
	return &Candidate{
		Type:     TypeCashflowRisk,
		Severity: severity,
		Title:    "Cashflow risk ahead",
		Message: fmt.Sprintf("Predicted daily cashflow drops to %.2f on %s within the next %d days",
			minPredicted, minDate, fc.HorizonDays),
		Data: map[string]interface{}{
			"min_predicted": minPredicted,
			"min_date":      minDate,
			"horizon_days":  fc.HorizonDays,
		},
	}
}

// DetectConcentration flags revenue dependence on a single counterparty.
// Needs at least two distinct revenue counterparties in the window; fires
// when the top one's share exceeds half, high severity above three
// quarters.
func DetectConcentration(revenueByCounterparty map[string]float64) *Candidate {
	names := make([]string, 0, len(revenueByCounterparty))
	for name := range revenueByCounterparty {
		names = append(names, name)
	}
	// Deterministic winner when two counterparties tie.
	sort.Strings(names)

	total := 0.0
	qualifying := 0
	topName, topRevenue := "", 0.0
	for _, name := range names {
		rev := revenueByCounterparty[name]
		if rev <= 0 {
			continue
		}
		qualifying++
		total += rev
		if rev > topRevenue {
			topName, topRevenue = name, rev
		}
	}
	// The two-counterparty gate counts only entries with actual revenue.
	if qualifying < 2 || total <= 0 {
		return nil
	}
	share := topRevenue / total
	if share <= config.ConcentrationThreshold {
		return nil
	}
	severity := SeverityMedium
	if share > config.ConcentrationHighThreshold {
		severity = SeverityHigh
	}
	return &Candidate{
		Type:     TypeConcentration,
		Severity: severity,
		Title:    "Revenue concentration",
		Message: fmt.Sprintf("%s accounts for %.0f%% of revenue over the last %d days",
			topName, share*100, config.ConcentrationWindowDays),
		Data: map[string]interface{}{
			"counterparty": topName,
			"share":        share,
			"window_days":  config.ConcentrationWindowDays,
		},
	}
}

// SpendPair holds one category's outflow totals (as positive numbers) for
// the current spike window and the window immediately before it.
type SpendPair struct {
	Current float64
	Prior   float64
}

// DetectSpendingSpike compares per-category spend in the current window
// against the prior window of equal length. A category fires above a 200%
// increase with nonzero prior spend, high severity above 500%; a
// brand-new category is not a spike. The worst offender wins since dedup
// allows only one active spike alert per owner anyway.
func DetectSpendingSpike(spendByCategory map[string]SpendPair) *Candidate {
	names := make([]string, 0, len(spendByCategory))
	for name := range spendByCategory {
		names = append(names, name)
	}
	sort.Strings(names)

	bestCategory := ""
	bestPct := 0.0
	var bestPair SpendPair
	for _, name := range names {
		pair := spendByCategory[name]
		if pair.Prior <= 0 {
			continue
		}
		increasePct := (pair.Current - pair.Prior) / pair.Prior * 100
		if increasePct <= config.SpikeIncreasePct {
			continue
		}
		if increasePct > bestPct {
			bestCategory, bestPct, bestPair = name, increasePct, pair
		}
	}
	if bestCategory == "" {
		return nil
	}
	severity := SeverityMedium
	if bestPct > config.SpikeHighIncreasePct {
		severity = SeverityHigh
	}
	return &Candidate{
		Type:     TypeSpendingSpike,
		Severity: severity,
		Title:    "Spending spike",
		Message: fmt.Sprintf("%s spending rose %.0f%% over the last %d days (%.2f vs %.2f)",
			bestCategory, bestPct, config.SpikeWindowDays, bestPair.Current, bestPair.Prior),
		Data: map[string]interface{}{
			"category":      bestCategory,
			"current_spend": bestPair.Current,
			"prior_spend":   bestPair.Prior,
			"increase_pct":  bestPct,
			"window_days":   config.SpikeWindowDays,
		},
	}
}
