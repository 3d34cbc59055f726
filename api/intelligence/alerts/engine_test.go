package alerts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinSightSaas/api/intelligence/forecast"
)

func okForecast(predicted ...float64) forecast.Result {
	points := make([]forecast.Point, len(predicted))
	for i, p := range predicted {
		points[i] = forecast.Point{Date: "2024-02-01", Predicted: p}
	}
	return forecast.Result{Status: forecast.StatusOK, HorizonDays: len(predicted), Points: points}
}

func TestDetectCashflowRisk(t *testing.T) {
	c := DetectCashflowRisk(okForecast(2000, 500, 1800))
	require.NotNil(t, c, "dip below the threshold fires")
	assert.Equal(t, TypeCashflowRisk, c.Type)
	assert.Equal(t, SeverityMedium, c.Severity)
	assert.Equal(t, 500.0, c.Data["min_predicted"])

	c = DetectCashflowRisk(okForecast(2000, -50, 1800))
	require.NotNil(t, c)
	assert.Equal(t, SeverityHigh, c.Severity, "negative prediction is high severity")

	assert.Nil(t, DetectCashflowRisk(okForecast(2000, 1500, 1800)), "comfortably above threshold")
	assert.Nil(t, DetectCashflowRisk(forecast.Result{Status: forecast.StatusInsufficientData}),
		"no forecast means no alert")
}

func TestDetectConcentration(t *testing.T) {
	c := DetectConcentration(map[string]float64{"acme corp": 60, "globex": 40})
	require.NotNil(t, c)
	assert.Equal(t, TypeConcentration, c.Type)
	assert.Equal(t, SeverityMedium, c.Severity)
	assert.Equal(t, "acme corp", c.Data["counterparty"])
	assert.InDelta(t, 0.6, c.Data["share"].(float64), 1e-9)

	c = DetectConcentration(map[string]float64{"acme corp": 80, "globex": 20})
	require.NotNil(t, c)
	assert.Equal(t, SeverityHigh, c.Severity, "above three quarters is high severity")

	assert.Nil(t, DetectConcentration(map[string]float64{"acme corp": 50, "globex": 50}),
		"an even split does not fire")
	assert.Nil(t, DetectConcentration(map[string]float64{"acme corp": 100}),
		"a single counterparty never fires")
	assert.Nil(t, DetectConcentration(nil))
}

func TestDetectConcentrationCountsOnlyRevenueCounterparties(t *testing.T) {
	assert.Nil(t, DetectConcentration(map[string]float64{"acme corp": 100, "globex": 0}),
		"a zero-revenue entry does not satisfy the two-counterparty gate")
	assert.Nil(t, DetectConcentration(map[string]float64{"acme corp": 100, "globex": -25}),
		"refund-only counterparties do not count either")

	c := DetectConcentration(map[string]float64{"acme corp": 90, "globex": 10, "initech": -5})
	require.NotNil(t, c, "two real revenue counterparties fire normally")
	assert.Equal(t, SeverityHigh, c.Severity)
	assert.InDelta(t, 0.9, c.Data["share"].(float64), 1e-9)
}

func TestDetectSpendingSpike(t *testing.T) {
	c := DetectSpendingSpike(map[string]SpendPair{"Software": {Current: 350, Prior: 100}})
	require.NotNil(t, c, "250% increase fires")
	assert.Equal(t, TypeSpendingSpike, c.Type)
	assert.Equal(t, SeverityMedium, c.Severity)
	assert.Equal(t, "Software", c.Data["category"])
	assert.InDelta(t, 250, c.Data["increase_pct"].(float64), 1e-9)

	c = DetectSpendingSpike(map[string]SpendPair{"Travel": {Current: 700, Prior: 100}})
	require.NotNil(t, c)
	assert.Equal(t, SeverityHigh, c.Severity, "above 500% is high severity")

	assert.Nil(t, DetectSpendingSpike(map[string]SpendPair{"Rent": {Current: 250, Prior: 100}}),
		"150% increase is under the threshold")
	assert.Nil(t, DetectSpendingSpike(map[string]SpendPair{"Rent": {Current: 300, Prior: 100}}),
		"exactly 200% does not fire")
	assert.Nil(t, DetectSpendingSpike(map[string]SpendPair{"New Category": {Current: 5000, Prior: 0}}),
		"a brand-new category is not a spike")
	assert.Nil(t, DetectSpendingSpike(nil))
}

func TestDetectSpendingSpikePicksWorstCategory(t *testing.T) {
	c := DetectSpendingSpike(map[string]SpendPair{
		"Marketing": {Current: 350, Prior: 100},
		"Travel":    {Current: 1000, Prior: 100},
		"Rent":      {Current: 2000, Prior: 2000},
	})
	require.NotNil(t, c)
	assert.Equal(t, "Travel", c.Data["category"])
	assert.Equal(t, SeverityHigh, c.Severity)
	assert.InDelta(t, 900, c.Data["increase_pct"].(float64), 1e-9)
}
