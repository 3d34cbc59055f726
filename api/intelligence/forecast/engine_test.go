package forecast

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(offset int) time.Time {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return base.AddDate(0, 0, offset)
}

// dailyHistory builds one transaction per day for n days with amounts
// produced by f(dayIndex).
func dailyHistory(n int, f func(i int) float64) []HistoryPoint {
	history := make([]HistoryPoint, n)
	for i := 0; i < n; i++ {
		history[i] = HistoryPoint{Date: day(i), Amount: f(i)}
	}
	return history
}

func TestClampHorizon(t *testing.T) {
	assert.Equal(t, 1, ClampHorizon(0))
	assert.Equal(t, 1, ClampHorizon(-5))
	assert.Equal(t, 30, ClampHorizon(30))
	assert.Equal(t, 365, ClampHorizon(365))
	assert.Equal(t, 365, ClampHorizon(400))
}

func TestForecastNoHistory(t *testing.T) {
	result := Forecast(nil, 30)
	assert.Equal(t, StatusInsufficientData, result.Status)
	assert.Nil(t, result.Metrics)
	assert.Empty(t, result.Points)
}

func TestForecastShortSpanIsInsufficient(t *testing.T) {
	// 10 days of span, even with plenty of rows per day, is too little.
	var history []HistoryPoint
	for i := 0; i < 10; i++ {
		for j := 0; j < 10; j++ {
			history = append(history, HistoryPoint{Date: day(i), Amount: 5})
		}
	}
	result := Forecast(history, 30)
	assert.Equal(t, StatusInsufficientData, result.Status)
	assert.Equal(t, 10, result.HistoryDays)
	assert.Equal(t, 100, result.TransactionCount)
}

func TestForecastTooFewTransactionsIsInsufficient(t *testing.T) {
	// 70 days of span but only 35 transactions.
	history := make([]HistoryPoint, 0, 35)
	for i := 0; i < 70; i += 2 {
		history = append(history, HistoryPoint{Date: day(i), Amount: 5})
	}
	result := Forecast(history, 30)
	assert.Equal(t, StatusInsufficientData, result.Status)
	assert.Equal(t, 69, result.HistoryDays)
	assert.Equal(t, 35, result.TransactionCount)
}

func TestForecastFlatSeries(t *testing.T) {
	history := dailyHistory(90, func(int) float64 { return 10 })

	result := Forecast(history, 30)

	require.Equal(t, "success", result.Status, "the wire status for a completed forecast")
	require.Len(t, result.Points, 30)
	require.NotNil(t, result.Metrics)

	for _, p := range result.Points {
		assert.InDelta(t, 10, p.Predicted, 1e-6)
		assert.LessOrEqual(t, p.LowerBound, p.Predicted)
		assert.GreaterOrEqual(t, p.UpperBound, p.Predicted)
	}
	// 90 days * 10 in history plus 30 forecast days * 10.
	assert.InDelta(t, 1200, result.Metrics.ProjectedBalance, 0.5)
	assert.Equal(t, RiskLow, result.Metrics.CashflowRisk)
	// Direction is binary: a flat forecast does not exceed the
	// historical mean, so it reads as decreasing.
	assert.Equal(t, "decreasing", result.Metrics.TrendDirection)

	// 30 days roll up as 7+7+7+7+2.
	require.Len(t, result.Weekly, 5)
	assert.Equal(t, 7, result.Weekly[0].Days)
	assert.InDelta(t, 70, result.Weekly[0].Predicted, 1e-6)
	assert.Equal(t, 2, result.Weekly[4].Days)

	totalDays := 0
	for _, m := range result.Monthly {
		totalDays += m.Days
	}
	assert.Equal(t, 30, totalDays, "monthly buckets cover every forecast day")
}

func TestForecastRisingTrend(t *testing.T) {
	history := dailyHistory(90, func(i int) float64 { return float64(i) })

	result := Forecast(history, 30)

	require.Equal(t, StatusOK, result.Status)
	assert.Equal(t, "increasing", result.Metrics.TrendDirection)
	assert.Greater(t, result.Points[29].Predicted, result.Points[0].Predicted)
}

func TestForecastDeepNegativeIsHighRisk(t *testing.T) {
	history := dailyHistory(90, func(int) float64 { return -2000 })

	result := Forecast(history, 30)

	require.Equal(t, StatusOK, result.Status)
	assert.Equal(t, RiskHigh, result.Metrics.CashflowRisk)
}

func TestForecastMildDipIsMediumRisk(t *testing.T) {
	history := dailyHistory(90, func(int) float64 { return -100 })

	result := Forecast(history, 30)

	require.Equal(t, StatusOK, result.Status)
	assert.Equal(t, RiskMedium, result.Metrics.CashflowRisk)
}

func TestForecastHorizonIsClamped(t *testing.T) {
	history := dailyHistory(90, func(int) float64 { return 10 })

	result := Forecast(history, 1000)

	require.Equal(t, StatusOK, result.Status)
	assert.Equal(t, 365, result.HorizonDays)
	assert.Len(t, result.Points, 365)
}
