package forecast

import (
	"math"
	"time"

	"FinSightSaas/internal/config"
)

// Forecast outcome states.
const (
	StatusOK               = "success"
	StatusInsufficientData = "insufficient_data"
	StatusError            = "error"
)

// Risk levels reported in the forecast metrics.
const (
	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"
)

// Trend directions reported in the forecast metrics.
const (
	TrendIncreasing = "increasing"
	TrendDecreasing = "decreasing"
)

// HistoryPoint is one transaction's contribution to the history series.
type HistoryPoint struct {
	Date   time.Time
	Amount float64
}

// Point is one forecast day. Bounds are an 80% interval around the
// prediction.
type Point struct {
	Date       string  `json:"date"`
	Predicted  float64 `json:"predicted"`
	LowerBound float64 `json:"lower_bound"`
	UpperBound float64 `json:"upper_bound"`
}

// Metrics summarizes the forecast horizon.
type Metrics struct {
	ProjectedBalance float64 `json:"projected_balance"`
	CashflowRisk     string  `json:"cashflow_risk"`
	TrendDirection   string  `json:"trend_direction"`
}

// PeriodSummary rolls forecast days up into a coarser grain. Totals are
// sums of the daily values.
type PeriodSummary struct {
	Start      string  `json:"start"`
	Days       int     `json:"days"`
	Predicted  float64 `json:"predicted"`
	LowerBound float64 `json:"lower_bound"`
	UpperBound float64 `json:"upper_bound"`
}

// Result is the full forecast response. Points, rollups and Metrics are
// set only when Status is ok.
type Result struct {
	Status           string          `json:"status"`
	Message          string          `json:"message,omitempty"`
	HistoryDays      int             `json:"history_days"`
	TransactionCount int             `json:"transaction_count"`
	HorizonDays      int             `json:"horizon_days"`
	Points           []Point         `json:"points,omitempty"`
	Weekly           []PeriodSummary `json:"weekly,omitempty"`
	Monthly          []PeriodSummary `json:"monthly,omitempty"`
	Metrics          *Metrics        `json:"metrics,omitempty"`
}

// ClampHorizon bounds the requested horizon to [1, MaxForecastHorizonDays].
func ClampHorizon(days int) int {
	if days < 1 {
		return 1
	}
	if days > config.MaxForecastHorizonDays {
		return config.MaxForecastHorizonDays
	}
	return days
}

// Forecast projects daily net cashflow over the requested horizon using an
// additive model: least-squares linear trend plus day-of-week seasonal
// residual means. Pure function of its inputs.
func Forecast(history []HistoryPoint, days int) Result {
	days = ClampHorizon(days)

	if len(history) == 0 {
		return Result{
			Status:      StatusInsufficientData,
			Message:     "no transaction history",
			HorizonDays: days,
		}
	}

	first, last := history[0].Date, history[0].Date
	balance := 0.0
	for _, h := range history {
		if h.Date.Before(first) {
			first = h.Date
		}
		if h.Date.After(last) {
			last = h.Date
		}
		balance += h.Amount
	}
	first = first.Truncate(24 * time.Hour)
	last = last.Truncate(24 * time.Hour)
	spanDays := int(last.Sub(first).Hours()/24) + 1

	if spanDays < config.MinForecastDays || len(history) < config.MinForecastTransactions {
		return Result{
			Status:           StatusInsufficientData,
			Message:          "forecasting needs at least 60 days of history and 50 transactions",
			HistoryDays:      spanDays,
			TransactionCount: len(history),
			HorizonDays:      days,
		}
	}

	// Zero-filled daily net series across the full span. Days with no
	// transactions count as zero net movement.
	series := make([]float64, spanDays)
	for _, h := range history {
		idx := int(h.Date.Truncate(24 * time.Hour).Sub(first).Hours() / 24)
		if idx >= 0 && idx < spanDays {
			series[idx] += h.Amount
		}
	}

	slope, intercept, ok := linearFit(series)
	if !ok {
		return Result{
			Status:           StatusError,
			Message:          "model fit failed",
			HistoryDays:      spanDays,
			TransactionCount: len(history),
			HorizonDays:      days,
		}
	}

	// Day-of-week seasonality from detrended residuals; month-of-year on
	// top of that once a full year of history is available.
	seasonal := weekdayMeans(series, first, slope, intercept)
	var monthly [13]float64
	if spanDays >= 365 {
		monthly = monthMeans(series, first, slope, intercept, seasonal)
	}

	// Residual spread against the combined fit drives the interval width.
	var ssq float64
	for i, v := range series {
		day := first.AddDate(0, 0, i)
		fitted := slope*float64(i) + intercept + seasonal[int(day.Weekday())] + monthly[int(day.Month())]
		ssq += (v - fitted) * (v - fitted)
	}
	sigma := math.Sqrt(ssq / float64(len(series)))
	if math.IsNaN(sigma) || math.IsInf(sigma, 0) {
		return Result{
			Status:           StatusError,
			Message:          "model fit failed",
			HistoryDays:      spanDays,
			TransactionCount: len(history),
			HorizonDays:      days,
		}
	}
	// 80% interval: +/- 1.28 standard deviations.
	margin := 1.28 * sigma

	points := make([]Point, days)
	forecastSum := 0.0
	minLower := math.Inf(1)
	for i := 0; i < days; i++ {
		t := spanDays + i
		day := last.AddDate(0, 0, i+1)
		predicted := slope*float64(t) + intercept + seasonal[int(day.Weekday())] + monthly[int(day.Month())]
		points[i] = Point{
			Date:       day.Format("2006-01-02"),
			Predicted:  round2(predicted),
			LowerBound: round2(predicted - margin),
			UpperBound: round2(predicted + margin),
		}
		forecastSum += predicted
		if predicted-margin < minLower {
			minLower = predicted - margin
		}
	}

	histMean := mean(series)
	metrics := &Metrics{
		ProjectedBalance: round2(balance + forecastSum),
		CashflowRisk:     riskLevel(minLower),
		TrendDirection:   trendDirection(forecastSum/float64(days), histMean),
	}

	return Result{
		Status:           StatusOK,
		HistoryDays:      spanDays,
		TransactionCount: len(history),
		HorizonDays:      days,
		Points:           points,
		Weekly:           rollupWeekly(points),
		Monthly:          rollupMonthly(points),
		Metrics:          metrics,
	}
}

// rollupWeekly sums forecast days into consecutive 7-day buckets starting
// at the first forecast day; a short tail bucket keeps its real length.
func rollupWeekly(points []Point) []PeriodSummary {
	var out []PeriodSummary
	for start := 0; start < len(points); start += 7 {
		end := start + 7
		if end > len(points) {
			end = len(points)
		}
		out = append(out, sumPeriod(points[start:end]))
	}
	return out
}

// rollupMonthly sums forecast days by calendar month.
func rollupMonthly(points []Point) []PeriodSummary {
	var out []PeriodSummary
	start := 0
	for i := 1; i <= len(points); i++ {
		if i == len(points) || points[i].Date[:7] != points[start].Date[:7] {
			out = append(out, sumPeriod(points[start:i]))
			start = i
		}
	}
	return out
}

func sumPeriod(points []Point) PeriodSummary {
	s := PeriodSummary{Start: points[0].Date, Days: len(points)}
	for _, p := range points {
		s.Predicted += p.Predicted
		s.LowerBound += p.LowerBound
		s.UpperBound += p.UpperBound
	}
	s.Predicted = round2(s.Predicted)
	s.LowerBound = round2(s.LowerBound)
	s.UpperBound = round2(s.UpperBound)
	return s
}

// linearFit runs least squares over the series indexed 0..n-1. ok is false
// when the fit degenerates.
func linearFit(series []float64) (slope, intercept float64, ok bool) {
	n := float64(len(series))
	if n < 2 {
		return 0, 0, false
	}
	var sumX, sumY, sumXY, sumXX float64
	for i, v := range series {
		x := float64(i)
		sumX += x
		sumY += v
		sumXY += x * v
		sumXX += x * x
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0, 0, false
	}
	slope = (n*sumXY - sumX*sumY) / denom
	intercept = (sumY - slope*sumX) / n
	if math.IsNaN(slope) || math.IsNaN(intercept) {
		return 0, 0, false
	}
	return slope, intercept, true
}

// weekdayMeans returns the mean detrended residual per weekday.
func weekdayMeans(series []float64, first time.Time, slope, intercept float64) [7]float64 {
	var sums, counts [7]float64
	for i, v := range series {
		wd := int(first.AddDate(0, 0, i).Weekday())
		sums[wd] += v - (slope*float64(i) + intercept)
		counts[wd]++
	}
	var means [7]float64
	for wd := range sums {
		if counts[wd] > 0 {
			means[wd] = sums[wd] / counts[wd]
		}
	}
	return means
}

// monthMeans returns the mean residual per calendar month after trend and
// weekday effects are removed. Index by time.Month (1-12).
func monthMeans(series []float64, first time.Time, slope, intercept float64, weekday [7]float64) [13]float64 {
	var sums, counts [13]float64
	for i, v := range series {
		day := first.AddDate(0, 0, i)
		m := int(day.Month())
		sums[m] += v - (slope*float64(i) + intercept + weekday[int(day.Weekday())])
		counts[m]++
	}
	var means [13]float64
	for m := range sums {
		if counts[m] > 0 {
			means[m] = sums[m] / counts[m]
		}
	}
	return means
}

func riskLevel(minLowerBound float64) string {
	switch {
	case minLowerBound < -config.CashflowRiskThreshold:
		return RiskHigh
	case minLowerBound < 0:
		return RiskMedium
	default:
		return RiskLow
	}
}

// trendDirection is increasing exactly when the forecast mean daily net
// exceeds the historical mean, decreasing otherwise.
func trendDirection(forecastMean, histMean float64) string {
	if forecastMean > histMean {
		return TrendIncreasing
	}
	return TrendDecreasing
}

func mean(series []float64) float64 {
	if len(series) == 0 {
		return 0
	}
	total := 0.0
	for _, v := range series {
		total += v
	}
	return total / float64(len(series))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
