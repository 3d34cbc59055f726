package config

const (
	DefaultTimeZone = "UTC"

	// Import pipeline limits
	MaxUploadBytes     = 10 * 1024 * 1024 // hard cap checked before any record exists
	DetectionSampleMax = 20
	PreviewRowMax      = 20
	ValueSampleMax     = 10 // per-column values inspected during detection

	// Detection thresholds
	ManualInputThreshold  = 0.85
	MatchRateMin          = 0.7
	DescriptionMinMeanLen = 10.0

	// Forecast Engine Constants
	MinForecastDays         = 60
	MinForecastTransactions = 50
	MaxForecastHorizonDays  = 365
	ForecastHistoryDays     = 365

	// Alert Engine Constants
	CashflowRiskThreshold      = 1000.0
	CashflowRiskHorizonDays    = 30
	ConcentrationWindowDays    = 90
	ConcentrationThreshold     = 0.5
	ConcentrationHighThreshold = 0.75
	SpikeWindowDays            = 30
	SpikeIncreasePct           = 200.0
	SpikeHighIncreasePct       = 500.0
	AlertDedupHours            = 24

	// Cron Configuration Constants
	DefaultAlertSchedule      = "0 * * * *" // hourly sweep across owners
	AlertSweepBatchSize       = 100
	DefaultEnrichmentSchedule = "0 18 * * *" // 6 PM daily
	EnrichmentBatchSize       = 200
)
