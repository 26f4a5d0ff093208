package types

// Telemetry metric names for CloudWatch.
// All components MUST use these constants.
const (
	// Metric Names
	MetricOutreachSent    = "OutreachSent"
	MetricOutreachErrors  = "OutreachErrors"
	MetricOutreachSkipped = "OutreachSkipped"
	MetricQuotaRemaining  = "QuotaRemaining"
	MetricRunDuration     = "RunDuration"

	// Dimension Keys
	DimStage = "Stage"

	// Metric Namespace
	MetricNamespace = "Outreach"
)
