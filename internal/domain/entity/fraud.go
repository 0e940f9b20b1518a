package entity

// RiskLevel is derived from a fraud risk score.
type RiskLevel string

const (
	RiskLevelLow    RiskLevel = "LOW"
	RiskLevelMedium RiskLevel = "MEDIUM"
	RiskLevelHigh   RiskLevel = "HIGH"
)

// FraudVerdict is the outcome of one fraud evaluation. TriggeredRules and
// Reasons follow rule evaluation order.
type FraudVerdict struct {
	TriggeredRules []string  `json:"triggered_rules"`
	RiskScore      int       `json:"risk_score"`
	RiskLevel      RiskLevel `json:"risk_level"`
	Reasons        []string  `json:"reasons"`
}

// Triggered reports whether rule is in the verdict.
func (v *FraudVerdict) Triggered(rule string) bool {
	for _, name := range v.TriggeredRules {
		if name == rule {
			return true
		}
	}
	return false
}

// Details summarizes the verdict for an activity log entry.
func (v *FraudVerdict) Details() map[string]interface{} {
	return map[string]interface{}{
		"risk_score":      v.RiskScore,
		"risk_level":      string(v.RiskLevel),
		"triggered_rules": v.TriggeredRules,
		"reasons":         v.Reasons,
	}
}
