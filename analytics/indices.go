package analytics

// Safety index weights. They sum to 1.
//
// The weighting is provisional: no domain rationale backs these values and
// they may be retuned once one exists.
const (
	WeightWellbeing = 0.30
	WeightPPE       = 0.25
	WeightTraining  = 0.25
	WeightIncidents = 0.20
)

// SafetyComponents are department level component scores on a 0..100 scale.
type SafetyComponents struct {
	Wellbeing    float64 `json:"wellbeing"`
	PPE          float64 `json:"ppe"`
	Training     float64 `json:"training"`
	IncidentRate float64 `json:"incident_rate"`
}

// SafetyIndex is the weighted department safety score, higher is safer.
// The incident rate enters inverted as 100 - rate.
func SafetyIndex(c SafetyComponents) float64 {
	return WeightWellbeing*c.Wellbeing +
		WeightPPE*c.PPE +
		WeightTraining*c.Training +
		WeightIncidents*(100-c.IncidentRate)
}

// SafetyCultureIndex combines protective equipment use, training completion
// and near-miss reporting, each in 0..1, into a 0..100 score. Higher is safer.
func SafetyCultureIndex(ppeUse, training, nearMissReporting float64) float64 {
	return (ppeUse + training + nearMissReporting) / 3 * 100
}

// VulnerabilityIndex combines normalized psychological distress (0..1),
// safety motivation (0..1, entered inverted) and whether the person had a
// prior incident into a 0..100 score. Higher is more vulnerable.
func VulnerabilityIndex(normalizedDistress, safetyMotivation float64, priorIncident bool) float64 {
	incident := 0.0
	if priorIncident {
		incident = 1
	}
	return (normalizedDistress + (1 - safetyMotivation) + incident) / 3 * 100
}
