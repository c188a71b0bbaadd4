package reference

// Category vocabularies shared by the datasets, the model artifacts and the
// request schemas.
var (
	Days       = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}
	Shifts     = []string{"Day", "Evening", "Night"}
	Genders    = []string{"Male", "Female", "Unknown"}
	Insurances = []string{"Uninsured", "Medicare", "Private"}
)

// Triage levels in acuity order.
const (
	TriageImmediate  = "Immediate"
	TriageEmergency  = "Emergency"
	TriageUrgent     = "Urgent"
	TriageSemiUrgent = "Semi-Urgent"
)

var TriageLevels = []string{TriageImmediate, TriageEmergency, TriageUrgent, TriageSemiUrgent}

// TriageName maps a standard triage code to its level name. Codes outside
// 1..4 return "Unknown".
func TriageName(code int) string {
	if code >= 1 && code <= len(TriageLevels) {
		return TriageLevels[code-1]
	}
	return "Unknown"
}
