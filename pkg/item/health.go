package item

import "fmt"

// Health reports the structural integrity of a message sequence.
type Health struct {
	IsValid             bool     `json:"is_valid"`
	HasInvalidResponses bool     `json:"has_invalid_responses"`
	ContinuityScore     float64  `json:"continuity_score"`
	Issues              []string `json:"issues"`
}

// HealthyDefault is the health of a freshly created, empty conversation.
func HealthyDefault() Health {
	return Health{
		IsValid:             true,
		HasInvalidResponses: false,
		ContinuityScore:     1.0,
		Issues:              []string{},
	}
}

// ValidateHealth scans a message sequence for orphaned function calls: calls
// whose call_id has no matching output, and outputs whose call_id has no
// matching call. The continuity score is 1.0 minus the ratio of orphans to
// call-related items.
func ValidateHealth(items []Item) Health {
	calls := make(map[string]bool)
	outputs := make(map[string]bool)
	callish := 0

	for i := range items {
		it := &items[i]
		switch it.Type {
		case TypeFunctionCall:
			calls[it.CallID] = true
			callish++
		case TypeFunctionCallOutput:
			outputs[it.CallID] = true
			callish++
		case TypeMessage, TypeReasoning:
		}
	}

	health := HealthyDefault()

	orphans := 0
	// Iterate the original sequence so issue ordering is deterministic.
	seen := make(map[string]bool)
	for i := range items {
		it := &items[i]
		switch it.Type {
		case TypeFunctionCall:
			if !outputs[it.CallID] && !seen["c:"+it.CallID] {
				seen["c:"+it.CallID] = true
				orphans++
				health.Issues = append(health.Issues, fmt.Sprintf("Orphaned function call: %s", it.CallID))
			}
		case TypeFunctionCallOutput:
			if !calls[it.CallID] && !seen["o:"+it.CallID] {
				seen["o:"+it.CallID] = true
				orphans++
				health.HasInvalidResponses = true
				health.Issues = append(health.Issues, fmt.Sprintf("Orphaned function call output: %s", it.CallID))
			}
		case TypeMessage, TypeReasoning:
		}
	}

	health.IsValid = orphans == 0
	if orphans > 0 && callish > 0 {
		health.ContinuityScore = 1.0 - float64(orphans)/float64(callish)
		if health.ContinuityScore < 0 {
			health.ContinuityScore = 0
		}
	}
	return health
}
