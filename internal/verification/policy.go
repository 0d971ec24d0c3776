package verification

import "github.com/sittipong-hemloun/ai-trash-rank-sub000/internal/extractor"

// ConfidenceThreshold is the exclusive lower bound on model confidence for
// a verification to be accepted.
const ConfidenceThreshold = 0.7

// Policy decides whether a validated result confirms the work.
type Policy func(*extractor.Result) bool

// CollectMatchPolicy accepts a collection photo matching both the reported
// trash type and quantity.
func CollectMatchPolicy(r *extractor.Result) bool {
	return r != nil && r.TrashTypeMatch && r.QuantityMatch && r.Confidence > ConfidenceThreshold
}

// CleanupPolicy accepts an after photo showing the trash was removed.
func CleanupPolicy(r *extractor.Result) bool {
	return r != nil && r.TrashIsCollected && r.Confidence > ConfidenceThreshold
}
