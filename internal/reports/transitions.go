package reports

import "github.com/sittipong-hemloun/ai-trash-rank-sub000/internal/repository"

// Statuses only move forward.
var allowedTransitions = map[repository.ReportStatus][]repository.ReportStatus{
	repository.ReportPending:    {repository.ReportInProgress},
	repository.ReportInProgress: {repository.ReportCompleted, repository.ReportVerified},
	repository.ReportCompleted:  {repository.ReportVerified},
	repository.ReportVerified:   {},
}

// CanTransition checks if a status transition is allowed.
func CanTransition(from, to repository.ReportStatus) bool {
	for _, allowedTo := range allowedTransitions[from] {
		if allowedTo == to {
			return true
		}
	}
	return false
}

// sourcesOf returns every status that may move to to.
func sourcesOf(to repository.ReportStatus) []repository.ReportStatus {
	var from []repository.ReportStatus
	for _, status := range []repository.ReportStatus{
		repository.ReportPending,
		repository.ReportInProgress,
		repository.ReportCompleted,
		repository.ReportVerified,
	} {
		if CanTransition(status, to) {
			from = append(from, status)
		}
	}
	return from
}
