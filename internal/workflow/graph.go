package workflow

import "github.com/lifemakers/pirates-api/internal/models"

// StatusGraph holds the ordered status sequence of each approval path.
// Rejected is reachable from every non-terminal status of both paths.
type StatusGraph struct {
	sequences map[models.ApprovalPath][]models.TrainingStatus
	index     map[models.ApprovalPath]map[models.TrainingStatus]int
}

// NewStatusGraph builds the graph for the standard and PM-alternative paths.
func NewStatusGraph() *StatusGraph {
	g := &StatusGraph{
		sequences: map[models.ApprovalPath][]models.TrainingStatus{
			models.ApprovalPathStandard: {
				models.StatusUnderReview,
				models.StatusCCApproved,
				models.StatusSVApproved,
				models.StatusPMApproved,
				models.StatusTrainerAssigned,
				models.StatusCompleted,
			},
			models.ApprovalPathPMAlternative: {
				models.StatusSVApproved,
				models.StatusPMApproved,
				models.StatusTrainerAssigned,
				models.StatusCompleted,
			},
		},
		index: make(map[models.ApprovalPath]map[models.TrainingStatus]int),
	}
	for path, seq := range g.sequences {
		idx := make(map[models.TrainingStatus]int, len(seq))
		for i, status := range seq {
			idx[status] = i
		}
		g.index[path] = idx
	}
	return g
}

// PathForRole fixes the approval path from the requester's role.
func PathForRole(role models.UserRole) models.ApprovalPath {
	if role == models.RoleProjectManager {
		return models.ApprovalPathPMAlternative
	}
	return models.ApprovalPathStandard
}

// IsTerminal reports whether status has no outgoing transitions.
func IsTerminal(status models.TrainingStatus) bool {
	return status == models.StatusCompleted || status == models.StatusRejected
}

// IsTerminal reports whether status has no outgoing transitions.
func (g *StatusGraph) IsTerminal(status models.TrainingStatus) bool {
	return IsTerminal(status)
}

// InitialStatus returns the status a new request on path starts in.
func (g *StatusGraph) InitialStatus(path models.ApprovalPath) (models.TrainingStatus, bool) {
	seq, ok := g.sequences[path]
	if !ok || len(seq) == 0 {
		return "", false
	}
	return seq[0], true
}

// Statuses returns a copy of the ordered sequence for path.
func (g *StatusGraph) Statuses(path models.ApprovalPath) []models.TrainingStatus {
	seq := g.sequences[path]
	out := make([]models.TrainingStatus, len(seq))
	copy(out, seq)
	return out
}

// IsValidStatus reports whether status is legal for path.
func (g *StatusGraph) IsValidStatus(path models.ApprovalPath, status models.TrainingStatus) bool {
	idx, ok := g.index[path]
	if !ok {
		return false
	}
	if status == models.StatusRejected {
		return true
	}
	_, ok = idx[status]
	return ok
}

// NextStatus returns the single approve successor of status on path. It
// reports false when status is terminal or does not belong to path.
func (g *StatusGraph) NextStatus(path models.ApprovalPath, status models.TrainingStatus) (models.TrainingStatus, bool) {
	if IsTerminal(status) {
		return "", false
	}
	i, ok := g.index[path][status]
	if !ok {
		return "", false
	}
	seq := g.sequences[path]
	if i+1 >= len(seq) {
		return "", false
	}
	return seq[i+1], true
}

// Reachable lists every status reachable from the initial status of path by
// repeated advances, rejected included.
func (g *StatusGraph) Reachable(path models.ApprovalPath) []models.TrainingStatus {
	status, ok := g.InitialStatus(path)
	if !ok {
		return nil
	}
	out := []models.TrainingStatus{status}
	for {
		next, ok := g.NextStatus(path, status)
		if !ok {
			break
		}
		out = append(out, next)
		status = next
	}
	return append(out, models.StatusRejected)
}
