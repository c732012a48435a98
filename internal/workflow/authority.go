package workflow

import "github.com/lifemakers/pirates-api/internal/models"

type tier struct {
	path   models.ApprovalPath
	status models.TrainingStatus
}

// Authority decides which role may move a request away from its current status.
// Each non-terminal status belongs to exactly one tier; the administrative role
// overrides every tier.
type Authority struct {
	graph    *StatusGraph
	advancer map[tier]models.UserRole
}

// NewAuthority builds the authority table on top of graph.
func NewAuthority(graph *StatusGraph) *Authority {
	if graph == nil {
		graph = NewStatusGraph()
	}
	return &Authority{
		graph: graph,
		advancer: map[tier]models.UserRole{
			{models.ApprovalPathStandard, models.StatusUnderReview}:          models.RoleDevelopmentManagementOfficer,
			{models.ApprovalPathStandard, models.StatusCCApproved}:           models.RoleProgramSupervisor,
			{models.ApprovalPathStandard, models.StatusSVApproved}:           models.RoleProjectManager,
			{models.ApprovalPathStandard, models.StatusPMApproved}:           models.RoleTrainer,
			{models.ApprovalPathStandard, models.StatusTrainerAssigned}:      models.RoleTrainer,
			{models.ApprovalPathPMAlternative, models.StatusSVApproved}:      models.RoleProgramSupervisor,
			{models.ApprovalPathPMAlternative, models.StatusPMApproved}:      models.RoleTrainer,
			{models.ApprovalPathPMAlternative, models.StatusTrainerAssigned}: models.RoleTrainer,
		},
	}
}

// Graph exposes the status graph the table was built on.
func (a *Authority) Graph() *StatusGraph {
	return a.graph
}

// Advancer returns the tier role that acts on (path, status).
func (a *Authority) Advancer(path models.ApprovalPath, status models.TrainingStatus) (models.UserRole, bool) {
	role, ok := a.advancer[tier{path, status}]
	return role, ok
}

// CanAdvance reports whether role may trigger the advance transition.
func (a *Authority) CanAdvance(role models.UserRole, path models.ApprovalPath, status models.TrainingStatus) bool {
	if IsTerminal(status) || !a.graph.IsValidStatus(path, status) {
		return false
	}
	if role.IsAdministrative() {
		return true
	}
	advancer, ok := a.Advancer(path, status)
	return ok && advancer == role
}

// CanReject reports whether role may reject; any role that could advance may
// also reject, plus the administrative role.
func (a *Authority) CanReject(role models.UserRole, path models.ApprovalPath, status models.TrainingStatus) bool {
	if IsTerminal(status) || !a.graph.IsValidStatus(path, status) {
		return false
	}
	return a.CanAdvance(role, path, status) || role.IsAdministrative()
}

// CanAssignTrainer reports whether actor may assign trainerID. Trainers may
// only assign themselves.
func (a *Authority) CanAssignTrainer(actor Actor, path models.ApprovalPath, status models.TrainingStatus, trainerID string) bool {
	if status != models.StatusPMApproved || !a.graph.IsValidStatus(path, status) || trainerID == "" {
		return false
	}
	if actor.Role.IsAdministrative() {
		return true
	}
	return actor.Role == models.RoleTrainer && actor.UserID == trainerID
}

// Permits applies the role table plus the identity checks that depend on the
// request itself: once a trainer is assigned only that trainer (or an
// administrator) may act on the request.
func (a *Authority) Permits(actor Actor, action Action, req *models.TrainingRequest, trainerID string) bool {
	if req == nil {
		return false
	}
	switch action {
	case ActionAdvance:
		if !a.CanAdvance(actor.Role, req.ApprovalPath, req.Status) {
			return false
		}
	case ActionReject:
		if !a.CanReject(actor.Role, req.ApprovalPath, req.Status) {
			return false
		}
	case ActionAssignTrainer:
		return a.CanAssignTrainer(actor, req.ApprovalPath, req.Status, trainerID)
	default:
		return false
	}
	if actor.Role.IsAdministrative() || req.Status != models.StatusTrainerAssigned {
		return true
	}
	return actor.UserID != "" && actor.UserID == req.TrainerID()
}
