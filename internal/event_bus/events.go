package event_bus

const (
	PlannerProposalReceived  EventType = "planner.proposal.received"
	PlannerProposalApplied   EventType = "planner.proposal.applied"
	PlannerProposalDiscarded EventType = "planner.proposal.discarded"
)

// PlannerProposalEvent describes a proposal lifecycle change in a planning
// session. RowCount is the number of estimate/assignment rows involved.
type PlannerProposalEvent struct {
	SessionId string
	ProjectId int
	Flow      string
	Source    string
	RowCount  int
}
