package planner

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/lieuhongthai/project-cost-quality-management-sub001/pkg/backend"
)

// Flow identifies one of the independent propose/edit/apply workflows a
// planning session can run. Flows never share state: each owns a disjoint
// slot inside the session.
type Flow string

const (
	FlowScreenFunction Flow = "screen-function"
	FlowStage          Flow = "stage"
	FlowReEstimate     Flow = "re-estimate"
	FlowSchedule       Flow = "schedule"
)

// flowOrder fixes the iteration order for views and error surfacing.
var flowOrder = []Flow{FlowScreenFunction, FlowStage, FlowReEstimate, FlowSchedule}

func ParseFlow(s string) (Flow, error) {
	switch Flow(s) {
	case FlowScreenFunction, FlowStage, FlowReEstimate, FlowSchedule:
		return Flow(s), nil
	}
	return "", fmt.Errorf("unknown flow %q", s)
}

// IsStageScoped reports whether the flow's request is scoped by the
// session's stage selection.
func (f Flow) IsStageScoped() bool {
	return f == FlowStage || f == FlowReEstimate
}

// FlowState is the lifecycle position of one flow slot.
type FlowState string

const (
	StateIdle       FlowState = "idle"
	StateRequesting FlowState = "requesting"
	StateProposed   FlowState = "proposed"
	StateEditing    FlowState = "editing"
	StateApplying   FlowState = "applying"
)

// inFlight reports whether a backend call is outstanding for the slot, in
// which case further triggers for the same flow are rejected.
func (s FlowState) inFlight() bool {
	return s == StateRequesting || s == StateApplying
}

// hasProposal reports whether the slot currently holds a proposal the user
// can edit, apply or discard.
func (s FlowState) hasProposal() bool {
	return s == StateProposed || s == StateEditing
}

// EstimateRow is one screen-function estimate line.
type EstimateRow struct {
	ScreenFunctionId     int
	ScreenFunctionName   string
	EstimatedEffortHours float64
	Confidence           string
	Reasoning            string
}

// StageRow is one stage estimate line. The re-estimation fields stay zero
// for plain stage estimation.
type StageRow struct {
	StageId              int
	StageName            string
	EstimatedEffortHours float64
	EffortDistribution   string
	StartDate            string
	EndDate              string
	Confidence           string
	Reasoning            string

	OriginalEstimatedHours float64
	CurrentActualHours     float64
	CurrentProgress        float64
}

// ScheduleRow is one task assignment line of a generated schedule.
type ScheduleRow struct {
	StepScreenFunctionId int
	MemberId             int
	TaskName             string
	MemberName           string
	EstimatedEffort      float64
	EstimatedStartDate   string
	EstimatedEndDate     string
}

// proposal bundles everything one AI response delivered. A stored proposal
// is never mutated; edits go to a deep copy seeded on arrival.
type proposal struct {
	source             string
	assumptions        []string
	calibrationInsight string
	warnings           []string
	summary            string

	estimates   []EstimateRow
	stages      []StageRow
	assignments []ScheduleRow
}

// clone returns a row-for-row copy. All row fields are value types, so
// copying the slices copies the data.
func (p *proposal) clone() *proposal {
	if p == nil {
		return nil
	}
	copied := &proposal{
		source:             p.source,
		calibrationInsight: p.calibrationInsight,
		summary:            p.summary,
	}
	if p.assumptions != nil {
		copied.assumptions = append([]string(nil), p.assumptions...)
	}
	if p.warnings != nil {
		copied.warnings = append([]string(nil), p.warnings...)
	}
	if p.estimates != nil {
		copied.estimates = append([]EstimateRow(nil), p.estimates...)
	}
	if p.stages != nil {
		copied.stages = append([]StageRow(nil), p.stages...)
	}
	if p.assignments != nil {
		copied.assignments = append([]ScheduleRow(nil), p.assignments...)
	}
	return copied
}

func (p *proposal) rowCount() int {
	if p == nil {
		return 0
	}
	return len(p.estimates) + len(p.stages) + len(p.assignments)
}

// flowSlot holds one flow's state. The proposal and its editable copy are
// only ever set and cleared together.
type flowSlot struct {
	state         FlowState
	proposal      *proposal
	rows          *proposal
	errMsg        string
	lastAppliedAt time.Time
}

func newFlowSlot() *flowSlot {
	return &flowSlot{state: StateIdle}
}

// seed installs a fresh proposal: the editable copy is a deep copy of the
// arrived rows and edit mode starts locked.
func (s *flowSlot) seed(p *proposal) {
	s.proposal = p
	s.rows = p.clone()
	s.state = StateProposed
	s.errMsg = ""
}

// clear drops the proposal and its editable copy atomically and returns the
// slot to idle.
func (s *flowSlot) clear() {
	s.proposal = nil
	s.rows = nil
	s.state = StateIdle
}

// Aggregates is the latest snapshot of the project data readiness is
// derived from. It holds no derived state of its own.
type Aggregates struct {
	ScreenFunctions []backend.ScreenFunction
	Members         []backend.Member
	Stages          []backend.Stage
	Settings        *backend.ProjectSettings
}

func (a Aggregates) activeMemberCount() int {
	count := 0
	for _, m := range a.Members {
		if m.Status == backend.MemberStatusActive {
			count++
		}
	}
	return count
}

func (a Aggregates) stageIds() []int {
	ids := make([]int, 0, len(a.Stages))
	for _, stage := range a.Stages {
		ids = append(ids, stage.Id)
	}
	return ids
}

// Readiness is a pure function of the latest aggregates, recomputed on
// every read rather than cached.
type Readiness struct {
	ScreenFunctionCount int  `json:"screenFunctionCount"`
	MemberCount         int  `json:"memberCount"`
	ActiveMemberCount   int  `json:"activeMemberCount"`
	StageCount          int  `json:"stageCount"`
	HasSettings         bool `json:"hasSettings"`

	ScreenFunctionFlow bool `json:"screenFunctionFlow"`
	StageFlows         bool `json:"stageFlows"`
	ScheduleFlow       bool `json:"scheduleFlow"`
}

func deriveReadiness(a Aggregates) Readiness {
	r := Readiness{
		ScreenFunctionCount: len(a.ScreenFunctions),
		MemberCount:         len(a.Members),
		ActiveMemberCount:   a.activeMemberCount(),
		StageCount:          len(a.Stages),
		HasSettings:         a.Settings != nil,
	}
	r.ScreenFunctionFlow = r.ScreenFunctionCount > 0
	r.StageFlows = r.StageCount > 0
	r.ScheduleFlow = r.ScreenFunctionCount > 0 && r.ActiveMemberCount > 0 && r.StageCount > 0
	return r
}

func (r Readiness) forFlow(flow Flow) bool {
	switch flow {
	case FlowScreenFunction:
		return r.ScreenFunctionFlow
	case FlowStage, FlowReEstimate:
		return r.StageFlows
	case FlowSchedule:
		return r.ScheduleFlow
	}
	return false
}

// Session is one planning dialog session. All mutation goes through the
// mutex; backend calls happen with the mutex released so distinct flows of
// the same session can be in flight concurrently.
type Session struct {
	Id        string
	ProjectId int

	mu             sync.Mutex
	language       string
	aggregates     Aggregates
	stageSelection map[int]struct{}
	flows          map[Flow]*flowSlot
}

func newSession(id string, projectId int, language string) *Session {
	flows := make(map[Flow]*flowSlot, len(flowOrder))
	for _, flow := range flowOrder {
		flows[flow] = newFlowSlot()
	}
	return &Session{
		Id:             id,
		ProjectId:      projectId,
		language:       language,
		stageSelection: make(map[int]struct{}),
		flows:          flows,
	}
}

// setAggregates installs a fresh snapshot. When the available stage list
// changes identity the stage selection resets to the full set.
func (s *Session) setAggregates(a Aggregates) {
	previous := s.aggregates.stageIds()
	s.aggregates = a
	if !sameIdSet(previous, a.stageIds()) {
		s.selectAllStages()
	}
}

func (s *Session) selectAllStages() {
	s.stageSelection = make(map[int]struct{}, len(s.aggregates.Stages))
	for _, stage := range s.aggregates.Stages {
		s.stageSelection[stage.Id] = struct{}{}
	}
}

// selectedStageIds returns the selection in ascending order.
func (s *Session) selectedStageIds() []int {
	ids := make([]int, 0, len(s.stageSelection))
	for id := range s.stageSelection {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// stageFilter resolves the scoping rule for stage-scoped requests: a
// selection equal to the full available set omits the filter (backend
// default is all stages), a strict subset is sent explicitly.
func (s *Session) stageFilter() []int {
	if len(s.stageSelection) == len(s.aggregates.Stages) {
		return nil
	}
	return s.selectedStageIds()
}

func sameIdSet(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[int]struct{}, len(a))
	for _, id := range a {
		set[id] = struct{}{}
	}
	for _, id := range b {
		if _, ok := set[id]; !ok {
			return false
		}
	}
	return true
}
