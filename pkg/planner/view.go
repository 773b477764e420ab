package planner

import (
	"time"

	"github.com/lieuhongthai/project-cost-quality-management-sub001/pkg/effort"
)

// DiffDirection classifies a re-estimated row against its original
// estimate, purely for display styling. The apply payload always carries
// the edited value verbatim.
type DiffDirection string

const (
	DiffOver      DiffDirection = "over"
	DiffUnder     DiffDirection = "under"
	DiffUnchanged DiffDirection = "unchanged"
)

type StageOption struct {
	Id   int
	Name string
}

type EstimateRowView struct {
	EstimateRow
	EffortDisplay string
}

type StageRowView struct {
	StageRow
	EffortDisplay string

	// Re-estimation only: edited value held against the original estimate.
	Diff          float64
	DiffDirection DiffDirection
}

type FlowView struct {
	Flow     Flow
	State    FlowState
	EditMode bool

	Source             string
	Assumptions        []string
	CalibrationInsight string
	Warnings           []string
	Summary            string

	Estimates   []EstimateRowView
	Stages      []StageRowView
	Assignments []ScheduleRow

	TotalEstimatedHours float64
	TotalManMonths      float64
	TotalDisplay        string

	Error         string
	LastAppliedAt *time.Time
}

type SessionView struct {
	Id               string
	ProjectId        int
	Language         string
	Readiness        Readiness
	AvailableStages  []StageOption
	SelectedStageIds []int
	DisplayUnit      effort.Unit
	Flows            []FlowView

	// Error is the first error message found across the flows, in fixed
	// flow order; empty when no flow is in an error state.
	Error string
}

func (s *SessionServiceImpl) snapshot(session *Session) SessionView {
	session.mu.Lock()
	defer session.mu.Unlock()
	return s.snapshotLocked(session)
}

func (s *SessionServiceImpl) snapshotLocked(session *Session) SessionView {
	settings := workSettings(session.aggregates)
	displayUnit := displayUnit(session.aggregates)

	view := SessionView{
		Id:               session.Id,
		ProjectId:        session.ProjectId,
		Language:         session.language,
		Readiness:        deriveReadiness(session.aggregates),
		SelectedStageIds: session.selectedStageIds(),
		DisplayUnit:      displayUnit,
		Flows:            make([]FlowView, 0, len(flowOrder)),
	}
	for _, stage := range session.aggregates.Stages {
		view.AvailableStages = append(view.AvailableStages, StageOption{Id: stage.Id, Name: stage.Name})
	}

	for _, flow := range flowOrder {
		flowView := buildFlowView(flow, session.flows[flow], displayUnit, settings)
		if view.Error == "" && flowView.Error != "" {
			view.Error = flowView.Error
		}
		view.Flows = append(view.Flows, flowView)
	}
	return view
}

func buildFlowView(flow Flow, slot *flowSlot, displayUnit effort.Unit, settings effort.WorkSettings) FlowView {
	view := FlowView{
		Flow:     flow,
		State:    slot.state,
		EditMode: slot.state == StateEditing,
		Error:    slot.errMsg,
	}
	if !slot.lastAppliedAt.IsZero() {
		appliedAt := slot.lastAppliedAt
		view.LastAppliedAt = &appliedAt
	}
	rows := slot.rows
	if rows == nil {
		return view
	}

	view.Source = rows.source
	view.Assumptions = rows.assumptions
	view.CalibrationInsight = rows.calibrationInsight
	view.Warnings = rows.warnings
	view.Summary = rows.summary

	total := 0.0
	for _, row := range rows.estimates {
		total += row.EstimatedEffortHours
		view.Estimates = append(view.Estimates, EstimateRowView{
			EstimateRow:   row,
			EffortDisplay: effort.FormatWithUnit(row.EstimatedEffortHours, displayUnit, effort.UnitManHour, settings),
		})
	}
	for _, row := range rows.stages {
		total += row.EstimatedEffortHours
		stageView := StageRowView{
			StageRow:      row,
			EffortDisplay: effort.FormatWithUnit(row.EstimatedEffortHours, displayUnit, effort.UnitManHour, settings),
		}
		if flow == FlowReEstimate {
			stageView.Diff = row.EstimatedEffortHours - row.OriginalEstimatedHours
			switch {
			case stageView.Diff > 0:
				stageView.DiffDirection = DiffOver
			case stageView.Diff < 0:
				stageView.DiffDirection = DiffUnder
			default:
				stageView.DiffDirection = DiffUnchanged
			}
		}
		view.Stages = append(view.Stages, stageView)
	}
	for _, row := range rows.assignments {
		total += row.EstimatedEffort
		view.Assignments = append(view.Assignments, row)
	}

	view.TotalEstimatedHours = total
	view.TotalManMonths = effort.Convert(total, effort.UnitManHour, effort.UnitManMonth, settings)
	view.TotalDisplay = effort.FormatWithUnit(total, displayUnit, effort.UnitManHour, settings)
	return view
}

func displayUnit(a Aggregates) effort.Unit {
	if a.Settings == nil {
		return effort.UnitManHour
	}
	switch effort.Unit(a.Settings.DefaultEffortUnit) {
	case effort.UnitManDay:
		return effort.UnitManDay
	case effort.UnitManMonth:
		return effort.UnitManMonth
	default:
		return effort.UnitManHour
	}
}
