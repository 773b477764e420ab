package planner

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/lieuhongthai/project-cost-quality-management-sub001/internal/event_bus"
	"github.com/lieuhongthai/project-cost-quality-management-sub001/internal/utils"
	"github.com/lieuhongthai/project-cost-quality-management-sub001/pkg/backend"
	"github.com/lieuhongthai/project-cost-quality-management-sub001/pkg/effort"
	log "github.com/sirupsen/logrus"
)

var (
	ErrSessionNotFound    = fmt.Errorf("planning session not found")
	ErrFlowBusy           = fmt.Errorf("a request for this flow is already in flight")
	ErrNotReady           = fmt.Errorf("project data is not ready for this flow")
	ErrNoStageSelected    = fmt.Errorf("no stage selected")
	ErrStageNotFound      = fmt.Errorf("stage does not belong to this project")
	ErrNoProposal         = fmt.Errorf("flow holds no proposal")
	ErrEditLocked         = fmt.Errorf("edit mode is not enabled for this flow")
	ErrRowIndexOutOfRange = fmt.Errorf("row index out of range")
	ErrUnknownField       = fmt.Errorf("field is not editable")
)

// RequestOptions carries per-flow request parameters. StageId targets the
// schedule flow, which plans a single stage.
type RequestOptions struct {
	StageId int
}

type SessionService interface {
	CreateSession(ctx context.Context, projectId int, language string) (SessionView, error)
	GetSession(ctx context.Context, sessionId string) (SessionView, error)
	CloseSession(ctx context.Context, sessionId string) error
	Refresh(ctx context.Context, sessionId string) (SessionView, error)
	SetLanguage(ctx context.Context, sessionId string, language string) (SessionView, error)
	SelectStages(ctx context.Context, sessionId string, stageIds []int) (SessionView, error)
	Request(ctx context.Context, sessionId string, flow Flow, opts RequestOptions) (SessionView, error)
	SetEditMode(ctx context.Context, sessionId string, flow Flow, enabled bool) (SessionView, error)
	EditRow(ctx context.Context, sessionId string, flow Flow, index int, field string, value any) (SessionView, error)
	Apply(ctx context.Context, sessionId string, flow Flow) (SessionView, error)
	Discard(ctx context.Context, sessionId string, flow Flow) (SessionView, error)
}

type SessionServiceImpl struct {
	client backend.Client
	bus    *event_bus.EventBus
	clock  utils.Clock

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewSessionService(client backend.Client, bus *event_bus.EventBus, clock utils.Clock) *SessionServiceImpl {
	return &SessionServiceImpl{
		client:   client,
		bus:      bus,
		clock:    clock,
		sessions: make(map[string]*Session),
	}
}

func (s *SessionServiceImpl) CreateSession(ctx context.Context, projectId int, language string) (SessionView, error) {
	if language == "" {
		language = "English"
	}
	aggregates, err := s.fetchAggregates(ctx, projectId)
	if err != nil {
		return SessionView{}, err
	}

	session := newSession(uuid.New().String(), projectId, language)
	session.setAggregates(aggregates)

	s.mu.Lock()
	s.sessions[session.Id] = session
	s.mu.Unlock()

	log.Infof("Created planning session %s for project %d", session.Id, projectId)
	return s.snapshot(session), nil
}

func (s *SessionServiceImpl) GetSession(ctx context.Context, sessionId string) (SessionView, error) {
	session, err := s.session(sessionId)
	if err != nil {
		return SessionView{}, err
	}
	return s.snapshot(session), nil
}

func (s *SessionServiceImpl) CloseSession(ctx context.Context, sessionId string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sessionId]; !ok {
		return ErrSessionNotFound
	}
	delete(s.sessions, sessionId)
	log.Debugf("Closed planning session %s", sessionId)
	return nil
}

// Refresh re-fetches the readiness aggregates. The fetch is an idempotent
// read with no ordering constraints relative to in-flight estimations.
func (s *SessionServiceImpl) Refresh(ctx context.Context, sessionId string) (SessionView, error) {
	session, err := s.session(sessionId)
	if err != nil {
		return SessionView{}, err
	}
	aggregates, err := s.fetchAggregates(ctx, session.ProjectId)
	if err != nil {
		return SessionView{}, err
	}

	session.mu.Lock()
	session.setAggregates(aggregates)
	session.mu.Unlock()

	return s.snapshot(session), nil
}

func (s *SessionServiceImpl) SetLanguage(ctx context.Context, sessionId string, language string) (SessionView, error) {
	session, err := s.session(sessionId)
	if err != nil {
		return SessionView{}, err
	}
	session.mu.Lock()
	if language != "" {
		session.language = language
	}
	session.mu.Unlock()
	return s.snapshot(session), nil
}

// SelectStages replaces the stage selection. Ids outside the available
// stage list are rejected; an empty list is a valid selection that blocks
// stage-scoped requests until changed.
func (s *SessionServiceImpl) SelectStages(ctx context.Context, sessionId string, stageIds []int) (SessionView, error) {
	session, err := s.session(sessionId)
	if err != nil {
		return SessionView{}, err
	}

	session.mu.Lock()
	available := make(map[int]struct{}, len(session.aggregates.Stages))
	for _, stage := range session.aggregates.Stages {
		available[stage.Id] = struct{}{}
	}
	selection := make(map[int]struct{}, len(stageIds))
	for _, id := range stageIds {
		if _, ok := available[id]; !ok {
			session.mu.Unlock()
			return SessionView{}, fmt.Errorf("%w: %d", ErrStageNotFound, id)
		}
		selection[id] = struct{}{}
	}
	session.stageSelection = selection
	session.mu.Unlock()

	return s.snapshot(session), nil
}

// Request dispatches the flow's estimation/scheduling call. The trigger is
// refused while the same flow is in flight; a fresh request discards any
// previous proposal for the flow. The session lock is released around the
// backend call so other flows stay independently usable.
func (s *SessionServiceImpl) Request(ctx context.Context, sessionId string, flow Flow, opts RequestOptions) (SessionView, error) {
	session, err := s.session(sessionId)
	if err != nil {
		return SessionView{}, err
	}

	session.mu.Lock()
	slot := session.flows[flow]
	if slot.state.inFlight() {
		session.mu.Unlock()
		return SessionView{}, ErrFlowBusy
	}
	if !deriveReadiness(session.aggregates).forFlow(flow) {
		session.mu.Unlock()
		return SessionView{}, ErrNotReady
	}

	var stageFilter []int
	if flow.IsStageScoped() {
		if len(session.stageSelection) == 0 {
			session.mu.Unlock()
			return SessionView{}, ErrNoStageSelected
		}
		stageFilter = session.stageFilter()
	}
	if flow == FlowSchedule {
		if !hasStage(session.aggregates, opts.StageId) {
			session.mu.Unlock()
			return SessionView{}, fmt.Errorf("%w: %d", ErrStageNotFound, opts.StageId)
		}
	}
	projectId := session.ProjectId
	language := session.language

	slot.clear()
	slot.state = StateRequesting
	session.mu.Unlock()

	result, callErr := s.dispatch(ctx, flow, projectId, language, stageFilter, opts.StageId)

	session.mu.Lock()
	defer session.mu.Unlock()
	if callErr != nil {
		slot.state = StateIdle
		slot.errMsg = errorMessage(callErr)
		log.Warnf("Flow %s request failed for session %s: %v", flow, sessionId, callErr)
		return s.snapshotLocked(session), callErr
	}

	slot.seed(result)
	s.publish(ctx, event_bus.PlannerProposalReceived, session, flow, slot)
	return s.snapshotLocked(session), nil
}

// SetEditMode flips the edit flag. It only changes whether row edits are
// accepted; no data value is touched.
func (s *SessionServiceImpl) SetEditMode(ctx context.Context, sessionId string, flow Flow, enabled bool) (SessionView, error) {
	session, err := s.session(sessionId)
	if err != nil {
		return SessionView{}, err
	}

	session.mu.Lock()
	slot := session.flows[flow]
	if !slot.state.hasProposal() {
		session.mu.Unlock()
		return SessionView{}, ErrNoProposal
	}
	if enabled {
		slot.state = StateEditing
	} else {
		slot.state = StateProposed
	}
	session.mu.Unlock()

	return s.snapshot(session), nil
}

// EditRow mutates one field of one editable row in place. The stored
// proposal stays untouched; only the working copy changes.
func (s *SessionServiceImpl) EditRow(ctx context.Context, sessionId string, flow Flow, index int, field string, value any) (SessionView, error) {
	session, err := s.session(sessionId)
	if err != nil {
		return SessionView{}, err
	}

	session.mu.Lock()
	slot := session.flows[flow]
	if !slot.state.hasProposal() {
		session.mu.Unlock()
		return SessionView{}, ErrNoProposal
	}
	if slot.state != StateEditing {
		session.mu.Unlock()
		return SessionView{}, ErrEditLocked
	}

	settings := workSettings(session.aggregates)
	editErr := applyEdit(slot.rows, flow, index, field, value, settings)
	session.mu.Unlock()

	if editErr != nil {
		return SessionView{}, editErr
	}
	return s.snapshot(session), nil
}

// Apply posts the edited rows back to the backend. On success the proposal
// and the working copy are cleared together; on failure the slot returns to
// its previous state with the error recorded.
func (s *SessionServiceImpl) Apply(ctx context.Context, sessionId string, flow Flow) (SessionView, error) {
	session, err := s.session(sessionId)
	if err != nil {
		return SessionView{}, err
	}

	session.mu.Lock()
	slot := session.flows[flow]
	if slot.state.inFlight() {
		session.mu.Unlock()
		return SessionView{}, ErrFlowBusy
	}
	if !slot.state.hasProposal() {
		session.mu.Unlock()
		return SessionView{}, ErrNoProposal
	}
	priorState := slot.state
	rows := slot.rows
	projectId := session.ProjectId
	slot.state = StateApplying
	session.mu.Unlock()

	callErr := s.applyRows(ctx, flow, projectId, rows)

	session.mu.Lock()
	defer session.mu.Unlock()
	if callErr != nil {
		slot.state = priorState
		slot.errMsg = errorMessage(callErr)
		log.Warnf("Flow %s apply failed for session %s: %v", flow, sessionId, callErr)
		return s.snapshotLocked(session), callErr
	}

	source := ""
	rowCount := rows.rowCount()
	if slot.proposal != nil {
		source = slot.proposal.source
	}
	slot.clear()
	slot.errMsg = ""
	slot.lastAppliedAt = s.clock.Now()
	s.publishRaw(ctx, event_bus.PlannerProposalApplied, session, flow, source, rowCount)
	return s.snapshotLocked(session), nil
}

// Discard drops the proposal and the editable copy in one operation without
// any backend call.
func (s *SessionServiceImpl) Discard(ctx context.Context, sessionId string, flow Flow) (SessionView, error) {
	session, err := s.session(sessionId)
	if err != nil {
		return SessionView{}, err
	}

	session.mu.Lock()
	slot := session.flows[flow]
	if !slot.state.hasProposal() {
		session.mu.Unlock()
		return SessionView{}, ErrNoProposal
	}
	source := slot.proposal.source
	rowCount := slot.proposal.rowCount()
	slot.clear()
	slot.errMsg = ""
	s.publishRaw(ctx, event_bus.PlannerProposalDiscarded, session, flow, source, rowCount)
	session.mu.Unlock()

	return s.snapshot(session), nil
}

func (s *SessionServiceImpl) session(sessionId string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionId]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

func (s *SessionServiceImpl) fetchAggregates(ctx context.Context, projectId int) (Aggregates, error) {
	screenFunctions, err := s.client.GetScreenFunctions(ctx, projectId)
	if err != nil {
		return Aggregates{}, fmt.Errorf("failed to fetch screen functions: %w", err)
	}
	members, err := s.client.GetMembers(ctx, projectId)
	if err != nil {
		return Aggregates{}, fmt.Errorf("failed to fetch members: %w", err)
	}
	stages, err := s.client.GetStages(ctx, projectId)
	if err != nil {
		return Aggregates{}, fmt.Errorf("failed to fetch stages: %w", err)
	}
	settings, err := s.client.GetProjectSettings(ctx, projectId)
	if err != nil {
		return Aggregates{}, fmt.Errorf("failed to fetch project settings: %w", err)
	}
	return Aggregates{
		ScreenFunctions: screenFunctions,
		Members:         members,
		Stages:          stages,
		Settings:        settings,
	}, nil
}

func (s *SessionServiceImpl) dispatch(ctx context.Context, flow Flow, projectId int, language string, stageFilter []int, scheduleStageId int) (*proposal, error) {
	switch flow {
	case FlowScreenFunction:
		result, err := s.client.EstimateEffort(ctx, backend.EstimateRequest{ProjectId: projectId, Language: language})
		if err != nil {
			return nil, err
		}
		rows := make([]EstimateRow, 0, len(result.Estimates))
		for _, e := range result.Estimates {
			rows = append(rows, EstimateRow{
				ScreenFunctionId:     e.ScreenFunctionId,
				ScreenFunctionName:   e.ScreenFunctionName,
				EstimatedEffortHours: e.EstimatedEffortHours,
				Confidence:           e.Confidence,
				Reasoning:            e.Reasoning,
			})
		}
		return &proposal{source: result.Source, assumptions: result.Assumptions, estimates: rows}, nil

	case FlowStage:
		result, err := s.client.EstimateStageEffort(ctx, backend.StageEstimateRequest{ProjectId: projectId, Language: language, StageIds: stageFilter})
		if err != nil {
			return nil, err
		}
		rows := make([]StageRow, 0, len(result.Estimates))
		for _, e := range result.Estimates {
			rows = append(rows, stageRowFromEstimate(e))
		}
		return &proposal{source: result.Source, assumptions: result.Assumptions, stages: rows}, nil

	case FlowReEstimate:
		result, err := s.client.ReEstimateStages(ctx, backend.StageEstimateRequest{ProjectId: projectId, Language: language, StageIds: stageFilter})
		if err != nil {
			return nil, err
		}
		rows := make([]StageRow, 0, len(result.Estimates))
		for _, e := range result.Estimates {
			row := stageRowFromEstimate(e.StageEstimate)
			row.OriginalEstimatedHours = e.OriginalEstimatedHours
			row.CurrentActualHours = e.CurrentActualHours
			row.CurrentProgress = e.CurrentProgress
			rows = append(rows, row)
		}
		return &proposal{
			source:             result.Source,
			assumptions:        result.Assumptions,
			calibrationInsight: result.CalibrationInsight,
			stages:             rows,
		}, nil

	case FlowSchedule:
		result, err := s.client.GenerateSchedule(ctx, backend.ScheduleRequest{ProjectId: projectId, StageId: scheduleStageId, Language: language})
		if err != nil {
			return nil, err
		}
		rows := make([]ScheduleRow, 0, len(result.Assignments))
		for _, a := range result.Assignments {
			rows = append(rows, ScheduleRow{
				StepScreenFunctionId: a.StepScreenFunctionId,
				MemberId:             a.MemberId,
				TaskName:             a.TaskName,
				MemberName:           a.MemberName,
				EstimatedEffort:      a.EstimatedEffort,
				EstimatedStartDate:   a.EstimatedStartDate,
				EstimatedEndDate:     a.EstimatedEndDate,
			})
		}
		return &proposal{
			source:      result.Source,
			warnings:    result.Warnings,
			summary:     result.Summary,
			assignments: rows,
		}, nil
	}
	return nil, fmt.Errorf("unknown flow %q", flow)
}

func (s *SessionServiceImpl) applyRows(ctx context.Context, flow Flow, projectId int, rows *proposal) error {
	switch flow {
	case FlowScreenFunction:
		items := make([]backend.EstimateApplyItem, 0, len(rows.estimates))
		for _, row := range rows.estimates {
			items = append(items, backend.EstimateApplyItem{
				ScreenFunctionId:     row.ScreenFunctionId,
				EstimatedEffortHours: row.EstimatedEffortHours,
			})
		}
		return s.client.ApplyEstimation(ctx, projectId, items)

	case FlowStage, FlowReEstimate:
		// Stage estimation and re-estimation share the backend's apply
		// endpoint; only the row sets differ.
		items := make([]backend.StageApplyItem, 0, len(rows.stages))
		for _, row := range rows.stages {
			items = append(items, backend.StageApplyItem{
				StageId:              row.StageId,
				EstimatedEffortHours: row.EstimatedEffortHours,
				StartDate:            row.StartDate,
				EndDate:              row.EndDate,
			})
		}
		return s.client.ApplyStageEstimation(ctx, projectId, items)

	case FlowSchedule:
		items := make([]backend.ScheduleApplyItem, 0, len(rows.assignments))
		for _, row := range rows.assignments {
			items = append(items, backend.ScheduleApplyItem{
				StepScreenFunctionId: row.StepScreenFunctionId,
				MemberId:             row.MemberId,
				EstimatedEffort:      row.EstimatedEffort,
				EstimatedStartDate:   row.EstimatedStartDate,
				EstimatedEndDate:     row.EstimatedEndDate,
			})
		}
		return s.client.ApplySchedule(ctx, items)
	}
	return fmt.Errorf("unknown flow %q", flow)
}

func stageRowFromEstimate(e backend.StageEstimate) StageRow {
	return StageRow{
		StageId:              e.StageId,
		StageName:            e.StageName,
		EstimatedEffortHours: e.EstimatedEffortHours,
		EffortDistribution:   e.EffortDistribution,
		StartDate:            e.SuggestedStartDate,
		EndDate:              e.SuggestedEndDate,
		Confidence:           e.Confidence,
		Reasoning:            e.Reasoning,
	}
}

// applyEdit coerces and writes one field edit. Effort fields accept plain
// numbers (man-hours) or unit-suffixed strings which are converted to
// man-hours with the project's work settings.
func applyEdit(rows *proposal, flow Flow, index int, field string, value any, settings effort.WorkSettings) error {
	switch flow {
	case FlowScreenFunction:
		if index < 0 || index >= len(rows.estimates) {
			return ErrRowIndexOutOfRange
		}
		row := &rows.estimates[index]
		switch field {
		case "estimatedEffortHours":
			hours, err := coerceEffortHours(value, settings)
			if err != nil {
				return err
			}
			row.EstimatedEffortHours = hours
		default:
			return fmt.Errorf("%w: %s", ErrUnknownField, field)
		}

	case FlowStage, FlowReEstimate:
		if index < 0 || index >= len(rows.stages) {
			return ErrRowIndexOutOfRange
		}
		row := &rows.stages[index]
		switch field {
		case "estimatedEffortHours":
			hours, err := coerceEffortHours(value, settings)
			if err != nil {
				return err
			}
			row.EstimatedEffortHours = hours
		case "startDate":
			text, err := coerceString(value)
			if err != nil {
				return err
			}
			row.StartDate = text
		case "endDate":
			text, err := coerceString(value)
			if err != nil {
				return err
			}
			row.EndDate = text
		default:
			return fmt.Errorf("%w: %s", ErrUnknownField, field)
		}

	case FlowSchedule:
		if index < 0 || index >= len(rows.assignments) {
			return ErrRowIndexOutOfRange
		}
		row := &rows.assignments[index]
		switch field {
		case "memberId":
			id, err := coerceInt(value)
			if err != nil {
				return err
			}
			row.MemberId = id
		case "estimatedEffort":
			hours, err := coerceEffortHours(value, settings)
			if err != nil {
				return err
			}
			row.EstimatedEffort = hours
		case "estimatedStartDate":
			text, err := coerceString(value)
			if err != nil {
				return err
			}
			row.EstimatedStartDate = text
		case "estimatedEndDate":
			text, err := coerceString(value)
			if err != nil {
				return err
			}
			row.EstimatedEndDate = text
		default:
			return fmt.Errorf("%w: %s", ErrUnknownField, field)
		}
	}
	return nil
}

func coerceEffortHours(value any, settings effort.WorkSettings) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case string:
		parsed, unit := effort.ParseInput(v, effort.UnitManHour)
		return effort.ToManHours(parsed, unit, settings), nil
	}
	return 0, fmt.Errorf("effort value must be a number or a unit-suffixed string")
}

func coerceInt(value any) (int, error) {
	switch v := value.(type) {
	case float64:
		return int(v), nil
	case int:
		return v, nil
	}
	return 0, fmt.Errorf("value must be an integer")
}

func coerceString(value any) (string, error) {
	if text, ok := value.(string); ok {
		return text, nil
	}
	return "", fmt.Errorf("value must be a string")
}

func hasStage(a Aggregates, stageId int) bool {
	for _, stage := range a.Stages {
		if stage.Id == stageId {
			return true
		}
	}
	return false
}

func workSettings(a Aggregates) effort.WorkSettings {
	if a.Settings == nil {
		return effort.WorkSettings{}
	}
	return effort.WorkSettings{
		WorkingHoursPerDay:  a.Settings.WorkingHoursPerDay,
		WorkingDaysPerMonth: a.Settings.WorkingDaysPerMonth,
	}
}

func errorMessage(err error) string {
	if err == nil || err.Error() == "" {
		return "unknown error"
	}
	return err.Error()
}

func (s *SessionServiceImpl) publish(ctx context.Context, eventType event_bus.EventType, session *Session, flow Flow, slot *flowSlot) {
	source := ""
	rowCount := 0
	if slot.proposal != nil {
		source = slot.proposal.source
		rowCount = slot.proposal.rowCount()
	}
	s.publishRaw(ctx, eventType, session, flow, source, rowCount)
}

func (s *SessionServiceImpl) publishRaw(ctx context.Context, eventType event_bus.EventType, session *Session, flow Flow, source string, rowCount int) {
	if s.bus == nil {
		return
	}
	err := s.bus.Publish(event_bus.NewEvent(ctx, eventType, event_bus.PlannerProposalEvent{
		SessionId: session.Id,
		ProjectId: session.ProjectId,
		Flow:      string(flow),
		Source:    source,
		RowCount:  rowCount,
	}))
	if err != nil {
		log.Debugf("Failed to publish %s event: %v", eventType, err)
	}
}
