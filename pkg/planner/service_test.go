package planner

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/lieuhongthai/project-cost-quality-management-sub001/internal/event_bus"
	"github.com/lieuhongthai/project-cost-quality-management-sub001/internal/utils"
	"github.com/lieuhongthai/project-cost-quality-management-sub001/pkg/backend"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ctx = context.Background()

var clientStub = backend.NewClientStub()

var clock = &utils.MockClock{FixedNow: time.Date(2026, 2, 10, 9, 30, 0, 0, time.UTC)}

var service *SessionServiceImpl

var bus *event_bus.EventBus

func setup(t *testing.T) func() {
	bus = event_bus.NewEventBus()
	service = NewSessionService(clientStub, bus, clock)

	clientStub.SetScreenFunctions(1, []backend.ScreenFunction{
		{Id: 1, Name: "Login"},
		{Id: 2, Name: "Dashboard"},
	})
	clientStub.SetMembers(1, []backend.Member{
		{Id: 1, Name: "An", Role: "DEV", Status: "Active"},
		{Id: 2, Name: "Binh", Role: "QA", Status: "Inactive"},
	})
	clientStub.SetStages(1, []backend.Stage{
		{Id: 10, Name: "Requirement"},
		{Id: 20, Name: "Design"},
		{Id: 30, Name: "Coding"},
	})
	clientStub.SetProjectSettings(1, &backend.ProjectSettings{
		WorkingHoursPerDay:  8,
		WorkingDaysPerMonth: 20,
		DefaultEffortUnit:   "man-hour",
	})
	clientStub.SetEstimationResult(backend.EstimationResult{
		Source: "AI",
		Estimates: []backend.ScreenFunctionEstimate{
			{ScreenFunctionId: 1, ScreenFunctionName: "Login", EstimatedEffortHours: 10, Confidence: "high", Reasoning: "simple form"},
			{ScreenFunctionId: 2, ScreenFunctionName: "Dashboard", EstimatedEffortHours: 30, Confidence: "medium", Reasoning: "many widgets"},
		},
		Assumptions: []string{"standard CRUD complexity"},
	}, nil)
	clientStub.SetStageEstimationResult(backend.StageEstimationResult{
		Source: "AI",
		Estimates: []backend.StageEstimate{
			{StageId: 10, StageName: "Requirement", EstimatedEffortHours: 40, EffortDistribution: "20%", SuggestedStartDate: "2026-03-01", SuggestedEndDate: "2026-03-10", Confidence: "high"},
			{StageId: 20, StageName: "Design", EstimatedEffortHours: 60, EffortDistribution: "30%", Confidence: "medium"},
		},
	}, nil)
	clientStub.SetReEstimationResult(backend.ReEstimationResult{
		Source: "AI",
		Estimates: []backend.StageReEstimate{
			{
				StageEstimate:          backend.StageEstimate{StageId: 20, StageName: "Design", EstimatedEffortHours: 70, Confidence: "medium"},
				OriginalEstimatedHours: 60,
				CurrentActualHours:     35,
				CurrentProgress:        50,
			},
			{
				StageEstimate:          backend.StageEstimate{StageId: 30, StageName: "Coding", EstimatedEffortHours: 80, Confidence: "low"},
				OriginalEstimatedHours: 80,
				CurrentActualHours:     0,
				CurrentProgress:        0,
			},
		},
		CalibrationInsight: "design is trending 17% over",
	}, nil)
	clientStub.SetScheduleResult(backend.ScheduleResult{
		Source: "AI",
		Assignments: []backend.ScheduleAssignment{
			{StepScreenFunctionId: 100, MemberId: 1, TaskName: "Login", MemberName: "An", EstimatedEffort: 10, EstimatedStartDate: "2026-03-01", EstimatedEndDate: "2026-03-03"},
		},
		Warnings: []string{"member An is near capacity"},
	}, nil)

	return func() {
		t.Log("Teardown after test")
		clientStub.Cleanup()
	}
}

func createSession(t *testing.T) SessionView {
	view, err := service.CreateSession(ctx, 1, "English")
	require.NoError(t, err)
	return view
}

func flowView(t *testing.T, view SessionView, flow Flow) FlowView {
	for _, f := range view.Flows {
		if f.Flow == flow {
			return f
		}
	}
	t.Fatalf("flow %s not found in session view", flow)
	return FlowView{}
}

func TestSessionServiceImpl_CreateSession(t *testing.T) {
	t.Run("should derive readiness and select all stages", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		// when
		view := createSession(t)

		// then
		assert.Equal(t, 1, view.ProjectId)
		assert.Equal(t, "English", view.Language)
		assert.Equal(t, 2, view.Readiness.ScreenFunctionCount)
		assert.Equal(t, 1, view.Readiness.ActiveMemberCount)
		assert.Equal(t, 3, view.Readiness.StageCount)
		assert.True(t, view.Readiness.HasSettings)
		assert.True(t, view.Readiness.ScreenFunctionFlow)
		assert.True(t, view.Readiness.StageFlows)
		assert.True(t, view.Readiness.ScheduleFlow)
		assert.Equal(t, []int{10, 20, 30}, view.SelectedStageIds)
		for _, flow := range view.Flows {
			assert.Equal(t, StateIdle, flow.State)
			assert.False(t, flow.EditMode)
		}
	})

	t.Run("should block flows when aggregates are missing", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		// given: project without members or screen functions
		clientStub.SetStages(2, []backend.Stage{{Id: 10, Name: "Requirement"}})

		// when
		view, err := service.CreateSession(ctx, 2, "")

		// then
		require.NoError(t, err)
		assert.Equal(t, "English", view.Language)
		assert.False(t, view.Readiness.ScreenFunctionFlow)
		assert.True(t, view.Readiness.StageFlows)
		assert.False(t, view.Readiness.ScheduleFlow)

		// and the gated flow refuses to dispatch
		_, err = service.Request(ctx, view.Id, FlowScreenFunction, RequestOptions{})
		assert.ErrorIs(t, err, ErrNotReady)
		assert.Empty(t, clientStub.EstimateRequests)
	})
}

func TestSessionServiceImpl_Request(t *testing.T) {
	t.Run("should seed an editable copy with edit mode locked", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()
		session := createSession(t)

		// when
		view, err := service.Request(ctx, session.Id, FlowScreenFunction, RequestOptions{})

		// then
		require.NoError(t, err)
		flow := flowView(t, view, FlowScreenFunction)
		assert.Equal(t, StateProposed, flow.State)
		assert.False(t, flow.EditMode)
		assert.Equal(t, "AI", flow.Source)
		assert.Equal(t, []string{"standard CRUD complexity"}, flow.Assumptions)
		require.Len(t, flow.Estimates, 2)
		assert.Equal(t, 10.0, flow.Estimates[0].EstimatedEffortHours)
		assert.Equal(t, 40.0, flow.TotalEstimatedHours)
		assert.Equal(t, 0.25, flow.TotalManMonths)
	})

	t.Run("should pass the session language to the backend", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()
		session := createSession(t)
		_, err := service.SetLanguage(ctx, session.Id, "Japanese")
		require.NoError(t, err)

		// when
		_, err = service.Request(ctx, session.Id, FlowScreenFunction, RequestOptions{})

		// then
		require.NoError(t, err)
		require.Len(t, clientStub.EstimateRequests, 1)
		assert.Equal(t, "Japanese", clientStub.EstimateRequests[0].Language)
	})

	t.Run("should return to idle with the error recorded on failure", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()
		session := createSession(t)
		clientStub.SetEstimationResult(backend.EstimationResult{}, fmt.Errorf("backend returned status 500"))

		// when
		_, err := service.Request(ctx, session.Id, FlowScreenFunction, RequestOptions{})

		// then
		require.Error(t, err)
		view, getErr := service.GetSession(ctx, session.Id)
		require.NoError(t, getErr)
		flow := flowView(t, view, FlowScreenFunction)
		assert.Equal(t, StateIdle, flow.State)
		assert.Equal(t, "backend returned status 500", flow.Error)
		assert.Equal(t, "backend returned status 500", view.Error)

		// and the flow can be re-triggered manually
		clientStub.SetEstimationResult(backend.EstimationResult{Source: "Template"}, nil)
		view, err = service.Request(ctx, session.Id, FlowScreenFunction, RequestOptions{})
		require.NoError(t, err)
		assert.Equal(t, StateProposed, flowView(t, view, FlowScreenFunction).State)
		assert.Empty(t, view.Error)
	})

	t.Run("should reject a request while the flow is in flight", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()
		session := createSession(t)
		service.sessions[session.Id].flows[FlowStage].state = StateRequesting

		// when
		_, err := service.Request(ctx, session.Id, FlowStage, RequestOptions{})

		// then
		assert.ErrorIs(t, err, ErrFlowBusy)
		assert.Empty(t, clientStub.StageEstimateRequests)
	})

	t.Run("should keep flows independent", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()
		session := createSession(t)
		service.sessions[session.Id].flows[FlowStage].state = StateRequesting

		// when: another flow dispatches while the stage flow is busy
		view, err := service.Request(ctx, session.Id, FlowScreenFunction, RequestOptions{})

		// then
		require.NoError(t, err)
		assert.Equal(t, StateProposed, flowView(t, view, FlowScreenFunction).State)
		assert.Equal(t, StateRequesting, flowView(t, view, FlowStage).State)
	})

	t.Run("should require a valid stage for the schedule flow", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()
		session := createSession(t)

		// when
		_, err := service.Request(ctx, session.Id, FlowSchedule, RequestOptions{StageId: 999})

		// then
		assert.ErrorIs(t, err, ErrStageNotFound)

		// and a known stage dispatches
		view, err := service.Request(ctx, session.Id, FlowSchedule, RequestOptions{StageId: 10})
		require.NoError(t, err)
		flow := flowView(t, view, FlowSchedule)
		assert.Equal(t, StateProposed, flow.State)
		require.Len(t, flow.Assignments, 1)
		assert.Equal(t, []string{"member An is near capacity"}, flow.Warnings)
		require.Len(t, clientStub.ScheduleRequests, 1)
		assert.Equal(t, 10, clientStub.ScheduleRequests[0].StageId)
	})
}

func TestSessionServiceImpl_StageScoping(t *testing.T) {
	t.Run("should omit the stage filter when all stages are selected", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()
		session := createSession(t)

		// when
		_, err := service.Request(ctx, session.Id, FlowStage, RequestOptions{})

		// then
		require.NoError(t, err)
		require.Len(t, clientStub.StageEstimateRequests, 1)
		assert.Nil(t, clientStub.StageEstimateRequests[0].StageIds)
	})

	t.Run("should send exactly the selected ids for a strict subset", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()
		session := createSession(t)
		_, err := service.SelectStages(ctx, session.Id, []int{30, 10})
		require.NoError(t, err)

		// when
		_, err = service.Request(ctx, session.Id, FlowReEstimate, RequestOptions{})

		// then
		require.NoError(t, err)
		require.Len(t, clientStub.ReEstimateRequests, 1)
		assert.Equal(t, []int{10, 30}, clientStub.ReEstimateRequests[0].StageIds)
	})

	t.Run("should block the request entirely for an empty selection", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()
		session := createSession(t)
		_, err := service.SelectStages(ctx, session.Id, []int{})
		require.NoError(t, err)

		// when
		_, err = service.Request(ctx, session.Id, FlowStage, RequestOptions{})

		// then
		assert.ErrorIs(t, err, ErrNoStageSelected)
		assert.Empty(t, clientStub.StageEstimateRequests)
	})

	t.Run("should reject ids outside the available stages", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()
		session := createSession(t)

		// when
		_, err := service.SelectStages(ctx, session.Id, []int{10, 999})

		// then
		assert.ErrorIs(t, err, ErrStageNotFound)
	})
}

func TestSessionServiceImpl_EditMode(t *testing.T) {
	t.Run("should toggle enablement without touching data", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()
		session := createSession(t)
		_, err := service.Request(ctx, session.Id, FlowScreenFunction, RequestOptions{})
		require.NoError(t, err)

		// when
		view, err := service.SetEditMode(ctx, session.Id, FlowScreenFunction, true)

		// then
		require.NoError(t, err)
		flow := flowView(t, view, FlowScreenFunction)
		assert.Equal(t, StateEditing, flow.State)
		assert.True(t, flow.EditMode)
		assert.Equal(t, 10.0, flow.Estimates[0].EstimatedEffortHours)
		assert.Equal(t, 30.0, flow.Estimates[1].EstimatedEffortHours)

		// and back
		view, err = service.SetEditMode(ctx, session.Id, FlowScreenFunction, false)
		require.NoError(t, err)
		flow = flowView(t, view, FlowScreenFunction)
		assert.Equal(t, StateProposed, flow.State)
		assert.Equal(t, 10.0, flow.Estimates[0].EstimatedEffortHours)
	})

	t.Run("should require a proposal", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()
		session := createSession(t)

		// when
		_, err := service.SetEditMode(ctx, session.Id, FlowScreenFunction, true)

		// then
		assert.ErrorIs(t, err, ErrNoProposal)
	})
}

func TestSessionServiceImpl_EditRow(t *testing.T) {
	t.Run("should mutate only the editable copy", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()
		session := createSession(t)
		_, err := service.Request(ctx, session.Id, FlowScreenFunction, RequestOptions{})
		require.NoError(t, err)
		_, err = service.SetEditMode(ctx, session.Id, FlowScreenFunction, true)
		require.NoError(t, err)

		// when
		view, err := service.EditRow(ctx, session.Id, FlowScreenFunction, 0, "estimatedEffortHours", 12.5)

		// then
		require.NoError(t, err)
		flow := flowView(t, view, FlowScreenFunction)
		assert.Equal(t, 12.5, flow.Estimates[0].EstimatedEffortHours)

		// and the stored proposal is untouched
		slot := service.sessions[session.Id].flows[FlowScreenFunction]
		assert.Equal(t, 10.0, slot.proposal.estimates[0].EstimatedEffortHours)
		assert.Equal(t, 12.5, slot.rows.estimates[0].EstimatedEffortHours)
	})

	t.Run("should accept unit-suffixed effort input", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()
		session := createSession(t)
		_, err := service.Request(ctx, session.Id, FlowScreenFunction, RequestOptions{})
		require.NoError(t, err)
		_, err = service.SetEditMode(ctx, session.Id, FlowScreenFunction, true)
		require.NoError(t, err)

		// when: 2 man-days at 8 hours/day
		view, err := service.EditRow(ctx, session.Id, FlowScreenFunction, 0, "estimatedEffortHours", "2md")

		// then
		require.NoError(t, err)
		assert.Equal(t, 16.0, flowView(t, view, FlowScreenFunction).Estimates[0].EstimatedEffortHours)
	})

	t.Run("should refuse edits while edit mode is locked", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()
		session := createSession(t)
		_, err := service.Request(ctx, session.Id, FlowScreenFunction, RequestOptions{})
		require.NoError(t, err)

		// when
		_, err = service.EditRow(ctx, session.Id, FlowScreenFunction, 0, "estimatedEffortHours", 1.0)

		// then
		assert.ErrorIs(t, err, ErrEditLocked)
	})

	t.Run("should validate index and field", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()
		session := createSession(t)
		_, err := service.Request(ctx, session.Id, FlowScreenFunction, RequestOptions{})
		require.NoError(t, err)
		_, err = service.SetEditMode(ctx, session.Id, FlowScreenFunction, true)
		require.NoError(t, err)

		// when / then
		_, err = service.EditRow(ctx, session.Id, FlowScreenFunction, 5, "estimatedEffortHours", 1.0)
		assert.ErrorIs(t, err, ErrRowIndexOutOfRange)

		_, err = service.EditRow(ctx, session.Id, FlowScreenFunction, 0, "reasoning", "nope")
		assert.ErrorIs(t, err, ErrUnknownField)
	})

	t.Run("should edit stage dates", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()
		session := createSession(t)
		_, err := service.Request(ctx, session.Id, FlowStage, RequestOptions{})
		require.NoError(t, err)
		_, err = service.SetEditMode(ctx, session.Id, FlowStage, true)
		require.NoError(t, err)

		// when
		view, err := service.EditRow(ctx, session.Id, FlowStage, 0, "startDate", "2026-03-05")

		// then
		require.NoError(t, err)
		assert.Equal(t, "2026-03-05", flowView(t, view, FlowStage).Stages[0].StartDate)
	})
}

func TestSessionServiceImpl_Apply(t *testing.T) {
	t.Run("should post the edited rows verbatim and clear the slot", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()
		session := createSession(t)
		_, err := service.Request(ctx, session.Id, FlowScreenFunction, RequestOptions{})
		require.NoError(t, err)
		_, err = service.SetEditMode(ctx, session.Id, FlowScreenFunction, true)
		require.NoError(t, err)
		_, err = service.EditRow(ctx, session.Id, FlowScreenFunction, 1, "estimatedEffortHours", 25.0)
		require.NoError(t, err)

		// when
		view, err := service.Apply(ctx, session.Id, FlowScreenFunction)

		// then
		require.NoError(t, err)
		require.Len(t, clientStub.AppliedEstimates, 1)
		applied := clientStub.AppliedEstimates[0]
		require.Len(t, applied, 2)
		assert.Equal(t, backend.EstimateApplyItem{ScreenFunctionId: 1, EstimatedEffortHours: 10}, applied[0])
		assert.Equal(t, backend.EstimateApplyItem{ScreenFunctionId: 2, EstimatedEffortHours: 25}, applied[1])

		flow := flowView(t, view, FlowScreenFunction)
		assert.Equal(t, StateIdle, flow.State)
		assert.Empty(t, flow.Estimates)
		require.NotNil(t, flow.LastAppliedAt)
		assert.Equal(t, clock.FixedNow, *flow.LastAppliedAt)

		slot := service.sessions[session.Id].flows[FlowScreenFunction]
		assert.Nil(t, slot.proposal)
		assert.Nil(t, slot.rows)
	})

	t.Run("should use the shared stage apply endpoint for re-estimation", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()
		session := createSession(t)
		_, err := service.Request(ctx, session.Id, FlowReEstimate, RequestOptions{})
		require.NoError(t, err)

		// when
		_, err = service.Apply(ctx, session.Id, FlowReEstimate)

		// then
		require.NoError(t, err)
		require.Len(t, clientStub.AppliedStageEstimates, 1)
		applied := clientStub.AppliedStageEstimates[0]
		require.Len(t, applied, 2)
		assert.Equal(t, 20, applied[0].StageId)
		assert.Equal(t, 70.0, applied[0].EstimatedEffortHours)
	})

	t.Run("should restore the previous state on failure", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()
		session := createSession(t)
		_, err := service.Request(ctx, session.Id, FlowScreenFunction, RequestOptions{})
		require.NoError(t, err)
		_, err = service.SetEditMode(ctx, session.Id, FlowScreenFunction, true)
		require.NoError(t, err)
		clientStub.SetApplyErrors(fmt.Errorf("apply rejected"), nil, nil)

		// when
		_, err = service.Apply(ctx, session.Id, FlowScreenFunction)

		// then
		require.Error(t, err)
		view, getErr := service.GetSession(ctx, session.Id)
		require.NoError(t, getErr)
		flow := flowView(t, view, FlowScreenFunction)
		assert.Equal(t, StateEditing, flow.State)
		assert.Equal(t, "apply rejected", flow.Error)
		require.Len(t, flow.Estimates, 2)
	})

	t.Run("should require a proposal", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()
		session := createSession(t)

		// when
		_, err := service.Apply(ctx, session.Id, FlowScreenFunction)

		// then
		assert.ErrorIs(t, err, ErrNoProposal)
	})
}

func TestSessionServiceImpl_Discard(t *testing.T) {
	t.Run("should clear proposal and editable copy together without a backend call", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()
		session := createSession(t)
		_, err := service.Request(ctx, session.Id, FlowScreenFunction, RequestOptions{})
		require.NoError(t, err)

		// when
		view, err := service.Discard(ctx, session.Id, FlowScreenFunction)

		// then
		require.NoError(t, err)
		flow := flowView(t, view, FlowScreenFunction)
		assert.Equal(t, StateIdle, flow.State)
		assert.Empty(t, flow.Estimates)
		assert.Empty(t, clientStub.AppliedEstimates)

		slot := service.sessions[session.Id].flows[FlowScreenFunction]
		assert.Nil(t, slot.proposal)
		assert.Nil(t, slot.rows)
	})
}

func TestSessionServiceImpl_ReEstimateDiff(t *testing.T) {
	t.Run("should classify edited rows against the original estimate", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()
		session := createSession(t)
		_, err := service.Request(ctx, session.Id, FlowReEstimate, RequestOptions{})
		require.NoError(t, err)
		_, err = service.SetEditMode(ctx, session.Id, FlowReEstimate, true)
		require.NoError(t, err)

		// when: pull the coding stage below its original estimate
		view, err := service.EditRow(ctx, session.Id, FlowReEstimate, 1, "estimatedEffortHours", 72.0)

		// then
		require.NoError(t, err)
		flow := flowView(t, view, FlowReEstimate)
		assert.Equal(t, "design is trending 17% over", flow.CalibrationInsight)
		assert.Equal(t, 10.0, flow.Stages[0].Diff)
		assert.Equal(t, DiffOver, flow.Stages[0].DiffDirection)
		assert.Equal(t, -8.0, flow.Stages[1].Diff)
		assert.Equal(t, DiffUnder, flow.Stages[1].DiffDirection)
	})
}

func TestSessionServiceImpl_Refresh(t *testing.T) {
	t.Run("should reset the stage selection when the stage list changes", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()
		session := createSession(t)
		_, err := service.SelectStages(ctx, session.Id, []int{10})
		require.NoError(t, err)

		// given: a new stage appears on the backend
		clientStub.SetStages(1, []backend.Stage{
			{Id: 10, Name: "Requirement"},
			{Id: 20, Name: "Design"},
			{Id: 30, Name: "Coding"},
			{Id: 40, Name: "Testing"},
		})

		// when
		view, err := service.Refresh(ctx, session.Id)

		// then
		require.NoError(t, err)
		assert.Equal(t, []int{10, 20, 30, 40}, view.SelectedStageIds)
		assert.Equal(t, 4, view.Readiness.StageCount)
	})

	t.Run("should keep a subset selection when the stage list is unchanged", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()
		session := createSession(t)
		_, err := service.SelectStages(ctx, session.Id, []int{10, 30})
		require.NoError(t, err)

		// when
		view, err := service.Refresh(ctx, session.Id)

		// then
		require.NoError(t, err)
		assert.Equal(t, []int{10, 30}, view.SelectedStageIds)
	})
}

func TestSessionServiceImpl_Events(t *testing.T) {
	t.Run("should publish lifecycle events", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()
		session := createSession(t)

		var received []event_bus.PlannerProposalEvent
		unsubscribe := event_bus.SubscribeTyped(bus, event_bus.PlannerProposalApplied,
			func(e event_bus.EventT[event_bus.PlannerProposalEvent]) error {
				received = append(received, e.Data)
				return nil
			})
		defer unsubscribe()

		// when
		_, err := service.Request(ctx, session.Id, FlowScreenFunction, RequestOptions{})
		require.NoError(t, err)
		_, err = service.Apply(ctx, session.Id, FlowScreenFunction)
		require.NoError(t, err)

		// then
		require.Len(t, received, 1)
		assert.Equal(t, session.Id, received[0].SessionId)
		assert.Equal(t, string(FlowScreenFunction), received[0].Flow)
		assert.Equal(t, "AI", received[0].Source)
		assert.Equal(t, 2, received[0].RowCount)
	})
}

func TestSessionServiceImpl_CloseSession(t *testing.T) {
	t.Run("should remove the session", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()
		session := createSession(t)

		// when
		err := service.CloseSession(ctx, session.Id)

		// then
		require.NoError(t, err)
		_, err = service.GetSession(ctx, session.Id)
		assert.ErrorIs(t, err, ErrSessionNotFound)
	})
}
