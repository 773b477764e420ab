package backend

import (
	"context"
	"sync"
)

// ClientStub is an in-memory Client for tests. It serves canned aggregates
// and AI results per project and records the payloads of every AI call so
// tests can assert on outbound request shapes.
type ClientStub struct {
	mu sync.RWMutex

	screenFunctions map[int][]ScreenFunction
	members         map[int][]Member
	stages          map[int][]Stage
	settings        map[int]*ProjectSettings

	estimationResult      EstimationResult
	stageEstimationResult StageEstimationResult
	reEstimationResult    ReEstimationResult
	scheduleResult        ScheduleResult

	estimateEffortErr       error
	estimateStageEffortErr  error
	reEstimateStagesErr     error
	generateScheduleErr     error
	applyEstimationErr      error
	applyStageEstimationErr error
	applyScheduleErr        error

	EstimateRequests      []EstimateRequest
	StageEstimateRequests []StageEstimateRequest
	ReEstimateRequests    []StageEstimateRequest
	ScheduleRequests      []ScheduleRequest

	AppliedEstimates      [][]EstimateApplyItem
	AppliedStageEstimates [][]StageApplyItem
	AppliedSchedules      [][]ScheduleApplyItem
}

func NewClientStub() *ClientStub {
	return &ClientStub{
		screenFunctions: make(map[int][]ScreenFunction),
		members:         make(map[int][]Member),
		stages:          make(map[int][]Stage),
		settings:        make(map[int]*ProjectSettings),
	}
}

func (c *ClientStub) Cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.screenFunctions = make(map[int][]ScreenFunction)
	c.members = make(map[int][]Member)
	c.stages = make(map[int][]Stage)
	c.settings = make(map[int]*ProjectSettings)
	c.estimationResult = EstimationResult{}
	c.stageEstimationResult = StageEstimationResult{}
	c.reEstimationResult = ReEstimationResult{}
	c.scheduleResult = ScheduleResult{}
	c.estimateEffortErr = nil
	c.estimateStageEffortErr = nil
	c.reEstimateStagesErr = nil
	c.generateScheduleErr = nil
	c.applyEstimationErr = nil
	c.applyStageEstimationErr = nil
	c.applyScheduleErr = nil
	c.EstimateRequests = nil
	c.StageEstimateRequests = nil
	c.ReEstimateRequests = nil
	c.ScheduleRequests = nil
	c.AppliedEstimates = nil
	c.AppliedStageEstimates = nil
	c.AppliedSchedules = nil
}

func (c *ClientStub) SetScreenFunctions(projectId int, sfs []ScreenFunction) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.screenFunctions[projectId] = sfs
}

func (c *ClientStub) SetMembers(projectId int, members []Member) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.members[projectId] = members
}

func (c *ClientStub) SetStages(projectId int, stages []Stage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stages[projectId] = stages
}

func (c *ClientStub) SetProjectSettings(projectId int, settings *ProjectSettings) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.settings[projectId] = settings
}

func (c *ClientStub) SetEstimationResult(result EstimationResult, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.estimationResult = result
	c.estimateEffortErr = err
}

func (c *ClientStub) SetStageEstimationResult(result StageEstimationResult, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stageEstimationResult = result
	c.estimateStageEffortErr = err
}

func (c *ClientStub) SetReEstimationResult(result ReEstimationResult, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reEstimationResult = result
	c.reEstimateStagesErr = err
}

func (c *ClientStub) SetScheduleResult(result ScheduleResult, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scheduleResult = result
	c.generateScheduleErr = err
}

func (c *ClientStub) SetApplyErrors(estimation, stageEstimation, schedule error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.applyEstimationErr = estimation
	c.applyStageEstimationErr = stageEstimation
	c.applyScheduleErr = schedule
}

func (c *ClientStub) GetScreenFunctions(ctx context.Context, projectId int) ([]ScreenFunction, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	result := make([]ScreenFunction, len(c.screenFunctions[projectId]))
	copy(result, c.screenFunctions[projectId])
	return result, nil
}

func (c *ClientStub) GetMembers(ctx context.Context, projectId int) ([]Member, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	result := make([]Member, len(c.members[projectId]))
	copy(result, c.members[projectId])
	return result, nil
}

func (c *ClientStub) GetStages(ctx context.Context, projectId int) ([]Stage, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	result := make([]Stage, len(c.stages[projectId]))
	copy(result, c.stages[projectId])
	return result, nil
}

func (c *ClientStub) GetProjectSettings(ctx context.Context, projectId int) (*ProjectSettings, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	settings := c.settings[projectId]
	if settings == nil {
		return nil, nil
	}
	copied := *settings
	return &copied, nil
}

func (c *ClientStub) EstimateEffort(ctx context.Context, req EstimateRequest) (EstimationResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.EstimateRequests = append(c.EstimateRequests, req)
	if c.estimateEffortErr != nil {
		return EstimationResult{}, c.estimateEffortErr
	}
	return c.estimationResult, nil
}

func (c *ClientStub) EstimateStageEffort(ctx context.Context, req StageEstimateRequest) (StageEstimationResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.StageEstimateRequests = append(c.StageEstimateRequests, req)
	if c.estimateStageEffortErr != nil {
		return StageEstimationResult{}, c.estimateStageEffortErr
	}
	return c.stageEstimationResult, nil
}

func (c *ClientStub) ReEstimateStages(ctx context.Context, req StageEstimateRequest) (ReEstimationResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ReEstimateRequests = append(c.ReEstimateRequests, req)
	if c.reEstimateStagesErr != nil {
		return ReEstimationResult{}, c.reEstimateStagesErr
	}
	return c.reEstimationResult, nil
}

func (c *ClientStub) GenerateSchedule(ctx context.Context, req ScheduleRequest) (ScheduleResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ScheduleRequests = append(c.ScheduleRequests, req)
	if c.generateScheduleErr != nil {
		return ScheduleResult{}, c.generateScheduleErr
	}
	return c.scheduleResult, nil
}

func (c *ClientStub) ApplyEstimation(ctx context.Context, projectId int, estimates []EstimateApplyItem) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.applyEstimationErr != nil {
		return c.applyEstimationErr
	}
	c.AppliedEstimates = append(c.AppliedEstimates, estimates)
	return nil
}

func (c *ClientStub) ApplyStageEstimation(ctx context.Context, projectId int, estimates []StageApplyItem) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.applyStageEstimationErr != nil {
		return c.applyStageEstimationErr
	}
	c.AppliedStageEstimates = append(c.AppliedStageEstimates, estimates)
	return nil
}

func (c *ClientStub) ApplySchedule(ctx context.Context, assignments []ScheduleApplyItem) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.applyScheduleErr != nil {
		return c.applyScheduleErr
	}
	c.AppliedSchedules = append(c.AppliedSchedules, assignments)
	return nil
}
