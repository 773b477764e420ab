package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

var ErrUnauthenticated = fmt.Errorf("backend rejected the request as unauthenticated")

// Client is the workflow backend API surface this service consumes:
// project aggregates for readiness and reporting, plus the AI
// estimation/scheduling operations.
type Client interface {
	GetScreenFunctions(ctx context.Context, projectId int) ([]ScreenFunction, error) // /screen-functions?projectId=
	GetMembers(ctx context.Context, projectId int) ([]Member, error)                 // /members?projectId=
	GetStages(ctx context.Context, projectId int) ([]Stage, error)                   // /task-workflow/stages?projectId=
	GetProjectSettings(ctx context.Context, projectId int) (*ProjectSettings, error) // /projects/{id}/settings

	EstimateEffort(ctx context.Context, req EstimateRequest) (EstimationResult, error)
	EstimateStageEffort(ctx context.Context, req StageEstimateRequest) (StageEstimationResult, error)
	ReEstimateStages(ctx context.Context, req StageEstimateRequest) (ReEstimationResult, error)
	GenerateSchedule(ctx context.Context, req ScheduleRequest) (ScheduleResult, error)

	ApplyEstimation(ctx context.Context, projectId int, estimates []EstimateApplyItem) error
	ApplyStageEstimation(ctx context.Context, projectId int, estimates []StageApplyItem) error
	ApplySchedule(ctx context.Context, assignments []ScheduleApplyItem) error
}

type ClientImpl struct {
	baseURL    string
	httpClient *http.Client
	// aiLimiter throttles the expensive AI completions endpoints; plain
	// aggregate reads are not limited.
	aiLimiter *rate.Limiter
}

func NewClient(baseURL string, timeout time.Duration, aiRequestsPerMinute int) *ClientImpl {
	if aiRequestsPerMinute <= 0 {
		aiRequestsPerMinute = 10
	}
	return &ClientImpl{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		aiLimiter:  rate.NewLimiter(rate.Every(time.Minute/time.Duration(aiRequestsPerMinute)), aiRequestsPerMinute),
	}
}

func (c *ClientImpl) doJSON(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		log.Errorf("Failed to create request: %v", err)
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := authTokenFromContext(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Errorf("Failed to execute request %s %s: %v", method, path, err)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return ErrUnauthenticated
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		message := readErrorMessage(resp.Body)
		err := fmt.Errorf("backend returned status %d for %s %s: %s", resp.StatusCode, method, path, message)
		log.Error(err)
		return err
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		log.Errorf("Failed to decode response from %s: %v", path, err)
		return err
	}
	return nil
}

// readErrorMessage extracts the backend's error message from a failed
// response, falling back to the raw body.
func readErrorMessage(body io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil || len(raw) == 0 {
		return "unknown error"
	}
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	return string(raw)
}

func (c *ClientImpl) waitForAISlot(ctx context.Context) error {
	if err := c.aiLimiter.Wait(ctx); err != nil {
		return fmt.Errorf("ai request rate limit wait aborted: %w", err)
	}
	return nil
}

func (c *ClientImpl) GetScreenFunctions(ctx context.Context, projectId int) ([]ScreenFunction, error) {
	var result []ScreenFunction
	path := fmt.Sprintf("/api/screen-functions?projectId=%d", projectId)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *ClientImpl) GetMembers(ctx context.Context, projectId int) ([]Member, error) {
	var result []Member
	path := fmt.Sprintf("/api/members?projectId=%d", projectId)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *ClientImpl) GetStages(ctx context.Context, projectId int) ([]Stage, error) {
	var result []Stage
	path := fmt.Sprintf("/api/task-workflow/stages?projectId=%d", projectId)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *ClientImpl) GetProjectSettings(ctx context.Context, projectId int) (*ProjectSettings, error) {
	var result ProjectSettings
	path := fmt.Sprintf("/api/projects/%d/settings", projectId)
	err := c.doJSON(ctx, http.MethodGet, path, nil, &result)
	if err != nil {
		return nil, err
	}
	if result.WorkingHoursPerDay == 0 && result.WorkingDaysPerMonth == 0 {
		// Settings endpoint responds with an empty object when the project
		// was never configured.
		return nil, nil
	}
	return &result, nil
}

// envelope is the {success, source, data} wrapper every AI operation
// responds with.
type envelope[T any] struct {
	Success bool   `json:"success"`
	Source  string `json:"source"`
	Data    T      `json:"data"`
}

func (c *ClientImpl) EstimateEffort(ctx context.Context, req EstimateRequest) (EstimationResult, error) {
	if err := c.waitForAISlot(ctx); err != nil {
		return EstimationResult{}, err
	}
	var resp envelope[struct {
		Estimates   []ScreenFunctionEstimate `json:"estimates"`
		Assumptions []string                 `json:"assumptions"`
	}]
	if err := c.doJSON(ctx, http.MethodPost, "/api/task-workflow/ai/estimate-effort", req, &resp); err != nil {
		return EstimationResult{}, err
	}
	return EstimationResult{
		Source:      resp.Source,
		Estimates:   resp.Data.Estimates,
		Assumptions: resp.Data.Assumptions,
	}, nil
}

func (c *ClientImpl) EstimateStageEffort(ctx context.Context, req StageEstimateRequest) (StageEstimationResult, error) {
	if err := c.waitForAISlot(ctx); err != nil {
		return StageEstimationResult{}, err
	}
	var resp envelope[struct {
		Estimates   []StageEstimate `json:"estimates"`
		Assumptions []string        `json:"assumptions"`
	}]
	if err := c.doJSON(ctx, http.MethodPost, "/api/task-workflow/ai/estimate-stage-effort", req, &resp); err != nil {
		return StageEstimationResult{}, err
	}
	return StageEstimationResult{
		Source:      resp.Source,
		Estimates:   resp.Data.Estimates,
		Assumptions: resp.Data.Assumptions,
	}, nil
}

func (c *ClientImpl) ReEstimateStages(ctx context.Context, req StageEstimateRequest) (ReEstimationResult, error) {
	if err := c.waitForAISlot(ctx); err != nil {
		return ReEstimationResult{}, err
	}
	var resp envelope[struct {
		Estimates          []StageReEstimate `json:"estimates"`
		Assumptions        []string          `json:"assumptions"`
		CalibrationInsight string            `json:"calibrationInsight"`
	}]
	if err := c.doJSON(ctx, http.MethodPost, "/api/task-workflow/ai/re-estimate-stages", req, &resp); err != nil {
		return ReEstimationResult{}, err
	}
	return ReEstimationResult{
		Source:             resp.Source,
		Estimates:          resp.Data.Estimates,
		Assumptions:        resp.Data.Assumptions,
		CalibrationInsight: resp.Data.CalibrationInsight,
	}, nil
}

func (c *ClientImpl) GenerateSchedule(ctx context.Context, req ScheduleRequest) (ScheduleResult, error) {
	if err := c.waitForAISlot(ctx); err != nil {
		return ScheduleResult{}, err
	}
	var resp envelope[struct {
		Assignments []ScheduleAssignment `json:"assignments"`
		Warnings    []string             `json:"warnings"`
		Summary     string               `json:"summary"`
	}]
	if err := c.doJSON(ctx, http.MethodPost, "/api/task-workflow/ai/generate-schedule", req, &resp); err != nil {
		return ScheduleResult{}, err
	}
	return ScheduleResult{
		Source:      resp.Source,
		Assignments: resp.Data.Assignments,
		Warnings:    resp.Data.Warnings,
		Summary:     resp.Data.Summary,
	}, nil
}

func (c *ClientImpl) ApplyEstimation(ctx context.Context, projectId int, estimates []EstimateApplyItem) error {
	body := struct {
		ProjectId int                 `json:"projectId"`
		Estimates []EstimateApplyItem `json:"estimates"`
	}{projectId, estimates}
	return c.doJSON(ctx, http.MethodPost, "/api/task-workflow/ai/apply-estimation", body, nil)
}

func (c *ClientImpl) ApplyStageEstimation(ctx context.Context, projectId int, estimates []StageApplyItem) error {
	body := struct {
		ProjectId int              `json:"projectId"`
		Estimates []StageApplyItem `json:"estimates"`
	}{projectId, estimates}
	return c.doJSON(ctx, http.MethodPost, "/api/task-workflow/ai/apply-stage-estimation", body, nil)
}

func (c *ClientImpl) ApplySchedule(ctx context.Context, assignments []ScheduleApplyItem) error {
	body := struct {
		Assignments []ScheduleApplyItem `json:"assignments"`
	}{assignments}
	return c.doJSON(ctx, http.MethodPost, "/api/task-workflow/ai/apply-schedule", body, nil)
}
