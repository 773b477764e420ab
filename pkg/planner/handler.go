package planner

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/lieuhongthai/project-cost-quality-management-sub001/internal/rest"
	log "github.com/sirupsen/logrus"
)

type CreateSessionDTO struct {
	ProjectId int    `json:"projectId"`
	Language  string `json:"language,omitempty"`
}

type SetLanguageDTO struct {
	Language string `json:"language"`
}

type SelectStagesDTO struct {
	StageIds []int `json:"stageIds"`
}

type RequestFlowDTO struct {
	StageId int `json:"stageId,omitempty"`
}

type SetEditModeDTO struct {
	Enabled bool `json:"enabled"`
}

type EditRowDTO struct {
	Field string `json:"field"`
	Value any    `json:"value"`
}

type StageOptionDTO struct {
	Id   int    `json:"id"`
	Name string `json:"name"`
}

type EstimateRowDTO struct {
	ScreenFunctionId     int     `json:"screenFunctionId"`
	ScreenFunctionName   string  `json:"screenFunctionName"`
	EstimatedEffortHours float64 `json:"estimatedEffortHours"`
	Confidence           string  `json:"confidence"`
	Reasoning            string  `json:"reasoning"`
	EffortDisplay        string  `json:"effortDisplay"`
}

type StageRowDTO struct {
	StageId              int     `json:"stageId"`
	StageName            string  `json:"stageName"`
	EstimatedEffortHours float64 `json:"estimatedEffortHours"`
	EffortDistribution   string  `json:"effortDistribution,omitempty"`
	StartDate            string  `json:"startDate,omitempty"`
	EndDate              string  `json:"endDate,omitempty"`
	Confidence           string  `json:"confidence"`
	Reasoning            string  `json:"reasoning"`
	EffortDisplay        string  `json:"effortDisplay"`

	OriginalEstimatedHours float64 `json:"originalEstimatedHours,omitempty"`
	CurrentActualHours     float64 `json:"currentActualHours,omitempty"`
	CurrentProgress        float64 `json:"currentProgress,omitempty"`
	Diff                   float64 `json:"diff,omitempty"`
	DiffDirection          string  `json:"diffDirection,omitempty"`
}

type ScheduleRowDTO struct {
	StepScreenFunctionId int     `json:"stepScreenFunctionId"`
	MemberId             int     `json:"memberId"`
	TaskName             string  `json:"taskName,omitempty"`
	MemberName           string  `json:"memberName,omitempty"`
	EstimatedEffort      float64 `json:"estimatedEffort"`
	EstimatedStartDate   string  `json:"estimatedStartDate"`
	EstimatedEndDate     string  `json:"estimatedEndDate"`
}

type FlowDTO struct {
	Flow     string `json:"flow"`
	State    string `json:"state"`
	EditMode bool   `json:"editMode"`

	Source             string   `json:"source,omitempty"`
	Assumptions        []string `json:"assumptions,omitempty"`
	CalibrationInsight string   `json:"calibrationInsight,omitempty"`
	Warnings           []string `json:"warnings,omitempty"`
	Summary            string   `json:"summary,omitempty"`

	Estimates   []EstimateRowDTO `json:"estimates,omitempty"`
	Stages      []StageRowDTO    `json:"stages,omitempty"`
	Assignments []ScheduleRowDTO `json:"assignments,omitempty"`

	TotalEstimatedHours float64 `json:"totalEstimatedHours"`
	TotalManMonths      float64 `json:"totalManMonths"`
	TotalDisplay        string  `json:"totalDisplay"`

	Error         string     `json:"error,omitempty"`
	LastAppliedAt *time.Time `json:"lastAppliedAt,omitempty"`
}

type SessionDTO struct {
	Id               string           `json:"id"`
	ProjectId        int              `json:"projectId"`
	Language         string           `json:"language"`
	Readiness        Readiness        `json:"readiness"`
	AvailableStages  []StageOptionDTO `json:"availableStages"`
	SelectedStageIds []int            `json:"selectedStageIds"`
	DisplayUnit      string           `json:"displayUnit"`
	Flows            []FlowDTO        `json:"flows"`
	Error            string           `json:"error,omitempty"`
}

type Handler struct {
	sessionService SessionService
}

func NewHandler(sessionService SessionService) *Handler {
	return &Handler{sessionService}
}

func (handler *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	log.Debug("Creating planning session")
	var dto CreateSessionDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	if dto.ProjectId <= 0 {
		writeError(w, http.StatusBadRequest, "Invalid projectId", "projectId must be a positive integer")
		return
	}

	view, err := handler.sessionService.CreateSession(r.Context(), dto.ProjectId, dto.Language)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeSession(w, http.StatusCreated, view)
}

func (handler *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	view, err := handler.sessionService.GetSession(r.Context(), mux.Vars(r)["sessionId"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeSession(w, http.StatusOK, view)
}

func (handler *Handler) CloseSession(w http.ResponseWriter, r *http.Request) {
	if err := handler.sessionService.CloseSession(r.Context(), mux.Vars(r)["sessionId"]); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (handler *Handler) RefreshSession(w http.ResponseWriter, r *http.Request) {
	view, err := handler.sessionService.Refresh(r.Context(), mux.Vars(r)["sessionId"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeSession(w, http.StatusOK, view)
}

func (handler *Handler) SetLanguage(w http.ResponseWriter, r *http.Request) {
	var dto SetLanguageDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	view, err := handler.sessionService.SetLanguage(r.Context(), mux.Vars(r)["sessionId"], dto.Language)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeSession(w, http.StatusOK, view)
}

func (handler *Handler) SelectStages(w http.ResponseWriter, r *http.Request) {
	var dto SelectStagesDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	view, err := handler.sessionService.SelectStages(r.Context(), mux.Vars(r)["sessionId"], dto.StageIds)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeSession(w, http.StatusOK, view)
}

func (handler *Handler) RequestFlow(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	flow, err := ParseFlow(vars["flow"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid flow", err.Error())
		return
	}
	var dto RequestFlowDTO
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body", err.Error())
			return
		}
	}

	view, err := handler.sessionService.Request(r.Context(), vars["sessionId"], flow, RequestOptions{StageId: dto.StageId})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeSession(w, http.StatusOK, view)
}

func (handler *Handler) SetEditMode(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	flow, err := ParseFlow(vars["flow"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid flow", err.Error())
		return
	}
	var dto SetEditModeDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	view, err := handler.sessionService.SetEditMode(r.Context(), vars["sessionId"], flow, dto.Enabled)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeSession(w, http.StatusOK, view)
}

func (handler *Handler) EditRow(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	flow, err := ParseFlow(vars["flow"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid flow", err.Error())
		return
	}
	index, err := strconv.Atoi(vars["index"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid row index", "index must be an integer")
		return
	}
	var dto EditRowDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	if dto.Field == "" {
		writeError(w, http.StatusBadRequest, "Invalid field", "field must not be empty")
		return
	}

	view, err := handler.sessionService.EditRow(r.Context(), vars["sessionId"], flow, index, dto.Field, dto.Value)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeSession(w, http.StatusOK, view)
}

func (handler *Handler) ApplyFlow(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	flow, err := ParseFlow(vars["flow"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid flow", err.Error())
		return
	}

	view, err := handler.sessionService.Apply(r.Context(), vars["sessionId"], flow)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeSession(w, http.StatusOK, view)
}

func (handler *Handler) DiscardFlow(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	flow, err := ParseFlow(vars["flow"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid flow", err.Error())
		return
	}

	view, err := handler.sessionService.Discard(r.Context(), vars["sessionId"], flow)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeSession(w, http.StatusOK, view)
}

func writeSession(w http.ResponseWriter, status int, view SessionView) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(toSessionDTO(view)); err != nil {
		log.Errorf("Failed to encode session response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message, details string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(rest.ErrorResponse{Error: message, Details: details})
}

// writeServiceError maps service errors onto HTTP statuses: unknown
// sessions are 404, duplicate in-flight triggers 409, violated
// preconditions 400 and backend failures 502.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "Session not found", "")
	case errors.Is(err, ErrFlowBusy):
		writeError(w, http.StatusConflict, "Flow busy", err.Error())
	case errors.Is(err, ErrNotReady),
		errors.Is(err, ErrNoStageSelected),
		errors.Is(err, ErrStageNotFound),
		errors.Is(err, ErrNoProposal),
		errors.Is(err, ErrEditLocked),
		errors.Is(err, ErrRowIndexOutOfRange),
		errors.Is(err, ErrUnknownField):
		writeError(w, http.StatusBadRequest, "Precondition failed", err.Error())
	default:
		writeError(w, http.StatusBadGateway, "Backend request failed", err.Error())
	}
}

func toSessionDTO(view SessionView) SessionDTO {
	dto := SessionDTO{
		Id:               view.Id,
		ProjectId:        view.ProjectId,
		Language:         view.Language,
		Readiness:        view.Readiness,
		AvailableStages:  make([]StageOptionDTO, 0, len(view.AvailableStages)),
		SelectedStageIds: view.SelectedStageIds,
		DisplayUnit:      string(view.DisplayUnit),
		Flows:            make([]FlowDTO, 0, len(view.Flows)),
		Error:            view.Error,
	}
	for _, stage := range view.AvailableStages {
		dto.AvailableStages = append(dto.AvailableStages, StageOptionDTO{Id: stage.Id, Name: stage.Name})
	}
	for _, flow := range view.Flows {
		dto.Flows = append(dto.Flows, toFlowDTO(flow))
	}
	return dto
}

func toFlowDTO(view FlowView) FlowDTO {
	dto := FlowDTO{
		Flow:                string(view.Flow),
		State:               string(view.State),
		EditMode:            view.EditMode,
		Source:              view.Source,
		Assumptions:         view.Assumptions,
		CalibrationInsight:  view.CalibrationInsight,
		Warnings:            view.Warnings,
		Summary:             view.Summary,
		TotalEstimatedHours: view.TotalEstimatedHours,
		TotalManMonths:      view.TotalManMonths,
		TotalDisplay:        view.TotalDisplay,
		Error:               view.Error,
		LastAppliedAt:       view.LastAppliedAt,
	}
	for _, row := range view.Estimates {
		dto.Estimates = append(dto.Estimates, EstimateRowDTO{
			ScreenFunctionId:     row.ScreenFunctionId,
			ScreenFunctionName:   row.ScreenFunctionName,
			EstimatedEffortHours: row.EstimatedEffortHours,
			Confidence:           row.Confidence,
			Reasoning:            row.Reasoning,
			EffortDisplay:        row.EffortDisplay,
		})
	}
	for _, row := range view.Stages {
		dto.Stages = append(dto.Stages, StageRowDTO{
			StageId:                row.StageId,
			StageName:              row.StageName,
			EstimatedEffortHours:   row.EstimatedEffortHours,
			EffortDistribution:     row.EffortDistribution,
			StartDate:              row.StartDate,
			EndDate:                row.EndDate,
			Confidence:             row.Confidence,
			Reasoning:              row.Reasoning,
			EffortDisplay:          row.EffortDisplay,
			OriginalEstimatedHours: row.OriginalEstimatedHours,
			CurrentActualHours:     row.CurrentActualHours,
			CurrentProgress:        row.CurrentProgress,
			Diff:                   row.Diff,
			DiffDirection:          string(row.DiffDirection),
		})
	}
	for _, row := range view.Assignments {
		dto.Assignments = append(dto.Assignments, ScheduleRowDTO{
			StepScreenFunctionId: row.StepScreenFunctionId,
			MemberId:             row.MemberId,
			TaskName:             row.TaskName,
			MemberName:           row.MemberName,
			EstimatedEffort:      row.EstimatedEffort,
			EstimatedStartDate:   row.EstimatedStartDate,
			EstimatedEndDate:     row.EstimatedEndDate,
		})
	}
	return dto
}
