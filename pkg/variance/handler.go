package variance

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/lieuhongthai/project-cost-quality-management-sub001/internal/rest"
)

type StageVarianceDTO struct {
	StageId              int     `json:"stageId"`
	StageName            string  `json:"stageName"`
	Status               string  `json:"status"`
	Progress             float64 `json:"progress"`
	EstimatedEffortHours float64 `json:"estimatedEffortHours"`
	ActualEffortHours    float64 `json:"actualEffortHours"`
	Badge                Badge   `json:"badge"`
}

type ReportDTO struct {
	ProjectId           int                `json:"projectId"`
	GeneratedAt         time.Time          `json:"generatedAt"`
	Stages              []StageVarianceDTO `json:"stages"`
	TotalEstimatedHours float64            `json:"totalEstimatedHours"`
	TotalActualHours    float64            `json:"totalActualHours"`
	Overall             Badge              `json:"overall"`
}

type Handler struct {
	reportService ReportService
	csvRenderer   ReportRenderer
}

func NewHandler(reportService ReportService, csvRenderer ReportRenderer) *Handler {
	return &Handler{reportService, csvRenderer}
}

func (handler *Handler) GetStageReport(w http.ResponseWriter, r *http.Request) {
	projectIdString := r.URL.Query().Get("projectId")
	projectId, err := strconv.Atoi(projectIdString)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(rest.ErrorResponse{
			Error:   "Invalid projectId",
			Details: "projectId must be an integer",
		})
		return
	}

	report, err := handler.reportService.StageReport(r.Context(), projectId)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if r.Header.Get("Accept") == "text/csv" || r.URL.Query().Get("format") == "csv" {
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		csv, err := handler.csvRenderer.RenderReport(report)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if _, err := w.Write([]byte(csv)); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(toReportDTO(report)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func toReportDTO(report Report) ReportDTO {
	stages := make([]StageVarianceDTO, 0, len(report.Stages))
	for _, stage := range report.Stages {
		stages = append(stages, StageVarianceDTO{
			StageId:              stage.StageId,
			StageName:            stage.StageName,
			Status:               stage.Status,
			Progress:             stage.Progress,
			EstimatedEffortHours: stage.EstimatedEffortHours,
			ActualEffortHours:    stage.ActualEffortHours,
			Badge:                stage.Badge,
		})
	}
	return ReportDTO{
		ProjectId:           report.ProjectId,
		GeneratedAt:         report.GeneratedAt,
		Stages:              stages,
		TotalEstimatedHours: report.TotalEstimatedHours,
		TotalActualHours:    report.TotalActualHours,
		Overall:             report.Overall,
	}
}
