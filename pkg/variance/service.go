package variance

import (
	"context"
	"fmt"
	"time"

	"github.com/lieuhongthai/project-cost-quality-management-sub001/internal/utils"
	"github.com/lieuhongthai/project-cost-quality-management-sub001/pkg/backend"
	log "github.com/sirupsen/logrus"
)

// StageVariance is one dashboard row: a stage's actual effort held against
// its estimate.
type StageVariance struct {
	StageId              int
	StageName            string
	Status               string
	Progress             float64
	EstimatedEffortHours float64
	ActualEffortHours    float64
	Badge                Badge
}

type Report struct {
	ProjectId           int
	GeneratedAt         time.Time
	Stages              []StageVariance
	TotalEstimatedHours float64
	TotalActualHours    float64
	Overall             Badge
}

type ReportService interface {
	StageReport(ctx context.Context, projectId int) (Report, error)
}

type ReportServiceImpl struct {
	client backend.Client
	clock  utils.Clock
}

func NewReportService(client backend.Client, clock utils.Clock) *ReportServiceImpl {
	return &ReportServiceImpl{client: client, clock: clock}
}

// StageReport fetches the project's stages and classifies each stage's
// actual-vs-estimated variance. Stages without an estimate stay in the
// report with a neutral badge.
func (s *ReportServiceImpl) StageReport(ctx context.Context, projectId int) (Report, error) {
	stages, err := s.client.GetStages(ctx, projectId)
	if err != nil {
		return Report{}, fmt.Errorf("failed to fetch stages: %w", err)
	}
	log.Debugf("Building stage variance report for project %d over %d stages", projectId, len(stages))

	report := Report{
		ProjectId:   projectId,
		GeneratedAt: s.clock.Now(),
		Stages:      make([]StageVariance, 0, len(stages)),
	}
	for _, stage := range stages {
		report.Stages = append(report.Stages, StageVariance{
			StageId:              stage.Id,
			StageName:            stage.Name,
			Status:               stage.Status,
			Progress:             stage.Progress,
			EstimatedEffortHours: stage.EstimatedEffortHours,
			ActualEffortHours:    stage.ActualEffortHours,
			Badge:                NewBadge(Percent(stage.ActualEffortHours, stage.EstimatedEffortHours)),
		})
		report.TotalEstimatedHours += stage.EstimatedEffortHours
		report.TotalActualHours += stage.ActualEffortHours
	}
	report.Overall = NewBadge(Percent(report.TotalActualHours, report.TotalEstimatedHours))

	return report, nil
}
