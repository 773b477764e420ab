package variance

import (
	"bytes"
	"encoding/csv"
	"strconv"

	"github.com/lieuhongthai/project-cost-quality-management-sub001/pkg/effort"
	log "github.com/sirupsen/logrus"
)

type ReportRenderer interface {
	RenderReport(report Report) (string, error)
}

type CsvReportRendererImpl struct {
}

func NewCsvReportRenderer() *CsvReportRendererImpl {
	return &CsvReportRendererImpl{}
}

func (t *CsvReportRendererImpl) RenderReport(report Report) (string, error) {
	data := make([][]string, 0, len(report.Stages)+2)
	data = append(data, []string{"Stage", "Status", "Estimated (MH)", "Actual (MH)", "Progress (%)", "Variance", "Tier"})

	for _, stage := range report.Stages {
		data = append(data, []string{
			stage.StageName,
			stage.Status,
			effort.Format(stage.EstimatedEffortHours, effort.UnitManHour),
			effort.Format(stage.ActualEffortHours, effort.UnitManHour),
			strconv.FormatFloat(stage.Progress, 'f', 0, 64),
			stage.Badge.Display,
			string(stage.Badge.Tier),
		})
	}

	data = append(data, []string{
		"TOTAL",
		"",
		effort.Format(report.TotalEstimatedHours, effort.UnitManHour),
		effort.Format(report.TotalActualHours, effort.UnitManHour),
		"",
		report.Overall.Display,
		string(report.Overall.Tier),
	})

	var b bytes.Buffer
	writer := csv.NewWriter(&b)
	for _, row := range data {
		if err := writer.Write(row); err != nil {
			log.Errorf("Error writing to csv: %v", err)
			return "", err
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		log.Errorf("Error writing to csv: %v", err)
		return "", err
	}

	return b.String(), nil
}
