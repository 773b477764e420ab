package app

import (
	"time"

	"github.com/lieuhongthai/project-cost-quality-management-sub001/internal/config"
	"github.com/lieuhongthai/project-cost-quality-management-sub001/internal/event_bus"
	"github.com/lieuhongthai/project-cost-quality-management-sub001/internal/utils"
	"github.com/lieuhongthai/project-cost-quality-management-sub001/pkg/backend"
	"github.com/lieuhongthai/project-cost-quality-management-sub001/pkg/planner"
	"github.com/lieuhongthai/project-cost-quality-management-sub001/pkg/variance"
	log "github.com/sirupsen/logrus"
)

// Dependencies holds all services and handlers for the application.
type Dependencies struct {
	EventBus *event_bus.EventBus
	Clock    utils.Clock

	BackendClient backend.Client

	SessionService planner.SessionService
	PlannerHandler *planner.Handler

	VarianceReportService variance.ReportService
	CsvReportRenderer     *variance.CsvReportRendererImpl
	VarianceHandler       *variance.Handler
}

// BuildDependencies initializes and wires all application services and handlers.
func BuildDependencies(cfg config.Application) *Dependencies {
	deps := &Dependencies{}

	deps.EventBus = event_bus.NewEventBus()
	deps.Clock = &utils.SystemClock{}

	deps.BackendClient = backend.NewClient(
		cfg.Backend.BaseUrl,
		time.Duration(cfg.Backend.TimeoutSeconds)*time.Second,
		cfg.Backend.AiRequestsPerMinute,
	)

	deps.SessionService = planner.NewSessionService(deps.BackendClient, deps.EventBus, deps.Clock)
	deps.PlannerHandler = planner.NewHandler(deps.SessionService)

	deps.VarianceReportService = variance.NewReportService(deps.BackendClient, deps.Clock)
	deps.CsvReportRenderer = variance.NewCsvReportRenderer()
	deps.VarianceHandler = variance.NewHandler(deps.VarianceReportService, deps.CsvReportRenderer)

	registerEventLogging(deps.EventBus)

	return deps
}

// registerEventLogging subscribes a log-only listener to the proposal
// lifecycle events so session activity shows up in the server log.
func registerEventLogging(bus *event_bus.EventBus) {
	for _, eventType := range []event_bus.EventType{
		event_bus.PlannerProposalReceived,
		event_bus.PlannerProposalApplied,
		event_bus.PlannerProposalDiscarded,
	} {
		event_bus.SubscribeTyped(bus, eventType,
			func(e event_bus.EventT[event_bus.PlannerProposalEvent]) error {
				log.Infof("%s: session=%s project=%d flow=%s source=%s rows=%d",
					e.Type, e.Data.SessionId, e.Data.ProjectId, e.Data.Flow, e.Data.Source, e.Data.RowCount)
				return nil
			})
	}
}
