package app

import (
	"github.com/gorilla/mux"
	"github.com/lieuhongthai/project-cost-quality-management-sub001/internal/config"
)

// RegisterRoutes registers all API endpoints.
func RegisterRoutes(r *mux.Router, deps *Dependencies, cfg config.Application) {

	// Planning sessions
	r.HandleFunc("/api/planner/session", deps.PlannerHandler.CreateSession).Methods("POST")
	r.HandleFunc("/api/planner/session/{sessionId}", deps.PlannerHandler.GetSession).Methods("GET")
	r.HandleFunc("/api/planner/session/{sessionId}", deps.PlannerHandler.CloseSession).Methods("DELETE")
	r.HandleFunc("/api/planner/session/{sessionId}/refresh", deps.PlannerHandler.RefreshSession).Methods("POST")
	r.HandleFunc("/api/planner/session/{sessionId}/language", deps.PlannerHandler.SetLanguage).Methods("PUT")
	r.HandleFunc("/api/planner/session/{sessionId}/stages", deps.PlannerHandler.SelectStages).Methods("PUT")

	// Proposal flows
	r.HandleFunc("/api/planner/session/{sessionId}/flows/{flow}/request", deps.PlannerHandler.RequestFlow).Methods("POST")
	r.HandleFunc("/api/planner/session/{sessionId}/flows/{flow}/edit-mode", deps.PlannerHandler.SetEditMode).Methods("PUT")
	r.HandleFunc("/api/planner/session/{sessionId}/flows/{flow}/rows/{index}", deps.PlannerHandler.EditRow).Methods("PATCH")
	r.HandleFunc("/api/planner/session/{sessionId}/flows/{flow}/apply", deps.PlannerHandler.ApplyFlow).Methods("POST")
	r.HandleFunc("/api/planner/session/{sessionId}/flows/{flow}", deps.PlannerHandler.DiscardFlow).Methods("DELETE")

	// Variance report
	r.HandleFunc("/api/variance/stages", deps.VarianceHandler.GetStageReport).Methods("GET")
}
