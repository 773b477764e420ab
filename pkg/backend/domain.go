package backend

// Project aggregates consumed for readiness checks and reporting. These
// mirror the workflow backend's REST resources; only the fields this
// service reads are mapped.

type ScreenFunction struct {
	Id                   int     `json:"id"`
	Name                 string  `json:"name"`
	EstimatedEffortHours float64 `json:"estimatedEffort"`
}

type Member struct {
	Id     int    `json:"id"`
	Name   string `json:"name"`
	Role   string `json:"role"`
	Status string `json:"status"`
}

const MemberStatusActive = "Active"

type Stage struct {
	Id                   int     `json:"id"`
	Name                 string  `json:"name"`
	Status               string  `json:"status"`
	Progress             float64 `json:"progress"`
	EstimatedEffortHours float64 `json:"estimatedEffort"`
	ActualEffortHours    float64 `json:"actualEffort"`
	StartDate            string  `json:"startDate,omitempty"`
	EndDate              string  `json:"endDate,omitempty"`
}

type ProjectSettings struct {
	WorkingHoursPerDay  float64 `json:"workingHoursPerDay"`
	WorkingDaysPerMonth float64 `json:"workingDaysPerMonth"`
	DefaultEffortUnit   string  `json:"defaultEffortUnit"`
}

// AI estimation/scheduling contracts. Every response arrives wrapped in
// {success, source, data}; the envelope is unwrapped by the client and the
// source tag is surfaced alongside the payload.

type EstimateRequest struct {
	ProjectId int    `json:"projectId"`
	Language  string `json:"language,omitempty"`
}

type ScreenFunctionEstimate struct {
	ScreenFunctionId     int     `json:"screenFunctionId"`
	ScreenFunctionName   string  `json:"screenFunctionName"`
	EstimatedEffortHours float64 `json:"estimatedEffortHours"`
	Confidence           string  `json:"confidence"`
	Reasoning            string  `json:"reasoning"`
}

type EstimationResult struct {
	Source      string
	Estimates   []ScreenFunctionEstimate
	Assumptions []string
}

type StageEstimateRequest struct {
	ProjectId int    `json:"projectId"`
	Language  string `json:"language,omitempty"`
	// StageIds limits the estimation scope; nil means all stages.
	StageIds []int `json:"stageIds,omitempty"`
}

type StageEstimate struct {
	StageId              int     `json:"stageId"`
	StageName            string  `json:"stageName"`
	EstimatedEffortHours float64 `json:"estimatedEffortHours"`
	EffortDistribution   string  `json:"effortDistribution"`
	SuggestedStartDate   string  `json:"suggestedStartDate,omitempty"`
	SuggestedEndDate     string  `json:"suggestedEndDate,omitempty"`
	Confidence           string  `json:"confidence"`
	Reasoning            string  `json:"reasoning"`
}

type StageEstimationResult struct {
	Source      string
	Estimates   []StageEstimate
	Assumptions []string
}

type StageReEstimate struct {
	StageEstimate
	OriginalEstimatedHours float64 `json:"originalEstimatedHours"`
	CurrentActualHours     float64 `json:"currentActualHours"`
	CurrentProgress        float64 `json:"currentProgress"`
}

type ReEstimationResult struct {
	Source             string
	Estimates          []StageReEstimate
	Assumptions        []string
	CalibrationInsight string
}

type ScheduleRequest struct {
	ProjectId int    `json:"projectId"`
	StageId   int    `json:"stageId"`
	Language  string `json:"language,omitempty"`
}

type ScheduleAssignment struct {
	StepScreenFunctionId int     `json:"stepScreenFunctionId"`
	MemberId             int     `json:"memberId"`
	TaskName             string  `json:"taskName,omitempty"`
	MemberName           string  `json:"memberName,omitempty"`
	EstimatedEffort      float64 `json:"estimatedEffort"`
	EstimatedStartDate   string  `json:"estimatedStartDate"`
	EstimatedEndDate     string  `json:"estimatedEndDate"`
}

type ScheduleResult struct {
	Source      string
	Assignments []ScheduleAssignment
	Warnings    []string
	Summary     string
}

// Apply payload rows, named exactly as the backend expects them.

type EstimateApplyItem struct {
	ScreenFunctionId     int     `json:"screenFunctionId"`
	EstimatedEffortHours float64 `json:"estimatedEffortHours"`
}

type StageApplyItem struct {
	StageId              int     `json:"stageId"`
	EstimatedEffortHours float64 `json:"estimatedEffortHours"`
	StartDate            string  `json:"startDate,omitempty"`
	EndDate              string  `json:"endDate,omitempty"`
}

type ScheduleApplyItem struct {
	StepScreenFunctionId int     `json:"stepScreenFunctionId"`
	MemberId             int     `json:"memberId"`
	EstimatedEffort      float64 `json:"estimatedEffort"`
	EstimatedStartDate   string  `json:"estimatedStartDate"`
	EstimatedEndDate     string  `json:"estimatedEndDate"`
}
