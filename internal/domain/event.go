package domain

// EventType identifica o tipo de evento emitido pelos agentes
type EventType string

const (
	EventStep          EventType = "step"
	EventBatchStart    EventType = "batch_start"
	EventBatchComplete EventType = "batch_complete"
	EventFinding       EventType = "finding"
	EventAnomalyReport EventType = "anomaly_report"
	EventRiskReport    EventType = "risk_report"
)

// Event é uma entrada do stream passo a passo que os agentes expõem
// para exibição. Exatamente um dos campos de payload é preenchido,
// conforme o tipo.
type Event struct {
	Type  EventType `json:"type"`
	Agent string    `json:"agent,omitempty"`

	Step *ReasoningStep `json:"step,omitempty"`

	BatchID      int `json:"batch_id,omitempty"`
	TotalBatches int `json:"total_batches,omitempty"`
	BatchSize    int `json:"size,omitempty"`

	Finding *Finding `json:"finding,omitempty"`

	AnomalyReport *AnomalyReport `json:"anomaly_report,omitempty"`
	RiskReport    *RiskReport    `json:"risk_report,omitempty"`
}
