package domain

// FinancialRisk agrega o gasto diário em risco calculado sobre os findings.
// P0 conta o gasto integral; P1 conta metade; o risco mensal projeta 30 dias.
type FinancialRisk struct {
	DailySpendAtRisk float64 `json:"daily_spend_at_risk"`
	MonthlyRisk      float64 `json:"monthly_risk"`
	CriticalIssues   int     `json:"critical_issues"`
	HighIssues       int     `json:"high_issues"`
}

// RiskReport é o relatório executivo produzido pelo gerador de narrativa
type RiskReport struct {
	HealthScore        int             `json:"health_score"`
	FinancialRisk      FinancialRisk   `json:"financial_risk"`
	ExecutiveNarrative string          `json:"executive_narrative"`
	UsedFallback       bool            `json:"used_fallback"`
	BatchID            int             `json:"batch_id,omitempty"`
	BatchSize          int             `json:"batch_size,omitempty"`
	TotalFindings      int             `json:"total_findings"`
	P0Count            int             `json:"p0_count"`
	P1Count            int             `json:"p1_count"`
	P2Count            int             `json:"p2_count"`
	ReasoningSteps     []ReasoningStep `json:"reasoning_steps"`
}
