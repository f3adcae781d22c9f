// Package domain contém as estruturas de dados do domínio da aplicação
package domain

import "time"

// Priority classifica a severidade de um finding
type Priority string

const (
	PriorityP0 Priority = "P0"
	PriorityP1 Priority = "P1"
	PriorityP2 Priority = "P2"
)

// Label retorna o rótulo de severidade usado nas telas
func (p Priority) Label() string {
	switch p {
	case PriorityP0:
		return "CRITICAL"
	case PriorityP1:
		return "HIGH"
	case PriorityP2:
		return "MEDIUM"
	}
	return "UNKNOWN"
}

// Finding é o resultado estruturado de uma única verificação de regra.
// Imutável depois de criado; o orquestrador da execução é o dono da coleção.
type Finding struct {
	ID             string   `json:"id"`
	Agent          string   `json:"agent"`
	Check          string   `json:"check"`
	Priority       Priority `json:"priority"`
	PriorityLabel  string   `json:"priority_label"`
	Issue          string   `json:"issue"`
	AdvertiserID   string   `json:"advertiser_id,omitempty"`
	PropertyID     string   `json:"property_id,omitempty"`
	StreamID       string   `json:"stream_id,omitempty"`
	ActivityID     string   `json:"floodlight_id,omitempty"`
	LineItemID     string   `json:"line_item,omitempty"`
	TagID          string   `json:"tag_id,omitempty"`
	ContainerID    string   `json:"container_id,omitempty"`
	URL            string   `json:"url,omitempty"`
	TechnicalProof string   `json:"technical_proof"`
	Reasoning      []string `json:"reasoning"`
	Recommendation string   `json:"recommendation"`

	// Campos numéricos opcionais usados pelo cálculo de risco financeiro
	DailySpend         float64 `json:"daily_spend,omitempty"`
	DiscrepancyPercent float64 `json:"discrepancy_percent,omitempty"`
}

// ReasoningStep é uma entrada do log de raciocínio exibido pelas UIs
type ReasoningStep struct {
	Timestamp time.Time `json:"timestamp"`
	Agent     string    `json:"agent"`
	Step      string    `json:"step"`
}

// AuditRun agrega os passos de raciocínio e os findings de uma execução
// da bateria de verificações. Criado no início da execução, alimentado
// pelas verificações e finalizado quando a bateria termina.
type AuditRun struct {
	ID             string          `json:"id"`
	Agent          string          `json:"agent"`
	StartedAt      time.Time       `json:"started_at"`
	CompletedAt    time.Time       `json:"completed_at"`
	Findings       []Finding       `json:"findings"`
	ReasoningSteps []ReasoningStep `json:"reasoning_steps"`

	// Controle de deduplicação "uma vez por propriedade", válido para a
	// execução inteira e nunca compartilhado entre execuções independentes
	flaggedProperties map[string]map[string]bool
}

// NewAuditRun cria uma nova execução para o agente informado
func NewAuditRun(id, agent string) *AuditRun {
	return &AuditRun{
		ID:                id,
		Agent:             agent,
		StartedAt:         time.Now(),
		Findings:          make([]Finding, 0),
		ReasoningSteps:    make([]ReasoningStep, 0),
		flaggedProperties: make(map[string]map[string]bool),
	}
}

// AddFinding acrescenta um finding à execução
func (r *AuditRun) AddFinding(f Finding) {
	r.Findings = append(r.Findings, f)
}

// AddStep registra um passo de raciocínio e o retorna para emissão
func (r *AuditRun) AddStep(step string) ReasoningStep {
	entry := ReasoningStep{
		Timestamp: time.Now(),
		Agent:     r.Agent,
		Step:      step,
	}
	r.ReasoningSteps = append(r.ReasoningSteps, entry)
	return entry
}

// MarkProperty registra que a verificação já sinalizou a propriedade nesta
// execução. Retorna falso quando a propriedade já havia sido sinalizada,
// para que verificações "uma vez por propriedade" suprimam duplicatas.
func (r *AuditRun) MarkProperty(check, propertyID string) bool {
	if r.flaggedProperties[check] == nil {
		r.flaggedProperties[check] = make(map[string]bool)
	}
	if r.flaggedProperties[check][propertyID] {
		return false
	}
	r.flaggedProperties[check][propertyID] = true
	return true
}

// Complete finaliza a execução
func (r *AuditRun) Complete() {
	r.CompletedAt = time.Now()
}

// CountByPriority conta os findings da execução por prioridade
func (r *AuditRun) CountByPriority(p Priority) int {
	count := 0
	for _, f := range r.Findings {
		if f.Priority == p {
			count++
		}
	}
	return count
}
