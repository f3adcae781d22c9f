// Package narrating monta o relatório executivo de risco a partir dos
// findings de uma execução de auditoria, com narrativa gerada por LLM e
// template determinístico como plano de queda. O caminho de fallback
// nunca falha e nunca retorna texto vazio.
package narrating

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/vfg2006/watchdog-api/infrastructure/integrator/gemini"
	"github.com/vfg2006/watchdog-api/internal/config"
	"github.com/vfg2006/watchdog-api/internal/domain"
	"github.com/vfg2006/watchdog-api/pkg/utils"
)

// Narrator produz o relatório de risco de uma execução de auditoria
type Narrator interface {
	// Narrate calcula o risco financeiro e o score de saúde dos findings e
	// produz a narrativa executiva. totalRecords é o total de linhas
	// auditadas, usado como denominador da taxa de erro.
	Narrate(ctx context.Context, run *domain.AuditRun, totalRecords int) *domain.RiskReport
}

// Service implementa a interface Narrator
type Service struct {
	cfg       *config.Config
	generator gemini.TextGenerator
}

// NewService cria o gerador de narrativa executiva
func NewService(cfg *config.Config, generator gemini.TextGenerator) Narrator {
	return &Service{
		cfg:       cfg,
		generator: generator,
	}
}

// FinancialRiskFromFindings agrega o gasto diário em risco: findings P0
// contam o gasto integral, P1 contam metade, e o risco mensal projeta
// 30 dias
func FinancialRiskFromFindings(findings []domain.Finding) domain.FinancialRisk {
	risk := domain.FinancialRisk{}
	for _, finding := range findings {
		switch finding.Priority {
		case domain.PriorityP0:
			risk.DailySpendAtRisk += finding.DailySpend
			risk.CriticalIssues++
		case domain.PriorityP1:
			risk.DailySpendAtRisk += 0.5 * finding.DailySpend
			risk.HighIssues++
		}
	}

	risk.DailySpendAtRisk = utils.RoundWithTwoDecimalPlace(risk.DailySpendAtRisk)
	risk.MonthlyRisk = utils.RoundWithTwoDecimalPlace(risk.DailySpendAtRisk * 30)
	return risk
}

// HealthScoreFromFindings converte a taxa de erro ponderada por prioridade
// em um score 0-100 com decaimento exponencial: poucos problemas críticos
// derrubam o score rapidamente, e a cauda achata perto de zero
func HealthScoreFromFindings(findings []domain.Finding, totalRecords int) int {
	if totalRecords <= 0 {
		return 100
	}

	var p0, p1, p2 int
	for _, finding := range findings {
		switch finding.Priority {
		case domain.PriorityP0:
			p0++
		case domain.PriorityP1:
			p1++
		case domain.PriorityP2:
			p2++
		}
	}

	errorRate := float64(3*p0+2*p1+p2) / float64(3*totalRecords)
	score := int(math.Round(100 * math.Exp(-3*errorRate)))
	return utils.Clamp(score, 0, 100)
}

// Narrate produz o relatório executivo da execução informada
func (s *Service) Narrate(ctx context.Context, run *domain.AuditRun, totalRecords int) *domain.RiskReport {
	risk := FinancialRiskFromFindings(run.Findings)

	report := &domain.RiskReport{
		HealthScore:    HealthScoreFromFindings(run.Findings, totalRecords),
		FinancialRisk:  risk,
		TotalFindings:  len(run.Findings),
		P0Count:        run.CountByPriority(domain.PriorityP0),
		P1Count:        run.CountByPriority(domain.PriorityP1),
		P2Count:        run.CountByPriority(domain.PriorityP2),
		ReasoningSteps: run.ReasoningSteps,
	}

	narrative, usedFallback := s.narrative(ctx, run.Findings, report)
	report.ExecutiveNarrative = narrative
	report.UsedFallback = usedFallback
	return report
}

func (s *Service) narrative(ctx context.Context, findings []domain.Finding, report *domain.RiskReport) (string, bool) {
	if s.generator == nil || !s.generator.Available() {
		return fallbackNarrative(report), true
	}

	text, err := s.generator.Generate(
		ctx,
		s.buildPrompt(findings, report),
		float32(s.cfg.Gemini.Temperature),
		int32(s.cfg.Gemini.MaxTokens),
	)
	if err != nil {
		logrus.WithError(err).Warn("Narrativa executiva indisponível, usando template")
		return fallbackNarrative(report), true
	}

	return text, false
}

// buildPrompt resume os cinco findings mais graves para o modelo
func (s *Service) buildPrompt(findings []domain.Finding, report *domain.RiskReport) string {
	top := topFindings(findings, 5)

	var b strings.Builder
	b.WriteString("Você é um consultor de mídia escrevendo para um executivo sem contexto técnico.\n")
	fmt.Fprintf(&b, "A auditoria encontrou %d problemas: %d críticos (P0), %d altos (P1) e %d médios (P2).\n",
		report.TotalFindings, report.P0Count, report.P1Count, report.P2Count)
	fmt.Fprintf(&b, "Gasto diário em risco: $%.2f. Projeção mensal: $%.2f.\n",
		report.FinancialRisk.DailySpendAtRisk, report.FinancialRisk.MonthlyRisk)
	b.WriteString("Problemas mais graves:\n")
	for _, finding := range top {
		fmt.Fprintf(&b, "- [%s] %s: %s\n", finding.Priority, finding.Issue, finding.TechnicalProof)
	}
	b.WriteString("Escreva um parágrafo único, em português, citando os valores em dólar e a ação mais urgente. Sem markdown.")
	return b.String()
}

// topFindings ordena por prioridade e gasto diário decrescente e corta em n
func topFindings(findings []domain.Finding, n int) []domain.Finding {
	ordered := make([]domain.Finding, len(findings))
	copy(ordered, findings)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Priority != ordered[j].Priority {
			return ordered[i].Priority < ordered[j].Priority
		}
		return ordered[i].DailySpend > ordered[j].DailySpend
	})
	if len(ordered) > n {
		ordered = ordered[:n]
	}
	return ordered
}

// fallbackNarrative é o template determinístico: sempre contém a palavra
// de severidade, as contagens de P0 e P1 e os valores diário e mensal
func fallbackNarrative(report *domain.RiskReport) string {
	severity := "MODERADO"
	switch {
	case report.P0Count > 0:
		severity = "CRÍTICO"
	case report.P1Count > 0:
		severity = "ALTO"
	}

	return fmt.Sprintf(
		"Risco %s: a auditoria encontrou %d problemas P0 (críticos) e %d problemas P1 (altos). "+
			"Gasto diário em risco: $%.2f, com projeção mensal de $%.2f. "+
			"Score de saúde da medição: %d/100. Recomenda-se tratar os problemas críticos imediatamente.",
		severity, report.P0Count, report.P1Count,
		report.FinancialRisk.DailySpendAtRisk, report.FinancialRisk.MonthlyRisk,
		report.HealthScore,
	)
}
