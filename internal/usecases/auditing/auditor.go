package auditing

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vfg2006/watchdog-api/infrastructure/tabular"
	"github.com/vfg2006/watchdog-api/internal/config"
	"github.com/vfg2006/watchdog-api/internal/domain"
)

// AuditorAgent identifica o auditor de configuração nos eventos e findings
const AuditorAgent = "Auditor de Configuração"

var (
	emailPattern      = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	emailParamPattern = regexp.MustCompile(`(?i)[?&]email=`)
	snakeCasePattern  = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)
)

// Palavras-chave de enhanced measurement cuja ausência conta para o limiar
var enhancedMeasurementFeatures = []string{
	"scrolls",
	"outbound_clicks",
	"site_search",
	"video_engagement",
}

// Status de importação de custo considerados saudáveis
var healthyCostImportStatuses = map[string]bool{
	"enabled":    true,
	"active":     true,
	"configured": true,
}

// Auditor varre as propriedades do GA4 em busca de violações de
// governança: PII em URL, retenção curta, exclusões de referral ausentes,
// consent mode incompleto e recursos de medição desligados
type Auditor struct {
	cfg    *config.Config
	source *tabular.Source
	now    func() time.Time
}

// NewAuditor cria o auditor de configuração
func NewAuditor(cfg *config.Config, source *tabular.Source) *Auditor {
	return &Auditor{
		cfg:    cfg,
		source: source,
		now:    time.Now,
	}
}

// Run executa a bateria completa do auditor
func (a *Auditor) Run(ctx context.Context) (*domain.AuditRun, error) {
	return a.run(ctx, func(domain.Event) {})
}

// Stream executa a bateria emitindo o passo a passo como eventos
func (a *Auditor) Stream(ctx context.Context) <-chan domain.Event {
	return streamRun(ctx, AuditorAgent, a.run)
}

func (a *Auditor) run(ctx context.Context, emit func(domain.Event)) (*domain.AuditRun, error) {
	run := domain.NewAuditRun(uuid.NewString(), AuditorAgent)

	properties, err := a.source.Properties()
	if err != nil {
		return nil, err
	}

	emitStep(run, emit, fmt.Sprintf("Snapshot de auditoria do GA4 carregado: %d propriedades", len(properties)))

	batches := Partition(len(properties), a.cfg.Audit.MinBatchSize, a.cfg.Audit.MaxBatchSize, a.now().UnixNano())
	for _, batch := range batches {
		if ctx.Err() != nil {
			return run, ctx.Err()
		}

		emit(domain.Event{
			Type:         domain.EventBatchStart,
			Agent:        AuditorAgent,
			BatchID:      batch.ID,
			TotalBatches: len(batches),
			BatchSize:    batch.End - batch.Start,
		})

		rows := properties[batch.Start:batch.End]
		a.checkPIIInURL(run, emit, rows)
		a.checkReferralExclusion(run, emit, rows)
		a.checkRetention(run, emit, rows)
		a.checkConsentMode(run, emit, rows)
		a.checkGoogleSignals(run, emit, rows)
		a.checkEnhancedMeasurement(run, emit, rows)
		a.checkCampaignNaming(run, emit, rows)
		a.checkCostImport(run, emit, rows)

		emit(domain.Event{
			Type:         domain.EventBatchComplete,
			Agent:        AuditorAgent,
			BatchID:      batch.ID,
			TotalBatches: len(batches),
			BatchSize:    batch.End - batch.Start,
		})
	}

	run.Complete()
	emitStep(run, emit, fmt.Sprintf(
		"Auditoria de configuração concluída: %d findings (%d P0, %d P1, %d P2)",
		len(run.Findings),
		run.CountByPriority(domain.PriorityP0),
		run.CountByPriority(domain.PriorityP1),
		run.CountByPriority(domain.PriorityP2),
	))
	return run, nil
}

// checkPIIInURL sinaliza URLs de exemplo carregando endereço de e-mail,
// seja no texto da query, seja como parâmetro explícito
func (a *Auditor) checkPIIInURL(run *domain.AuditRun, emit func(domain.Event), rows []domain.PropertyRow) {
	for _, row := range rows {
		query := row.SampleURLQuery
		if query == "" {
			continue
		}
		if !emailPattern.MatchString(query) && !emailParamPattern.MatchString(query) {
			continue
		}
		addFinding(run, emit, domain.Finding{
			Check:          "pii_in_url",
			Priority:       domain.PriorityP0,
			Issue:          "PII (e-mail) presente em URL coletada",
			PropertyID:     row.PropertyID,
			StreamID:       row.StreamID,
			TechnicalProof: fmt.Sprintf("Sample_URL_Query='%s'", query),
			Reasoning: []string{
				fmt.Sprintf("A propriedade %s coleta URLs contendo endereço de e-mail.", row.PropertyID),
				"Enviar PII ao Google Analytics viola os termos de serviço e a LGPD.",
				"A propriedade pode ser suspensa e os dados, expurgados.",
			},
			Recommendation: "Redigir os parâmetros de PII antes do disparo dos hits, no site ou via filtro.",
		})
	}
}

// checkReferralExclusion sinaliza, uma vez por propriedade, a ausência do
// domínio-chave de gateway de pagamento na lista de exclusão de referral
func (a *Auditor) checkReferralExclusion(run *domain.AuditRun, emit func(domain.Event), rows []domain.PropertyRow) {
	gateway := strings.ToLower(a.cfg.Audit.KeyGatewayDomain)
	for _, row := range rows {
		if strings.Contains(strings.ToLower(row.ReferralExclusionList), gateway) {
			continue
		}
		if !run.MarkProperty("referral_exclusion", row.PropertyID) {
			continue
		}
		addFinding(run, emit, domain.Finding{
			Check:      "referral_exclusion",
			Priority:   domain.PriorityP1,
			Issue:      "Gateway de pagamento fora da lista de exclusão de referral",
			PropertyID: row.PropertyID,
			StreamID:   row.StreamID,
			TechnicalProof: fmt.Sprintf(
				"Referral_Exclusion_List='%s' não contém '%s'",
				row.ReferralExclusionList, a.cfg.Audit.KeyGatewayDomain,
			),
			Reasoning: []string{
				fmt.Sprintf("O domínio %s não está na lista de exclusão da propriedade %s.", a.cfg.Audit.KeyGatewayDomain, row.PropertyID),
				"O retorno do checkout cria uma nova sessão atribuída ao gateway.",
				"As conversões são roubadas do canal de mídia que as originou.",
			},
			Recommendation: "Adicionar os domínios de gateway às configurações de exclusão de referral.",
		})
	}
}

// checkRetention sinaliza retenção de dados abaixo do mínimo
func (a *Auditor) checkRetention(run *domain.AuditRun, emit func(domain.Event), rows []domain.PropertyRow) {
	for _, row := range rows {
		if row.DataRetentionMonths == nil || *row.DataRetentionMonths >= a.cfg.Audit.MinRetentionMonths {
			continue
		}
		addFinding(run, emit, domain.Finding{
			Check:      "data_retention",
			Priority:   domain.PriorityP1,
			Issue:      "Retenção de dados abaixo do mínimo recomendado",
			PropertyID: row.PropertyID,
			StreamID:   row.StreamID,
			TechnicalProof: fmt.Sprintf(
				"Data_Retention_Months=%d (mínimo %d)",
				*row.DataRetentionMonths, a.cfg.Audit.MinRetentionMonths,
			),
			Reasoning: []string{
				fmt.Sprintf("A propriedade %s retém dados por %d meses.", row.PropertyID, *row.DataRetentionMonths),
				"Comparações ano contra ano exigem ao menos 14 meses de histórico.",
			},
			Recommendation: "Elevar a retenção de dados de evento para 14 meses nas configurações da propriedade.",
		})
	}
}

// checkConsentMode sinaliza, uma vez por propriedade, consent mode fora
// dos estados saudáveis
func (a *Auditor) checkConsentMode(run *domain.AuditRun, emit func(domain.Event), rows []domain.PropertyRow) {
	for _, row := range rows {
		status := strings.ToUpper(strings.TrimSpace(row.ConsentModeStatus))
		if status == "GRANTED" || status == "CONFIGURED" {
			continue
		}
		if !run.MarkProperty("consent_mode", row.PropertyID) {
			continue
		}
		addFinding(run, emit, domain.Finding{
			Check:          "consent_mode",
			Priority:       domain.PriorityP1,
			Issue:          "Consent mode não configurado corretamente",
			PropertyID:     row.PropertyID,
			StreamID:       row.StreamID,
			TechnicalProof: fmt.Sprintf("Consent_Mode_Status='%s'", row.ConsentModeStatus),
			Reasoning: []string{
				fmt.Sprintf("A propriedade %s reporta consent mode '%s'.", row.PropertyID, row.ConsentModeStatus),
				"Sem consent mode ativo não há modelagem de conversões para usuários que negam cookies.",
			},
			Recommendation: "Implementar consent mode v2 e validar os sinais enviados pelo banner.",
		})
	}
}

// checkGoogleSignals sinaliza, uma vez por propriedade, Google Signals desligado
func (a *Auditor) checkGoogleSignals(run *domain.AuditRun, emit func(domain.Event), rows []domain.PropertyRow) {
	for _, row := range rows {
		if row.GoogleSignalsEnabled == nil || *row.GoogleSignalsEnabled {
			continue
		}
		if !run.MarkProperty("google_signals", row.PropertyID) {
			continue
		}
		addFinding(run, emit, domain.Finding{
			Check:          "google_signals",
			Priority:       domain.PriorityP2,
			Issue:          "Google Signals desativado",
			PropertyID:     row.PropertyID,
			StreamID:       row.StreamID,
			TechnicalProof: "Google_Signals_Enabled=false",
			Reasoning: []string{
				fmt.Sprintf("A propriedade %s está com Google Signals desligado.", row.PropertyID),
				"Sem Signals não há remarketing entre dispositivos nem dados demográficos.",
			},
			Recommendation: "Ativar Google Signals respeitando a política de consentimento vigente.",
		})
	}
}

// checkEnhancedMeasurement sinaliza, uma vez por propriedade, configuração
// de enhanced measurement com recursos demais ausentes. Interrompe o lote
// após o primeiro finding, comportamento herdado da heurística original.
func (a *Auditor) checkEnhancedMeasurement(run *domain.AuditRun, emit func(domain.Event), rows []domain.PropertyRow) {
	for _, row := range rows {
		configured := strings.ToLower(row.EnhancedMeasurement)
		missing := make([]string, 0)
		for _, feature := range enhancedMeasurementFeatures {
			if !strings.Contains(configured, feature) {
				missing = append(missing, feature)
			}
		}
		if len(missing) < a.cfg.Audit.EnhancedMeasurementMinMissing {
			continue
		}
		if !run.MarkProperty("enhanced_measurement", row.PropertyID) {
			continue
		}
		addFinding(run, emit, domain.Finding{
			Check:      "enhanced_measurement",
			Priority:   domain.PriorityP2,
			Issue:      "Enhanced measurement incompleto",
			PropertyID: row.PropertyID,
			StreamID:   row.StreamID,
			TechnicalProof: fmt.Sprintf(
				"Enhanced_Measurement_Config='%s' sem: %s",
				row.EnhancedMeasurement, strings.Join(missing, ", "),
			),
			Reasoning: []string{
				fmt.Sprintf("A propriedade %s não mede: %s.", row.PropertyID, strings.Join(missing, ", ")),
				"Eventos de engajamento padrão deixam de ser coletados automaticamente.",
			},
			Recommendation: "Ativar os recursos de enhanced measurement ausentes no stream.",
		})
		break
	}
}

// checkCampaignNaming sinaliza nomes de campanha fora do padrão: espaço
// no nome, ou maiúsculas fugindo do snake_case minúsculo
func (a *Auditor) checkCampaignNaming(run *domain.AuditRun, emit func(domain.Event), rows []domain.PropertyRow) {
	for _, row := range rows {
		name := row.SessionCampaignName
		if name == "" {
			continue
		}
		hasSpace := strings.Contains(name, " ")
		hasUpper := name != strings.ToLower(name)
		if !hasSpace && !(hasUpper && !snakeCasePattern.MatchString(name)) {
			continue
		}
		addFinding(run, emit, domain.Finding{
			Check:          "campaign_naming",
			Priority:       domain.PriorityP2,
			Issue:          "Nome de campanha fora do padrão",
			PropertyID:     row.PropertyID,
			StreamID:       row.StreamID,
			TechnicalProof: fmt.Sprintf("Session_Campaign_Name='%s'", name),
			Reasoning: []string{
				fmt.Sprintf("A campanha '%s' não segue o padrão snake_case minúsculo.", name),
				"Nomes inconsistentes fragmentam os relatórios de atribuição.",
			},
			Recommendation: "Padronizar os nomes de campanha em snake_case minúsculo via convenção de UTM.",
		})
	}
}

// checkCostImport sinaliza, uma vez por propriedade, importação de custo
// fora dos estados saudáveis. Interrompe o lote após o primeiro finding,
// comportamento herdado da heurística original.
func (a *Auditor) checkCostImport(run *domain.AuditRun, emit func(domain.Event), rows []domain.PropertyRow) {
	for _, row := range rows {
		status := strings.ToLower(strings.TrimSpace(row.CostDataImportStatus))
		if healthyCostImportStatuses[status] {
			continue
		}
		if !run.MarkProperty("cost_import", row.PropertyID) {
			continue
		}
		addFinding(run, emit, domain.Finding{
			Check:          "cost_import",
			Priority:       domain.PriorityP2,
			Issue:          "Importação de dados de custo desativada",
			PropertyID:     row.PropertyID,
			StreamID:       row.StreamID,
			TechnicalProof: fmt.Sprintf("Cost_Data_Import_Status='%s'", row.CostDataImportStatus),
			Reasoning: []string{
				fmt.Sprintf("A propriedade %s reporta importação de custo '%s'.", row.PropertyID, row.CostDataImportStatus),
				"Sem dados de custo não há cálculo de ROAS dentro do GA4.",
			},
			Recommendation: "Configurar a importação de dados de custo das plataformas de mídia.",
		})
		break
	}
}
