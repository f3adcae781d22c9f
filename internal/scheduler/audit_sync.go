// Package scheduler agenda a execução periódica da bateria de auditoria
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/sirupsen/logrus"
	"github.com/vfg2006/watchdog-api/infrastructure/repository"
	"github.com/vfg2006/watchdog-api/infrastructure/tabular"
	"github.com/vfg2006/watchdog-api/internal/config"
	"github.com/vfg2006/watchdog-api/internal/domain"
	"github.com/vfg2006/watchdog-api/internal/usecases/auditing"
	"github.com/vfg2006/watchdog-api/internal/usecases/narrating"
	"github.com/vfg2006/watchdog-api/pkg/log"
)

// AuditSyncService gerencia o agendamento e a execução da auditoria
// completa: bateria técnica, auditoria de configuração e relatório de
// risco, com persistência opcional das execuções
type AuditSyncService struct {
	scheduler  *gocron.Scheduler
	cfg        *config.Config
	source     *tabular.Source
	technician auditing.Agent
	auditor    auditing.Agent
	narrator   narrating.Narrator

	// Repositório opcional: sem banco a auditoria roda sem persistir
	runRepository repository.AuditRunRepository

	syncRunning         bool
	syncMutex           sync.Mutex
	lastSyncStartedAt   time.Time
	lastSyncCompletedAt time.Time
}

// NewAuditSyncService cria o serviço de sincronização de auditorias
func NewAuditSyncService(
	cfg *config.Config,
	source *tabular.Source,
	technician auditing.Agent,
	auditor auditing.Agent,
	narrator narrating.Narrator,
	runRepository repository.AuditRunRepository,
) *AuditSyncService {
	logrus.WithFields(logrus.Fields{
		"cron_schedule":  cfg.AuditSync.CronSchedule,
		"sync_enabled":   cfg.AuditSync.Enabled,
		"retention_days": cfg.AuditSync.RetentionDays,
	}).Info("Configuração do agendador de auditorias carregada")

	return &AuditSyncService{
		scheduler:     gocron.NewScheduler(time.Local),
		cfg:           cfg,
		source:        source,
		technician:    technician,
		auditor:       auditor,
		narrator:      narrator,
		runRepository: runRepository,
	}
}

// Start inicia o agendador
func (s *AuditSyncService) Start(ctx context.Context) error {
	if !s.cfg.AuditSync.Enabled {
		logrus.Info("Sincronização de auditorias desabilitada por configuração")
		return nil
	}

	logrus.WithField("cron", s.cfg.AuditSync.CronSchedule).Info("Iniciando agendador de auditorias")

	_, err := s.scheduler.Cron(s.cfg.AuditSync.CronSchedule).Do(func() {
		s.syncAudits()
	})
	if err != nil {
		return fmt.Errorf("erro ao agendar a auditoria periódica: %w", err)
	}

	s.scheduler.StartAsync()

	go func() {
		<-ctx.Done()
		logrus.Info("Parando agendador de auditorias")
		s.scheduler.Stop()
	}()

	return nil
}

// TriggerManualSync dispara uma auditoria fora do agendamento
func (s *AuditSyncService) TriggerManualSync() error {
	s.syncMutex.Lock()
	running := s.syncRunning
	s.syncMutex.Unlock()

	if running {
		return fmt.Errorf("auditoria já em andamento, aguarde a conclusão")
	}

	go s.syncAudits()
	return nil
}

// GetStatus retorna o estado atual do agendador
func (s *AuditSyncService) GetStatus() map[string]interface{} {
	s.syncMutex.Lock()
	defer s.syncMutex.Unlock()

	return map[string]interface{}{
		"enabled":           s.cfg.AuditSync.Enabled,
		"cron_schedule":     s.cfg.AuditSync.CronSchedule,
		"running":           s.syncRunning,
		"last_started_at":   s.lastSyncStartedAt,
		"last_completed_at": s.lastSyncCompletedAt,
	}
}

// syncAudits executa a auditoria completa uma única vez
func (s *AuditSyncService) syncAudits() {
	s.syncMutex.Lock()
	if s.syncRunning {
		s.syncMutex.Unlock()
		logrus.Info("Auditoria já em andamento, ignorando disparo")
		return
	}
	s.syncRunning = true
	s.syncMutex.Unlock()

	s.lastSyncStartedAt = time.Now()

	defer func() {
		s.syncMutex.Lock()
		s.syncRunning = false
		s.lastSyncCompletedAt = time.Now()
		s.syncMutex.Unlock()
	}()

	// Cada ciclo ganha um ID de correlação próprio para rastrear os logs
	ctx, correlationID := log.WithCorrelationID(context.Background())
	logger := log.ForContext(ctx)

	logger.WithField("run_id", correlationID).Info("Iniciando auditoria agendada")

	// Recarregar os exports a cada ciclo: os arquivos mudam entre execuções
	s.source.Invalidate()

	technicianRun, err := s.technician.Run(ctx)
	if err != nil {
		logrus.WithError(err).Error("Erro na bateria técnica agendada")
		return
	}
	s.persistRun(technicianRun)
	s.reportRun(ctx, technicianRun, s.technicianRecords())

	auditorRun, err := s.auditor.Run(ctx)
	if err != nil {
		logrus.WithError(err).Error("Erro na auditoria de configuração agendada")
		return
	}
	s.persistRun(auditorRun)
	s.reportRun(ctx, auditorRun, s.auditorRecords())

	s.cleanupOldRuns()

	logger.WithFields(log.Fields{
		"duration_ms": time.Since(s.lastSyncStartedAt).Milliseconds(),
	}).Info("Auditoria agendada concluída")
}

func (s *AuditSyncService) persistRun(run *domain.AuditRun) {
	if s.runRepository == nil {
		return
	}

	if err := s.runRepository.SaveOrUpdate(run); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"run_id": run.ID,
			"agent":  run.Agent,
		}).Error("Erro ao persistir execução de auditoria")
	}
}

func (s *AuditSyncService) reportRun(ctx context.Context, run *domain.AuditRun, totalRecords int) {
	report := s.narrator.Narrate(ctx, run, totalRecords)

	logrus.WithFields(logrus.Fields{
		"run_id":       run.ID,
		"agent":        run.Agent,
		"health_score": report.HealthScore,
		"daily_risk":   report.FinancialRisk.DailySpendAtRisk,
		"monthly_risk": report.FinancialRisk.MonthlyRisk,
	}).Info(report.ExecutiveNarrative)
}

func (s *AuditSyncService) cleanupOldRuns() {
	if s.runRepository == nil || s.cfg.AuditSync.RetentionDays <= 0 {
		return
	}

	removed, err := s.runRepository.DeleteOlderThan(s.cfg.AuditSync.RetentionDays)
	if err != nil {
		logrus.WithError(err).Error("Erro ao expurgar execuções antigas")
		return
	}
	if removed > 0 {
		logrus.WithField("removed", removed).Info("Execuções antigas expurgadas")
	}
}

func (s *AuditSyncService) technicianRecords() int {
	lineItems, err := s.source.LineItems()
	if err != nil {
		return 0
	}
	return len(lineItems)
}

func (s *AuditSyncService) auditorRecords() int {
	properties, err := s.source.Properties()
	if err != nil {
		return 0
	}
	return len(properties)
}
