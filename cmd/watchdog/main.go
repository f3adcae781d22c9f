package main

import (
	"context"
	"os"
	"path"
	"runtime"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vfg2006/watchdog-api/infrastructure/database/postgres"
	"github.com/vfg2006/watchdog-api/infrastructure/integrator/gemini"
	"github.com/vfg2006/watchdog-api/infrastructure/repository"
	"github.com/vfg2006/watchdog-api/infrastructure/tabular"
	"github.com/vfg2006/watchdog-api/internal/config"
	"github.com/vfg2006/watchdog-api/internal/domain"
	"github.com/vfg2006/watchdog-api/internal/scheduler"
	"github.com/vfg2006/watchdog-api/internal/usecases/anomaly"
	"github.com/vfg2006/watchdog-api/internal/usecases/auditing"
	"github.com/vfg2006/watchdog-api/internal/usecases/narrating"
	"github.com/vfg2006/watchdog-api/pkg/utils"
)

func main() {
	// Inicializa configuração de logs
	configureLogger()

	cfg, err := config.NewConfig()
	if err != nil {
		logrus.Fatal(err)
	}

	// Define o nível de log com base na configuração
	logLevel, err := logrus.ParseLevel(cfg.App.LogLevel)
	if err != nil {
		logrus.Warnf("Nível de log inválido: %s, usando 'info'", cfg.App.LogLevel)
		logLevel = logrus.InfoLevel
	}
	logrus.SetLevel(logLevel)
	logrus.Infof("Nível de log configurado para: %s", logLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Persistência é opcional: sem banco os agentes rodam normalmente
	var runRepository repository.AuditRunRepository
	if cfg.Database.Enabled {
		pgConn := pgconn(ctx, cfg.Database)
		defer pgConn.Close()
		runRepository = repository.NewAuditRunRepository(pgConn)
	} else {
		logrus.Info("Banco de dados desabilitado, execuções não serão persistidas")
	}

	source := tabular.NewSource(cfg.Data)

	generator, err := gemini.New(ctx, cfg.Gemini)
	if err != nil {
		logrus.Fatal(err)
	}

	analyzer := anomaly.NewService(cfg, source, generator)
	technician := auditing.NewTechnician(cfg, source)
	auditor := auditing.NewAuditor(cfg, source)
	narrator := narrating.NewService(cfg, generator)

	auditSyncService := scheduler.NewAuditSyncService(cfg, source, technician, auditor, narrator, runRepository)
	if err := auditSyncService.Start(ctx); err != nil {
		logrus.WithError(err).Error("Erro ao iniciar o agendador de auditorias")
	} else {
		logrus.Info("Agendador de auditorias iniciado com sucesso")
	}

	// Execução única dos três agentes com o passo a passo no log
	runAnomalyAnalysis(ctx, analyzer)
	technicianRun := runBattery(ctx, technician)
	auditorRun := runBattery(ctx, auditor)

	if runRepository != nil {
		persistRun(runRepository, technicianRun)
		persistRun(runRepository, auditorRun)
	}

	reportRisk(ctx, narrator, technicianRun, recordCount(source.LineItems))
	reportRisk(ctx, narrator, auditorRun, recordCount(source.Properties))
}

// runAnomalyAnalysis roda a análise de anomalias do primeiro anunciante
// disponível, logando o stream de eventos
func runAnomalyAnalysis(ctx context.Context, analyzer anomaly.Analyzer) {
	advertisers, err := analyzer.Advertisers()
	if err != nil {
		logrus.WithError(err).Error("Erro ao listar anunciantes")
		return
	}
	if len(advertisers) == 0 {
		logrus.Warn("Nenhum anunciante disponível para análise de anomalias")
		return
	}

	for event := range analyzer.Stream(ctx, advertisers[0].ID) {
		logEvent(event)
	}
}

// runBattery executa a bateria do agente logando os findings
func runBattery(ctx context.Context, agent auditing.Agent) *domain.AuditRun {
	run, err := agent.Run(ctx)
	if err != nil {
		logrus.WithError(err).Error("Erro na execução da bateria")
		return nil
	}

	for i := range run.Findings {
		finding := run.Findings[i]
		logEvent(domain.Event{Type: domain.EventFinding, Agent: run.Agent, Finding: &finding})
	}
	return run
}

func persistRun(runRepository repository.AuditRunRepository, run *domain.AuditRun) {
	if run == nil {
		return
	}
	if err := runRepository.SaveOrUpdate(run); err != nil {
		logrus.WithError(err).WithField("run_id", run.ID).Error("Erro ao persistir execução")
	}
}

func reportRisk(ctx context.Context, narrator narrating.Narrator, run *domain.AuditRun, totalRecords int) {
	if run == nil {
		return
	}

	report := narrator.Narrate(ctx, run, totalRecords)
	logrus.WithFields(logrus.Fields{
		"agent":        run.Agent,
		"health_score": report.HealthScore,
		"daily_risk":   report.FinancialRisk.DailySpendAtRisk,
		"monthly_risk": report.FinancialRisk.MonthlyRisk,
		"p0":           report.P0Count,
		"p1":           report.P1Count,
	}).Info(report.ExecutiveNarrative)
}

func logEvent(event domain.Event) {
	switch event.Type {
	case domain.EventStep:
		logrus.WithField("agent", event.Agent).Info(event.Step.Step)
	case domain.EventBatchStart:
		logrus.WithFields(logrus.Fields{
			"agent":    event.Agent,
			"batch_id": event.BatchID,
			"total":    event.TotalBatches,
		}).Info("Analisando lote")
	case domain.EventFinding:
		logrus.WithFields(logrus.Fields{
			"agent":    event.Agent,
			"check":    event.Finding.Check,
			"priority": event.Finding.Priority,
		}).Warn(event.Finding.Issue)
	case domain.EventAnomalyReport:
		logrus.WithFields(logrus.Fields{
			"advertiser_id": event.AnomalyReport.AdvertiserID,
			"health_score":  event.AnomalyReport.Health.Score,
			"band":          event.AnomalyReport.Health.Band,
		}).Info("Relatório de anomalias pronto")
		logrus.Debug(utils.PrettyJson(event.AnomalyReport.Overview))
	}
}

func recordCount[T any](load func() ([]T, error)) int {
	rows, err := load()
	if err != nil {
		return 0
	}
	return len(rows)
}

// configureLogger configura o formato e comportamento dos logs
func configureLogger() {
	_, file, _, _ := runtime.Caller(0)
	dir := path.Dir(file)
	os.Chdir(dir)

	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})
}

// pgconn cria uma conexão com o banco de dados
func pgconn(ctx context.Context, dbConfig config.Database) *postgres.Connection {
	conn, err := postgres.NewConnection(ctx, dbConfig)
	if err != nil {
		logrus.WithError(err).Fatal("Erro ao conectar ao PostgreSQL")
	}

	if err := conn.Ping(ctx); err != nil {
		logrus.WithError(err).Fatal("Erro ao testar conexão com PostgreSQL")
	}

	logrus.Info("Conexão com PostgreSQL estabelecida com sucesso")
	return conn
}
