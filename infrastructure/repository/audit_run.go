package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/lib/pq"
	"github.com/vfg2006/watchdog-api/infrastructure/database/postgres"
	"github.com/vfg2006/watchdog-api/internal/domain"
)

const (
	auditRunsTable = "audit_runs ar"
)

// AuditRunRepository persiste execuções finalizadas da bateria de
// verificações, com findings e passos serializados em colunas JSON
type AuditRunRepository interface {
	SaveOrUpdate(run *domain.AuditRun) error
	GetByID(id string) (*domain.AuditRun, error)
	ListRecent(limit int) ([]*domain.AuditRun, error)
	DeleteOlderThan(days int) (int64, error)
}

type auditRunRepository struct {
	conn *postgres.Connection
}

func NewAuditRunRepository(conn *postgres.Connection) AuditRunRepository {
	return &auditRunRepository{
		conn: conn,
	}
}

func (r *auditRunRepository) SaveOrUpdate(run *domain.AuditRun) error {
	findingsJSON, err := json.Marshal(run.Findings)
	if err != nil {
		return fmt.Errorf("erro ao serializar findings para JSON: %w", err)
	}

	stepsJSON, err := json.Marshal(run.ReasoningSteps)
	if err != nil {
		return fmt.Errorf("erro ao serializar passos de raciocínio para JSON: %w", err)
	}

	query := squirrel.StatementBuilder.
		Insert("audit_runs").
		Columns("id", "agent", "started_at", "completed_at", "findings", "reasoning_steps").
		Values(
			run.ID,
			run.Agent,
			run.StartedAt,
			run.CompletedAt,
			findingsJSON,
			stepsJSON,
		).
		Suffix(`
			ON CONFLICT (id) DO UPDATE SET
				completed_at = EXCLUDED.completed_at,
				findings = EXCLUDED.findings,
				reasoning_steps = EXCLUDED.reasoning_steps,
				updated_at = NOW()
		`).
		PlaceholderFormat(squirrel.Dollar)

	sqlQuery, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("erro ao construir a query: %w", err)
	}

	_, err = r.conn.Exec(sqlQuery, args...)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			return fmt.Errorf("erro no banco de dados: %w (código: %s)", pqErr, pqErr.Code)
		}
		return fmt.Errorf("erro ao executar a query: %w", err)
	}

	return nil
}

func (r *auditRunRepository) GetByID(id string) (*domain.AuditRun, error) {
	query, args, err := squirrel.
		Select("ar.id, ar.agent, ar.started_at, ar.completed_at, ar.findings, ar.reasoning_steps").
		From(auditRunsTable).
		Where(squirrel.Eq{"ar.id": id}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("erro ao construir a query: %w", err)
	}

	row := r.conn.QueryRow(query, args...)
	run, err := r.scanRun(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("erro ao escanear execução de auditoria: %w", err)
	}

	return run, nil
}

func (r *auditRunRepository) ListRecent(limit int) ([]*domain.AuditRun, error) {
	query, args, err := squirrel.
		Select("ar.id, ar.agent, ar.started_at, ar.completed_at, ar.findings, ar.reasoning_steps").
		From(auditRunsTable).
		OrderBy("ar.started_at DESC").
		Limit(uint64(limit)).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("erro ao construir a query: %w", err)
	}

	rows, err := r.conn.Query(query, args...)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("erro ao executar a query: %w", err)
	}
	defer rows.Close()

	runs := make([]*domain.AuditRun, 0)
	for rows.Next() {
		run, err := r.scanRunRows(rows)
		if err != nil {
			return nil, fmt.Errorf("erro ao escanear execuções de auditoria: %w", err)
		}
		runs = append(runs, run)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("erro durante a iteração de linhas: %w", err)
	}

	return runs, nil
}

func (r *auditRunRepository) DeleteOlderThan(days int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -days)

	query, args, err := squirrel.
		Delete("audit_runs").
		Where(squirrel.Lt{"started_at": cutoff}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("erro ao construir a query: %w", err)
	}

	result, err := r.conn.Exec(query, args...)
	if err != nil {
		return 0, fmt.Errorf("erro ao executar a query: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("erro ao obter número de linhas afetadas: %w", err)
	}

	return rowsAffected, nil
}

func (r *auditRunRepository) scanRun(row *sql.Row) (*domain.AuditRun, error) {
	run := &domain.AuditRun{}
	var findingsJSON, stepsJSON []byte

	err := row.Scan(
		&run.ID,
		&run.Agent,
		&run.StartedAt,
		&run.CompletedAt,
		&findingsJSON,
		&stepsJSON,
	)
	if err != nil {
		return nil, err
	}

	if err := r.decodePayload(run, findingsJSON, stepsJSON); err != nil {
		return nil, err
	}

	return run, nil
}

func (r *auditRunRepository) scanRunRows(rows *sql.Rows) (*domain.AuditRun, error) {
	run := &domain.AuditRun{}
	var findingsJSON, stepsJSON []byte

	err := rows.Scan(
		&run.ID,
		&run.Agent,
		&run.StartedAt,
		&run.CompletedAt,
		&findingsJSON,
		&stepsJSON,
	)
	if err != nil {
		return nil, err
	}

	if err := r.decodePayload(run, findingsJSON, stepsJSON); err != nil {
		return nil, err
	}

	return run, nil
}

func (r *auditRunRepository) decodePayload(run *domain.AuditRun, findingsJSON, stepsJSON []byte) error {
	if findingsJSON != nil {
		if err := json.Unmarshal(findingsJSON, &run.Findings); err != nil {
			return fmt.Errorf("erro ao deserializar JSON de findings: %w", err)
		}
	}

	if stepsJSON != nil {
		if err := json.Unmarshal(stepsJSON, &run.ReasoningSteps); err != nil {
			return fmt.Errorf("erro ao deserializar JSON de passos: %w", err)
		}
	}

	return nil
}
