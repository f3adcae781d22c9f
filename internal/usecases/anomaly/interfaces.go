package anomaly

import (
	"context"

	"github.com/vfg2006/watchdog-api/internal/domain"
)

// Analyzer expõe a análise de anomalias de Floodlight por anunciante
type Analyzer interface {
	// Advertisers lista as opções de anunciante extraídas das sessões
	Advertisers() ([]domain.Advertiser, error)

	// Analyze executa a análise completa de um anunciante. Um ID
	// desconhecido não é erro: a análise recua para o primeiro disponível.
	Analyze(ctx context.Context, advertiserID string) (*domain.AnomalyReport, error)

	// Stream executa a mesma análise emitindo o passo a passo como eventos.
	// O canal é fechado quando a análise termina ou o contexto é cancelado.
	Stream(ctx context.Context, advertiserID string) <-chan domain.Event
}
