package anomaly

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/vfg2006/watchdog-api/internal/domain"
)

func intPtr(v int) *int { return &v }

func sessionRow(date, channel string, sessions int) domain.SessionRow {
	return domain.SessionRow{
		AdvertiserID: "ADV1",
		Date:         dayPtr(date),
		Channel:      channel,
		Sessions:     intPtr(sessions),
	}
}

func TestInferChannelDriver_SemDadosParaAData(t *testing.T) {
	sessions := []domain.SessionRow{
		sessionRow("2026-01-01", "Direct", 100),
	}

	driver := InferChannelDriver(sessions, day("2026-05-05"))

	assert.Empty(t, driver.DominantChannel)
	assert.Zero(t, driver.DominantSessions)
	assert.Zero(t, driver.ZScore)
	assert.NotEmpty(t, driver.Cause)
}

func TestInferChannelDriver_CanalDominanteEZScore(t *testing.T) {
	// Baseline do canal Referral: 100, 100, 400 -> média 200, desvio ~141.4
	sessions := []domain.SessionRow{
		sessionRow("2026-01-01", "Referral", 100),
		sessionRow("2026-01-02", "Referral", 100),
		sessionRow("2026-01-03", "Referral", 400),
		sessionRow("2026-01-03", "Direct", 50),
	}

	driver := InferChannelDriver(sessions, day("2026-01-03"))

	assert.Equal(t, "Referral", driver.DominantChannel)
	assert.Equal(t, 400, driver.DominantSessions)
	assert.InDelta(t, 1.41, driver.ZScore, 0.01)
	assert.Contains(t, driver.Cause, "referral")
	assert.Contains(t, driver.Evidence, "Referral")
	assert.Contains(t, driver.Evidence, "2026-01-03")
}

func TestInferChannelDriver_DesvioZeroUsaDivisorUm(t *testing.T) {
	// Única observação histórica: desvio 0, divisor vira 1.0
	sessions := []domain.SessionRow{
		sessionRow("2026-01-01", "Paid Search", 120),
	}

	driver := InferChannelDriver(sessions, day("2026-01-01"))

	assert.Equal(t, "Paid Search", driver.DominantChannel)
	// z = (120 - 120) / 1.0
	assert.Zero(t, driver.ZScore)
}

func TestInferChannelDriver_EmpatePrimeiraAparicaoVence(t *testing.T) {
	sessions := []domain.SessionRow{
		sessionRow("2026-01-01", "Organic Search", 80),
		sessionRow("2026-01-01", "Direct", 80),
	}

	driver := InferChannelDriver(sessions, day("2026-01-01"))

	assert.Equal(t, "Organic Search", driver.DominantChannel)
}

func TestInferChannelDriver_SomaSessoesDoMesmoCanalNoDia(t *testing.T) {
	sessions := []domain.SessionRow{
		sessionRow("2026-01-01", "Direct", 30),
		sessionRow("2026-01-01", "Direct", 40),
		sessionRow("2026-01-01", "Referral", 50),
	}

	driver := InferChannelDriver(sessions, day("2026-01-01"))

	assert.Equal(t, "Direct", driver.DominantChannel)
	assert.Equal(t, 70, driver.DominantSessions)
}

func TestInferChannelDriver_LinhasInvalidasSaoIgnoradas(t *testing.T) {
	sessions := []domain.SessionRow{
		{AdvertiserID: "ADV1", Date: nil, Channel: "Direct", Sessions: intPtr(500)},
		{AdvertiserID: "ADV1", Date: dayPtr("2026-01-01"), Channel: "Referral", Sessions: nil},
		sessionRow("2026-01-01", "Paid Social", 10),
	}

	driver := InferChannelDriver(sessions, day("2026-01-01"))

	assert.Equal(t, "Paid Social", driver.DominantChannel)
}

func TestCauseFor(t *testing.T) {
	tests := []struct {
		name     string
		channel  string
		keyword  string
		generica bool
	}{
		{name: "Referral casa por substring", channel: "Referral", keyword: "referral"},
		{name: "Direct casa sem diferenciar maiúsculas", channel: "DIRECT", keyword: "direto"},
		{name: "Paid Search casa pela família paid", channel: "Paid Search", keyword: "pago"},
		{name: "Organic Search casa pela família organic", channel: "Organic Search", keyword: "orgânico"},
		{name: "Canal desconhecido recebe explicação genérica", channel: "Display", generica: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cause := causeFor(tt.channel)

			if tt.generica {
				assert.Equal(t, genericCause, cause)
				return
			}
			assert.Contains(t, cause, tt.keyword)
		})
	}
}
