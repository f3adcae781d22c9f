package anomaly

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/vfg2006/watchdog-api/internal/domain"
)

func TestComputeHealthScore(t *testing.T) {
	tests := []struct {
		name          string
		spikeDays     int
		missingDays   int
		expectedScore int
		expectedBand  domain.HealthScoreBand
	}{
		{
			name:          "Sem problemas o score é 100 e a faixa Excellent",
			spikeDays:     0,
			missingDays:   0,
			expectedScore: 100,
			expectedBand:  domain.BandExcellent,
		},
		{
			name:          "Penalidade de spike satura em 40",
			spikeDays:     20,
			missingDays:   0,
			expectedScore: 60,
			expectedBand:  domain.BandFair,
		},
		{
			name:          "Penalidade de entrega ausente satura em 60",
			spikeDays:     0,
			missingDays:   100,
			expectedScore: 40,
			expectedBand:  domain.BandPoor,
		},
		{
			name:          "Dez dias de spike e cinco sem entrega dão 65 Fair",
			spikeDays:     10,
			missingDays:   5,
			expectedScore: 65,
			expectedBand:  domain.BandFair,
		},
		{
			name:          "As duas saturações juntas zeram o score",
			spikeDays:     50,
			missingDays:   200,
			expectedScore: 0,
			expectedBand:  domain.BandPoor,
		},
		{
			name:          "Limiar da faixa Good em 75",
			spikeDays:     5,
			missingDays:   10,
			expectedScore: 75,
			expectedBand:  domain.BandGood,
		},
		{
			name:          "Limiar da faixa Excellent em 90",
			spikeDays:     0,
			missingDays:   10,
			expectedScore: 90,
			expectedBand:  domain.BandExcellent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ComputeHealthScore(tt.spikeDays, tt.missingDays, 60)

			assert.Equal(t, tt.expectedScore, result.Score)
			assert.Equal(t, tt.expectedBand, result.Band)
			assert.Equal(t, tt.spikeDays, result.SpikeDays)
			assert.Equal(t, tt.missingDays, result.MissingDays)
			assert.Equal(t, 60, result.WindowDays)
		})
	}
}
