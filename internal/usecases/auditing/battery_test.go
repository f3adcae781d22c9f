package auditing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPartition(t *testing.T) {
	tests := []struct {
		name    string
		n       int
		minSize int
		maxSize int
	}{
		{name: "Partição padrão", n: 100, minSize: 20, maxSize: 30},
		{name: "Menos linhas que o lote mínimo", n: 7, minSize: 20, maxSize: 30},
		{name: "Tamanho fixo quando min igual a max", n: 50, minSize: 10, maxSize: 10},
		{name: "Limites inválidos são corrigidos", n: 10, minSize: 0, maxSize: -5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			batches := Partition(tt.n, tt.minSize, tt.maxSize, 42)

			// Todo índice cai em exatamente um lote, em ordem
			covered := 0
			for i, batch := range batches {
				assert.Equal(t, i+1, batch.ID)
				assert.Equal(t, covered, batch.Start)
				assert.Greater(t, batch.End, batch.Start)
				covered = batch.End
			}
			assert.Equal(t, tt.n, covered)
		})
	}
}

func TestPartition_DeterministicaPorSeed(t *testing.T) {
	first := Partition(200, 20, 30, 7)
	second := Partition(200, 20, 30, 7)

	assert.Equal(t, first, second)
}

func TestPartition_EntradaVazia(t *testing.T) {
	batches := Partition(0, 20, 30, 1)

	require.NotNil(t, batches)
	assert.Empty(t, batches)
}

func TestPartition_TamanhoDentroDosLimites(t *testing.T) {
	batches := Partition(500, 20, 30, 99)

	// Apenas o último lote pode ficar abaixo do mínimo
	for i, batch := range batches {
		size := batch.End - batch.Start
		assert.LessOrEqual(t, size, 30)
		if i < len(batches)-1 {
			assert.GreaterOrEqual(t, size, 20)
		}
	}
}
