// Package tabular carrega os exports CSV em coleções de linhas tipadas.
// Valores individuais inválidos viram nulos; colunas obrigatórias ausentes
// abortam o carregamento do dataset com SchemaError.
package tabular

import (
	"fmt"
	"strings"
)

// SchemaError indica que um dataset não possui as colunas obrigatórias
// declaradas. Aborta o carregamento daquele dataset; os demais seguem.
type SchemaError struct {
	Dataset string
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("dataset %s sem colunas obrigatórias: %s", e.Dataset, strings.Join(e.Missing, ", "))
}
