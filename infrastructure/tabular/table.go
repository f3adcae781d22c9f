package tabular

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// table é a representação intermediária de um CSV: cabeçalhos normalizados
// e linhas como fatias de células cruas
type table struct {
	columns map[string]int
	rows    [][]string
}

// readTable lê um CSV do disco. Arquivo ausente não é erro: devolve uma
// tabela vazia para que as tabelas derivadas degradem para vazias.
func readTable(path string) (*table, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			logrus.WithField("path", path).Warn("Arquivo de dataset não encontrado, usando tabela vazia")
			return &table{columns: map[string]int{}}, nil
		}
		return nil, errors.Wrapf(err, "erro ao abrir dataset %s", path)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return &table{columns: map[string]int{}}, nil
		}
		return nil, errors.Wrapf(err, "erro ao ler cabeçalho de %s", path)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.TrimSpace(name)] = i
	}

	rows := make([][]string, 0)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Linha malformada é descartada, nunca aborta o dataset inteiro
			logrus.WithError(err).WithField("path", path).Debug("Linha CSV malformada descartada")
			continue
		}
		rows = append(rows, record)
	}

	return &table{columns: columns, rows: rows}, nil
}

// require valida as colunas obrigatórias declaradas do dataset
func (t *table) require(dataset string, cols ...string) error {
	if len(t.rows) == 0 && len(t.columns) == 0 {
		// Tabela vazia por arquivo ausente: degrada sem erro de schema
		return nil
	}

	missing := make([]string, 0)
	for _, col := range cols {
		if _, ok := t.columns[col]; !ok {
			missing = append(missing, col)
		}
	}

	if len(missing) > 0 {
		return &SchemaError{Dataset: dataset, Missing: missing}
	}

	return nil
}

// cell retorna a célula crua de uma linha, ou vazio quando a coluna não existe
func (t *table) cell(row []string, col string) string {
	idx, ok := t.columns[col]
	if !ok || idx >= len(row) {
		return ""
	}
	return row[idx]
}

// stringCell normaliza uma célula de texto. Os sentinelas de valor ausente
// dos exports ("nan", "null") viram string vazia.
func (t *table) stringCell(row []string, col string) string {
	value := strings.TrimSpace(t.cell(row, col))
	switch strings.ToLower(value) {
	case "nan", "null", "none":
		return ""
	}
	return value
}

// dateCell converte uma célula de data; valores inválidos viram nil
func (t *table) dateCell(row []string, col string) *time.Time {
	value := t.stringCell(row, col)
	if value == "" {
		return nil
	}

	date, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil
	}
	return &date
}

// intCell converte uma célula numérica; valores inválidos viram nil
func (t *table) intCell(row []string, col string) *int {
	value := t.stringCell(row, col)
	if value == "" {
		return nil
	}

	// Exports do GA4 serializam contagens como float ("120.0")
	if f, err := strconv.ParseFloat(value, 64); err == nil {
		n := int(f)
		return &n
	}
	return nil
}

// floatCell converte uma célula numérica; valores inválidos viram zero
func (t *table) floatCell(row []string, col string) float64 {
	value := t.stringCell(row, col)
	if value == "" {
		return 0
	}

	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0
	}
	return f
}

// boolCell converte uma célula booleana; valores inválidos viram nil
func (t *table) boolCell(row []string, col string) *bool {
	value := strings.ToLower(t.stringCell(row, col))
	if value == "" {
		return nil
	}

	b := value == "true" || value == "1" || value == "yes"
	return &b
}
