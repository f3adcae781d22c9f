package utils

import "time"

// ParseDate converte uma string no formato YYYY-MM-DD em time.Time.
// Retorna nil quando a string está vazia ou não pode ser convertida,
// para que o chamador trate o valor como ausente.
func ParseDate(dateStr string) *time.Time {
	if dateStr == "" {
		return nil
	}

	date, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		return nil
	}

	return &date
}

// NormalizeDay trunca uma data para a meia-noite, descartando hora e fuso
func NormalizeDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// SameDay verifica se duas datas caem no mesmo dia de calendário
func SameDay(date1, date2 time.Time) bool {
	return date1.Year() == date2.Year() && date1.Month() == date2.Month() && date1.Day() == date2.Day()
}
