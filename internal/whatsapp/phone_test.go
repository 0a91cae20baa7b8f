package whatsapp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"международный формат с плюсом", "+573001234567", "573001234567"},
		{"плюс и разделители", "+57 300-123-4567", "573001234567"},
		{"колумбийский мобильный без кода страны", "3001234567", "573001234567"},
		{"десять цифр, но не мобильный", "6011234567", "6011234567"},
		{"номер США", "+1-555-123-4567", "15551234567"},
		{"скобки и пробелы", "(300) 123 45 67", "573001234567"},
		{"пустая строка", "", ""},
		{"только мусор", "abc-def", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizePhone(tt.input))
		})
	}
}

func TestResolvePhone(t *testing.T) {
	t.Run("телефон клиента имеет приоритет", func(t *testing.T) {
		assert.Equal(t, "+573001234567", ResolvePhone("+573001234567", "+573009999999"))
	})

	t.Run("fallback на телефон из адреса", func(t *testing.T) {
		assert.Equal(t, "+573009999999", ResolvePhone("", "+573009999999"))
	})

	t.Run("пробелы не считаются номером", func(t *testing.T) {
		assert.Equal(t, "+573009999999", ResolvePhone("   ", "+573009999999"))
	})

	t.Run("кандидат обрезается по краям", func(t *testing.T) {
		assert.Equal(t, "+573001234567", ResolvePhone("  +573001234567  ", ""))
	})

	t.Run("ни одного кандидата", func(t *testing.T) {
		assert.Equal(t, "", ResolvePhone("", "  "))
	})
}
