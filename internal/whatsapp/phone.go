package whatsapp

import "strings"

// ResolvePhone выбирает контактный номер по приоритету: сначала телефон
// клиента, затем телефон из адреса доставки. Возвращает первый непустой
// кандидат (пробелы не считаются) или пустую строку.
// Результат - единственный источник истины для "можем ли мы написать
// этому клиенту".
func ResolvePhone(candidates ...string) string {
	for _, c := range candidates {
		if strings.TrimSpace(c) != "" {
			return strings.TrimSpace(c)
		}
	}
	return ""
}

// NormalizePhone приводит номер к формату WhatsApp: международный формат
// без '+' и разделителей.
// Примеры:
//
//	+57 300-123-4567  → 573001234567
//	3001234567        → 573001234567 (по умолчанию Колумбия)
//	+1-555-123-4567   → 15551234567
func NormalizePhone(phone string) string {
	var b strings.Builder
	for _, c := range phone {
		if c >= '0' && c <= '9' {
			b.WriteRune(c)
		}
	}
	cleaned := b.String()

	// Колумбийский мобильный без кода страны: 10 цифр, начинается с 3
	if len(cleaned) == 10 && strings.HasPrefix(cleaned, "3") {
		cleaned = "57" + cleaned
	}

	return cleaned
}
