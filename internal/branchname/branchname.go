// Package branchname детерминированно выбирает имена веток для работы агента.
package branchname

import (
	"fmt"
	"strings"
)

// Prefix - пространство имён всех веток, создаваемых агентом.
const Prefix = "agent/"

// fallback подставляется вместо пустого идентификатора, чтобы имя
// никогда не вырождалось в голый префикс.
const fallback = "issue"

// BaseName строит базовое имя ветки из идентификатора задачи:
// нижний регистр, все символы вне [a-z0-9-] заменяются на '-'.
func BaseName(identifier string) string {
	if identifier == "" {
		identifier = fallback
	}

	lower := strings.ToLower(identifier)

	var b strings.Builder
	b.Grow(len(Prefix) + len(lower))
	b.WriteString(Prefix)
	for _, r := range lower {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			b.WriteRune(r)
		} else {
			b.WriteByte('-')
		}
	}
	return b.String()
}

// NextAvailable возвращает первое свободное имя ветки: базовое имя, если оно
// не занято, иначе перебор суффиксов -2, -3, ... до первого свободного.
// Занятость решается только по переданному множеству existing.
func NextAvailable(identifier string, existing map[string]bool) string {
	base := BaseName(identifier)
	if !existing[base] {
		return base
	}

	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s-%d", base, n)
		if !existing[candidate] {
			return candidate
		}
	}
}

// ToSet преобразует список имён в множество для NextAvailable.
func ToSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}
