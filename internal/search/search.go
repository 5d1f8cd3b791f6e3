// Package search содержит фильтрацию списка приютов на стороне сервиса.
package search

import (
	"strings"

	"github.com/mmeshcher/shelterlink-system/internal/model"
)

// Matches проверяет, проходит ли запись приюта текущие условия поиска.
// Функция чистая: одинаковые аргументы всегда дают одинаковый результат.
//
// Подстрока query ищется в имени без учёта регистра. Из переключателей к
// данным привязан только openNow: у записи приюта нет полей про животных,
// доступность и теги сообществ, поэтому такие переключатели запись не
// отсеивают. Радиус поиска к списку также не применяется.
func Matches(rec model.ShelterRecord, criteria model.FilterCriteria, query string) bool {
	if query != "" && !strings.Contains(strings.ToLower(rec.Name), strings.ToLower(query)) {
		return false
	}

	if criteria.OpenNow && !rec.IsOpen {
		return false
	}

	return true
}

// Filter возвращает записи, проходящие условия сессии поиска, сохраняя порядок хранилища.
func Filter(records []model.ShelterRecord, session model.SearchSession) []model.ShelterRecord {
	res := make([]model.ShelterRecord, 0, len(records))
	for _, rec := range records {
		if Matches(rec, session.Criteria, session.Query) {
			res = append(res, rec)
		}
	}
	return res
}
