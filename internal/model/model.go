// Package model содержит доменные сущности сервиса шелтерлинк.
package model

// ShelterRecord описывает приют и текущее количество свободных коек.
type ShelterRecord struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Address       string   `json:"address"`
	Latitude      float64  `json:"latitude"`
	Longitude     float64  `json:"longitude"`
	BedsAvailable int      `json:"bedsAvailable"`
	IsOpen        bool     `json:"isOpen"`
	Description   string   `json:"description"`
	Services      []string `json:"services"`
	Image         string   `json:"image"`

	// DistanceMiles вычисляется внешней системой маршрутизации и не хранится в документе.
	DistanceMiles float64 `json:"distanceMiles,omitempty"`
}

// AllowedDistances перечисляет допустимые радиусы поиска в милях.
var AllowedDistances = []int{1, 5, 10, 20}

// DefaultDistanceMiles — радиус поиска по умолчанию.
const DefaultDistanceMiles = 5

// FilterCriteria описывает ограничения поиска, выбранные пользователем.
type FilterCriteria struct {
	OpenNow              bool            `json:"openNow"`
	PetFriendly          bool            `json:"petFriendly"`
	WheelchairAccessible bool            `json:"wheelchairAccessible"`
	Tags                 map[string]bool `json:"tags,omitempty"`
	DistanceMiles        int             `json:"distanceMiles"`
}

// ValidDistance проверяет, что радиус поиска входит в список допустимых значений.
func ValidDistance(miles int) bool {
	for _, d := range AllowedDistances {
		if d == miles {
			return true
		}
	}
	return false
}

// SearchSession содержит состояние поиска одной пользовательской сессии.
// Живёт только на время сессии и не попадает в хранилище.
type SearchSession struct {
	Query    string         `json:"query"`
	Criteria FilterCriteria `json:"criteria"`
}

// NewSearchSession возвращает сессию поиска со значениями по умолчанию.
func NewSearchSession() SearchSession {
	return SearchSession{
		Criteria: FilterCriteria{
			OpenNow:       true,
			DistanceMiles: DefaultDistanceMiles,
		},
	}
}

// DeclineReason описывает причину отказа в бронировании.
type DeclineReason string

// DeclineNoBedsAvailable возвращается при попытке бронирования в приюте без свободных коек.
const DeclineNoBedsAvailable DeclineReason = "NO_BEDS_AVAILABLE"

// BookingOutcome описывает исход попытки бронирования одной койки.
type BookingOutcome struct {
	Confirmed bool           `json:"confirmed"`
	Reason    DeclineReason  `json:"reason,omitempty"`
	Shelter   *ShelterRecord `json:"shelter,omitempty"`
}
