// Package ledger реализует учёт свободных коек приютов.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/mmeshcher/shelterlink-system/internal/geo"
	"github.com/mmeshcher/shelterlink-system/internal/model"
	"github.com/mmeshcher/shelterlink-system/internal/schema"
	"github.com/mmeshcher/shelterlink-system/internal/store"
)

// sheltersCollection — имя коллекции документов приютов в хранилище.
const sheltersCollection = "shelters"

// ErrInvalidAdjustment возвращается, если изменение увело бы количество коек в минус.
var ErrInvalidAdjustment = errors.New("adjustment would make beds negative")

// Store описывает контракт документного хранилища, используемый учётом коек.
type Store interface {
	Close() error
	FetchCollection(ctx context.Context, name string) ([]store.Document, error)
	FetchDocument(ctx context.Context, name, id string) (store.Fields, error)
	UpdateDocument(ctx context.Context, name, id string, partial store.Fields) error
}

// Ledger отвечает за все чтения и изменения количества свободных коек.
// Инвариант bedsAvailable >= 0 проверяется только здесь, хранилище его не знает.
type Ledger struct {
	store     Store
	geoClient *geo.Client

	// Изменения по одному приюту сериализуются, чтобы две параллельные
	// брони последней койки не прошли проверку одновременно.
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New создаёт учёт коек с указанным хранилищем и клиентом системы маршрутизации.
func New(st Store, geoClient *geo.Client) *Ledger {
	return &Ledger{
		store:     st,
		geoClient: geoClient,
		locks:     make(map[string]*sync.Mutex),
	}
}

// Close закрывает ресурсы учёта.
func (l *Ledger) Close() error {
	if l.store != nil {
		return l.store.Close()
	}
	return nil
}

func (l *Ledger) lockFor(id string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()

	m, ok := l.locks[id]
	if !ok {
		m = &sync.Mutex{}
		l.locks[id] = m
	}
	return m
}

// ListAll возвращает все записи приютов. Пустая коллекция — пустой список, не ошибка.
func (l *Ledger) ListAll(ctx context.Context) ([]model.ShelterRecord, error) {
	docs, err := l.store.FetchCollection(ctx, sheltersCollection)
	if err != nil {
		return nil, err
	}

	records := make([]model.ShelterRecord, 0, len(docs))
	for _, doc := range docs {
		rec, err := schema.DecodeShelter(doc.ID, doc.Fields)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}

	return records, nil
}

// ListNearby возвращает все записи приютов, дополняя их расстоянием от точки поиска.
// Дополнение выполняется по возможности: недоступность системы маршрутизации
// не мешает отдать список.
func (l *Ledger) ListNearby(ctx context.Context, lat, lon float64) ([]model.ShelterRecord, error) {
	records, err := l.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	if l.geoClient == nil {
		return records, nil
	}

	for i := range records {
		miles, err := l.geoClient.GetDistance(ctx, lat, lon, records[i].Latitude, records[i].Longitude)
		if err != nil {
			continue
		}
		records[i].DistanceMiles = miles
	}

	return records, nil
}

// GetByID возвращает запись приюта по идентификатору.
func (l *Ledger) GetByID(ctx context.Context, id string) (*model.ShelterRecord, error) {
	fields, err := l.store.FetchDocument(ctx, sheltersCollection, id)
	if err != nil {
		return nil, err
	}

	return schema.DecodeShelter(id, fields)
}

// AdjustBeds изменяет количество свободных коек приюта на delta и возвращает
// обновлённую запись. Изменение, уводящее счётчик в минус, отклоняется без
// записи в хранилище. Нулевая delta — успешная no-op без записи.
func (l *Ledger) AdjustBeds(ctx context.Context, id string, delta int) (*model.ShelterRecord, error) {
	lock := l.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	rec, err := l.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if delta == 0 {
		return rec, nil
	}

	updated := rec.BedsAvailable + delta
	if updated < 0 {
		return nil, fmt.Errorf("%w: have %d, delta %d", ErrInvalidAdjustment, rec.BedsAvailable, delta)
	}

	err = l.store.UpdateDocument(ctx, sheltersCollection, id, store.Fields{
		"bedsAvailable": updated,
	})
	if err != nil {
		return nil, err
	}

	rec.BedsAvailable = updated
	return rec, nil
}

// Book бронирует одну койку в приюте. Отсутствие свободных коек — это отказ
// в бронировании, а не ошибка; ошибки хранилища пробрасываются как есть.
func (l *Ledger) Book(ctx context.Context, id string) (*model.BookingOutcome, error) {
	rec, err := l.AdjustBeds(ctx, id, -1)
	if err != nil {
		if errors.Is(err, ErrInvalidAdjustment) {
			return &model.BookingOutcome{
				Confirmed: false,
				Reason:    model.DeclineNoBedsAvailable,
			}, nil
		}
		return nil, err
	}

	return &model.BookingOutcome{
		Confirmed: true,
		Shelter:   rec,
	}, nil
}
