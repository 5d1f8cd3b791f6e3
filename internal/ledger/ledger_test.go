package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/mmeshcher/shelterlink-system/internal/model"
	"github.com/mmeshcher/shelterlink-system/internal/schema"
	"github.com/mmeshcher/shelterlink-system/internal/store"
)

type stubStore struct {
	mu   sync.Mutex
	docs map[string]store.Fields

	fetchCollectionErr error
	fetchDocumentErr   error
	updateErr          error

	updateCalls int
}

func newStubStore(docs map[string]store.Fields) *stubStore {
	if docs == nil {
		docs = map[string]store.Fields{}
	}
	return &stubStore{docs: docs}
}

func (s *stubStore) Close() error { return nil }

func (s *stubStore) FetchCollection(ctx context.Context, name string) ([]store.Document, error) {
	if s.fetchCollectionErr != nil {
		return nil, s.fetchCollectionErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	docs := make([]store.Document, 0, len(s.docs))
	for id, fields := range s.docs {
		docs = append(docs, store.Document{ID: id, Fields: fields})
	}
	return docs, nil
}

func (s *stubStore) FetchDocument(ctx context.Context, name, id string) (store.Fields, error) {
	if s.fetchDocumentErr != nil {
		return nil, s.fetchDocumentErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	fields, ok := s.docs[id]
	if !ok {
		return nil, store.ErrNotFound
	}

	copied := store.Fields{}
	for k, v := range fields {
		copied[k] = v
	}
	return copied, nil
}

func (s *stubStore) UpdateDocument(ctx context.Context, name, id string, partial store.Fields) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.updateCalls++

	if s.updateErr != nil {
		return s.updateErr
	}

	fields, ok := s.docs[id]
	if !ok {
		return store.ErrNotFound
	}

	for k, v := range partial {
		fields[k] = v
	}
	return nil
}

func shelterFields(name string, beds int) store.Fields {
	return store.Fields{
		"name":          name,
		"address":       "San Francisco, CA",
		"bedsAvailable": float64(beds),
		"isOpen":        true,
		"latitude":      37.7797,
		"longitude":     -122.3912,
	}
}

func TestAdjustBeds_DecrementRoundTrip(t *testing.T) {
	st := newStubStore(map[string]store.Fields{
		"1": shelterFields("Ruby's Place", 5),
	})
	l := New(st, nil)

	rec, err := l.AdjustBeds(context.Background(), "1", -1)
	if err != nil {
		t.Fatalf("AdjustBeds error: %v", err)
	}
	if rec.BedsAvailable != 4 {
		t.Fatalf("BedsAvailable = %d, want 4", rec.BedsAvailable)
	}

	got, err := l.GetByID(context.Background(), "1")
	if err != nil {
		t.Fatalf("GetByID error: %v", err)
	}
	if got.BedsAvailable != 4 {
		t.Fatalf("stored BedsAvailable = %d, want 4", got.BedsAvailable)
	}
}

func TestAdjustBeds_RejectsNegativeResult(t *testing.T) {
	st := newStubStore(map[string]store.Fields{
		"1": shelterFields("Ruby's Place", 5),
	})
	l := New(st, nil)

	rec, err := l.AdjustBeds(context.Background(), "1", 1)
	if err != nil {
		t.Fatalf("AdjustBeds(+1) error: %v", err)
	}
	if rec.BedsAvailable != 6 {
		t.Fatalf("BedsAvailable = %d, want 6", rec.BedsAvailable)
	}

	_, err = l.AdjustBeds(context.Background(), "1", -7)
	if !errors.Is(err, ErrInvalidAdjustment) {
		t.Fatalf("expected ErrInvalidAdjustment, got %v", err)
	}

	got, err := l.GetByID(context.Background(), "1")
	if err != nil {
		t.Fatalf("GetByID error: %v", err)
	}
	if got.BedsAvailable != 6 {
		t.Fatalf("stored BedsAvailable = %d, want 6 after rejected adjustment", got.BedsAvailable)
	}
	if st.updateCalls != 1 {
		t.Fatalf("updateCalls = %d, want 1 (rejection must not write)", st.updateCalls)
	}
}

func TestAdjustBeds_ZeroDeltaIsNoOp(t *testing.T) {
	st := newStubStore(map[string]store.Fields{
		"1": shelterFields("Ruby's Place", 3),
	})
	l := New(st, nil)

	for i := 0; i < 3; i++ {
		rec, err := l.AdjustBeds(context.Background(), "1", 0)
		if err != nil {
			t.Fatalf("AdjustBeds(0) error: %v", err)
		}
		if rec.BedsAvailable != 3 {
			t.Fatalf("BedsAvailable = %d, want 3", rec.BedsAvailable)
		}
	}

	if st.updateCalls != 0 {
		t.Fatalf("updateCalls = %d, want 0 for zero delta", st.updateCalls)
	}
}

func TestAdjustBeds_UnknownShelter(t *testing.T) {
	l := New(newStubStore(nil), nil)

	_, err := l.AdjustBeds(context.Background(), "missing", -1)
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestBook_DeclinedWithoutBeds(t *testing.T) {
	st := newStubStore(map[string]store.Fields{
		"1": shelterFields("Ruby's Place", 0),
	})
	l := New(st, nil)

	outcome, err := l.Book(context.Background(), "1")
	if err != nil {
		t.Fatalf("Book error: %v", err)
	}
	if outcome.Confirmed {
		t.Fatalf("booking must be declined without beds")
	}
	if outcome.Reason != model.DeclineNoBedsAvailable {
		t.Fatalf("reason = %q, want %q", outcome.Reason, model.DeclineNoBedsAvailable)
	}
	if st.updateCalls != 0 {
		t.Fatalf("updateCalls = %d, want 0 for declined booking", st.updateCalls)
	}
}

func TestBook_Confirmed(t *testing.T) {
	st := newStubStore(map[string]store.Fields{
		"1": shelterFields("Ruby's Place", 2),
	})
	l := New(st, nil)

	outcome, err := l.Book(context.Background(), "1")
	if err != nil {
		t.Fatalf("Book error: %v", err)
	}
	if !outcome.Confirmed {
		t.Fatalf("booking must be confirmed, reason %q", outcome.Reason)
	}
	if outcome.Shelter == nil || outcome.Shelter.BedsAvailable != 1 {
		t.Fatalf("unexpected shelter in outcome: %+v", outcome.Shelter)
	}
}

func TestBook_PropagatesStoreError(t *testing.T) {
	st := newStubStore(nil)
	st.fetchDocumentErr = store.ErrUnavailable
	l := New(st, nil)

	_, err := l.Book(context.Background(), "1")
	if !errors.Is(err, store.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestBook_LastBedSerialized(t *testing.T) {
	st := newStubStore(map[string]store.Fields{
		"1": shelterFields("Ruby's Place", 1),
	})
	l := New(st, nil)

	const callers = 8

	var wg sync.WaitGroup
	outcomes := make([]*model.BookingOutcome, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcome, err := l.Book(context.Background(), "1")
			if err != nil {
				t.Errorf("Book error: %v", err)
				return
			}
			outcomes[i] = outcome
		}(i)
	}
	wg.Wait()

	confirmed := 0
	for _, outcome := range outcomes {
		if outcome != nil && outcome.Confirmed {
			confirmed++
		}
	}
	if confirmed != 1 {
		t.Fatalf("confirmed bookings = %d, want exactly 1 for the last bed", confirmed)
	}

	got, err := l.GetByID(context.Background(), "1")
	if err != nil {
		t.Fatalf("GetByID error: %v", err)
	}
	if got.BedsAvailable != 0 {
		t.Fatalf("stored BedsAvailable = %d, want 0", got.BedsAvailable)
	}
}

func TestListAll_EmptyStore(t *testing.T) {
	l := New(newStubStore(nil), nil)

	records, err := l.ListAll(context.Background())
	if err != nil {
		t.Fatalf("ListAll error: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("records = %d, want empty list", len(records))
	}
}

func TestListAll_MalformedRecordFailsFast(t *testing.T) {
	st := newStubStore(map[string]store.Fields{
		"1": {"name": "Ruby's Place", "bedsAvailable": "many"},
	})
	l := New(st, nil)

	_, err := l.ListAll(context.Background())
	if !errors.Is(err, schema.ErrMalformedRecord) {
		t.Fatalf("expected ErrMalformedRecord, got %v", err)
	}
}

func TestListNearby_WithoutGeoClient(t *testing.T) {
	st := newStubStore(map[string]store.Fields{
		"1": shelterFields("Ruby's Place", 5),
	})
	l := New(st, nil)

	records, err := l.ListNearby(context.Background(), 37.77, -122.41)
	if err != nil {
		t.Fatalf("ListNearby error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("records = %d, want 1", len(records))
	}
	if records[0].DistanceMiles != 0 {
		t.Fatalf("DistanceMiles = %v, want 0 without geo client", records[0].DistanceMiles)
	}
}
