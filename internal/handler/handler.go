// Package handler содержит HTTP-обработчики API сервиса шелтерлинк.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mmeshcher/shelterlink-system/internal/ledger"
	"github.com/mmeshcher/shelterlink-system/internal/middleware"
	"github.com/mmeshcher/shelterlink-system/internal/model"
	"github.com/mmeshcher/shelterlink-system/internal/schema"
	"github.com/mmeshcher/shelterlink-system/internal/search"
	"github.com/mmeshcher/shelterlink-system/internal/store"
)

// Ledger определяет контракт учёта коек, используемый HTTP-обработчиками.
type Ledger interface {
	ListAll(ctx context.Context) ([]model.ShelterRecord, error)
	ListNearby(ctx context.Context, lat, lon float64) ([]model.ShelterRecord, error)
	GetByID(ctx context.Context, id string) (*model.ShelterRecord, error)
	AdjustBeds(ctx context.Context, id string, delta int) (*model.ShelterRecord, error)
	Book(ctx context.Context, id string) (*model.BookingOutcome, error)
}

// Sessions определяет контракт хранилища сессий поиска.
type Sessions interface {
	Get(id string) model.SearchSession
	Save(id string, session model.SearchSession)
}

// Handler реализует HTTP-обработчики API сервиса шелтерлинк.
type Handler struct {
	ledger            Ledger
	sessions          Sessions
	logger            *zap.Logger
	sessionMiddleware *middleware.SessionMiddleware
	allowedOrigins    []string
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(l Ledger, sessions Sessions, logger *zap.Logger, session *middleware.SessionMiddleware, allowedOrigins []string) *Handler {
	return &Handler{
		ledger:            l,
		sessions:          sessions,
		logger:            logger,
		sessionMiddleware: session,
		allowedOrigins:    allowedOrigins,
	}
}

// writeLedgerError переводит ошибки учёта коек в HTTP-статусы.
func (h *Handler) writeLedgerError(w http.ResponseWriter, err error, msg string, fields ...zap.Field) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	case errors.Is(err, store.ErrUnavailable):
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
	case errors.Is(err, ledger.ErrInvalidAdjustment):
		http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)
	case errors.Is(err, schema.ErrMalformedRecord):
		h.logger.Error(msg, append(fields, zap.Error(err))...)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	default:
		h.logger.Error(msg, append(fields, zap.Error(err))...)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

// searchFromQuery собирает сессию поиска из параметров запроса.
// Применяются только переданные параметры: поиск по имени без openNow
// не должен прятать закрытые приюты. Второй результат false, если
// параметров поиска в запросе нет.
func searchFromQuery(r *http.Request) (model.SearchSession, bool, error) {
	q := r.URL.Query()
	session := model.SearchSession{
		Criteria: model.FilterCriteria{DistanceMiles: model.DefaultDistanceMiles},
	}
	present := false

	if v := q.Get("q"); v != "" {
		session.Query = v
		present = true
	}

	boolParams := map[string]*bool{
		"openNow":              &session.Criteria.OpenNow,
		"petFriendly":          &session.Criteria.PetFriendly,
		"wheelchairAccessible": &session.Criteria.WheelchairAccessible,
	}
	for name, dst := range boolParams {
		if !q.Has(name) {
			continue
		}
		v, err := strconv.ParseBool(q.Get(name))
		if err != nil {
			return session, false, errors.New("invalid boolean parameter " + name)
		}
		*dst = v
		present = true
	}

	if q.Has("distance") {
		v, err := strconv.Atoi(q.Get("distance"))
		if err != nil || !model.ValidDistance(v) {
			return session, false, errors.New("invalid distance parameter")
		}
		session.Criteria.DistanceMiles = v
		present = true
	}

	return session, present, nil
}

// ListShelters возвращает список приютов, отфильтрованный по параметрам запроса
// или, при их отсутствии, по сохранённой сессии поиска.
func (h *Handler) ListShelters(w http.ResponseWriter, r *http.Request) {
	session, present, err := searchFromQuery(r)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusUnprocessableEntity), http.StatusUnprocessableEntity)
		return
	}

	if !present {
		if sessionID, ok := middleware.GetSessionIDFromContext(r.Context()); ok {
			session = h.sessions.Get(sessionID)
		}
	}

	var records []model.ShelterRecord

	q := r.URL.Query()
	if q.Has("lat") && q.Has("lon") {
		lat, latErr := strconv.ParseFloat(q.Get("lat"), 64)
		lon, lonErr := strconv.ParseFloat(q.Get("lon"), 64)
		if latErr != nil || lonErr != nil {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		records, err = h.ledger.ListNearby(r.Context(), lat, lon)
	} else {
		records, err = h.ledger.ListAll(r.Context())
	}
	if err != nil {
		h.writeLedgerError(w, err, "list shelters error")
		return
	}

	visible := search.Filter(records, session)
	if len(visible) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	writeJSON(w, http.StatusOK, visible)
}

// GetShelter возвращает запись одного приюта.
func (h *Handler) GetShelter(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	rec, err := h.ledger.GetByID(r.Context(), id)
	if err != nil {
		h.writeLedgerError(w, err, "get shelter error", zap.String("shelter", id))
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

type adjustBedsRequest struct {
	Delta *int `json:"delta"`
}

// AdjustBeds изменяет количество свободных коек приюта на указанную дельту.
func (h *Handler) AdjustBeds(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req adjustBedsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Delta == nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	rec, err := h.ledger.AdjustBeds(r.Context(), id, *req.Delta)
	if err != nil {
		h.writeLedgerError(w, err, "adjust beds error", zap.String("shelter", id), zap.Int("delta", *req.Delta))
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

// Book бронирует одну койку в приюте.
func (h *Handler) Book(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	outcome, err := h.ledger.Book(r.Context(), id)
	if err != nil {
		h.writeLedgerError(w, err, "book shelter error", zap.String("shelter", id))
		return
	}

	if !outcome.Confirmed {
		writeJSON(w, http.StatusConflict, outcome)
		return
	}

	writeJSON(w, http.StatusOK, outcome)
}

// GetSearch возвращает сохранённую сессию поиска текущего клиента.
func (h *Handler) GetSearch(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := middleware.GetSessionIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, h.sessions.Get(sessionID))
}

// SaveSearch сохраняет сессию поиска текущего клиента.
func (h *Handler) SaveSearch(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := middleware.GetSessionIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var session model.SearchSession
	if err := json.NewDecoder(r.Body).Decode(&session); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if session.Criteria.DistanceMiles == 0 {
		session.Criteria.DistanceMiles = model.DefaultDistanceMiles
	}
	if !model.ValidDistance(session.Criteria.DistanceMiles) {
		http.Error(w, http.StatusText(http.StatusUnprocessableEntity), http.StatusUnprocessableEntity)
		return
	}

	h.sessions.Save(sessionID, session)
	writeJSON(w, http.StatusOK, session)
}
