package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"spendlens/internal/amqp"
	"spendlens/internal/cache"
	"spendlens/internal/core"
	"spendlens/internal/log"
	"spendlens/internal/storage"
)

// Publisher announces record set changes. The AMQP client implements it.
type Publisher interface {
	PublishExpenseChanged(ctx context.Context, msg *amqp.ExpenseChangedMessage) error
}

// Sort orders for SearchExpenses.
const (
	SortNone = ""
	SortAsc  = "asc"
	SortDesc = "desc"
)

// ExpenseFilter narrows a user's expense list. Empty fields match everything.
type ExpenseFilter struct {
	Category string
	Query    string
	Sort     string
}

// ExpenseService validates writes, keeps the per-user list cache coherent and
// announces changes.
type ExpenseService struct {
	store     storage.ExpenseStore
	publisher Publisher
	cache     *cache.LRUCache[[]core.RawExpense]
	logger    *log.Logger
}

// NewExpenseService creates the service. publisher and listCache may be nil.
func NewExpenseService(store storage.ExpenseStore, publisher Publisher, listCache *cache.LRUCache[[]core.RawExpense], logger *log.Logger) *ExpenseService {
	if logger == nil {
		logger = log.Discard()
	}
	return &ExpenseService{
		store:     store,
		publisher: publisher,
		cache:     listCache,
		logger:    logger.WithComponent(log.ComponentExpense),
	}
}

// NewListCache builds the cache ExpenseService expects.
func NewListCache(size int, ttl time.Duration) *cache.LRUCache[[]core.RawExpense] {
	return cache.NewLRUCache[[]core.RawExpense](size, ttl)
}

// CreateExpense validates and stores e.
func (s *ExpenseService) CreateExpense(ctx context.Context, e core.Expense) (core.RawExpense, error) {
	if err := e.Validate(); err != nil {
		return core.RawExpense{}, err
	}
	saved, err := s.store.CreateExpense(ctx, e.Raw())
	if err != nil {
		return core.RawExpense{}, fmt.Errorf("save expense: %w", err)
	}
	s.changed(ctx, saved.UserID, saved.ID, amqp.OpCreated)
	return saved, nil
}

// UpdateExpense replaces the expense with the given id. The owner of the
// stored record is kept; a user id on e is ignored.
func (s *ExpenseService) UpdateExpense(ctx context.Context, id string, e core.Expense) (core.RawExpense, error) {
	current, err := s.store.GetExpense(ctx, id)
	if err != nil {
		return core.RawExpense{}, err
	}
	e.ID = id
	e.UserID = current.UserID
	if err := e.Validate(); err != nil {
		return core.RawExpense{}, err
	}
	saved, err := s.store.UpdateExpense(ctx, e.Raw())
	if err != nil {
		return core.RawExpense{}, fmt.Errorf("update expense: %w", err)
	}
	s.changed(ctx, saved.UserID, saved.ID, amqp.OpUpdated)
	return saved, nil
}

// DeleteExpense removes the expense and returns what was stored.
func (s *ExpenseService) DeleteExpense(ctx context.Context, id string) (core.RawExpense, error) {
	deleted, err := s.store.DeleteExpense(ctx, id)
	if err != nil {
		return core.RawExpense{}, err
	}
	s.changed(ctx, deleted.UserID, deleted.ID, amqp.OpDeleted)
	return deleted, nil
}

// ImportExpenses stores records for userID as they are. Malformed records
// are accepted; the analytics normalizer drops them on read.
func (s *ExpenseService) ImportExpenses(ctx context.Context, userID string, records []core.RawExpense) (int, error) {
	if strings.TrimSpace(userID) == "" {
		return 0, core.ErrMissingUser
	}
	owned := make([]core.RawExpense, len(records))
	for i, r := range records {
		r.UserID = userID
		owned[i] = r
	}
	n, err := s.store.ImportExpenses(ctx, owned)
	if err != nil {
		return 0, fmt.Errorf("import expenses: %w", err)
	}
	if n > 0 {
		s.changed(ctx, userID, "", amqp.OpImported)
	}
	return n, nil
}

// ListExpenses returns the user's stored records. The result is shared with
// the cache and must not be modified.
func (s *ExpenseService) ListExpenses(ctx context.Context, userID string) ([]core.RawExpense, error) {
	if s.cache != nil {
		if records, ok := s.cache.Get(userID); ok {
			return records, nil
		}
	}
	records, err := s.store.ListExpenses(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	if s.cache != nil {
		s.cache.Set(userID, records)
	}
	return records, nil
}

// SearchExpenses lists the user's records matching f. Sorting is by date;
// undated records go last in either direction.
func (s *ExpenseService) SearchExpenses(ctx context.Context, userID string, f ExpenseFilter) ([]core.RawExpense, error) {
	switch f.Sort {
	case SortNone, SortAsc, SortDesc:
	default:
		return nil, fmt.Errorf("%w: sort must be asc or desc", core.ErrInvalidInput)
	}

	records, err := s.ListExpenses(ctx, userID)
	if err != nil {
		return nil, err
	}

	category := strings.TrimSpace(f.Category)
	query := strings.ToLower(strings.TrimSpace(f.Query))
	out := make([]core.RawExpense, 0, len(records))
	for _, r := range records {
		if category != "" && !strings.EqualFold(strings.TrimSpace(r.Category), category) {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(r.Description), query) &&
			!strings.Contains(strings.ToLower(r.Notes), query) {
			continue
		}
		out = append(out, r)
	}

	if f.Sort != SortNone {
		sortByDate(out, f.Sort == SortDesc)
	}
	return out, nil
}

func sortByDate(records []core.RawExpense, desc bool) {
	dates := make(map[int]core.Date, len(records))
	idx := make([]int, len(records))
	for i, r := range records {
		idx[i] = i
		if d, ok := r.CalendarDate(); ok {
			dates[i] = d
		}
	}
	sort.SliceStable(idx, func(a, b int) bool {
		da, db := dates[idx[a]], dates[idx[b]]
		switch {
		case da.IsZero() || db.IsZero():
			return !da.IsZero() && db.IsZero()
		case desc:
			return da.After(db.Time)
		default:
			return da.Before(db.Time)
		}
	})
	sorted := make([]core.RawExpense, len(records))
	for i, j := range idx {
		sorted[i] = records[j]
	}
	copy(records, sorted)
}

func (s *ExpenseService) changed(ctx context.Context, userID, expenseID, op string) {
	if s.cache != nil {
		s.cache.Delete(userID)
	}
	s.logger.InfoContext(ctx, "Expense record set changed",
		log.FieldUserID, userID,
		log.FieldExpenseID, expenseID,
		log.FieldOperation, op)

	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishExpenseChanged(ctx, amqp.NewExpenseChangedMessage(userID, expenseID, op)); err != nil {
		// the write already succeeded
		s.logger.ErrorContext(ctx, "Failed to publish expense changed message",
			log.FieldUserID, userID,
			log.FieldError, err)
	}
}
