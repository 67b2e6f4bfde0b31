package backend

import (
	"context"
	"fmt"

	"spendlens/internal/csvfile"
	"spendlens/internal/log"
	"spendlens/internal/storage"
	"spendlens/internal/storage/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Discard()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateBackend opens the configured store and imports the seed CSV.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		store storage.Store
		err   error
	)
	switch config.Type {
	case SQLiteBackend:
		store, err = storage.NewSQLiteRepository(config.SQLiteDBPath, f.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.WithComponent(log.ComponentBackend).Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	case MemoryBackend:
		store = memory.New()
		f.logger.WithComponent(log.ComponentBackend).Info("Initialized memory backend")
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}

	res := &Result{Store: store, Cleanup: store.Close}
	if config.SeedCSVPath != "" {
		n, err := f.seed(ctx, store, config.SeedCSVPath, config.SeedUserID)
		if err != nil {
			_ = store.Close()
			return nil, err
		}
		res.Seeded = n
	}
	return res, nil
}

// seed imports path for userID unless the user already has records, so a
// persistent store is seeded only once.
func (f *DefaultFactory) seed(ctx context.Context, store storage.Store, path, userID string) (int, error) {
	logger := f.logger.WithComponent(log.ComponentCSV)

	existing, err := store.ListExpenses(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("check seed user: %w", err)
	}
	if len(existing) > 0 {
		logger.Info("Seed skipped, user already has records",
			log.FieldUserID, userID,
			log.FieldRecords, len(existing))
		return 0, nil
	}

	records, err := csvfile.ReadFile(path, userID)
	if err != nil {
		return 0, fmt.Errorf("read seed csv: %w", err)
	}
	n, err := store.ImportExpenses(ctx, records)
	if err != nil {
		return 0, fmt.Errorf("import seed csv: %w", err)
	}
	logger.Info("Seeded expenses from CSV",
		"path", path,
		log.FieldUserID, userID,
		log.FieldCount, n)
	return n, nil
}
