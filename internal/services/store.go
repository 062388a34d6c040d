package services

import (
	"context"
	"time"

	"cloakroom-backend/internal/models"
	"cloakroom-backend/internal/repositories"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type RecordRepo interface {
	LockDeposited(ctx context.Context, key models.TokenKey, from, to *time.Time) (*models.Record, error)
	Insert(ctx context.Context, rec *models.Record) (int64, error)
	InsertItems(ctx context.Context, recordID int64, items []models.Item) error
	MarkReturned(ctx context.Context, id int64, at time.Time) error
	FindLatest(ctx context.Context, token, event, location string) (*models.Record, error)
	ListByFilter(ctx context.Context, f models.RecordFilter, limit int) ([]models.Record, error)
	CountByFilter(ctx context.Context, f models.RecordFilter) (int64, error)
	LockByFilter(ctx context.Context, f models.RecordFilter) ([]models.Record, error)
	ItemsByRecordIDs(ctx context.Context, ids []int64) ([]models.Item, error)
	DeleteByIDs(ctx context.Context, ids []int64) (int64, error)
}

type EventRepo interface {
	Create(ctx context.Context, e *models.Event) (int64, error)
	ExistsByName(ctx context.Context, name string) (bool, error)
	LockByID(ctx context.Context, id int64) (*models.Event, error)
	LockActiveAtLocation(ctx context.Context, location string, excludeID int64) ([]models.Event, error)
	UpdateStatus(ctx context.Context, id int64, status models.EventStatus) error
	List(ctx context.Context, location string, activeOnly bool) ([]models.Event, error)
	DeleteByNames(ctx context.Context, names []string) (int64, error)
	DeleteAll(ctx context.Context) (int64, error)
}

type UserRepo interface {
	Create(ctx context.Context, u *models.User) (int64, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	DeleteByUsername(ctx context.Context, username string) error
}

// Repos groups the repositories bound to one connection or transaction.
type Repos interface {
	Records() RecordRepo
	Events() EventRepo
	Users() UserRepo
}

// Store gives non-transactional access through Repos and runs units of work
// in a transaction with InTx. fn's error rolls the transaction back.
type Store interface {
	Repos
	InTx(ctx context.Context, fn func(r Repos) error) error
}

type pgRepos struct {
	db repositories.DBTX
}

func (r pgRepos) Records() RecordRepo { return repositories.NewRecordRepository(r.db) }
func (r pgRepos) Events() EventRepo   { return repositories.NewEventRepository(r.db) }
func (r pgRepos) Users() UserRepo     { return repositories.NewUserRepository(r.db) }

type pgStore struct {
	pgRepos
	tx *repositories.TxRunner
}

// NewPostgresStore binds the repositories to a connection pool.
func NewPostgresStore(pool *pgxpool.Pool) Store {
	return &pgStore{
		pgRepos: pgRepos{db: pool},
		tx:      repositories.NewTxRunner(pool),
	}
}

func (s *pgStore) InTx(ctx context.Context, fn func(r Repos) error) error {
	return s.tx.RunInTx(ctx, func(tx pgx.Tx) error {
		return fn(pgRepos{db: tx})
	})
}

// Notifier receives record activity for live dashboards.
type Notifier interface {
	Publish(kind string, data any)
}

type nopNotifier struct{}

func (nopNotifier) Publish(string, any) {}
