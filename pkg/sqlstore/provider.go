package sqlstore

import (
	"context"
	"log/slog"
	"math/rand"

	"github.com/jmoiron/sqlx"
)

type SqlCommons interface {
	GetTable(...interface{}) string
}

type ConnectConfig interface {
	FormatDSN() string
}

type SqlProvider struct {
	master   *sqlx.DB
	replicas []*sqlx.DB
	dbname   string
}

type TransactionKey struct{}

func (s *SqlProvider) GetTxFromCtx(ctx context.Context) *sqlx.Tx {
	if driver, ok := ctx.Value(TransactionKey{}).(*sqlx.Tx); ok {
		return driver
	}
	return nil
}

func (s *SqlProvider) GetMaster() *sqlx.DB {
	return s.master
}

func (s *SqlProvider) GetReplica() *sqlx.DB {
	if len(s.replicas) == 1 {
		return s.replicas[0]
	}
	return s.replicas[rand.Intn(len(s.replicas))]
}

// Transaction runs next inside a transaction carried by ctx. Nested calls
// join the outer transaction.
func (s *SqlProvider) Transaction(ctx context.Context, next func(ctx context.Context) error) (err error) {
	if ctx == nil {
		ctx = context.Background()
	}

	if s.GetTxFromCtx(ctx) != nil {
		return next(ctx)
	}

	tx, err := s.GetMaster().BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			slog.Error("Transaction rollbacked", slog.Any("recover", r))
			_ = tx.Rollback()
			panic(r)
		}
		if err != nil {
			slog.Error("Transaction rollbacked", slog.String("error", err.Error()))
			_ = tx.Rollback()
		}
	}()

	if err = next(context.WithValue(ctx, TransactionKey{}, tx)); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *SqlProvider) initConnection(conf ConnectConfig) (*sqlx.DB, error) {
	return sqlx.Open("postgres", conf.FormatDSN())
}

func MustSetupProvider(m ConnectConfig, s ...ConnectConfig) *SqlProvider {
	provider := &SqlProvider{}

	engine, err := provider.initConnection(m)
	if err != nil {
		panic(err)
	}
	provider.master = engine

	for _, v := range s {
		slave, err := provider.initConnection(v)
		if err != nil {
			panic(err)
		}
		provider.replicas = append(provider.replicas, slave)
	}

	if len(provider.replicas) == 0 {
		provider.replicas = append(provider.replicas, engine)
	}

	return provider
}

func (s *SqlProvider) GetDBName(ctx context.Context) (string, error) {
	if s.dbname == "" {
		var dbName string
		if err := s.GetMaster().QueryRowContext(ctx, "SELECT current_database()").Scan(&dbName); err != nil {
			return "", err
		}
		s.dbname = dbName
	}

	return s.dbname, nil
}

func (s *SqlProvider) Ping(ctx context.Context) error {
	return s.GetMaster().PingContext(ctx)
}
