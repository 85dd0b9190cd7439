package store

import (
	"context"
	"database/sql"
	"errors"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/iurnickita/ecosystem/internal/store/config"
)

// Store - хранилище настроек вида ключ/значение.
type Store interface {
	OptionGet(ctx context.Context, name string) ([]byte, error)
	OptionPut(ctx context.Context, name string, value []byte) error
	OptionAdd(ctx context.Context, name string, value []byte) error
	OptionDelete(ctx context.Context, name string) error
	// OptionUpdate атомарно читает и перезаписывает настройку.
	OptionUpdate(ctx context.Context, name string, update UpdateFunc) error
	Close() error
}

// UpdateFunc получает текущее значение (found == false - настройки нет)
// и возвращает новое. Ошибка отменяет запись.
type UpdateFunc func(value []byte, found bool) ([]byte, error)

var (
	ErrNoRows    = errors.New("no rows")
	ErrEmptyName = errors.New("option name is empty")
)

// NewStore выбирает реализацию по конфигурации:
// Postgres, если задан DSN, иначе Redis, иначе память процесса.
func NewStore(cfg config.Config) (Store, error) {
	switch {
	case cfg.DBDsn != "":
		db, err := sql.Open("pgx", cfg.DBDsn)
		if err != nil {
			return nil, err
		}
		store, err := newDBStore(db)
		if err != nil {
			db.Close()
			return nil, err
		}
		return store, nil
	case cfg.RedisAddr != "":
		return newRedisStore(cfg)
	default:
		return NewMemStore(), nil
	}
}

type dbStore struct {
	database *sql.DB
	builder  sq.StatementBuilderType
}

func newDBStore(db *sql.DB) (*dbStore, error) {
	// Таблица настроек.
	// Одна строка на настройку, значение хранится как есть
	_, err := db.Exec(
		"CREATE TABLE IF NOT EXISTS options (" +
			" name VARCHAR (191) PRIMARY KEY," +
			" value TEXT NOT NULL" +
			" );")
	if err != nil {
		return nil, err
	}

	return &dbStore{
		database: db,
		builder:  sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}, nil
}

func (store *dbStore) OptionGet(ctx context.Context, name string) ([]byte, error) {
	query, args, err := store.builder.
		Select("value").
		From("options").
		Where(sq.Eq{"name": name}).
		ToSql()
	if err != nil {
		return nil, err
	}

	var value string
	err = store.database.QueryRowContext(ctx, query, args...).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoRows
		}
		return nil, err
	}
	return []byte(value), nil
}

func (store *dbStore) OptionPut(ctx context.Context, name string, value []byte) error {
	if name == "" {
		return ErrEmptyName
	}
	query, args, err := store.putQuery(name, value)
	if err != nil {
		return err
	}
	_, err = store.database.ExecContext(ctx, query, args...)
	return err
}

// putQuery - запись с заменой существующего значения.
func (store *dbStore) putQuery(name string, value []byte) (string, []interface{}, error) {
	return store.builder.
		Insert("options").
		Columns("name", "value").
		Values(name, string(value)).
		Suffix("ON CONFLICT (name) DO UPDATE SET value = EXCLUDED.value").
		ToSql()
}

func (store *dbStore) OptionAdd(ctx context.Context, name string, value []byte) error {
	if name == "" {
		return ErrEmptyName
	}
	// Запись только если настройки еще нет
	query, args, err := store.builder.
		Insert("options").
		Columns("name", "value").
		Values(name, string(value)).
		Suffix("ON CONFLICT (name) DO NOTHING").
		ToSql()
	if err != nil {
		return err
	}
	_, err = store.database.ExecContext(ctx, query, args...)
	return err
}

func (store *dbStore) OptionDelete(ctx context.Context, name string) error {
	query, args, err := store.builder.
		Delete("options").
		Where(sq.Eq{"name": name}).
		ToSql()
	if err != nil {
		return err
	}
	_, err = store.database.ExecContext(ctx, query, args...)
	return err
}

// OptionUpdate блокирует строку настройки (SELECT ... FOR UPDATE) до конца транзакции.
// Строку заранее заводит OptionAdd при активации.
func (store *dbStore) OptionUpdate(ctx context.Context, name string, update UpdateFunc) error {
	if name == "" {
		return ErrEmptyName
	}
	selectQuery, selectArgs, err := store.builder.
		Select("value").
		From("options").
		Where(sq.Eq{"name": name}).
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return err
	}

	tx, err := store.database.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var (
		current string
		found   = true
	)
	err = tx.QueryRowContext(ctx, selectQuery, selectArgs...).Scan(&current)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return err
		}
		found = false
	}

	value, err := update([]byte(current), found)
	if err != nil {
		return err
	}

	query, args, err := store.putQuery(name, value)
	if err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, query, args...); err != nil {
		return err
	}
	return tx.Commit()
}

func (store *dbStore) Close() error {
	return store.database.Close()
}
