package app

import (
	"context"
	"fmt"
	"log"

	msgRepo "github.com/IT-Nick/proctor/internal/domain/messages/repository"
	msgService "github.com/IT-Nick/proctor/internal/domain/messages/service"
	testsRepo "github.com/IT-Nick/proctor/internal/domain/tests/repository"
	testsService "github.com/IT-Nick/proctor/internal/domain/tests/service"
	usersRepo "github.com/IT-Nick/proctor/internal/domain/users/repository"
	usersService "github.com/IT-Nick/proctor/internal/domain/users/service"
	"github.com/IT-Nick/proctor/internal/infra/config"
	"github.com/IT-Nick/proctor/internal/infra/sqlite"
	"github.com/IT-Nick/proctor/migrations"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	_ usersService.UserRepository  = (*usersRepo.UserRepository)(nil)
	_ msgService.MessageRepository = (*msgRepo.MessageRepository)(nil)
	_ testsService.TestRepository  = (*testsRepo.TestRepository)(nil)
	_ usersService.UserRepository  = (*sqlite.UserRepository)(nil)
	_ msgService.MessageRepository = (*sqlite.MessageRepository)(nil)
	_ testsService.TestRepository  = (*sqlite.TestRepository)(nil)
	_ testsService.UserRepository  = (*sqlite.UserRepository)(nil)
	_ testsService.UserRepository  = (*usersRepo.UserRepository)(nil)
)

// Repositories хранилища приложения поверх выбранной базы данных
type Repositories struct {
	Users    usersService.UserRepository
	Messages msgService.MessageRepository
	Tests    testsService.TestRepository

	close func()
}

// Close закрывает подключение к базе данных
func (r *Repositories) Close() {
	if r.close != nil {
		r.close()
	}
}

// InitDatabase устанавливает подключение к базе данных, создает схему и репозитории
func InitDatabase(cfg *config.Config) (*Repositories, error) {
	switch cfg.Database.Driver {
	case "sqlite":
		return initSQLite(cfg.Database.DSN)
	default:
		return initPostgres(cfg.PostgresDSN())
	}
}

func initPostgres(dsn string) (*Repositories, error) {
	const op = "app.initPostgres"
	ctx := context.Background()

	connConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse database config: %w", op, err)
	}

	db, err := pgxpool.NewWithConfig(ctx, connConfig)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create database pool: %w", op, err)
	}

	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s: failed to ping database: %w", op, err)
	}

	if _, err := db.Exec(ctx, migrations.Postgres); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s: failed to run migrations: %w", op, err)
	}

	log.Println("Database connected successfully!")
	return &Repositories{
		Users:    usersRepo.NewUserRepository(db),
		Messages: msgRepo.NewMessageRepository(db),
		Tests:    testsRepo.NewTestRepository(db),
		close:    db.Close,
	}, nil
}

func initSQLite(dsn string) (*Repositories, error) {
	const op = "app.initSQLite"

	db, err := sqlite.New(dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := db.RunMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.Printf("SQLite database %s opened", dsn)
	return NewSQLiteRepositories(db), nil
}

// NewSQLiteRepositories репозитории поверх открытой базы SQLite
func NewSQLiteRepositories(db *sqlite.DB) *Repositories {
	return &Repositories{
		Users:    sqlite.NewUserRepository(db),
		Messages: sqlite.NewMessageRepository(db),
		Tests:    sqlite.NewTestRepository(db),
		close:    func() { _ = db.Close() },
	}
}
