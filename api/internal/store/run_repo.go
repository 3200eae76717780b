package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

type RunRepo struct{ DB *sql.DB }

func NewRunRepo(db *sql.DB) *RunRepo { return &RunRepo{DB: db} }

// Run — итог одного прогона конвейера. Это не очередь задач:
// строка пишется один раз, постфактум, для истории и статистики.
type Run struct {
	ID          int64
	CreatedAt   time.Time
	ChatID      int64
	ProblemHash string
	Status      string // ok | access_denied | empty_solution | validation_rejected | system_failure
	Pages       int
	ErrorText   string
}

// Insert фиксирует завершённый прогон.
func (r *RunRepo) Insert(ctx context.Context, run Run) error {
	const q = `
insert into pipeline_runs(chat_id, problem_hash, status, pages, error_text)
values ($1,$2,$3,$4,$5)`
	_, err := r.DB.ExecContext(ctx, q,
		run.ChatID, run.ProblemHash, run.Status, run.Pages, run.ErrorText)
	return err
}

// LastForChat — последний прогон чата (для /status).
func (r *RunRepo) LastForChat(ctx context.Context, chatID int64) (Run, error) {
	const q = `
select id, created_at, chat_id, problem_hash, status, pages, coalesce(error_text,'')
from pipeline_runs
where chat_id=$1
order by created_at desc
limit 1`
	var run Run
	err := r.DB.QueryRowContext(ctx, q, chatID).Scan(
		&run.ID, &run.CreatedAt, &run.ChatID, &run.ProblemHash,
		&run.Status, &run.Pages, &run.ErrorText)
	if err != nil {
		return Run{}, err
	}
	return run, nil
}

// PurgeOlderThan удаляет старую историю, чтобы не раздувать БД.
func (r *RunRepo) PurgeOlderThan(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, errors.New("olderThan must be > 0")
	}
	cutoff := time.Now().Add(-olderThan)
	const q = `delete from pipeline_runs where created_at < $1`
	res, err := r.DB.ExecContext(ctx, q, cutoff)
	if err != nil {
		return 0, err
	}
	aff, _ := res.RowsAffected()
	return aff, nil
}

// EnsureSchema создаёт таблицы при старте. Миграционный фреймворк тут
// избыточен: схема из двух таблиц.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	const q = `
create table if not exists handwriting_samples (
  chat_id    bigint primary key,
  image      bytea not null,
  mime_type  text not null,
  updated_at timestamptz not null default now()
);
create table if not exists pipeline_runs (
  id           bigserial primary key,
  created_at   timestamptz not null default now(),
  chat_id      bigint not null,
  problem_hash text not null,
  status       text not null,
  pages        int not null default 0,
  error_text   text
);
create index if not exists pipeline_runs_chat_idx on pipeline_runs(chat_id, created_at desc);`
	_, err := db.ExecContext(ctx, q)
	return err
}
