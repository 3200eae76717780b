package store

import (
	"context"
	"database/sql"
	"time"
)

var ErrNotFound = sql.ErrNoRows

type SampleRepo struct{ DB *sql.DB }

func NewSampleRepo(db *sql.DB) *SampleRepo { return &SampleRepo{DB: db} }

// Sample — сохранённый образец почерка чата.
type Sample struct {
	ChatID    int64
	Image     []byte
	MIMEType  string
	UpdatedAt time.Time
}

// Find возвращает образец почерка для чата, иначе sql.ErrNoRows.
func (r *SampleRepo) Find(ctx context.Context, chatID int64) (Sample, error) {
	const q = `select image, mime_type, updated_at
	           from handwriting_samples
	           where chat_id=$1`
	var s Sample
	s.ChatID = chatID
	if err := r.DB.QueryRowContext(ctx, q, chatID).Scan(&s.Image, &s.MIMEType, &s.UpdatedAt); err != nil {
		return Sample{}, err
	}
	return s, nil
}

// Upsert сохраняет/заменяет образец почерка чата. PK: chat_id.
func (r *SampleRepo) Upsert(ctx context.Context, chatID int64, image []byte, mimeType string) error {
	const q = `
insert into handwriting_samples(chat_id, image, mime_type)
values ($1,$2,$3)
on conflict (chat_id)
do update set image=excluded.image, mime_type=excluded.mime_type, updated_at=now()`
	_, err := r.DB.ExecContext(ctx, q, chatID, image, mimeType)
	return err
}

// Delete — сброс образца (команда /reset).
func (r *SampleRepo) Delete(ctx context.Context, chatID int64) error {
	const q = `delete from handwriting_samples where chat_id=$1`
	_, err := r.DB.ExecContext(ctx, q, chatID)
	return err
}
