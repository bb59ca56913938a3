package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"msgcard/model"
)

// sqliteCardRepository database/sql 实现，本地开发和测试使用
type sqliteCardRepository struct {
	db *sql.DB
}

// NewSQLiteCardRepository 创建 SQLite 贺卡仓库，表结构由 db.EnsureSQLiteSchema 创建
func NewSQLiteCardRepository(db *sql.DB) CardRepository {
	return &sqliteCardRepository{db: db}
}

func (r *sqliteCardRepository) Create(ctx context.Context, card *model.Card) error {
	now := time.Now()
	if card.CreatedAt.IsZero() {
		card.CreatedAt = now
	}
	card.UpdatedAt = now

	var muted sql.NullBool
	if card.ForceVisualMuted != nil {
		muted = sql.NullBool{Bool: *card.ForceVisualMuted, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO cards (id, display_name, visual_key, audio_key, caption_key, force_visual_muted, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		card.ID, card.DisplayName, card.VisualKey, card.AudioKey, card.CaptionKey,
		muted, card.CreatedBy, card.CreatedAt.UnixMilli(), card.UpdatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("insert card %s: %w", card.ID, err)
	}
	return nil
}

const cardColumns = `id, display_name, visual_key, audio_key, caption_key, force_visual_muted, created_by, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCard(row rowScanner) (*model.Card, error) {
	var (
		card      model.Card
		muted     sql.NullBool
		createdAt int64
		updatedAt int64
	)
	err := row.Scan(&card.ID, &card.DisplayName, &card.VisualKey, &card.AudioKey, &card.CaptionKey,
		&muted, &card.CreatedBy, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	if muted.Valid {
		v := muted.Bool
		card.ForceVisualMuted = &v
	}
	card.CreatedAt = time.UnixMilli(createdAt)
	card.UpdatedAt = time.UnixMilli(updatedAt)
	return &card, nil
}

func (r *sqliteCardRepository) GetByID(ctx context.Context, id string) (*model.Card, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+cardColumns+` FROM cards WHERE id = ?`, id)
	card, err := scanCard(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query card %s: %w", id, err)
	}
	return card, nil
}

func (r *sqliteCardRepository) ExistsByID(ctx context.Context, id string) (bool, error) {
	var count int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cards WHERE id = ?`, id).Scan(&count); err != nil {
		return false, fmt.Errorf("count card %s: %w", id, err)
	}
	return count > 0, nil
}

func (r *sqliteCardRepository) List(ctx context.Context, limit, offset int) ([]*model.Card, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+cardColumns+` FROM cards ORDER BY created_at DESC, id LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	defer rows.Close()

	var cards []*model.Card
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("scan card: %w", err)
		}
		cards = append(cards, card)
	}
	return cards, rows.Err()
}

func (r *sqliteCardRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM cards WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete card %s: %w", id, err)
	}
	return nil
}
