package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/hitoshi/moodmap/internal/geo"
	"github.com/hitoshi/moodmap/internal/model"
)

// moodColumns はmoodsテーブルのSELECT対象カラム。scanMoodの順序と一致させること。
const moodColumns = `id, user_id, emoji, text, latitude, longitude, address, created_at`

// PostgresMoodRepo はPostgreSQLを使用した気分投稿リポジトリ。
type PostgresMoodRepo struct {
	db *sql.DB
}

// NewPostgresMoodRepo はPostgresMoodRepoを生成する。
func NewPostgresMoodRepo(db *sql.DB) *PostgresMoodRepo {
	return &PostgresMoodRepo{db: db}
}

// Create は気分投稿を作成し、採番されたIDと作成日時をmoodに設定する。
func (r *PostgresMoodRepo) Create(ctx context.Context, mood *model.Mood) error {
	if !mood.HasLocation() {
		return fmt.Errorf("mood location is required")
	}

	var createdAt time.Time
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO moods (user_id, emoji, text, latitude, longitude)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at`,
		mood.UserID, mood.Emoji, mood.Text, *mood.Latitude, *mood.Longitude,
	).Scan(&mood.ID, &createdAt)
	if err != nil {
		return fmt.Errorf("failed to insert mood: %w", err)
	}

	mood.CreatedAt = createdAt.UTC()
	mood.Timestamp = geo.FormatTimestamp(createdAt)
	return nil
}

// FindByID は指定IDの投稿を取得する。見つからない場合はnilを返す。
func (r *PostgresMoodRepo) FindByID(ctx context.Context, id int64) (*model.Mood, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+moodColumns+` FROM moods WHERE id = $1`,
		id,
	)
	mood, err := scanMood(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find mood: %w", err)
	}
	return mood, nil
}

// List は条件に一致する投稿をcreated_at降順で返す。
func (r *PostgresMoodRepo) List(ctx context.Context, q MoodQuery) ([]model.Mood, error) {
	query, args := buildMoodListQuery(q)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list moods: %w", err)
	}
	defer rows.Close()

	return collectMoods(rows)
}

// buildMoodListQuery はMoodQueryからSQLとパラメータを組み立てる。
func buildMoodListQuery(q MoodQuery) (string, []any) {
	var (
		conds []string
		args  []any
	)
	placeholder := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if q.UserID != "" {
		conds = append(conds, "user_id = "+placeholder(q.UserID))
	}
	if q.Since != nil {
		conds = append(conds, "created_at >= "+placeholder(*q.Since))
	}
	if len(q.Emojis) > 0 {
		conds = append(conds, "emoji = ANY("+placeholder(pq.Array(q.Emojis))+")")
	}

	var sb strings.Builder
	sb.WriteString(`SELECT ` + moodColumns + ` FROM moods`)
	if len(conds) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(conds, " AND "))
	}
	sb.WriteString(" ORDER BY created_at DESC, id DESC")
	if q.Limit > 0 {
		sb.WriteString(" LIMIT " + placeholder(q.Limit))
	}
	return sb.String(), args
}

// Delete は指定IDの投稿を削除する。削除した場合にtrueを返す。
func (r *PostgresMoodRepo) Delete(ctx context.Context, id int64) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM moods WHERE id = $1`,
		id,
	)
	if err != nil {
		return false, fmt.Errorf("failed to delete mood: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// DeleteByUserID は指定ユーザーの全投稿を削除し、削除件数を返す。
func (r *PostgresMoodRepo) DeleteByUserID(ctx context.Context, userID string) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM moods WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete user moods: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}

// DeleteOlderThan はcutoffより前に作成された投稿を削除し、削除件数を返す。
func (r *PostgresMoodRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM moods WHERE created_at < $1`,
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old moods: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}

// ListPendingGeocode は住所が未解決の投稿を古い順に取得する。
func (r *PostgresMoodRepo) ListPendingGeocode(ctx context.Context, limit int) ([]model.Mood, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+moodColumns+`
		 FROM moods
		 WHERE geocoded_at IS NULL
		 ORDER BY created_at ASC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list moods pending geocode: %w", err)
	}
	defer rows.Close()

	return collectMoods(rows)
}

// UpdateAddress は投稿の住所と解決日時を更新する。
func (r *PostgresMoodRepo) UpdateAddress(ctx context.Context, id int64, address string, geocodedAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE moods SET address = $1, geocoded_at = $2 WHERE id = $3`,
		address, geocodedAt, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update mood address: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMood(s rowScanner) (*model.Mood, error) {
	var (
		m        model.Mood
		lat, lon float64
		address  sql.NullString
	)
	if err := s.Scan(&m.ID, &m.UserID, &m.Emoji, &m.Text, &lat, &lon, &address, &m.CreatedAt); err != nil {
		return nil, err
	}
	m.Latitude = &lat
	m.Longitude = &lon
	m.Address = nullStringValue(address)
	m.CreatedAt = m.CreatedAt.UTC()
	m.Timestamp = geo.FormatTimestamp(m.CreatedAt)
	return &m, nil
}

func collectMoods(rows *sql.Rows) ([]model.Mood, error) {
	moods := []model.Mood{}
	for rows.Next() {
		m, err := scanMood(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan mood: %w", err)
		}
		moods = append(moods, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate moods: %w", err)
	}
	return moods, nil
}

func nullStringValue(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// compile-time interface check
var (
	_ MoodRepository        = (*PostgresMoodRepo)(nil)
	_ GeocodeMoodRepository = (*PostgresMoodRepo)(nil)
)
