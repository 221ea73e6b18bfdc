// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/hitoshi/moodmap/internal/model"
)

// ErrDuplicate は一意制約違反を表す。
var ErrDuplicate = errors.New("duplicate record")

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByPhoneNumber は正規化済み電話番号でユーザーを取得する。見つからない場合はnilを返す。
	FindByPhoneNumber(ctx context.Context, phone string) (*model.User, error)

	// Create はユーザーを作成する。電話番号が登録済みの場合はErrDuplicateを返す。
	Create(ctx context.Context, user *model.User) error

	// DeleteByID は指定IDのユーザーを削除する。
	// 関連するsessions、moodsはCASCADE削除される。
	DeleteByID(ctx context.Context, id string) error
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
	// DeleteExpired は期限切れセッションを削除し、削除件数を返す。
	DeleteExpired(ctx context.Context) (int64, error)
}

// MoodQuery は気分投稿一覧の検索条件。ゼロ値のフィールドは条件に含めない。
type MoodQuery struct {
	// UserID が空でない場合、そのユーザーの投稿に限定する。
	UserID string
	// Since が非nilの場合、created_at >= Since の投稿に限定する。
	Since *time.Time
	// Emojis が空でない場合、いずれかの絵文字に一致する投稿に限定する。
	Emojis []string
	// Limit が正の場合、取得件数の上限とする。
	Limit int
}

// MoodRepository は気分投稿の永続化インターフェース。
type MoodRepository interface {
	// Create は気分投稿を作成し、採番されたIDと作成日時をmoodに設定する。
	Create(ctx context.Context, mood *model.Mood) error

	// FindByID は指定IDの投稿を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.Mood, error)

	// List は条件に一致する投稿をcreated_at降順で返す。
	List(ctx context.Context, q MoodQuery) ([]model.Mood, error)

	// Delete は指定IDの投稿を削除する。削除した場合にtrueを返す。
	Delete(ctx context.Context, id int64) (bool, error)

	// DeleteOlderThan はcutoffより前に作成された投稿を削除し、削除件数を返す。
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// GeocodeMoodRepository は住所の逆ジオコーディングに必要な投稿データ操作のインターフェース。
type GeocodeMoodRepository interface {
	// ListPendingGeocode は位置情報を持ち住所が未解決の投稿を古い順に取得する。
	ListPendingGeocode(ctx context.Context, limit int) ([]model.Mood, error)

	// UpdateAddress は投稿の住所と解決日時を更新する。
	// 住所が解決できなかった場合も空文字で更新し、再取得の対象から外す。
	UpdateAddress(ctx context.Context, id int64, address string, geocodedAt time.Time) error
}
