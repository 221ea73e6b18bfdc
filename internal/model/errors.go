// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, mood, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeInvalidPhone       = "INVALID_PHONE"
	ErrCodePhoneAlreadyExists = "PHONE_ALREADY_REGISTERED"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeUserNotFound       = "USER_NOT_FOUND"
	ErrCodeMoodNotFound       = "MOOD_NOT_FOUND"
	ErrCodeMoodNotOwned       = "MOOD_NOT_OWNED"
	ErrCodeInvalidEmoji       = "INVALID_EMOJI"
	ErrCodeTextTooLong        = "TEXT_TOO_LONG"
	ErrCodeInvalidLocation    = "INVALID_LOCATION"
	ErrCodeInvalidParameter   = "INVALID_PARAMETER"
	ErrCodeValidationFailed   = "VALIDATION_FAILED"
	ErrCodeGeocodeUnavailable = "GEOCODE_UNAVAILABLE"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeCSRFInvalid        = "CSRF_TOKEN_INVALID"
	ErrCodeRateLimited        = "RATE_LIMIT_EXCEEDED"
	ErrCodeInternal           = "INTERNAL_ERROR"
)

// NewInvalidPhoneError は電話番号の形式エラーを生成する。
func NewInvalidPhoneError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidPhone,
		Message:  "電話番号の形式が正しくありません。",
		Category: "validation",
		Action:   "10桁以上の数字を含む電話番号を入力してください。",
	}
}

// NewPhoneAlreadyExistsError は登録済みの電話番号で再登録しようとした場合のエラーを生成する。
func NewPhoneAlreadyExistsError() *APIError {
	return &APIError{
		Code:     ErrCodePhoneAlreadyExists,
		Message:  "この電話番号は既に登録されています。",
		Category: "auth",
		Action:   "ログイン画面からログインしてください。",
	}
}

// NewInvalidCredentialsError は認証情報の不一致エラーを生成する。
// 電話番号の存在有無は区別しない。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "電話番号またはパスワードが正しくありません。",
		Category: "auth",
		Action:   "入力内容を確認して再度ログインしてください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewMoodNotFoundError は気分投稿が見つからない場合のエラーを生成する。
func NewMoodNotFoundError(moodID int64) *APIError {
	return &APIError{
		Code:     ErrCodeMoodNotFound,
		Message:  fmt.Sprintf("指定された投稿が見つかりません: %d", moodID),
		Category: "mood",
		Action:   "投稿一覧を再読み込みしてください。",
	}
}

// NewMoodNotOwnedError は他ユーザーの投稿を操作しようとした場合のエラーを生成する。
func NewMoodNotOwnedError() *APIError {
	return &APIError{
		Code:     ErrCodeMoodNotOwned,
		Message:  "この投稿を削除する権限がありません。",
		Category: "mood",
		Action:   "自分の投稿のみ削除できます。",
	}
}

// NewInvalidEmojiError は投稿できない絵文字が指定された場合のエラーを生成する。
func NewInvalidEmojiError(emoji string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidEmoji,
		Message:  fmt.Sprintf("無効な絵文字です: %s", emoji),
		Category: "validation",
		Action:   "一覧に表示されている絵文字から選択してください。",
	}
}

// NewTextTooLongError はテキストが上限を超えた場合のエラーを生成する。
func NewTextTooLongError() *APIError {
	return &APIError{
		Code:     ErrCodeTextTooLong,
		Message:  fmt.Sprintf("テキストは%d文字以内で入力してください。", MaxMoodTextLength),
		Category: "validation",
		Action:   "テキストを短くしてから再度投稿してください。",
	}
}

// NewInvalidLocationError は緯度経度が不正な場合のエラーを生成する。
func NewInvalidLocationError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidLocation,
		Message:  "位置情報が正しくありません。",
		Category: "validation",
		Action:   "位置情報の利用を許可して再度お試しください。",
	}
}

// NewInvalidParameterError はクエリパラメータが不正な場合のエラーを生成する。
func NewInvalidParameterError(name string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidParameter,
		Message:  fmt.Sprintf("パラメータが不正です: %s", name),
		Category: "validation",
		Action:   "パラメータの値を確認してください。",
	}
}

// NewValidationFailedError はリクエストボディの検証失敗エラーを生成する。
func NewValidationFailedError(detail string) *APIError {
	return &APIError{
		Code:     ErrCodeValidationFailed,
		Message:  fmt.Sprintf("入力内容が正しくありません: %s", detail),
		Category: "validation",
		Action:   "入力内容を確認してください。",
	}
}

// NewGeocodeUnavailableError は住所検索サービスが利用できない場合のエラーを生成する。
func NewGeocodeUnavailableError() *APIError {
	return &APIError{
		Code:     ErrCodeGeocodeUnavailable,
		Message:  "住所検索サービスが一時的に利用できません。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewUnauthorizedError は未認証のリクエストに対するエラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "ログインが必要です。",
		Category: "auth",
		Action:   "ログインしてから再度お試しください。",
	}
}

// NewCSRFInvalidError はCSRFトークンの検証に失敗した場合のエラーを生成する。
func NewCSRFInvalidError() *APIError {
	return &APIError{
		Code:     ErrCodeCSRFInvalid,
		Message:  "リクエストの検証に失敗しました。",
		Category: "auth",
		Action:   "ページを再読み込みしてから再度お試しください。",
	}
}

// NewRateLimitedError はレート制限を超えた場合のエラーを生成する。
func NewRateLimitedError() *APIError {
	return &APIError{
		Code:     ErrCodeRateLimited,
		Message:  "リクエストが多すぎます。",
		Category: "system",
		Action:   "Retry-Afterヘッダーの秒数だけ待ってから再度お試しください。",
	}
}

// NewInternalError は内部エラーを生成する。詳細はログにのみ記録する。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}
