package profile

import (
	"context"
	"errors"
	"fmt"
)

// NetworkError は気分APIへのリクエスト失敗を表す。
// タイムアウトもこのエラーとして扱う。状態は変更されず、利用者は操作を再実行できる。
type NetworkError struct {
	Op  string
	Err error
}

// Error はerrorインターフェースを実装する。
func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

// Unwrap は元のエラーを返す。
func (e *NetworkError) Unwrap() error {
	return e.Err
}

// Timeout はタイムアウトによる失敗かどうかを返す。
func (e *NetworkError) Timeout() bool {
	return errors.Is(e.Err, context.DeadlineExceeded)
}

// ErrStaleResponse は新しいリクエストに追い越されたレスポンスを破棄したことを表す。
var ErrStaleResponse = errors.New("stale response discarded")
