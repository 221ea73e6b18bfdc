package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// sessionStore はログイン済みのセッションIDをファイルに保存する。
// コマンドの実行ごとにプロセスが変わるため、Cookieを引き継ぐために使う。
type sessionStore struct {
	path string
}

// defaultSessionPath はユーザー設定ディレクトリ配下の保存先を返す。
func defaultSessionPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".moodctl", "session")
	}
	return filepath.Join(dir, "moodctl", "session")
}

// Load は保存済みのセッションIDを返す。未保存の場合は空文字。
func (s sessionStore) Load() (string, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read session file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// Save はセッションIDを本人のみ読み書きできる権限で保存する。
func (s sessionStore) Save(id string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}
	if err := os.WriteFile(s.path, []byte(id+"\n"), 0o600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	return nil
}

// Clear は保存済みのセッションIDを削除する。
func (s sessionStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove session file: %w", err)
	}
	return nil
}
