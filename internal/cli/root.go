// Package cli はmoodctlコマンドを提供する。
// 気分APIにログインし、自分の投稿履歴の絞り込み・並べ替え・削除をターミナルから行う。
package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/hitoshi/moodmap/internal/logger"
	"github.com/hitoshi/moodmap/internal/moodclient"
	"github.com/hitoshi/moodmap/internal/profile"
)

// Version はmoodctlのバージョン。
const Version = "1.0.0"

// options は全サブコマンド共通のフラグ値。
type options struct {
	server      string
	timeout     time.Duration
	sessionFile string
	verbose     bool
}

// NewRootCmd はmoodctlのルートコマンドを生成する。
func NewRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:     "moodctl",
		Short:   "Terminal client for the moodmap API",
		Long:    `moodctl logs in to a moodmap server and manages your own mood history: list with emoji filters, time windows and sort order, post new moods, and delete old ones.`,
		Version: Version,
		// エラーはmainで1回だけ表示する
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	defaultServer := os.Getenv("MOODMAP_URL")
	if defaultServer == "" {
		defaultServer = "http://localhost:8080"
	}

	root.PersistentFlags().StringVar(&opts.server, "server", defaultServer, "moodmap server URL (env MOODMAP_URL)")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", profile.DefaultRequestTimeout, "timeout for each API request")
	root.PersistentFlags().StringVar(&opts.sessionFile, "session-file", defaultSessionPath(), "file that keeps the login session")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "print debug logs to stderr")

	root.AddCommand(
		newRegisterCmd(opts),
		newLoginCmd(opts),
		newLogoutCmd(opts),
		newPostCmd(opts),
		newListCmd(opts),
		newDeleteCmd(opts),
	)

	return root
}

// logger はstderrに出力するJSONロガーを返す。
func (o *options) logger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelWarn
	if o.verbose {
		level = slog.LevelDebug
	}
	return logger.SetupWithLevel(cmd.ErrOrStderr(), level)
}

func (o *options) store() sessionStore {
	return sessionStore{path: o.sessionFile}
}

// client は保存済みセッションを復元したAPIクライアントを返す。
func (o *options) client(cmd *cobra.Command) (*moodclient.Client, error) {
	c, err := moodclient.New(o.server, o.timeout, o.logger(cmd))
	if err != nil {
		return nil, err
	}

	id, err := o.store().Load()
	if err != nil {
		return nil, err
	}
	c.SetSessionID(id)
	return c, nil
}

// describeError はAPIエラーを利用者向けのメッセージに変換する。
func describeError(err error) error {
	var statusErr *moodclient.StatusError
	if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusUnauthorized && statusErr.Code != "INVALID_CREDENTIALS" {
		return fmt.Errorf("not logged in, run `moodctl login` first: %w", err)
	}

	var netErr *profile.NetworkError
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("server did not respond in time, try again: %w", err)
	}

	return err
}
