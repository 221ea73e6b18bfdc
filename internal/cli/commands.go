package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/hitoshi/moodmap/internal/geo"
	"github.com/hitoshi/moodmap/internal/model"
	"github.com/hitoshi/moodmap/internal/profile"
)

func newRegisterCmd(opts *options) *cobra.Command {
	var phone, password string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register a new account with a phone number",
		Long:  `Register a new account. When --password is omitted the server generates one and it is printed once.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client(cmd)
			if err != nil {
				return err
			}

			generated, err := c.Register(cmd.Context(), phone, password)
			if err != nil {
				return fmt.Errorf("failed to register: %w", describeError(err))
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Registered.")
			if generated != "" {
				fmt.Fprintf(out, "Generated password: %s\n", generated)
				fmt.Fprintln(out, "Store it now, it will not be shown again.")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&phone, "phone", "", "phone number (digits, 10 to 15)")
	cmd.Flags().StringVar(&password, "password", "", "password (generated when omitted)")
	_ = cmd.MarkFlagRequired("phone")
	return cmd
}

func newLoginCmd(opts *options) *cobra.Command {
	var phone, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and keep the session for later commands",
		Long:  `Log in with a phone number and password. The password can also be given via MOODCTL_PASSWORD.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv("MOODCTL_PASSWORD")
			}
			if password == "" {
				return errors.New("password is required (--password or MOODCTL_PASSWORD)")
			}

			c, err := opts.client(cmd)
			if err != nil {
				return err
			}
			if err := c.Login(cmd.Context(), phone, password); err != nil {
				return fmt.Errorf("failed to log in: %w", describeError(err))
			}

			if err := opts.store().Save(c.SessionID()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged in.")
			return nil
		},
	}

	cmd.Flags().StringVar(&phone, "phone", "", "phone number")
	cmd.Flags().StringVar(&password, "password", "", "password")
	_ = cmd.MarkFlagRequired("phone")
	return cmd
}

func newLogoutCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Log out and forget the saved session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client(cmd)
			if err != nil {
				return err
			}
			if c.SessionID() != "" {
				if err := c.Logout(cmd.Context()); err != nil {
					return fmt.Errorf("failed to log out: %w", describeError(err))
				}
			}
			if err := opts.store().Clear(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
			return nil
		},
	}
}

func newPostCmd(opts *options) *cobra.Command {
	var (
		emoji    string
		text     string
		lat, lon float64
	)

	cmd := &cobra.Command{
		Use:   "post",
		Short: "Post a mood at a location",
		Long:  fmt.Sprintf("Post a mood. Emoji must be one of: %s", strings.Join(model.EmojiOptions, " ")),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !model.IsKnownEmoji(emoji) {
				return fmt.Errorf("unknown emoji %q, choose one of: %s", emoji, strings.Join(model.EmojiOptions, " "))
			}

			c, err := opts.client(cmd)
			if err != nil {
				return err
			}
			m, err := c.CreateMood(cmd.Context(), emoji, text, lat, lon)
			if err != nil {
				return fmt.Errorf("failed to post mood: %w", describeError(err))
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Posted mood %d %s\n", m.ID, m.Emoji)
			return nil
		},
	}

	cmd.Flags().StringVar(&emoji, "emoji", "", "mood emoji")
	cmd.Flags().StringVar(&text, "text", "", "optional text (up to 280 characters)")
	cmd.Flags().Float64Var(&lat, "lat", 0, "latitude")
	cmd.Flags().Float64Var(&lon, "lon", 0, "longitude")
	_ = cmd.MarkFlagRequired("emoji")
	_ = cmd.MarkFlagRequired("lat")
	_ = cmd.MarkFlagRequired("lon")
	return cmd
}

func newListCmd(opts *options) *cobra.Command {
	var (
		window    int
		emojis    []string
		sortOrder string
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List your moods with filters and statistics",
		Long: `List your own moods. --window limits the history to the last N minutes,
--emoji can be repeated to show any of the given emojis, and --sort picks
newest or oldest first. Statistics are computed over the displayed moods.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			order, ok := profile.ParseSortOrder(sortOrder)
			if !ok {
				return fmt.Errorf("invalid sort order %q (newest|oldest)", sortOrder)
			}

			var windowMinutes *int
			if cmd.Flags().Changed("window") {
				if window <= 0 {
					return fmt.Errorf("window must be positive: %d", window)
				}
				windowMinutes = &window
			}

			c, err := opts.client(cmd)
			if err != nil {
				return err
			}
			ctrl := profile.NewController(c,
				profile.WithTimeout(opts.timeout),
				profile.WithLogger(opts.logger(cmd)),
			)

			if err := ctrl.OnChangeTimeWindow(cmd.Context(), windowMinutes); err != nil {
				return fmt.Errorf("failed to fetch moods: %w", describeError(err))
			}
			// 重複した指定は1回だけトグルする
			seen := make(map[string]bool, len(emojis))
			for _, e := range emojis {
				if seen[e] {
					continue
				}
				seen[e] = true
				ctrl.OnToggleEmojiFilter(e)
			}
			view := ctrl.OnChangeSortOrder(order)

			if asJSON {
				return writeViewJSON(cmd.OutOrStdout(), view)
			}
			return writeViewTable(cmd.OutOrStdout(), view, time.Local)
		},
	}

	cmd.Flags().IntVar(&window, "window", 0, "only moods from the last N minutes")
	cmd.Flags().StringSliceVar(&emojis, "emoji", nil, "show only these emojis (repeatable)")
	cmd.Flags().StringVar(&sortOrder, "sort", "newest", "sort order: newest|oldest")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}

func newDeleteCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "delete [mood-id]",
		Short: "Delete one of your moods",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid mood ID: %q", args[0])
			}

			c, err := opts.client(cmd)
			if err != nil {
				return err
			}
			ctrl := profile.NewController(c,
				profile.WithTimeout(opts.timeout),
				profile.WithLogger(opts.logger(cmd)),
			)
			if err := ctrl.OnDeleteMood(cmd.Context(), id); err != nil {
				return fmt.Errorf("failed to delete mood %d: %w", id, describeError(err))
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Deleted mood %d\n", id)
			return nil
		},
	}
}

// writeViewTable は統計行と投稿一覧を表形式で出力する。
func writeViewTable(w io.Writer, view profile.View, loc *time.Location) error {
	dominant := "-"
	if view.HasDominant {
		dominant = view.DominantEmoji
	}
	fmt.Fprintf(w, "count: %d  dominant: %s  positive: %d%%\n", view.Count, dominant, view.PositivePercentage)

	if view.Count == 0 {
		fmt.Fprintln(w, "No moods found.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTIME\tEMOJI\tTEXT")
	for _, m := range view.Moods {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", m.ID, geo.FormatDisplay(m.Timestamp, loc), m.Emoji, m.Text)
	}
	return tw.Flush()
}

type viewMoodJSON struct {
	ID        int64    `json:"id"`
	Emoji     string   `json:"emoji"`
	Text      string   `json:"text"`
	Timestamp string   `json:"timestamp"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

type viewJSON struct {
	Count              int            `json:"count"`
	DominantEmoji      string         `json:"dominant_emoji,omitempty"`
	PositivePercentage int            `json:"positive_percentage"`
	Filters            []string       `json:"filters"`
	WindowMinutes      *int           `json:"window_minutes,omitempty"`
	Sort               string         `json:"sort"`
	Moods              []viewMoodJSON `json:"moods"`
}

// writeViewJSON は表示内容をJSONで出力する。
func writeViewJSON(w io.Writer, view profile.View) error {
	out := viewJSON{
		Count:              view.Count,
		PositivePercentage: view.PositivePercentage,
		Filters:            view.ActiveEmojiFilters,
		WindowMinutes:      view.WindowMinutes,
		Sort:               view.SortOrder.String(),
		Moods:              make([]viewMoodJSON, 0, len(view.Moods)),
	}
	if out.Filters == nil {
		out.Filters = []string{}
	}
	if view.HasDominant {
		out.DominantEmoji = view.DominantEmoji
	}
	for _, m := range view.Moods {
		out.Moods = append(out.Moods, viewMoodJSON{
			ID:        m.ID,
			Emoji:     m.Emoji,
			Text:      m.Text,
			Timestamp: m.Timestamp,
			Latitude:  m.Latitude,
			Longitude: m.Longitude,
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
