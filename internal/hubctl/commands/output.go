package commands

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/frenchtutorhub/hub/pkg/hubsdk"
)

const (
	okSymbol   = "✔ "
	failSymbol = "❌ "
	warnSymbol = "⚠ "
)

// FormatError turns a command error into the line printed to the user.
func FormatError(err error) string {
	var (
		httpErr *hubsdk.HTTPError
		netErr  *hubsdk.NetworkError
	)
	switch {
	case errors.Is(err, hubsdk.ErrAuthExpired):
		return "not logged in or session expired, run " + color.HiCyanString("hubctl login")
	case errors.As(err, &netErr):
		return fmt.Sprintf("cannot reach %s: %v", netErr.URL, netErr.Err)
	case errors.As(err, &httpErr):
		msg := fmt.Sprintf("server answered %d: %s", httpErr.StatusCode, httpErr.Message)
		// Generic messages mean the payload carried field errors instead of a detail.
		if fields := httpErr.FieldErrors(); len(fields) > 0 && strings.HasPrefix(httpErr.Message, "API request failed") {
			msg += " (" + joinFields(fields) + ")"
		}
		return msg
	default:
		return err.Error()
	}
}

func joinFields(fields map[string][]string) string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+": "+strings.Join(fields[name], " "))
	}
	return strings.Join(parts, "; ")
}

// table writes aligned rows; the first row is the bold header.
func table(w io.Writer, header []string, rows [][]string) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	bold := color.New(color.Bold)
	for i, h := range header {
		header[i] = bold.Sprint(h)
	}
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, r := range rows {
		fmt.Fprintln(tw, strings.Join(r, "\t"))
	}
	return tw.Flush()
}

func success(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, color.GreenString(okSymbol)+fmt.Sprintf(format, args...))
}

func warn(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, color.YellowString(warnSymbol)+fmt.Sprintf(format, args...))
}

func failure(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, color.RedString(failSymbol)+fmt.Sprintf(format, args...))
}

func field(w io.Writer, name string, value any) {
	fmt.Fprintf(w, "%s %v\n", color.HiBlackString("%-12s", name+":"), value)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func courseRows(courses []hubsdk.Course) [][]string {
	rows := make([][]string, 0, len(courses))
	for _, c := range courses {
		category := "-"
		if c.Category != nil {
			category = c.Category.Name
		}
		title := c.Title
		if c.Featured {
			title += " " + color.YellowString("★")
		}
		rows = append(rows, []string{
			fmt.Sprint(c.ID), title, orDash(c.Level), category, orDash(c.TeacherName), c.Price,
		})
	}
	return rows
}

var courseHeader = []string{"ID", "TITLE", "LEVEL", "CATEGORY", "TEACHER", "PRICE"}
