package commands

import (
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"
	"github.com/frenchtutorhub/hub/pkg/hubsdk"
	"github.com/spf13/cobra"
)

// liveCommand groups the live session commands.
func liveCommand(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "live",
		Short: "Live one-to-one lessons",
	}
	cmd.AddCommand(
		liveUpcomingCommand(rt),
		liveShowCommand(rt),
		liveJoinCommand(rt),
	)
	return cmd
}

func liveUpcomingCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "upcoming",
		Short: "List your upcoming sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := rt.client()
			if err != nil {
				return err
			}
			sessions, err := client.UpcomingSessions(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(sessions) == 0 {
				warn(out, "No upcoming sessions")
				return nil
			}
			rows := make([][]string, 0, len(sessions))
			for _, s := range sessions {
				start := "-"
				if s.TimeSlotDetails != nil {
					start = formatTime(s.TimeSlotDetails.StartTime)
				}
				rows = append(rows, []string{
					strconv.FormatInt(s.ID, 10), sessionCourse(s), start, orDash(s.MeetingPlatform), s.Status,
				})
			}
			return table(out, []string{"ID", "COURSE", "STARTS", "PLATFORM", "STATUS"}, rows)
		},
	}
}

func liveShowCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "show SESSION_ID",
		Short: "Show one session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("session id", args[0])
			if err != nil {
				return err
			}
			client, err := rt.client()
			if err != nil {
				return err
			}
			s, err := client.GetLiveSession(cmd.Context(), id)
			if err != nil {
				return err
			}
			printSession(cmd.OutOrStdout(), s)
			return nil
		},
	}
}

func liveJoinCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "join SESSION_ID",
		Short: "Join a session and print its meeting details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("session id", args[0])
			if err != nil {
				return err
			}
			client, err := rt.client()
			if err != nil {
				return err
			}
			s, err := client.JoinLiveSession(cmd.Context(), id)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			success(out, "Joined session %d", s.ID)
			printSession(out, s)
			return nil
		},
	}
}

func printSession(w io.Writer, s *hubsdk.LiveSession) {
	field(w, "Session", s.ID)
	field(w, "Course", sessionCourse(*s))
	if s.TimeSlotDetails != nil {
		field(w, "Starts", formatTime(s.TimeSlotDetails.StartTime))
		field(w, "Ends", formatTime(s.TimeSlotDetails.EndTime))
	}
	field(w, "Status", s.Status)
	field(w, "Platform", orDash(s.MeetingPlatform))
	if s.MeetingURL != "" {
		field(w, "Meeting", color.HiCyanString(s.MeetingURL))
		field(w, "Meeting ID", orDash(s.MeetingID))
		field(w, "Password", orDash(s.MeetingPassword))
	}
}

func sessionCourse(s hubsdk.LiveSession) string {
	if s.CourseDetails != nil {
		return s.CourseDetails.Title
	}
	return fmt.Sprint(s.Course)
}
