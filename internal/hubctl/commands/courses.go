package commands

import (
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"
	"github.com/frenchtutorhub/hub/pkg/hubsdk"
	"github.com/spf13/cobra"
)

// coursesCommand groups the catalogue commands.
func coursesCommand(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "courses",
		Short: "Browse the course catalogue",
	}
	cmd.AddCommand(
		coursesListCommand(rt),
		coursesFeaturedCommand(rt),
		coursesShowCommand(rt),
		coursesContentCommand(rt),
	)
	return cmd
}

func coursesListCommand(rt *runtime) *cobra.Command {
	var filter hubsdk.CourseFilter

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List published courses",
		Example: color.HiBlackString(`  hubctl courses list --level beginner
  hubctl courses list --category grammar --search subjonctif`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := rt.client()
			if err != nil {
				return err
			}
			courses, err := client.ListCourses(cmd.Context(), filter)
			if err != nil {
				return err
			}
			return printCourses(cmd.OutOrStdout(), courses)
		},
	}
	f := cmd.Flags()
	f.StringVar(&filter.Level, "level", "", "beginner, intermediate or advanced")
	f.StringVar(&filter.Category, "category", "", "category name")
	f.StringVar(&filter.Search, "search", "", "text to search in titles and descriptions")
	f.StringVar(&filter.Ordering, "ordering", "", "sort field, e.g. price or -created_at")
	f.IntVar(&filter.Page, "page", 0, "result page")

	return cmd
}

func coursesFeaturedCommand(rt *runtime) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "featured",
		Short: "List featured courses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := rt.client()
			if err != nil {
				return err
			}
			courses, err := client.FeaturedCourses(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return printCourses(cmd.OutOrStdout(), courses)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", hubsdk.DefaultFeaturedLimit, "maximum number of courses")

	return cmd
}

func printCourses(w io.Writer, courses []hubsdk.Course) error {
	if len(courses) == 0 {
		warn(w, "No courses found")
		return nil
	}
	return table(w, courseHeader, courseRows(courses))
}

func coursesShowCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "show COURSE_ID",
		Short: "Show one course",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("course id", args[0])
			if err != nil {
				return err
			}
			client, err := rt.client()
			if err != nil {
				return err
			}
			c, err := client.GetCourse(cmd.Context(), id)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, color.New(color.Bold).Sprint(c.Title))
			field(out, "ID", c.ID)
			field(out, "Teacher", orDash(c.TeacherName))
			field(out, "Level", orDash(c.Level))
			if c.Category != nil {
				field(out, "Category", c.Category.Name)
			}
			field(out, "Price", c.Price)
			field(out, "Featured", c.Featured)
			if c.Description != "" {
				fmt.Fprintln(out)
				fmt.Fprintln(out, c.Description)
			}
			return nil
		},
	}
}

func coursesContentCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "content COURSE_ID",
		Short: "List the materials of a course you are enrolled in",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("course id", args[0])
			if err != nil {
				return err
			}
			client, err := rt.client()
			if err != nil {
				return err
			}
			content, err := client.CourseContent(cmd.Context(), id)
			if err != nil {
				return err
			}

			var rows [][]string
			add := func(kind string, items []hubsdk.ContentItem) {
				for _, it := range items {
					rows = append(rows, []string{kind, strconv.Itoa(it.Order), it.Title, orDash(it.URL)})
				}
			}
			add("video", content.Videos)
			add("pdf", content.PDFs)
			add("assignment", content.Assignments)
			add("quiz", content.Quizzes)

			out := cmd.OutOrStdout()
			if len(rows) == 0 {
				warn(out, "This course has no content yet")
				return nil
			}
			return table(out, []string{"KIND", "ORDER", "TITLE", "URL"}, rows)
		},
	}
}

// enrollCommand enrolls the current user in a course.
func enrollCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "enroll COURSE_ID",
		Short: "Enroll in a course",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("course id", args[0])
			if err != nil {
				return err
			}
			client, err := rt.client()
			if err != nil {
				return err
			}
			e, err := client.Enroll(cmd.Context(), id)
			if err != nil {
				return err
			}

			title := fmt.Sprint("course ", id)
			if e.CourseDetails != nil {
				title = e.CourseDetails.Title
			}
			success(cmd.OutOrStdout(), "Enrolled in %s (enrollment %d)", title, e.ID)
			return nil
		},
	}
}

// enrollmentsCommand lists the current user's enrollments.
func enrollmentsCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "enrollments",
		Short: "List your enrollments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := rt.client()
			if err != nil {
				return err
			}
			enrollments, err := client.MyEnrollments(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(enrollments) == 0 {
				warn(out, "You are not enrolled in any course")
				return nil
			}
			rows := make([][]string, 0, len(enrollments))
			for _, e := range enrollments {
				title := strconv.FormatInt(e.Course, 10)
				if e.CourseDetails != nil {
					title = e.CourseDetails.Title
				}
				state := color.GreenString("active")
				if !e.IsActive {
					state = color.HiBlackString("inactive")
				}
				rows = append(rows, []string{
					strconv.FormatInt(e.ID, 10), title, fmt.Sprintf("%d%%", e.Progress), state, formatTime(e.EnrolledAt),
				})
			}
			return table(out, []string{"ID", "COURSE", "PROGRESS", "STATE", "ENROLLED"}, rows)
		},
	}
}

// progressCommand records progress on an enrollment.
func progressCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:     "progress ENROLLMENT_ID PERCENT",
		Short:   "Record course progress (0-100)",
		Example: color.HiBlackString(`  hubctl progress 101 40`),
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("enrollment id", args[0])
			if err != nil {
				return err
			}
			pct, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid progress %q: must be a whole number", args[1])
			}
			client, err := rt.client()
			if err != nil {
				return err
			}
			e, err := client.UpdateProgress(cmd.Context(), id, pct)
			if err != nil {
				return err
			}
			success(cmd.OutOrStdout(), "Progress on enrollment %d is now %d%%", e.ID, e.Progress)
			return nil
		},
	}
}
