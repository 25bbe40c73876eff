package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/spf13/cobra"
)

var subjectsCmd = &cobra.Command{
	Use:   "subjects",
	Short: "List the subjects of the configured teacher",
	Long:  `Lists the subjects taught by TEACHER_ID, optionally filtered by course and class year.`,
	RunE:  runSubjects,
}

func init() {
	rootCmd.AddCommand(subjectsCmd)

	subjectsCmd.Flags().String("course", "", "Only subjects of this course")
	subjectsCmd.Flags().String("class-year", "", "Only subjects of this class year")
	subjectsCmd.Flags().Bool("json", false, "Output as JSON")
}

func runSubjects(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	teacherID, err := requireTeacher(cfg)
	if err != nil {
		return err
	}
	client, err := newAttendanceClient(cfg)
	if err != nil {
		return err
	}

	subjects, err := client.TeacherSubjects(context.Background(), teacherID)
	if err != nil {
		return fmt.Errorf("failed to list subjects: %w", err)
	}
	subjects = attendance.FilterSubjects(subjects, mustGetString(cmd, "course"), mustGetString(cmd, "class-year"))

	if mustGetBool(cmd, "json") {
		if subjects == nil {
			subjects = []attendance.Subject{}
		}
		out, err := json.MarshalIndent(subjects, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode subjects: %w", err)
		}
		fmt.Println(string(out))
		return nil
	}

	if len(subjects) == 0 {
		fmt.Println("No subjects found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tCOURSE\tYEAR\tWINDOW")
	for _, s := range subjects {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", s.SubjectID, s.Name, s.Course, s.ClassYear, windowState(s.AttendanceEnabled))
	}
	w.Flush()

	fmt.Printf("\nTotal: %d subjects\n", len(subjects))
	return nil
}
