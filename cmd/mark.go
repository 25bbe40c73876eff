package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/spf13/cobra"
)

var markCmd = &cobra.Command{
	Use:   "mark <subject-id>",
	Short: "Mark attendance manually",
	Long: `Submit a reviewed attendance list for a subject.

Example:
  face-attendance mark SUB1 --present S001,S002 --absent S003
  face-attendance mark SUB1 --date 2026-10-01 --present S001`,
	Args: cobra.ExactArgs(1),
	RunE: runMark,
}

func init() {
	rootCmd.AddCommand(markCmd)

	markCmd.Flags().StringSlice("present", nil, "Student IDs to mark present")
	markCmd.Flags().StringSlice("absent", nil, "Student IDs to mark absent")
	markCmd.Flags().String("date", "", "Attendance date YYYY-MM-DD (default today)")
}

// buildMarks turns the present/absent lists into marks. A student listed in
// both is rejected.
func buildMarks(present, absent []string) ([]attendance.StudentMark, error) {
	seen := make(map[string]string, len(present)+len(absent))
	var marks []attendance.StudentMark
	add := func(ids []string, status string) error {
		for _, id := range ids {
			if prev, ok := seen[id]; ok {
				if prev != status {
					return fmt.Errorf("student %s is listed as both present and absent", id)
				}
				continue
			}
			seen[id] = status
			marks = append(marks, attendance.StudentMark{StudentID: id, Status: status})
		}
		return nil
	}
	if err := add(present, "present"); err != nil {
		return nil, err
	}
	if err := add(absent, "absent"); err != nil {
		return nil, err
	}
	if len(marks) == 0 {
		return nil, errors.New("no students given: use --present and/or --absent")
	}
	return marks, nil
}

func runMark(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	teacherID, err := requireTeacher(cfg)
	if err != nil {
		return err
	}

	marks, err := buildMarks(mustGetStringSlice(cmd, "present"), mustGetStringSlice(cmd, "absent"))
	if err != nil {
		return err
	}

	date := mustGetString(cmd, "date")
	if date == "" {
		date = time.Now().Format(constants.DateLayout)
	} else if _, err := time.Parse(constants.DateLayout, date); err != nil {
		return fmt.Errorf("invalid --date %q: want YYYY-MM-DD", date)
	}

	client, err := newAttendanceClient(cfg)
	if err != nil {
		return err
	}

	resp, err := client.MarkBatch(context.Background(), attendance.ManualBatch{
		SubjectID:   args[0],
		Date:        date,
		MarkedBy:    teacherID,
		Attendances: marks,
	})
	if err != nil {
		return fmt.Errorf("failed to mark attendance: %w", err)
	}

	fmt.Printf("%s (%d students, %s)\n", resp.Message, len(marks), date)
	return nil
}
