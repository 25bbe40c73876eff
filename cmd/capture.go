package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kozaktomas/face-attendance/internal/database/postgres"
	"github.com/kozaktomas/face-attendance/internal/session"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Run a capture session from the command line",
	Long: `Mark the class absent, start the camera and submit frames for face
recognition until Ctrl+C (or --duration elapses).

Example:
  face-attendance capture --subject SUB1 --course "BSC IT" --class-year FY
  face-attendance capture --subject SUB1 --course "BSC IT" --class-year FY --duration 10m`,
	RunE: runCapture,
}

func init() {
	rootCmd.AddCommand(captureCmd)

	captureCmd.Flags().String("subject", "", "Subject ID (required)")
	captureCmd.Flags().String("course", "", "Course, defaults to DEFAULT_COURSE")
	captureCmd.Flags().String("class-year", "", "Class year (required)")
	captureCmd.Flags().String("division", "", "Division")
	captureCmd.Flags().String("date", "", "Attendance date YYYY-MM-DD (default today)")
	captureCmd.Flags().Duration("duration", 0, "Stop the camera after this long (0 = until Ctrl+C)")
}

func runCapture(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	params := session.Params{
		SubjectID: mustGetString(cmd, "subject"),
		Course:    mustGetString(cmd, "course"),
		ClassYear: mustGetString(cmd, "class-year"),
		Division:  mustGetString(cmd, "division"),
		Date:      mustGetString(cmd, "date"),
	}
	if params.Course == "" {
		params.Course = cfg.Backend.DefaultCourse
	}
	if err := params.Validate(); err != nil {
		return err
	}
	duration := mustGetDuration(cmd, "duration")

	recorder, err := initHistory(cfg)
	if err != nil {
		return err
	}
	if pool := postgres.GetGlobalPool(); pool != nil {
		defer pool.Close()
	}

	client, err := newAttendanceClient(cfg)
	if err != nil {
		return err
	}
	controller, err := newController(cfg, client, recorder)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, duration)
		defer cancel()
	}

	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetDescription("Capturing"),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("frames"),
		progressbar.OptionSetWriter(os.Stderr),
	)

	entries := controller.Log().Subscribe()
	printed := make(chan struct{})
	go func() {
		defer close(printed)
		for e := range entries {
			_ = bar.Clear()
			fmt.Printf("%s [%s] %s\n", e.Time.Format(time.TimeOnly), e.Level, e.Message)
		}
	}()

	status, err := controller.Start(ctx, params)
	if err != nil {
		controller.Log().Unsubscribe(entries)
		<-printed
		return err
	}
	fmt.Printf("Session %s: subject %s, %s %s, %s\n",
		status.SessionID, params.SubjectID, params.Course, params.ClassYear, status.Params.Date)
	fmt.Println("Press Ctrl+C to stop the camera")

	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case <-ticker.C:
			st := controller.Status()
			_ = bar.Set(int(st.FramesCaptured))
			bar.Describe(fmt.Sprintf("Capturing (%d queued, %d batches sent)", st.FramesQueued, st.BatchesSubmitted))
		}
	}

	// Counters are gone once the session is reset.
	final := controller.Status()
	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	stopErr := controller.Close(stopCtx)

	controller.Log().Unsubscribe(entries)
	<-printed
	_ = bar.Finish()
	fmt.Println()

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		fmt.Printf("Stopped after %s\n", duration)
	}
	fmt.Printf("Frames captured: %d, batches submitted: %d, failed attempts: %d\n",
		final.FramesCaptured, final.BatchesSubmitted, final.BatchesFailed)
	return stopErr
}
