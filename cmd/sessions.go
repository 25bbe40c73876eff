package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/database/postgres"
	"github.com/spf13/cobra"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions [session-id]",
	Short: "Show recorded capture sessions",
	Long: `Lists recent capture sessions from the history database, or the
submission attempts of one session. Requires DATABASE_URL.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSessions,
}

func init() {
	rootCmd.AddCommand(sessionsCmd)

	sessionsCmd.Flags().Int("limit", database.DefaultSessionListLimit, "Maximum number of sessions to show")
}

func runSessions(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	if cfg.Database.URL == "" {
		return database.ErrNotInitialized
	}
	if err := postgres.Initialize(&cfg.Database); err != nil {
		return fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}
	defer postgres.GetGlobalPool().Close()

	reader, err := database.GetSessionReader()
	if err != nil {
		return err
	}

	ctx := context.Background()
	if len(args) == 1 {
		return printSession(ctx, reader, args[0])
	}

	sessions, err := reader.ListSessions(ctx, mustGetInt(cmd, "limit"))
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}
	if len(sessions) == 0 {
		fmt.Println("No sessions recorded")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSUBJECT\tDATE\tSTARTED\tDURATION\tFRAMES\tBATCHES\tFAILED")
	for _, s := range sessions {
		duration := "running"
		if s.StoppedAt != nil {
			duration = s.Duration().Round(time.Second).String()
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%d\t%d\n",
			s.ID, s.SubjectID, s.Date, s.StartedAt.Local().Format(time.DateTime),
			duration, s.FramesCaptured, s.BatchesSubmitted, s.BatchesFailed)
	}
	w.Flush()
	return nil
}

func printSession(ctx context.Context, reader database.SessionReader, id string) error {
	s, err := reader.GetSession(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get session: %w", err)
	}
	if s == nil {
		return fmt.Errorf("session %s not found", id)
	}
	subs, err := reader.ListSubmissions(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to list submissions: %w", err)
	}

	fmt.Printf("Session:  %s\n", s.ID)
	fmt.Printf("Subject:  %s (%s %s %s)\n", s.SubjectID, s.Course, s.ClassYear, s.Division)
	fmt.Printf("Date:     %s\n", s.Date)
	fmt.Printf("Device:   %s\n", s.Device)
	fmt.Printf("Started:  %s\n", s.StartedAt.Local().Format(time.DateTime))
	if s.StoppedAt != nil {
		fmt.Printf("Duration: %s\n", s.Duration().Round(time.Second))
	}
	fmt.Printf("Frames:   %d captured, %d dropped\n\n", s.FramesCaptured, s.FramesDropped)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ATTEMPT\tFRAMES\tRESULT\tTOOK\tDETAIL")
	for _, sub := range subs {
		result, detail := "ok", sub.Message
		if !sub.Success {
			result, detail = "failed", sub.Error
		}
		if sub.Orphaned {
			result += " (orphaned)"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
			sub.Attempt, frameRange(sub.FrameSeqs), result, sub.Duration.Round(time.Millisecond), detail)
	}
	w.Flush()
	return nil
}

// frameRange renders capture sequence numbers compactly, e.g. "1-7".
func frameRange(seqs []int64) string {
	if len(seqs) == 0 {
		return "-"
	}
	contiguous := true
	for i := 1; i < len(seqs); i++ {
		if seqs[i] != seqs[i-1]+1 {
			contiguous = false
			break
		}
	}
	if contiguous {
		return fmt.Sprintf("%d-%d", seqs[0], seqs[len(seqs)-1])
	}
	parts := make([]string, len(seqs))
	for i, s := range seqs {
		parts[i] = fmt.Sprint(s)
	}
	return strings.Join(parts, ",")
}
