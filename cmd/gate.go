package cmd

import (
	"context"
	"fmt"

	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/gate"
	"github.com/spf13/cobra"
)

var gateCmd = &cobra.Command{
	Use:   "gate",
	Short: "Show or change the attendance window of a subject",
	Long: `While the attendance window of a subject is open, students can mark
themselves present from their own devices.`,
}

var gateStatusCmd = &cobra.Command{
	Use:   "status <subject-id>",
	Short: "Show whether the attendance window is open",
	Args:  cobra.ExactArgs(1),
	RunE:  runGateStatus,
}

var gateEnableCmd = &cobra.Command{
	Use:   "enable <subject-id>",
	Short: "Open the attendance window",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runGateToggle(args[0], true)
	},
}

var gateDisableCmd = &cobra.Command{
	Use:   "disable <subject-id>",
	Short: "Close the attendance window",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runGateToggle(args[0], false)
	},
}

func init() {
	rootCmd.AddCommand(gateCmd)
	gateCmd.AddCommand(gateStatusCmd)
	gateCmd.AddCommand(gateEnableCmd)
	gateCmd.AddCommand(gateDisableCmd)
}

func newGateClient() (*gate.Client, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	client, err := newAttendanceClient(cfg)
	if err != nil {
		return nil, err
	}
	return gate.NewClient(client, constants.GateRequestTimeout), nil
}

func windowState(enabled bool) string {
	if enabled {
		return "open"
	}
	return "closed"
}

func runGateStatus(cmd *cobra.Command, args []string) error {
	client, err := newGateClient()
	if err != nil {
		return err
	}

	enabled, err := client.Check(context.Background(), args[0])
	if err != nil {
		return err
	}
	fmt.Printf("Attendance window for %s is %s\n", args[0], windowState(enabled))
	return nil
}

func runGateToggle(subjectID string, enabled bool) error {
	client, err := newGateClient()
	if err != nil {
		return err
	}

	got, err := client.Toggle(context.Background(), subjectID, enabled)
	if err != nil {
		return err
	}
	fmt.Printf("Attendance window for %s is now %s\n", subjectID, windowState(got))
	return nil
}
