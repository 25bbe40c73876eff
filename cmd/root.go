package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Persistent flags shared by every subcommand. Empty values leave the
// environment configuration in place.
var globals struct {
	envFile    string
	apiURL     string
	teacherID  string
	captureDir string
}

var rootCmd = &cobra.Command{
	Use:   "face-attendance",
	Short: "Live facial attendance capture for the classroom",
	Long: `Face Attendance drives a classroom camera, samples frames into batches
and submits them to the attendance backend for face recognition. It also
toggles the attendance window of a subject and marks attendance manually.

Configuration comes from the environment (ATTENDANCE_API_URL, TEACHER_ID,
CAPTURE_DEVICE, DATABASE_URL, ...), optionally loaded from a .env file.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&globals.envFile, "env-file", ".env", "Environment file to load before reading the configuration")
	flags.StringVar(&globals.apiURL, "api-url", "", "Attendance backend URL (overrides ATTENDANCE_API_URL)")
	flags.StringVar(&globals.teacherID, "teacher", "", "Teacher ID to act as (overrides TEACHER_ID)")
	flags.StringVar(&globals.captureDir, "capture", "", "Directory to save backend responses for testing")
}

func initConfig() {
	if globals.envFile == "" {
		return
	}
	// The default .env file is optional, an explicit one is not.
	if err := godotenv.Load(globals.envFile); err != nil && rootCmd.PersistentFlags().Changed("env-file") {
		fmt.Fprintf(os.Stderr, "Warning: could not load %s: %v\n", globals.envFile, err)
	}
}
