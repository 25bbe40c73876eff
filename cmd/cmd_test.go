package cmd

import (
	"slices"
	"strings"
	"testing"
)

func TestBuildMarks(t *testing.T) {
	tests := []struct {
		name    string
		present []string
		absent  []string
		want    []string // id:status
		wantErr string
	}{
		{"mixed", []string{"S1", "S2"}, []string{"S3"}, []string{"S1:present", "S2:present", "S3:absent"}, ""},
		{"duplicates collapse", []string{"S1", "S1"}, nil, []string{"S1:present"}, ""},
		{"absent only", nil, []string{"S9"}, []string{"S9:absent"}, ""},
		{"conflict", []string{"S1"}, []string{"S1"}, nil, "both present and absent"},
		{"empty", nil, nil, nil, "no students"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			marks, err := buildMarks(tc.present, tc.absent)
			if tc.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
					t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(marks) != len(tc.want) {
				t.Fatalf("expected %d marks, got %+v", len(tc.want), marks)
			}
			for i, m := range marks {
				if got := m.StudentID + ":" + m.Status; got != tc.want[i] {
					t.Errorf("mark %d: expected %s, got %s", i, tc.want[i], got)
				}
			}
		})
	}
}

func TestFrameRange(t *testing.T) {
	tests := []struct {
		seqs []int64
		want string
	}{
		{nil, "-"},
		{[]int64{5}, "5-5"},
		{[]int64{1, 2, 3, 4, 5, 6, 7}, "1-7"},
		{[]int64{1, 3, 4}, "1,3,4"},
	}
	for _, tc := range tests {
		if got := frameRange(tc.seqs); got != tc.want {
			t.Errorf("frameRange(%v) = %q, want %q", tc.seqs, got, tc.want)
		}
	}
}

func TestWindowState(t *testing.T) {
	if windowState(true) != "open" || windowState(false) != "closed" {
		t.Error("unexpected window state labels")
	}
}

func TestCommandsRegistered(t *testing.T) {
	want := []string{"serve", "capture", "gate", "subjects", "mark", "sessions", "version"}
	for _, name := range want {
		found := false
		for _, c := range rootCmd.Commands() {
			if c.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("command %q not registered", name)
		}
	}
}

func TestApplyGlobalOverrides(t *testing.T) {
	t.Setenv("ATTENDANCE_API_URL", "http://env:5000")
	t.Setenv("TEACHER_ID", "T001")

	saved := globals
	t.Cleanup(func() { globals = saved })

	globals.apiURL = ""
	globals.teacherID = ""
	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if cfg.Backend.URL != "http://env:5000" || cfg.Backend.TeacherID != "T001" {
		t.Errorf("expected environment values without flags, got %+v", cfg.Backend)
	}

	globals.apiURL = "http://flag:5000"
	globals.teacherID = "T042"
	cfg, err = loadConfig()
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if cfg.Backend.URL != "http://flag:5000" || cfg.Backend.TeacherID != "T042" {
		t.Errorf("expected flag overrides, got %+v", cfg.Backend)
	}
}

func TestBuildVersionInfo(t *testing.T) {
	savedCommit := CommitSHA
	t.Cleanup(func() { CommitSHA = savedCommit })

	CommitSHA = "abc1234"
	info := buildVersionInfo()
	if info.Commit != "abc1234" || info.Version != Version {
		t.Errorf("expected link-time metadata, got %+v", info)
	}
	if !strings.HasPrefix(info.GoVersion, "go") {
		t.Errorf("unexpected go version %q", info.GoVersion)
	}
	if !slices.Contains(info.Drivers, "dir") {
		t.Errorf("expected the dir driver listed, got %v", info.Drivers)
	}
}
