//go:build integration

package postgres

import (
	"context"
	"fmt"
	"slices"
	"testing"
	"time"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupTestContainer(t *testing.T) (*Pool, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("Docker not available or container failed to start, skipping integration test: %v", err)
		return nil, func() {}
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	cfg := &config.DatabaseConfig{
		URL:          fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port()),
		MaxOpenConns: 5,
		MaxIdleConns: 2,
	}

	pool, err := NewPool(cfg)
	if err != nil {
		container.Terminate(ctx)
		t.Fatalf("Failed to create pool: %v", err)
	}

	if err := pool.Migrate(ctx); err != nil {
		pool.Close()
		container.Terminate(ctx)
		t.Fatalf("Failed to run migrations: %v", err)
	}

	cleanup := func() {
		pool.Close()
		container.Terminate(ctx)
	}
	return pool, cleanup
}

func TestMigrateIsIdempotent(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	if err := pool.Migrate(ctx); err != nil {
		t.Fatalf("second Migrate failed: %v", err)
	}
	versions, err := pool.MigrationsApplied(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(versions) != 2 {
		t.Errorf("expected 2 applied migrations, got %v", versions)
	}
}

func TestSessionRepository(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	repo := NewSessionRepository(pool)
	started := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)

	session := database.SessionRecord{
		ID:        "0b6f3f4e-5f7e-4f7b-9a53-2b9d3c1f0a11",
		SubjectID: "SUB1",
		Course:    "BSC IT",
		ClassYear: "FY",
		Division:  "A",
		Date:      "2026-10-16",
		TeacherID: "T001",
		Device:    "dir:./frames",
		StartedAt: started,
	}

	t.Run("StartAndGet", func(t *testing.T) {
		if err := repo.StartSession(ctx, session); err != nil {
			t.Fatalf("StartSession failed: %v", err)
		}
		got, err := repo.GetSession(ctx, session.ID)
		if err != nil {
			t.Fatalf("GetSession failed: %v", err)
		}
		if got == nil {
			t.Fatal("expected session, got nil")
		}
		if got.SubjectID != "SUB1" || got.Date != "2026-10-16" || got.Division != "A" {
			t.Errorf("unexpected session %+v", got)
		}
		if got.StoppedAt != nil {
			t.Error("expected running session to have no stop time")
		}
	})

	t.Run("GetMissing", func(t *testing.T) {
		got, err := repo.GetSession(ctx, "missing")
		if err != nil {
			t.Fatalf("GetSession failed: %v", err)
		}
		if got != nil {
			t.Errorf("expected nil, got %+v", got)
		}
	})

	t.Run("Submissions", func(t *testing.T) {
		subs := []database.SubmissionRecord{
			{SessionID: session.ID, Attempt: 1, FrameSeqs: []int64{1, 2, 3, 4, 5, 6, 7}, Error: "timeout"},
			{SessionID: session.ID, Attempt: 2, FrameSeqs: []int64{1, 2, 3, 4, 5, 6, 7}, Success: true,
				Message: "batch 1: +1 students marked present", Duration: 420 * time.Millisecond},
		}
		for _, sub := range subs {
			if err := repo.RecordSubmission(ctx, sub); err != nil {
				t.Fatalf("RecordSubmission failed: %v", err)
			}
		}

		got, err := repo.ListSubmissions(ctx, session.ID)
		if err != nil {
			t.Fatalf("ListSubmissions failed: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("expected 2 submissions, got %d", len(got))
		}
		if got[0].Success || got[0].Error != "timeout" {
			t.Errorf("unexpected first submission %+v", got[0])
		}
		if !got[1].Success || got[1].Attempt != 2 || got[1].Duration != 420*time.Millisecond {
			t.Errorf("unexpected second submission %+v", got[1])
		}
		if !slices.Equal(got[1].FrameSeqs, []int64{1, 2, 3, 4, 5, 6, 7}) {
			t.Errorf("unexpected frame seqs %v", got[1].FrameSeqs)
		}
	})

	t.Run("Finish", func(t *testing.T) {
		stopped := started.Add(3 * time.Minute)
		totals := database.SessionTotals{FramesCaptured: 120, BatchesSubmitted: 17, BatchesFailed: 1}
		if err := repo.FinishSession(ctx, session.ID, stopped, totals); err != nil {
			t.Fatalf("FinishSession failed: %v", err)
		}
		if err := repo.FinishSession(ctx, "missing", stopped, totals); err == nil {
			t.Error("expected error finishing an unknown session")
		}

		sessions, err := repo.ListSessions(ctx, 10)
		if err != nil {
			t.Fatalf("ListSessions failed: %v", err)
		}
		if len(sessions) != 1 {
			t.Fatalf("expected 1 session, got %d", len(sessions))
		}
		if sessions[0].Duration() != 3*time.Minute {
			t.Errorf("expected 3m duration, got %v", sessions[0].Duration())
		}
		if sessions[0].FramesCaptured != 120 || sessions[0].BatchesSubmitted != 17 {
			t.Errorf("unexpected totals %+v", sessions[0])
		}
	})
}
