package catalog

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/heimdex/heimdex-marks/internal/db"
	"github.com/heimdex/heimdex-marks/internal/frames"
	"github.com/heimdex/heimdex-marks/internal/report"
	"github.com/heimdex/heimdex-marks/internal/worklog"
)

func setupTestDB(t *testing.T) (*db.DB, Repository) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	database, err := db.New(dbPath, nil)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	repo := NewRepository(database.Conn())
	return database, repo
}

func newTestService(repo Repository) *Service {
	svc := NewService(repo, nil)
	svc.now = func() time.Time { return time.Date(2023, 3, 23, 12, 0, 0, 0, time.UTC) }
	svc.user = func() string { return "coordinator" }
	return svc
}

func sampleReport() *report.Report {
	return &report.Report{
		Files: []report.FileReport{
			{
				Path: "/in/Baselight_JJacobs_20230323.txt",
				Name: worklog.Name{Kind: "Baselight", User: "JJacobs", Date: "20230323"},
				Rows: []report.Row{
					{WorkFile: "Baselight_JJacobs_20230323.txt", Line: 1, Location: "/a", Range: frames.Range{First: 2, Last: 4}},
					{WorkFile: "Baselight_JJacobs_20230323.txt", Line: 1, Location: "/a", Range: frames.Range{First: 31, Last: 31}},
				},
			},
			{
				Path: "/in/Flame_DFlowers_20230324.txt",
				Name: worklog.Name{Kind: "Flame", User: "DFlowers", Date: "20230324"},
				Rows: []report.Row{
					{WorkFile: "Flame_DFlowers_20230324.txt", Line: 3, Location: "/b", Range: frames.Range{First: 1260, Last: 1262}},
				},
			},
		},
	}
}

func TestService_StartAndFinishRun(t *testing.T) {
	database, repo := setupTestDB(t)
	defer database.Close()

	svc := newTestService(repo)
	ctx := context.Background()

	run, err := svc.StartRun(ctx, "DB", "xytech.txt", "")
	if err != nil {
		t.Fatalf("StartRun() error = %v", err)
	}
	if run.ID == "" || run.Status != RunStatusRunning {
		t.Fatalf("StartRun() = %+v", run)
	}

	if err := svc.FinishRun(ctx, run.ID, nil); err != nil {
		t.Fatalf("FinishRun() error = %v", err)
	}
	got, err := svc.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}
	if got.Status != RunStatusCompleted || got.Error != "" {
		t.Errorf("run after finish = %+v", got)
	}
}

func TestService_FinishRunWithError(t *testing.T) {
	database, repo := setupTestDB(t)
	defer database.Close()

	svc := newTestService(repo)
	ctx := context.Background()

	run, _ := svc.StartRun(ctx, "XLS", "xytech.txt", "review.mp4")
	if err := svc.FinishRun(ctx, run.ID, errors.New("ffprobe missing")); err != nil {
		t.Fatalf("FinishRun() error = %v", err)
	}
	got, _ := svc.GetRun(ctx, run.ID)
	if got.Status != RunStatusFailed || got.Error != "ffprobe missing" {
		t.Errorf("run = %+v, want failed with message", got)
	}
	if got.VideoPath != "review.mp4" {
		t.Errorf("VideoPath = %q", got.VideoPath)
	}
}

func TestService_GetRun_NotFound(t *testing.T) {
	database, repo := setupTestDB(t)
	defer database.Close()

	got, err := newTestService(repo).GetRun(context.Background(), "missing")
	if err != nil || got != nil {
		t.Errorf("GetRun(missing) = %v, %v; want nil, nil", got, err)
	}
}

func TestService_SaveReport(t *testing.T) {
	database, repo := setupTestDB(t)
	defer database.Close()

	svc := newTestService(repo)
	ctx := context.Background()

	run, err := svc.StartRun(ctx, "DB", "xytech.txt", "")
	if err != nil {
		t.Fatalf("StartRun() error = %v", err)
	}
	if err := svc.SaveReport(ctx, run.ID, sampleReport()); err != nil {
		t.Fatalf("SaveReport() error = %v", err)
	}

	got, _ := svc.GetRun(ctx, run.ID)
	if got.WorkFileCount != 2 || got.RangeCount != 3 {
		t.Errorf("counts = %d/%d, want 2/3", got.WorkFileCount, got.RangeCount)
	}

	logs, err := repo.ListRequestLogs(ctx, run.ID)
	if err != nil {
		t.Fatalf("ListRequestLogs() error = %v", err)
	}
	if len(logs) != 2 {
		t.Fatalf("request logs = %d, want 2", len(logs))
	}
	if logs[0].User != "coordinator" || logs[0].Machine != "Baselight" || logs[0].FileUser != "JJacobs" {
		t.Errorf("first request log = %+v", logs[0])
	}
	if logs[1].FileDate != "20230324" || logs[1].SubmittedDate == "" {
		t.Errorf("second request log = %+v", logs[1])
	}

	files, err := svc.GetWorkFiles(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetWorkFiles() error = %v", err)
	}
	if len(files) != 2 || files[0].Kind != "Baselight" || files[1].Kind != "Flame" {
		t.Fatalf("work files = %+v", files)
	}

	wf, err := svc.GetWorkFile(ctx, files[0].ID)
	if err != nil {
		t.Fatalf("GetWorkFile() error = %v", err)
	}
	if len(wf.Marks) != 2 {
		t.Fatalf("marks = %d, want 2", len(wf.Marks))
	}
	if wf.Marks[0].Label() != "/a 2-4" || wf.Marks[1].Label() != "/a 31" {
		t.Errorf("mark labels = %q, %q", wf.Marks[0].Label(), wf.Marks[1].Label())
	}
}

func TestService_StoredRows(t *testing.T) {
	database, repo := setupTestDB(t)
	defer database.Close()

	svc := newTestService(repo)
	ctx := context.Background()

	run, _ := svc.StartRun(ctx, "DB", "xytech.txt", "")
	if err := svc.SaveReport(ctx, run.ID, sampleReport()); err != nil {
		t.Fatalf("SaveReport() error = %v", err)
	}
	if err := svc.FinishRun(ctx, run.ID, nil); err != nil {
		t.Fatalf("FinishRun() error = %v", err)
	}

	rows, err := svc.StoredRows(ctx)
	if err != nil {
		t.Fatalf("StoredRows() error = %v", err)
	}
	want := []frames.Range{{First: 2, Last: 4}, {First: 31, Last: 31}, {First: 1260, Last: 1262}}
	if len(rows) != len(want) {
		t.Fatalf("rows = %d, want %d", len(rows), len(want))
	}
	for i, r := range rows {
		if r.Range != want[i] {
			t.Errorf("row %d range = %v, want %v", i, r.Range, want[i])
		}
	}
	if rows[0].WorkFile != "Baselight_JJacobs_20230323.txt" || rows[2].WorkFile != "Flame_DFlowers_20230324.txt" {
		t.Errorf("work files = %q, %q", rows[0].WorkFile, rows[2].WorkFile)
	}
}

func TestService_StoredRows_SkipsUnfinishedRuns(t *testing.T) {
	database, repo := setupTestDB(t)
	defer database.Close()

	svc := newTestService(repo)
	ctx := context.Background()

	failed, _ := svc.StartRun(ctx, "DB", "xytech.txt", "")
	if err := svc.SaveReport(ctx, failed.ID, sampleReport()); err != nil {
		t.Fatalf("SaveReport() error = %v", err)
	}
	if err := svc.FinishRun(ctx, failed.ID, errors.New("disk full")); err != nil {
		t.Fatalf("FinishRun() error = %v", err)
	}

	running, _ := svc.StartRun(ctx, "DB", "xytech.txt", "")
	if err := svc.SaveReport(ctx, running.ID, sampleReport()); err != nil {
		t.Fatalf("SaveReport() error = %v", err)
	}

	rows, err := svc.StoredRows(ctx)
	if err != nil {
		t.Fatalf("StoredRows() error = %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("StoredRows() = %+v, want none from failed or running runs", rows)
	}
}

func TestService_SaveReport_RollsBackOnFailure(t *testing.T) {
	database, repo := setupTestDB(t)
	defer database.Close()

	_, err := database.Conn().Exec(`
		CREATE TRIGGER reject_flame BEFORE INSERT ON work_files
		WHEN NEW.kind = 'Flame'
		BEGIN SELECT RAISE(ABORT, 'disk full'); END
	`)
	if err != nil {
		t.Fatalf("create trigger: %v", err)
	}

	svc := newTestService(repo)
	ctx := context.Background()

	run, _ := svc.StartRun(ctx, "DB", "xytech.txt", "")
	saveErr := svc.SaveReport(ctx, run.ID, sampleReport())
	if saveErr == nil {
		t.Fatal("SaveReport() error = nil, want failure on second work file")
	}
	if err := svc.FinishRun(ctx, run.ID, saveErr); err != nil {
		t.Fatalf("FinishRun() error = %v", err)
	}

	files, err := svc.GetWorkFiles(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetWorkFiles() error = %v", err)
	}
	if len(files) != 0 {
		t.Errorf("work files = %d, want 0 after rollback", len(files))
	}
	logs, _ := repo.ListRequestLogs(ctx, run.ID)
	if len(logs) != 0 {
		t.Errorf("request logs = %d, want 0 after rollback", len(logs))
	}
	got, _ := svc.GetRun(ctx, run.ID)
	if got.Status != RunStatusFailed || got.WorkFileCount != 0 || got.RangeCount != 0 {
		t.Errorf("run = %+v, want failed with zero counts", got)
	}

	rows, err := svc.StoredRows(ctx)
	if err != nil {
		t.Fatalf("StoredRows() error = %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("StoredRows() = %+v, want none", rows)
	}
}

func TestRepository_Config(t *testing.T) {
	database, repo := setupTestDB(t)
	defer database.Close()
	ctx := context.Background()

	if v, err := repo.GetConfig(ctx, "api_token"); err != nil || v != "" {
		t.Fatalf("GetConfig(unset) = %q, %v", v, err)
	}
	repo.SetConfig(ctx, "api_token", "one")
	repo.SetConfig(ctx, "api_token", "two")
	if v, _ := repo.GetConfig(ctx, "api_token"); v != "two" {
		t.Errorf("GetConfig = %q, want two", v)
	}
}
