package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"os/user"
	"path/filepath"
	"time"

	"github.com/heimdex/heimdex-marks/internal/report"
)

const submittedDateLayout = "20060102"

type CatalogService interface {
	StartRun(ctx context.Context, outputType, manifestPath, videoPath string) (*Run, error)
	FinishRun(ctx context.Context, runID string, runErr error) error
	SaveReport(ctx context.Context, runID string, rep *report.Report) error
	GetRuns(ctx context.Context, limit int) ([]*Run, error)
	GetRun(ctx context.Context, id string) (*Run, error)
	GetWorkFiles(ctx context.Context, runID string) ([]*WorkFile, error)
	GetWorkFile(ctx context.Context, id string) (*WorkFile, error)
	StoredRows(ctx context.Context) ([]report.Row, error)
}

type Service struct {
	repo   Repository
	logger *slog.Logger
	now    func() time.Time
	user   func() string
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger, now: time.Now, user: currentUser}
}

func currentUser() string {
	u, err := user.Current()
	if err != nil {
		return "unknown"
	}
	return u.Username
}

// StartRun records a run in the running state.
func (s *Service) StartRun(ctx context.Context, outputType, manifestPath, videoPath string) (*Run, error) {
	now := s.now().UTC()
	run := &Run{
		ID:           NewID(),
		Status:       RunStatusRunning,
		OutputType:   outputType,
		ManifestPath: manifestPath,
		VideoPath:    videoPath,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.CreateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}
	if s.logger != nil {
		s.logger.Info("run started", "run_id", run.ID, "output", outputType)
	}
	return run, nil
}

// FinishRun marks the run completed, or failed with runErr's message.
func (s *Service) FinishRun(ctx context.Context, runID string, runErr error) error {
	status, msg := RunStatusCompleted, ""
	if runErr != nil {
		status, msg = RunStatusFailed, runErr.Error()
	}
	if err := s.repo.UpdateRunStatus(ctx, runID, status, msg); err != nil {
		return fmt.Errorf("update run status: %w", err)
	}
	if s.logger != nil {
		s.logger.Info("run finished", "run_id", runID, "status", status)
	}
	return nil
}

// SaveReport stores one request log and one work file with its marks for
// every file in the report, preserving report order. Either the whole
// report is stored or none of it.
func (s *Service) SaveReport(ctx context.Context, runID string, rep *report.Report) error {
	submitter := s.user()
	now := s.now().UTC()
	submitted := now.Local().Format(submittedDateLayout)

	logs := make([]*RequestLog, len(rep.Files))
	files := make([]*WorkFile, len(rep.Files))
	ranges := 0
	for i, f := range rep.Files {
		logs[i] = &RequestLog{
			ID:            NewID(),
			RunID:         runID,
			User:          submitter,
			Machine:       f.Name.Kind,
			FileUser:      f.Name.User,
			FileDate:      f.Name.Date,
			SubmittedDate: submitted,
			CreatedAt:     now,
		}

		wf := &WorkFile{
			ID:        NewID(),
			RunID:     runID,
			Path:      f.Path,
			Kind:      f.Name.Kind,
			FileUser:  f.Name.User,
			FileDate:  f.Name.Date,
			Position:  i,
			CreatedAt: now,
			Marks:     make([]Mark, len(f.Rows)),
		}
		for j, row := range f.Rows {
			wf.Marks[j] = Mark{Seq: j, Line: row.Line, Location: row.Location, Range: row.Range}
		}
		files[i] = wf
		ranges += len(f.Rows)
	}

	if err := s.repo.SaveWorkFiles(ctx, runID, logs, files); err != nil {
		return fmt.Errorf("save report: %w", err)
	}
	if s.logger != nil {
		s.logger.Info("report saved", "run_id", runID, "work_files", len(files), "ranges", ranges)
	}
	return nil
}

func (s *Service) GetRuns(ctx context.Context, limit int) ([]*Run, error) {
	return s.repo.ListRuns(ctx, limit)
}

func (s *Service) GetRun(ctx context.Context, id string) (*Run, error) {
	return s.repo.GetRun(ctx, id)
}

func (s *Service) GetWorkFiles(ctx context.Context, runID string) ([]*WorkFile, error) {
	return s.repo.ListWorkFiles(ctx, runID)
}

// GetWorkFile returns the work file with its marks, or nil when unknown.
func (s *Service) GetWorkFile(ctx context.Context, id string) (*WorkFile, error) {
	wf, err := s.repo.GetWorkFile(ctx, id)
	if err != nil || wf == nil {
		return wf, err
	}
	wf.Marks, err = s.repo.GetMarks(ctx, id)
	if err != nil {
		return nil, err
	}
	return wf, nil
}

// StoredRows returns the marks of every completed run as report rows,
// oldest run first. Failed and interrupted runs contribute nothing.
func (s *Service) StoredRows(ctx context.Context) ([]report.Row, error) {
	marks, err := s.repo.ListCompletedMarks(ctx)
	if err != nil {
		return nil, fmt.Errorf("list stored marks: %w", err)
	}
	rows := make([]report.Row, len(marks))
	for i, m := range marks {
		rows[i] = report.Row{WorkFile: filepath.Base(m.WorkFilePath), Line: m.Line, Location: m.Location, Range: m.Range}
	}
	return rows, nil
}
