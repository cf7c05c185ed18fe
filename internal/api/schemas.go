package api

import (
	"time"

	"github.com/heimdex/heimdex-marks/internal/catalog"
)

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	UptimeS int64  `json:"uptime_s"`
}

type RunResponse struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	OutputType    string `json:"output_type"`
	ManifestPath  string `json:"manifest_path"`
	VideoPath     string `json:"video_path,omitempty"`
	WorkFileCount int    `json:"work_file_count"`
	RangeCount    int    `json:"range_count"`
	Error         string `json:"error,omitempty"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`
}

type RunsResponse struct {
	Runs []RunResponse `json:"runs"`
}

type WorkFileResponse struct {
	ID        string `json:"id"`
	RunID     string `json:"run_id"`
	Path      string `json:"path"`
	Kind      string `json:"kind"`
	FileUser  string `json:"file_user"`
	FileDate  string `json:"file_date"`
	CreatedAt string `json:"created_at"`
}

type WorkFilesResponse struct {
	WorkFiles []WorkFileResponse `json:"work_files"`
}

type MarkResponse struct {
	Seq      int    `json:"seq"`
	Line     int    `json:"line"`
	Location string `json:"location"`
	First    int    `json:"first"`
	Last     int    `json:"last"`
	Label    string `json:"label"`
}

type MarksResponse struct {
	WorkFileID string         `json:"work_file_id"`
	Marks      []MarkResponse `json:"marks"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func RunToResponse(r *catalog.Run) RunResponse {
	return RunResponse{
		ID:            r.ID,
		Status:        r.Status,
		OutputType:    r.OutputType,
		ManifestPath:  r.ManifestPath,
		VideoPath:     r.VideoPath,
		WorkFileCount: r.WorkFileCount,
		RangeCount:    r.RangeCount,
		Error:         r.Error,
		CreatedAt:     r.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     r.UpdatedAt.Format(time.RFC3339),
	}
}

func WorkFileToResponse(wf *catalog.WorkFile) WorkFileResponse {
	return WorkFileResponse{
		ID:        wf.ID,
		RunID:     wf.RunID,
		Path:      wf.Path,
		Kind:      wf.Kind,
		FileUser:  wf.FileUser,
		FileDate:  wf.FileDate,
		CreatedAt: wf.CreatedAt.Format(time.RFC3339),
	}
}

func MarkToResponse(m catalog.Mark) MarkResponse {
	return MarkResponse{
		Seq:      m.Seq,
		Line:     m.Line,
		Location: m.Location,
		First:    m.Range.First,
		Last:     m.Range.Last,
		Label:    m.Label(),
	}
}
