package catalog

import (
	"time"

	"github.com/google/uuid"

	"github.com/heimdex/heimdex-marks/internal/frames"
)

const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// Run is one invocation of the report command.
type Run struct {
	ID            string    `json:"id"`
	Status        string    `json:"status"`
	OutputType    string    `json:"output_type"`
	ManifestPath  string    `json:"manifest_path"`
	VideoPath     string    `json:"video_path,omitempty"`
	WorkFileCount int       `json:"work_file_count"`
	RangeCount    int       `json:"range_count"`
	Error         string    `json:"error,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// RequestLog records who submitted a work file and when.
type RequestLog struct {
	ID            string    `json:"id"`
	RunID         string    `json:"run_id"`
	User          string    `json:"user"`
	Machine       string    `json:"machine"`
	FileUser      string    `json:"file_user"`
	FileDate      string    `json:"file_date"`
	SubmittedDate string    `json:"submitted_date"`
	CreatedAt     time.Time `json:"created_at"`
}

// WorkFile is a stored work file; its marks are kept in line order.
type WorkFile struct {
	ID        string    `json:"id"`
	RunID     string    `json:"run_id"`
	Path      string    `json:"path"`
	Kind      string    `json:"kind"`
	FileUser  string    `json:"file_user"`
	FileDate  string    `json:"file_date"`
	Position  int       `json:"position"`
	Marks     []Mark    `json:"marks,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Mark is one stored frame range with its resolved location.
type Mark struct {
	Seq      int          `json:"seq"`
	Line     int          `json:"line"`
	Location string       `json:"location"`
	Range    frames.Range `json:"range"`
}

// StoredMark is a mark read back with the path of its work file.
type StoredMark struct {
	Mark
	WorkFilePath string `json:"work_file_path"`
}

// Label renders the mark the way the CSV report does.
func (m Mark) Label() string {
	return m.Location + " " + m.Range.String()
}

func NewID() string {
	return uuid.NewString()
}
