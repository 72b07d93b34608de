package temporal

import "github.com/helixir/paper-ranking-service/internal/media"

// QueryProgress is the query name used to read media workflow progress.
// It lives here so the HTTP layer does not depend on the workflows package.
const QueryProgress = "progress"

// MediaPaper is one paper to illustrate. Key is the store key computed by
// the caller so the workflow stays deterministic.
type MediaPaper struct {
	Key     string        `json:"key"`
	Request media.Request `json:"request"`
}

// MediaWorkflowInput is the input of the media workflow.
type MediaWorkflowInput struct {
	RequestID string       `json:"request_id"`
	Papers    []MediaPaper `json:"papers"`
}

// MediaProgress is returned by the progress query and as the workflow
// result.
type MediaProgress struct {
	RequestID string         `json:"request_id"`
	Total     int            `json:"total"`
	Completed int            `json:"completed"`
	Results   []media.Result `json:"results"`
}

// Done reports whether every paper has been processed.
func (p MediaProgress) Done() bool {
	return p.Completed >= p.Total
}
