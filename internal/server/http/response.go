package httpserver

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/helixir/paper-ranking-service/internal/media"
	"github.com/helixir/paper-ranking-service/internal/search"
	"github.com/helixir/paper-ranking-service/internal/temporal"
)

// Response texts kept compatible with the web client.
const (
	statusSuccess    = "success"
	statusCompleted  = "completed"
	statusAccepted   = "accepted"
	msgInvalidBody   = "无效的请求数据"
	msgMissingPaper  = "缺少论文ID或数据"
	msgSearchFailed  = "检索出错："
	msgImagesFailed  = "图片生成出错："
	msgNoWorkflows   = "后台图片生成未启用"
	msgImageNotFound = "图片未找到"
	msgInvalidName   = "无效的文件名"
)

// flexInt accepts a JSON number, a numeric string or an empty string.
type flexInt int

func (f *flexInt) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = 0
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*f = 0
			return nil
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("not a whole number: %q", s)
		}
		*f = flexInt(n)
		return nil
	}
	var n int
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexInt(n)
	return nil
}

// flexString accepts a JSON string or number, so paper ids may be either.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

// searchRequest is the JSON body of POST /api/search.
type searchRequest struct {
	Theme     string  `json:"theme" validate:"max=500"`
	Key1      string  `json:"key1" validate:"max=500"`
	Key2      string  `json:"key2" validate:"max=500"`
	StartYear flexInt `json:"start_year" validate:"gte=0,lte=9999"`
	EndYear   flexInt `json:"end_year" validate:"gte=0,lte=9999"`
	TopN      int     `json:"top_n" validate:"gte=0,lte=100"`
}

func (r searchRequest) query() search.Query {
	return search.Query{
		Theme:    r.Theme,
		Key1:     r.Key1,
		Key2:     r.Key2,
		YearFrom: int(r.StartYear),
		YearTo:   int(r.EndYear),
		TopN:     r.TopN,
	}
}

// paperData is the subset of a search result the client sends back.
type paperData struct {
	Title    string `json:"title" validate:"max=2000"`
	URL      string `json:"url" validate:"max=2048"`
	Abstract string `json:"abstract" validate:"max=20000"`
}

// paperRequest is the JSON body of the summary and image endpoints.
type paperRequest struct {
	PaperID   flexString `json:"paper_id"`
	PaperData *paperData `json:"paper_data" validate:"required"`
	// Async runs image generation as a Temporal workflow.
	Async bool `json:"async"`
}

// complete reports whether the request names a paper with some data.
func (r paperRequest) complete() bool {
	if strings.TrimSpace(string(r.PaperID)) == "" || r.PaperData == nil {
		return false
	}
	d := r.PaperData
	return strings.TrimSpace(d.Title) != "" || strings.TrimSpace(d.URL) != "" || strings.TrimSpace(d.Abstract) != ""
}

func (r paperRequest) mediaRequest() media.Request {
	return media.Request{
		PaperID:  strings.TrimSpace(string(r.PaperID)),
		Title:    r.PaperData.Title,
		URL:      r.PaperData.URL,
		Abstract: r.PaperData.Abstract,
	}
}

type searchResponse struct {
	Papers []search.Result `json:"papers"`
	Status string          `json:"status"`
}

type resultResponse struct {
	Result string `json:"result"`
	Status string `json:"status,omitempty"`
}

type summaryResponse struct {
	Summary string `json:"summary"`
	Status  string `json:"status"`
}

type imagesResponse struct {
	Result string        `json:"result"`
	Status string        `json:"status"`
	Images *media.Result `json:"images,omitempty"`
}

type imagesAcceptedResponse struct {
	WorkflowID string `json:"workflow_id"`
	RunID      string `json:"run_id"`
	Status     string `json:"status"`
}

type imageProgressResponse struct {
	WorkflowID string         `json:"workflow_id"`
	Status     string         `json:"status"`
	Total      int            `json:"total"`
	Completed  int            `json:"completed"`
	Results    []media.Result `json:"results"`
	Result     string         `json:"result,omitempty"`
}

func progressToResponse(workflowID string, p *temporal.MediaProgress) imageProgressResponse {
	resp := imageProgressResponse{
		WorkflowID: workflowID,
		Status:     "running",
		Total:      p.Total,
		Completed:  p.Completed,
		Results:    p.Results,
	}
	if resp.Results == nil {
		resp.Results = []media.Result{}
	}
	if p.Done() {
		resp.Status = statusCompleted
		if len(p.Results) > 0 {
			resp.Result = p.Results[0].Message()
		}
	}
	return resp
}
