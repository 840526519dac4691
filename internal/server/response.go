package server

import (
	"github.com/roach88/procmigrate/internal/migrate"
)

// ConvertResponse is the JSON body of a convert run.
type ConvertResponse struct {
	RunID      string           `json:"run_id"`
	Archive    string           `json:"archive,omitempty"`
	Failed     int              `json:"failed"`
	Procedures []ProcedureEntry `json:"procedures"`
}

// ProcedureEntry is one procedure of a convert run.
type ProcedureEntry struct {
	Procedure string `json:"procedure"`
	Action    string `json:"action,omitempty"`
	State     string `json:"state,omitempty"`
	Text      string `json:"text,omitempty"`
	Error     string `json:"error,omitempty"`
}

// NewConvertResponse renders a convert report.
func NewConvertResponse(r migrate.ConvertReport) ConvertResponse {
	resp := ConvertResponse{
		RunID:      r.RunID,
		Archive:    r.Archive,
		Failed:     r.Failed(),
		Procedures: make([]ProcedureEntry, 0, len(r.Results)),
	}
	for _, res := range r.Results {
		e := ProcedureEntry{
			Procedure: res.Procedure,
			Action:    string(res.Action),
			State:     string(res.Artifact.State),
			Text:      res.Artifact.Text,
		}
		if res.Err != nil {
			e.Error = res.Err.Error()
		}
		resp.Procedures = append(resp.Procedures, e)
	}
	return resp
}

// ApplyResponse is the JSON body of an apply run.
type ApplyResponse struct {
	RunID     string      `json:"run_id"`
	Applied   int         `json:"applied"`
	Corrected int         `json:"corrected"`
	Declined  int         `json:"declined"`
	Failed    int         `json:"failed"`
	Files     []FileEntry `json:"files"`
}

// FileEntry is one artifact of an apply run.
type FileEntry struct {
	File     string `json:"file"`
	State    string `json:"state,omitempty"`
	Path     string `json:"path,omitempty"`
	Attempts int    `json:"attempts"`
	Error    string `json:"error,omitempty"`
}

// NewApplyResponse renders an apply report.
func NewApplyResponse(r migrate.ApplyReport) ApplyResponse {
	resp := ApplyResponse{
		RunID:     r.RunID,
		Applied:   r.Count(migrate.Applied),
		Corrected: r.Count(migrate.AppliedWithCorrection),
		Declined:  r.Count(migrate.Declined),
		Failed:    r.Failed(),
		Files:     make([]FileEntry, 0, len(r.Results)),
	}
	for _, res := range r.Results {
		e := FileEntry{
			File:     res.File,
			State:    string(res.State),
			Path:     res.Path,
			Attempts: len(res.Attempts),
		}
		if res.Err != nil {
			e.Error = res.Err.Error()
		}
		resp.Files = append(resp.Files, e)
	}
	return resp
}
