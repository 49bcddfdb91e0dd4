package pipeline

import (
	"encoding/json"
	"fmt"
	"unicode/utf8"

	"github.com/dustin/go-humanize"

	"github.com/joseph-ayodele/contracts-tracker/internal/extract"
)

type FileInfo struct {
	Filename      string `json:"filename"`
	FilePath      string `json:"file_path"`
	FileSize      int64  `json:"file_size"`
	FileSizeHuman string `json:"file_size_human"`
	Format        string `json:"format"`
}

type Recognition struct {
	Method     string   `json:"method"`
	Language   string   `json:"language,omitempty"`
	Pages      int      `json:"pages"`
	Confidence float32  `json:"confidence"`
	Warnings   []string `json:"warnings,omitempty"`
	DurationMS int64    `json:"duration_ms"`
}

type ExtractionStats struct {
	TextLength      int `json:"text_length"`
	FieldsExtracted int `json:"fields_extracted"`
	TotalFields     int `json:"total_fields"`
	Attachments     int `json:"attachments"`
	Diagnostics     int `json:"diagnostics"`
}

// Result is the payload of a completed job.
type Result struct {
	FileInfo        FileInfo        `json:"file_info"`
	ExtractedText   string          `json:"extracted_text"`
	FullTextLength  int             `json:"full_text_length"`
	Recognition     Recognition     `json:"recognition"`
	ContractData    *extract.Record `json:"contract_data"`
	ExtractionStats ExtractionStats `json:"extraction_stats"`
}

func newFileInfo(filename, path, format string, size int64) FileInfo {
	return FileInfo{
		Filename:      filename,
		FilePath:      path,
		FileSize:      size,
		FileSizeHuman: humanize.Bytes(uint64(size)),
		Format:        format,
	}
}

// preview cuts text to n runes and marks the cut with "...".
func preview(text string, n int) string {
	if n <= 0 || utf8.RuneCountInString(text) <= n {
		return text
	}
	return string([]rune(text)[:n]) + "..."
}

// ToMap renders the result as plain JSON values.
func (r *Result) ToMap() (map[string]any, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}
	return m, nil
}

// DecodeResult is the inverse of ToMap, used on job snapshots and archived
// payloads.
func DecodeResult(m map[string]any) (*Result, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	var r Result
	if err := json.Unmarshal(b, &r); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	if r.ContractData == nil {
		return nil, fmt.Errorf("payload has no contract_data")
	}
	return &r, nil
}
