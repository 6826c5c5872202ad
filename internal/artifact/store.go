// Package artifact writes the per-patient JSON extraction files consumed by
// the assessment intake pipeline.
package artifact

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Metadata is the bookkeeping block stored under the "_metadata" key of every
// artifact alongside the converted demographic fields.
type Metadata struct {
	GeneratedAt      time.Time       `json:"generated_at"`
	SentAt           *time.Time      `json:"sent_at,omitempty"`
	Source           string          `json:"source"`
	PatientNameFull  string          `json:"patient_name_full"`
	ExtractionStatus string          `json:"extraction_status"`
	Expired          bool            `json:"expired"`
	ExpiredAt        *time.Time      `json:"expired_at,omitempty"`
	RawExtractedData json.RawMessage `json:"raw_extracted_data,omitempty"`
}

// Store writes and updates artifact files inside a single output directory.
type Store struct {
	dir string
}

func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the output directory.
func (s *Store) Dir() string { return s.dir }

var nameReplacer = strings.NewReplacer(", ", "_", ",", "_", " ", "_", "/", "-")

// Filename builds the artifact file name for a patient and collection time,
// LAST_FIRST_<timestamp>.json.
func Filename(patientName string, at time.Time) string {
	return fmt.Sprintf("%s_%s.json", nameReplacer.Replace(patientName), at.Format("20060102_150405"))
}

// Path returns the absolute artifact path for a patient and collection time.
func (s *Store) Path(patientName string, at time.Time) string {
	return filepath.Join(s.dir, Filename(patientName, at))
}

// Write creates the artifact for one converted extraction and returns its
// path. payload holds the normalized demographic fields; meta is embedded
// under "_metadata".
func (s *Store) Write(patientName string, at time.Time, payload map[string]any, meta Metadata) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("artifact: create output dir: %w", err)
	}
	doc := make(map[string]any, len(payload)+1)
	for k, v := range payload {
		doc[k] = v
	}
	doc["_metadata"] = meta

	path := s.Path(patientName, at)
	if err := writeJSON(path, doc); err != nil {
		return "", err
	}
	return path, nil
}

// MarkSent stamps sent_at in the artifact's metadata.
func (s *Store) MarkSent(path string, at time.Time) error {
	return s.updateMetadata(path, func(meta map[string]any) {
		meta["sent_at"] = at.Format(time.RFC3339Nano)
	})
}

// MarkExpired rewrites the artifact in place with expired=true and the expiry
// timestamp. Calling it on an already-expired artifact keeps the original
// expired_at.
func (s *Store) MarkExpired(path string, at time.Time) error {
	return s.updateMetadata(path, func(meta map[string]any) {
		if expired, _ := meta["expired"].(bool); expired {
			return
		}
		meta["expired"] = true
		meta["expired_at"] = at.Format(time.RFC3339Nano)
	})
}

func (s *Store) updateMetadata(path string, apply func(meta map[string]any)) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("artifact: read %s: %w", filepath.Base(path), err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("artifact: parse %s: %w", filepath.Base(path), err)
	}
	meta, ok := doc["_metadata"].(map[string]any)
	if !ok {
		meta = make(map[string]any)
		doc["_metadata"] = meta
	}
	apply(meta)
	return writeJSON(path, doc)
}

func writeJSON(path string, doc map[string]any) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("artifact: marshal %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("artifact: write %s: %w", filepath.Base(path), err)
	}
	return nil
}
