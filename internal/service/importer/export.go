package importer

import (
	"encoding/json"
	"fmt"
	"io"
)

// Record is one chunk as written by the corpus export. Metadata is a JSON
// encoded object.
type Record struct {
	Id       string `json:"id"`
	Content  string `json:"content"`
	Source   string `json:"source"`
	Metadata string `json:"metadata"`
}

type Export struct {
	TotalDocuments int      `json:"total_documents"`
	Documents      []Record `json:"documents"`
}

// VectorRecord is one precomputed embedding from a vector export.
type VectorRecord struct {
	Id       string         `json:"id"`
	Vector   []float32      `json:"vector"`
	Metadata map[string]any `json:"metadata"`
}

type VectorExport struct {
	Dimension    int            `json:"dimension"`
	TotalVectors int            `json:"total_vectors"`
	Vectors      []VectorRecord `json:"vectors"`
}

func DecodeExport(r io.Reader) (Export, error) {
	var export Export
	if err := json.NewDecoder(r).Decode(&export); err != nil {
		return Export{}, fmt.Errorf("decode documents export: %w", err)
	}

	for i, rec := range export.Documents {
		if len(rec.Id) == 0 {
			return Export{}, fmt.Errorf("document %d has no id", i)
		}
	}

	return export, nil
}

// DecodeVectorExport rejects vectors whose length disagrees with the declared
// dimension.
func DecodeVectorExport(r io.Reader) (VectorExport, error) {
	var export VectorExport
	if err := json.NewDecoder(r).Decode(&export); err != nil {
		return VectorExport{}, fmt.Errorf("decode vector export: %w", err)
	}

	for i, rec := range export.Vectors {
		if len(rec.Id) == 0 {
			return VectorExport{}, fmt.Errorf("vector %d has no id", i)
		}
		if export.Dimension > 0 && len(rec.Vector) != export.Dimension {
			return VectorExport{}, fmt.Errorf("vector %s has dimension %d, want %d", rec.Id, len(rec.Vector), export.Dimension)
		}
	}

	return export, nil
}
