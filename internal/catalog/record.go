package catalog

import "time"

// Record is one entry of the compatibility catalog.
type Record struct {
	ID                  int64     `json:"id"`
	ModelName           string    `json:"modelName"`
	CompatibleModels    []string  `json:"compatibleModels"`
	IsVIP               bool      `json:"isVip"`
	IsCompatible        bool      `json:"isCompatible"`
	PresentationContent string    `json:"presentationContent,omitempty"`
	CreatedAt           time.Time `json:"createdAt"`
	UpdatedAt           time.Time `json:"updatedAt"`
}

// HasPresentationContent reports whether custom content is attached.
func (r Record) HasPresentationContent() bool {
	return r.PresentationContent != ""
}

// Batch is the outcome of ingesting one import file.
type Batch struct {
	Records           []Record
	TotalProcessed    int // Rows read from the stream, accepted or not
	Rejected          int // Rows dropped by NormalizeRow
	DuplicatesSkipped int // Rows dropped because the model name was already seen
}

// Accepted returns the number of records kept for the catalog.
func (b *Batch) Accepted() int {
	return len(b.Records)
}
