package matching

import (
	"encoding/json"

	"ownership/internal/fingerprint"
	"ownership/internal/simhash"
)

// Status is the overall classification of a request.
type Status string

const (
	StatusUnique    Status = "unique"
	StatusSimilar   Status = "similar"
	StatusDuplicate Status = "duplicate"
)

// Statuses lists every verdict status in display order.
func Statuses() []Status {
	return []Status{StatusUnique, StatusSimilar, StatusDuplicate}
}

// MatchType says how a match was found.
type MatchType string

const (
	MatchExact   MatchType = "exact"
	MatchSimilar MatchType = "similar"
)

// Content is raw input the engine should classify and digest itself.
type Content struct {
	Filename string `json:"filename,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
	Data     []byte `json:"data,omitempty"`
	// Text, when set, is used instead of Data for text and code.
	Text string `json:"text,omitempty"`
}

// Request asks whether a fingerprint matches anything already indexed. Either
// IdentityHash and Category are supplied, or Content is set and the engine
// derives them.
type Request struct {
	IdentityHash string               `json:"identityHash,omitempty"`
	SimDigest    simhash.Digest       `json:"simDigest"`
	Category     fingerprint.Category `json:"contentCategory,omitempty"`
	Owner        string               `json:"ownerRef,omitempty"`
	Content      *Content             `json:"content,omitempty"`
}

// Match is one indexed record related to the request.
type Match struct {
	RecordID   string               `json:"recordId"`
	Confidence float64              `json:"confidence"`
	MatchType  MatchType            `json:"matchType"`
	Owner      fingerprint.OwnerRef `json:"ownerRef"`
	Distance   int                  `json:"distance"`
}

// Verdict is the engine's answer for one request. Matches are ordered by
// descending confidence, then record age, then record ID.
type Verdict struct {
	Status               Status  `json:"status"`
	Matches              []Match `json:"matches"`
	TotalMatches         int     `json:"totalMatches"`
	ProcessingTimeMicros int64   `json:"processingTimeMicros"`
}

// BatchItem holds exactly one of Verdict or Err.
type BatchItem struct {
	Verdict *Verdict
	Err     error
}

type batchItemError struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// MarshalJSON renders the verdict itself, or an {error, kind} object.
func (b BatchItem) MarshalJSON() ([]byte, error) {
	if b.Err != nil {
		return json.Marshal(batchItemError{Error: b.Err.Error(), Kind: fingerprint.Kind(b.Err)})
	}
	return json.Marshal(b.Verdict)
}

// BatchResult is the ordered outcome of CheckBatch.
type BatchResult struct {
	TotalRequests        int         `json:"totalRequests"`
	Results              []BatchItem `json:"results"`
	ProcessingTimeMicros int64       `json:"processingTimeMicros"`
}

// Failed counts items that ended in an error.
func (b BatchResult) Failed() int {
	n := 0
	for _, item := range b.Results {
		if item.Err != nil {
			n++
		}
	}
	return n
}

// Stats is a point-in-time view of the engine and its index.
type Stats struct {
	TotalRecords  int                          `json:"totalRecords"`
	PerCategory   map[fingerprint.Category]int `json:"perCategoryCounts"`
	VerdictCounts map[Status]int64             `json:"verdictCounts"`
	Errors        int64                        `json:"errors"`
}
