package ipc

import (
	"ownership/internal/daemon"
	"ownership/internal/fingerprint"
	"ownership/internal/ingest"
	"ownership/internal/matching"
)

// Failure is an error flattened for the wire.
type Failure struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func failureFrom(err error) *Failure {
	if err == nil {
		return nil
	}
	return &Failure{Error: err.Error(), Kind: fingerprint.Kind(err)}
}

// Err rebuilds a classified error. A nil Failure yields nil.
func (f *Failure) Err() error {
	if f == nil {
		return nil
	}
	return &RemoteError{Message: f.Error, Kind: f.Kind}
}

// RemoteError is an error reported by the daemon.
type RemoteError struct {
	Message string
	Kind    string
}

func (e *RemoteError) Error() string { return e.Message }

// Unwrap exposes the fingerprint marker matching Kind, if any.
func (e *RemoteError) Unwrap() error { return fingerprint.MarkerForKind(e.Kind) }

// CheckRequest carries a batch of fingerprint queries.
type CheckRequest struct {
	Requests []matching.Request `json:"requests"`
}

// CheckItem is one batch entry: exactly one of Verdict or Failure is set.
type CheckItem struct {
	Verdict *matching.Verdict `json:"verdict,omitempty"`
	Failure *Failure          `json:"failure,omitempty"`
}

// CheckResponse mirrors matching.BatchResult in a decodable form.
type CheckResponse struct {
	TotalRequests        int         `json:"totalRequests"`
	Results              []CheckItem `json:"results"`
	ProcessingTimeMicros int64       `json:"processingTimeMicros"`
}

func checkResponseFrom(result matching.BatchResult) CheckResponse {
	resp := CheckResponse{
		TotalRequests:        result.TotalRequests,
		Results:              make([]CheckItem, len(result.Results)),
		ProcessingTimeMicros: result.ProcessingTimeMicros,
	}
	for i, item := range result.Results {
		resp.Results[i] = CheckItem{Verdict: item.Verdict, Failure: failureFrom(item.Err)}
	}
	return resp
}

// BatchResult converts the response back into the engine's shape.
func (r CheckResponse) BatchResult() matching.BatchResult {
	out := matching.BatchResult{
		TotalRequests:        r.TotalRequests,
		Results:              make([]matching.BatchItem, len(r.Results)),
		ProcessingTimeMicros: r.ProcessingTimeMicros,
	}
	for i, item := range r.Results {
		out.Results[i] = matching.BatchItem{Verdict: item.Verdict, Err: item.Failure.Err()}
	}
	return out
}

// FileRequest names a file on the daemon host.
type FileRequest struct {
	Path string `json:"path"`
}

// RegisterRequest registers a file on the daemon host.
type RegisterRequest struct {
	Path  string `json:"path"`
	Owner string `json:"owner,omitempty"`
}

// OutcomeResponse wraps a pipeline outcome or the reason it failed.
type OutcomeResponse struct {
	Outcome ingest.Outcome `json:"outcome"`
	Failure *Failure       `json:"failure,omitempty"`
}

// StatsRequest requests engine statistics.
type StatsRequest struct{}

// StatsResponse returns engine statistics.
type StatsResponse struct {
	Stats matching.Stats `json:"stats"`
}

// StatusRequest requests daemon status.
type StatusRequest struct {
	IncludeChecks bool `json:"includeChecks"`
}

// StatusResponse returns daemon status.
type StatusResponse struct {
	Status daemon.Status `json:"status"`
}

// ReloadRequest asks the daemon to rebuild its index from the record store.
type ReloadRequest struct{}

// ReloadResponse reports how many records were loaded.
type ReloadResponse struct {
	Records int `json:"records"`
}

// TestNotificationRequest triggers a test notification.
type TestNotificationRequest struct{}

// TestNotificationResponse reports notification result.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}
