package form

import (
	"encoding/json"

	"github.com/amirhf/imageSearch/services/search-web/errs"
	"github.com/amirhf/imageSearch/services/search-web/models"
	"github.com/amirhf/imageSearch/services/search-web/picker"
	"github.com/amirhf/imageSearch/services/search-web/schema"
)

type Status string

const (
	StatusIdle      Status = "idle"
	StatusPending   Status = "pending"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// RequestState is the lifecycle of the form's single request. Result is set
// only when Succeeded and Err only when Failed.
type RequestState struct {
	Status Status
	Result *models.SearchResult
	Err    error
}

func (s RequestState) Pending() bool {
	return s.Status == StatusPending
}

func (s RequestState) MarshalJSON() ([]byte, error) {
	out := struct {
		Status    Status               `json:"status"`
		Result    *models.SearchResult `json:"result,omitempty"`
		Error     string               `json:"error,omitempty"`
		ErrorKind errs.Kind            `json:"error_kind,omitempty"`
	}{Status: s.Status, Result: s.Result}
	if s.Err != nil {
		out.Error = errs.Message(s.Err)
		out.ErrorKind = errs.KindOf(s.Err)
	}
	return json.Marshal(out)
}

// Snapshot is a consistent copy of everything the form holds.
type Snapshot struct {
	Version uint64                  `json:"version"`
	Fields  schema.Fields           `json:"fields"`
	Errors  schema.ValidationErrors `json:"errors,omitempty"`
	Picker  picker.State            `json:"picker"`
	State   RequestState            `json:"request"`
}

// CanSubmit reports whether the submit control is enabled.
func (s Snapshot) CanSubmit() bool {
	return !s.State.Pending()
}
