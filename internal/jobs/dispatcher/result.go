package dispatcher

import (
	"encoding/json"

	"gorm.io/datatypes"

	"github.com/antismash/asdb-jobs/internal/domain"
)

// marshalFailure builds the {"status":"failed","error":...} shape used
// for every failed terminal result (spec §4.1, §4.6).
func marshalFailure(errText string) datatypes.JSON {
	raw, _ := json.Marshal(map[string]string{"status": "failed", "error": errText})
	return raw
}

// jobErrorText extracts the error string from a failed job's results
// for the notifier, falling back to an empty string if the shape is
// unexpected.
func jobErrorText(job *domain.Job) string {
	var parsed struct {
		Error string `json:"error"`
	}
	_ = json.Unmarshal(job.Results, &parsed)
	return parsed.Error
}
