package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"

	"github.com/antismash/asdb-jobs/internal/config"
	"github.com/antismash/asdb-jobs/internal/domain"
	"github.com/antismash/asdb-jobs/internal/jobs/joberr"
	"github.com/antismash/asdb-jobs/internal/jobs/sandbox"
	"github.com/antismash/asdb-jobs/internal/platform/logger"
)

// sandboxTimeout is the per-job wall-clock budget (spec §4.4, §6).
const sandboxTimeout = time.Hour

const containerImage = "docker.io/antismash/asdb-jobs:latest"

// payload unmarshals job.Data into the minimal shape every handler
// needs and builds the FASTA the sandboxed tool reads from stdin (spec
// §4.6 step 2).
func payload(job *domain.Job) (domain.JobData, string, error) {
	var data domain.JobData
	if err := json.Unmarshal(job.Data, &data); err != nil {
		return domain.JobData{}, "", joberr.InvalidJobData(fmt.Sprintf("unmarshal job data: %v", err))
	}
	if data.Name == "" || data.Sequence == "" {
		return domain.JobData{}, "", joberr.InvalidJobData("name and sequence are required")
	}
	fasta := fmt.Sprintf(">%s\n%s", data.Name, data.Sequence)
	return data, fasta, nil
}

// runSandboxed wraps sandbox.Run with the validation the spec requires
// before a job id is ever used as a container name.
func runSandboxed(ctx context.Context, log *logger.Logger, job *domain.Job, cmdline []string, stdin string) (sandbox.Outcome, []string, []string, error) {
	if err := sandbox.ValidateContainerName(job.ID); err != nil {
		return sandbox.InternalError, nil, nil, err
	}
	return sandbox.Run(ctx, log, cmdline, []byte(stdin), job.ID, sandboxTimeout)
}

// failJob marshals a terminal failure result (spec §4.6 step 4).
func failJob(job *domain.Job, errText string) {
	job.Status = domain.StatusFailed
	job.Results, _ = json.Marshal(map[string]string{"status": "failed", "error": errText})
}

// doneJob marshals a terminal success result with hits.
func doneJob(job *domain.Job, hits interface{}) error {
	raw, err := json.Marshal(map[string]interface{}{"hits": hits})
	if err != nil {
		return fmt.Errorf("marshal job results: %w", err)
	}
	job.Status = domain.StatusDone
	job.Results = datatypes.JSON(raw)
	return nil
}

func joinStderr(lines []string) string {
	return strings.Join(lines, "\n")
}
