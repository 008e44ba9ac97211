package runtime

import (
	"context"

	"github.com/antismash/asdb-jobs/internal/config"
	"github.com/antismash/asdb-jobs/internal/domain"
	"github.com/antismash/asdb-jobs/internal/jobs/joberr"
	"github.com/antismash/asdb-jobs/internal/jobs/metadata"
	"github.com/antismash/asdb-jobs/internal/jobs/results"
	"github.com/antismash/asdb-jobs/internal/jobs/sandbox"
	"github.com/antismash/asdb-jobs/internal/platform/logger"
)

// ComparippsonHandler runs the comparippson blastp search and enriches
// hits with the static metadata table (spec §4.5, §6).
type ComparippsonHandler struct {
	Log      *logger.Logger
	Metadata *metadata.Metadata
}

func (h *ComparippsonHandler) Type() string { return domain.JobTypeComparippson }

func (h *ComparippsonHandler) Run(ctx context.Context, job *domain.Job, cfg *config.RunConfig) error {
	_, fasta, err := payload(job)
	if err != nil {
		return err
	}

	cmdline := []string{
		"podman", "run", "--detach=false", "--rm", "--interactive",
		"--volume", cfg.DBDir + ":/databases:ro",
		"--name", job.ID,
		containerImage,
		"blastp",
		"-num_threads", "4",
		"-db", "/databases/comparippson/asdb/3.9/cores.fa",
		"-outfmt", "6 qacc sacc nident qseq qstart qend qlen sseq sstart send slen",
	}

	outcome, stdout, stderr, err := runSandboxed(ctx, h.Log, job, cmdline, fasta)
	if err != nil {
		return err
	}

	switch outcome {
	case sandbox.Timeout:
		failJob(job, "timeout exceeded")
		return nil
	case sandbox.Failure:
		failJob(job, joinStderr(stderr))
		return nil
	}

	blasts, err := results.ParseBlast(stdout)
	if err != nil {
		return err
	}

	if h.Metadata == nil {
		return joberr.InvalidJobData("comparippson metadata not loaded")
	}

	hits, err := results.ComparippsonResults(blasts, h.Metadata)
	if err != nil {
		return err
	}

	return doneJob(job, hits)
}
