package runtime

import (
	"context"

	"github.com/antismash/asdb-jobs/internal/config"
	"github.com/antismash/asdb-jobs/internal/domain"
	"github.com/antismash/asdb-jobs/internal/jobs/results"
	"github.com/antismash/asdb-jobs/internal/jobs/sandbox"
	"github.com/antismash/asdb-jobs/internal/platform/logger"
)

// ClusterBlastHandler runs the clusterblast diamond search (spec §4.5,
// §6). Unlike comparippson, its hits need no metadata enrichment.
type ClusterBlastHandler struct {
	Log *logger.Logger
}

func (h *ClusterBlastHandler) Type() string { return domain.JobTypeClusterBlast }

func (h *ClusterBlastHandler) Run(ctx context.Context, job *domain.Job, cfg *config.RunConfig) error {
	_, fasta, err := payload(job)
	if err != nil {
		return err
	}

	cmdline := []string{
		"podman", "run", "--detach=false", "--rm", "--interactive",
		"--volume", cfg.DBDir + ":/databases:ro",
		"--name", job.ID,
		containerImage,
		"diamond", "blastp",
		"--db", "/databases/clusterblast/proteins",
		"--compress", "0",
		"--max-target-seqs", "50",
		"--evalue", "1e-05",
		"--outfmt", "6", "qseqid", "sseqid", "nident", "qseq", "qstart", "qend", "qlen", "sseq", "sstart", "send", "slen",
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

	return doneJob(job, results.ClusterBlastResults(blasts))
}
