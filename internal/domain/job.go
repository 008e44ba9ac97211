// Package domain holds the GORM-mapped row types shared by the queue and
// control gateways.
package domain

import (
	"time"

	"gorm.io/datatypes"
)

// Job statuses, per spec §3. pending -> running is the only claim
// transition; running -> {done, failed} is terminal.
const (
	StatusPending = "pending"
	StatusRunning = "running"
	StatusDone    = "done"
	StatusFailed  = "failed"
)

// Job types currently understood by the registry (spec §3).
const (
	JobTypeComparippson = "comparippson"
	JobTypeClusterBlast = "clusterblast"
)

// Job is one row of asdb_jobs.jobs. Id is caller-supplied (an external
// producer inserts pending rows) and doubles as the sandbox container
// name, so it must satisfy the container runtime's identifier grammar
// (validated before the sandbox is launched, see internal/jobs/sandbox).
type Job struct {
	ID             string         `gorm:"column:id;primaryKey" json:"id"`
	JobType        string         `gorm:"column:jobtype" json:"jobtype"`
	Status         string         `gorm:"column:status" json:"status"`
	Runner         string         `gorm:"column:runner" json:"runner"`
	SubmittedDate  time.Time      `gorm:"column:submitted_date" json:"submitted_date"`
	Data           datatypes.JSON `gorm:"column:data" json:"data"`
	Results        datatypes.JSON `gorm:"column:results" json:"results"`
	Version        int            `gorm:"column:version" json:"version"`
}

func (Job) TableName() string { return "asdb_jobs.jobs" }

// JobData is the minimal shape of Job.Data this runner cares about.
// Producers may store additional fields; they pass through untouched.
type JobData struct {
	Name     string `json:"name"`
	Sequence string `json:"sequence"`
}

// Control is the single per-runner control row (spec §3).
type Control struct {
	Name          string `gorm:"column:name;primaryKey" json:"name"`
	Status        string `gorm:"column:status" json:"status"`
	StopScheduled bool   `gorm:"column:stop_scheduled" json:"stop_scheduled"`
	Version       string `gorm:"column:version" json:"version"`
}

func (Control) TableName() string { return "asdb_jobs.controls" }
