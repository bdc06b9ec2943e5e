package cron

import (
	"context"
	"strings"
)

// Job is back office housekeeping the worker runs every tick, like publishing
// stock gauges or clearing expired reset codes. Name labels the job in logs
// and in pos_job_runs_total.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Registry is the worker's job list. Jobs run in the order they were added and
// a name can only be taken once, since the metric label must stay unique.
type Registry struct {
	jobs  []Job
	names map[string]struct{}
}

func NewRegistry(jobs ...Job) *Registry {
	r := &Registry{names: make(map[string]struct{})}
	for _, job := range jobs {
		r.Register(job)
	}
	return r
}

// Register reports whether job was added. Nil jobs and repeated names are ignored.
func (r *Registry) Register(job Job) bool {
	if job == nil {
		return false
	}
	if r.names == nil {
		r.names = make(map[string]struct{})
	}
	name := strings.TrimSpace(job.Name())
	if _, taken := r.names[name]; taken {
		return false
	}
	r.names[name] = struct{}{}
	r.jobs = append(r.jobs, job)
	return true
}

// Jobs is a snapshot; callers may modify it freely.
func (r *Registry) Jobs() []Job {
	return append([]Job(nil), r.jobs...)
}
