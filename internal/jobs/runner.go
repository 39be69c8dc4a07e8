package jobs

import (
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
	cron "github.com/robfig/cron"
	"github.com/sirupsen/logrus"
)

// CronJob is a recurring background task with a cron schedule.
type CronJob interface {
	Schedule() string
	Run()
}

// TaskExecutor drives cron jobs, skipping a tick when the previous run of
// the same job is still in flight.
type TaskExecutor struct {
	cron        *cron.Cron
	jobs        []CronJob
	runningJobs mapset.Set[CronJob]
	mu          sync.Mutex
}

func NewTaskExecutor(jobs []CronJob) *TaskExecutor {
	return &TaskExecutor{
		cron:        cron.New(),
		jobs:        jobs,
		runningJobs: mapset.NewSet[CronJob](),
	}
}

// Run schedules the jobs; each runs in its own goroutine inside the cron.
func (t *TaskExecutor) Run() {
	for _, job := range t.jobs {
		err := t.cron.AddFunc(job.Schedule(), func() {
			t.mu.Lock()

			if t.runningJobs.Contains(job) {
				t.mu.Unlock()
				logrus.Warn("task is still running, skipping this tick")
				return
			}

			t.runningJobs.Add(job)
			t.mu.Unlock()

			defer func() {
				t.mu.Lock()
				defer t.mu.Unlock()
				t.runningJobs.Remove(job)
			}()

			job.Run()
		})

		if err != nil {
			logrus.Errorf("failed to add task to cron: %v", err)
			panic(err)
		}
	}

	t.cron.Start()
}

func (t *TaskExecutor) Stop() {
	logrus.Infof("stopping all tasks")
	t.cron.Stop()
}
