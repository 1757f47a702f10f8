package scheduler

import (
	"fmt"
	"time"

	"github.com/ark-network/raffle/internal/core/ports"
	"github.com/go-co-op/gocron"
)

type service struct {
	scheduler *gocron.Scheduler
}

func NewScheduler() ports.SchedulerService {
	svc := gocron.NewScheduler(time.UTC)
	return &service{svc}
}

func (s *service) Start() {
	s.scheduler.StartAsync()
}

func (s *service) Stop() {
	s.scheduler.Stop()
}

func (s *service) Now() time.Time {
	return time.Now()
}

func (s *service) ScheduleTask(interval time.Duration, immediate bool, task func()) error {
	if interval <= 0 {
		return fmt.Errorf("invalid task interval %s", interval)
	}

	var err error
	if immediate {
		_, err = s.scheduler.Every(interval).Do(task)
	} else {
		_, err = s.scheduler.Every(interval).WaitForSchedule().Do(task)
	}
	if err != nil {
		return fmt.Errorf("failed to schedule task: %s", err)
	}
	return nil
}

// ScheduleTaskOnce runs the task once at the given time, or right away if
// the time is already past.
func (s *service) ScheduleTaskOnce(at time.Time, task func()) error {
	delay := time.Until(at)

	var err error
	if delay < time.Millisecond {
		_, err = s.scheduler.Every(time.Hour).LimitRunsTo(1).Do(task)
	} else {
		_, err = s.scheduler.Every(delay).WaitForSchedule().LimitRunsTo(1).Do(task)
	}
	if err != nil {
		return fmt.Errorf("failed to schedule task: %s", err)
	}
	return nil
}
