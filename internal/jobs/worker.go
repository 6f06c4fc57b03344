package jobs

import (
	"context"
	"log"
	"time"
)

// Task is one unit of recurring background work, such as a stale-profile
// refresh pass.
type Task interface {
	Run(ctx context.Context) error
}

// Worker drives a Task on a fixed interval until stopped. A failed pass is
// logged and the next tick runs as usual.
type Worker struct {
	task     Task
	interval time.Duration
	stopChan chan struct{}
	doneChan chan struct{}
}

// NewWorker creates a Worker that runs task every interval.
func NewWorker(task Task, interval time.Duration) *Worker {
	return &Worker{
		task:     task,
		interval: interval,
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}
}

// Start runs the tick loop. It blocks until the context is cancelled or
// Stop is called.
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	defer close(w.doneChan)

	log.Printf("background worker started, running every %v", w.interval)

	for {
		select {
		case <-ctx.Done():
			log.Println("background worker stopped: context cancelled")
			return
		case <-w.stopChan:
			log.Println("background worker stopped")
			return
		case <-ticker.C:
			if err := w.task.Run(ctx); err != nil {
				log.Printf("background pass failed: %v", err)
			}
		}
	}
}

// Stop signals the loop to exit and waits for the current pass to finish.
func (w *Worker) Stop() {
	close(w.stopChan)
	<-w.doneChan
	log.Println("background worker shut down")
}
