package systems

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/spaghettifunk/lumen/engine/core"
)

// MaxJoinBatch is the largest number of jobs joined by a single wait in RunBatched.
const MaxJoinBatch = 64

/**
 * @brief Describes a job to be run by a worker.
 */
type JobTask struct {
	/** @brief Identifies the job in logs. Assigned on submit when zero. */
	ID uuid.UUID
	/** @brief Invoked on a worker goroutine. Required. */
	OnStart func() error
	/** @brief Invoked on the worker after OnStart succeeded. Optional. */
	OnComplete func()
	/** @brief Invoked on the worker after OnStart failed. Optional. */
	OnFailure func(err error)

	done *sync.WaitGroup
}

type JobSystem struct {
	numWorkers int
	jobQueue   chan JobTask
	wg         sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

var ErrNoWorkers = fmt.Errorf("attempting to create worker pool with less than 1 worker")
var ErrNegativeChannelSize = fmt.Errorf("attempting to create worker pool with a negative channel size")
var ErrJobSystemClosed = errors.New("job system already shut down")

func NewJobSystem(numWorkers int, channelSize int) (*JobSystem, error) {
	if numWorkers <= 0 {
		return nil, ErrNoWorkers
	}
	if channelSize < 0 {
		return nil, ErrNegativeChannelSize
	}

	jq := make(chan JobTask, channelSize)
	js := &JobSystem{
		numWorkers: numWorkers,
		jobQueue:   jq,
	}

	js.start()

	return js, nil
}

func (js *JobSystem) start() {
	for i := 0; i < js.numWorkers; i++ {
		js.wg.Add(1)
		go func() {
			defer js.wg.Done()
			for job := range js.jobQueue {
				js.run(job)
			}
		}()
	}
}

func (js *JobSystem) run(job JobTask) {
	if job.done != nil {
		defer job.done.Done()
	}
	if err := job.OnStart(); err != nil {
		core.LogWarn("job %s failed: %s", job.ID, err)
		if job.OnFailure != nil {
			job.OnFailure(err)
		}
		return
	}
	if job.OnComplete != nil {
		job.OnComplete()
	}
}

func (js *JobSystem) Workers() int {
	return js.numWorkers
}

/**
 * @brief Shuts the job system down. Queued jobs still run before it returns.
 */
func (js *JobSystem) Shutdown() error {
	js.mu.Lock()
	if js.closed {
		js.mu.Unlock()
		return nil
	}
	js.closed = true
	close(js.jobQueue)
	js.mu.Unlock()

	js.wg.Wait()
	return nil
}

/**
 * @brief Submits the provided job to be queued for execution.
 * @param jt The description of the job to be executed.
 */
func (js *JobSystem) Submit(jt JobTask) error {
	if jt.OnStart == nil {
		return fmt.Errorf("job %s has no entry point", jt.ID)
	}
	if jt.ID == uuid.Nil {
		jt.ID = uuid.New()
	}

	js.mu.RLock()
	defer js.mu.RUnlock()
	if js.closed {
		return ErrJobSystemClosed
	}
	js.jobQueue <- jt
	return nil
}

// RunBatched submits tasks in groups of at most batchSize and waits for each
// group to finish before starting the next one. It returns once every task has
// run. Task failures are reported through OnFailure, not the returned error.
func (js *JobSystem) RunBatched(tasks []JobTask, batchSize int) error {
	if batchSize <= 0 || batchSize > MaxJoinBatch {
		batchSize = MaxJoinBatch
	}
	for start := 0; start < len(tasks); start += batchSize {
		end := start + batchSize
		if end > len(tasks) {
			end = len(tasks)
		}

		var batch sync.WaitGroup
		for i := start; i < end; i++ {
			t := tasks[i]
			t.done = &batch
			batch.Add(1)
			if err := js.Submit(t); err != nil {
				batch.Done()
				batch.Wait()
				return err
			}
		}
		batch.Wait()
	}
	return nil
}
