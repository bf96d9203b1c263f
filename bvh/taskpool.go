package bvh

import "sync"

// A taskPool runs build tasks using a bounded number of workers. Tasks may
// push additional tasks while running.
type taskPool struct {
	sem chan struct{}
	wg  sync.WaitGroup
}

func newTaskPool(workers int) *taskPool {
	if workers < 1 {
		workers = 1
	}
	return &taskPool{sem: make(chan struct{}, workers)}
}

// Queue a task for execution.
func (p *taskPool) push(task func()) {
	p.wg.Add(1)
	go func() {
		p.sem <- struct{}{}
		defer func() {
			<-p.sem
			p.wg.Done()
		}()
		task()
	}()
}

// Block until all queued tasks, including the tasks they pushed, complete.
func (p *taskPool) wait() {
	p.wg.Wait()
}
