// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package rarity

import (
	"sync"
	"sync/atomic"
)

// throttle runs at most Max goroutines at a time and remembers the
// first error reported by any of them.
type throttle struct {
	Max       int
	wg        sync.WaitGroup
	ch        chan bool
	err       atomic.Value
	setupOnce sync.Once
	errorOnce sync.Once
}

func (t *throttle) Acquire() {
	t.setupOnce.Do(func() { t.ch = make(chan bool, t.Max) })
	t.wg.Add(1)
	t.ch <- true
}

func (t *throttle) Release() {
	t.wg.Done()
	<-t.ch
}

func (t *throttle) Report(err error) {
	if err != nil {
		t.errorOnce.Do(func() { t.err.Store(err) })
	}
}

func (t *throttle) Err() error {
	err, _ := t.err.Load().(error)
	return err
}

func (t *throttle) Wait() error {
	t.wg.Wait()
	return t.Err()
}

// Go calls f in a new goroutine once a slot is available, and
// reports its error.
func (t *throttle) Go(f func() error) {
	t.Acquire()
	go func() {
		defer t.Release()
		t.Report(f())
	}()
}

// computePool bounds the number of compute tasks running at once,
// across every caller of Run. Unlike throttle, one pool is shared by
// many independent fan-outs, each with its own barrier.
type computePool struct {
	slots chan struct{}
}

func newComputePool(size int) *computePool {
	if size < 1 {
		size = 1
	}
	return &computePool{slots: make(chan struct{}, size)}
}

// Run calls every task on the pool and returns when all of them have
// returned.
func (p *computePool) Run(tasks []func()) {
	var wg sync.WaitGroup
	wg.Add(len(tasks))
	for _, task := range tasks {
		task := task
		p.slots <- struct{}{}
		go func() {
			defer func() {
				<-p.slots
				wg.Done()
			}()
			task()
		}()
	}
	wg.Wait()
}
