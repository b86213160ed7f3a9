/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package withdrawer

import (
	"sort"
	"sync"
	"time"

	"github.com/lorenzopapa2/withdrawer/model"
)

const taskIDLength = 8

// Registry holds the in-memory state of batch and smart tasks. Only the
// worker that owns a task mutates its entry.
type Registry struct {
	mu    sync.RWMutex
	tasks map[string]*model.Task
	newID func() string
	now   func() time.Time
}

func NewRegistry() *Registry {
	return &Registry{
		tasks: make(map[string]*model.Task),
		newID: func() string { return model.ShortID(taskIDLength) },
		now:   time.Now,
	}
}

// Create registers a PROCESSING task with a fresh id.
func (r *Registry) Create(kind model.TaskKind, total int) model.Task {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.newID()
	for {
		if _, taken := r.tasks[id]; !taken {
			break
		}
		id = r.newID()
	}

	now := r.now()
	task := &model.Task{
		TaskID:    id,
		Kind:      kind,
		Total:     total,
		Status:    model.TaskProcessing,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.tasks[id] = task
	return *task
}

// Get returns a snapshot of the task.
func (r *Registry) Get(id string) (model.Task, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	task, ok := r.tasks[id]
	if !ok {
		return model.Task{}, false
	}
	return *task, true
}

// List returns snapshots of every task, newest first.
func (r *Registry) List() []model.Task {
	r.mu.RLock()
	tasks := make([]model.Task, 0, len(r.tasks))
	for _, t := range r.tasks {
		tasks = append(tasks, *t)
	}
	r.mu.RUnlock()

	sort.Slice(tasks, func(i, j int) bool {
		if tasks[i].CreatedAt.Equal(tasks[j].CreatedAt) {
			return tasks[i].TaskID < tasks[j].TaskID
		}
		return tasks[i].CreatedAt.After(tasks[j].CreatedAt)
	})
	return tasks
}

// markItem counts one attempted item. It refuses to count past total or to
// touch a finished task.
func (r *Registry) markItem(id string, ok bool) (model.Task, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, found := r.tasks[id]
	if !found || task.Status != model.TaskProcessing || task.Attempted() >= task.Total {
		return model.Task{}, false
	}
	if ok {
		task.Completed++
	} else {
		task.Failed++
	}
	task.UpdatedAt = r.now()
	return *task, true
}

// finish moves a PROCESSING task to its final status.
func (r *Registry) finish(id string, status model.TaskStatus) (model.Task, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, found := r.tasks[id]
	if !found || task.Status != model.TaskProcessing {
		return model.Task{}, false
	}
	task.Status = status
	task.UpdatedAt = r.now()
	return *task, true
}
