package execution

import "github.com/riverqueue/river"

// QueueMLTasks is the durable queue carrying prediction work. The worker
// binary consumes it with MaxWorkers=1, holding at most one unacknowledged
// message per process.
const QueueMLTasks = "ml_tasks"

// Features is the input block of a prediction message.
type Features struct {
	Input string `json:"input"`
}

// PredictArgs is the queue message for one prediction task. It carries
// everything the worker needs besides the task row itself. Uniqueness is
// keyed on the task id alone: a re-enqueue carries a fresh timestamp and
// must still collide with the original pending message.
type PredictArgs struct {
	TaskID    string   `json:"task_id" river:"unique"`
	Features  Features `json:"features"`
	Model     int32    `json:"model"`
	Timestamp string   `json:"timestamp"`
}

func (PredictArgs) Kind() string { return "ml_task" }

// InsertOpts routes prediction jobs onto the task queue and dedupes by
// args, so a reconciler re-enqueue of a task whose original message is
// still pending does not produce a second delivery.
func (PredictArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		Queue:      QueueMLTasks,
		UniqueOpts: river.UniqueOpts{ByArgs: true},
	}
}

// ReconcileArgs is the periodic job that re-enqueues stale waiting tasks.
type ReconcileArgs struct{}

func (ReconcileArgs) Kind() string { return "reconcile_waiting_tasks" }

func (ReconcileArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{UniqueOpts: river.UniqueOpts{ByArgs: true}}
}
