package worker

import (
	"context"

	audit "petcare/pkg/platform/audit"
)

// FailureFunc is told about every entry the worker could not persist.
type FailureFunc func(entry audit.Entry, err error)

// Worker consumes audit entries from a channel and persists them. A failed
// append is reported to onFailure and the loop keeps going.
type Worker struct {
	store     audit.Store
	inbox     <-chan audit.Entry
	onFailure FailureFunc
	after     func(ctx context.Context, entry audit.Entry)
}

func NewWorker(store audit.Store, inbox <-chan audit.Entry, onFailure FailureFunc) *Worker {
	if onFailure == nil {
		onFailure = func(audit.Entry, error) {}
	}
	return &Worker{store: store, inbox: inbox, onFailure: onFailure}
}

// OnPersisted registers a hook run after each successful append (the Kafka
// mirror hangs off this).
func (w *Worker) OnPersisted(fn func(ctx context.Context, entry audit.Entry)) {
	w.after = fn
}

// Run drains the inbox until it is closed. Persistence uses ctx even after
// it is cancelled, so a closed inbox is always fully drained.
func (w *Worker) Run(ctx context.Context) {
	for entry := range w.inbox {
		w.Persist(ctx, entry)
	}
}

// Persist appends a single entry, reporting failures instead of returning them.
func (w *Worker) Persist(ctx context.Context, entry audit.Entry) bool {
	if err := w.store.Append(context.WithoutCancel(ctx), entry); err != nil {
		w.onFailure(entry, err)
		return false
	}
	if w.after != nil {
		w.after(ctx, entry)
	}
	return true
}
