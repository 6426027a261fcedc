package orchestrator

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/inkmill/descry/internal/description"
)

// fanSlot holds one processor's outcome. done is flipped only after the other
// fields are written, so a reader observing done sees a consistent slot.
type fanSlot struct {
	name  string
	descs []description.Description
	err   error
	done  atomic.Bool
}

// fanOut invokes every processor concurrently and joins at the context
// deadline: processors not finished by then are treated as "did not
// contribute" and the call proceeds with whatever completed. Each task is
// isolated; a failure in one never cancels or affects siblings.
func fanOut(ctx context.Context, run Run, onProgress func(ProgressEvent)) (map[string][]description.Description, []string) {
	emit := func(ev ProgressEvent) {
		if onProgress != nil {
			onProgress(ev)
		}
	}

	slots := make([]fanSlot, len(run.Processors))
	g := new(errgroup.Group)

	for i, p := range run.Processors {
		i, p := i, p
		slots[i].name = p.Name()
		emit(ProgressEvent{Processor: p.Name(), Status: ProgressPending})

		g.Go(func() error {
			emit(ProgressEvent{Processor: p.Name(), Status: ProgressWorking})
			descs, err := p.Extract(ctx, run.Text, run.ChapterID)
			slots[i].descs = descs
			slots[i].err = err
			slots[i].done.Store(true)
			if err != nil {
				emit(ProgressEvent{Processor: p.Name(), Status: ProgressFailed, Message: err.Error()})
			} else {
				emit(ProgressEvent{Processor: p.Name(), Status: ProgressComplete})
			}
			// Failures are absorbed here so siblings keep running.
			return nil
		})
	}

	waitDone := make(chan struct{})
	go func() {
		_ = g.Wait()
		close(waitDone)
	}()

	// Fan-in join: honor cancellation and the per-call deadline, keeping
	// whatever finished in time.
	select {
	case <-waitDone:
	case <-ctx.Done():
	}

	perProcessor := make(map[string][]description.Description, len(slots))
	used := make([]string, 0, len(slots))
	for i := range slots {
		s := &slots[i]
		if !s.done.Load() || s.err != nil {
			continue
		}
		perProcessor[s.name] = s.descs
		used = append(used, s.name)
	}
	return perProcessor, used
}
