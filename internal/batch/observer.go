package batch

import "github.com/ternarybob/seoforge/internal/models"

// Observer receives notifications while a run drains. Callbacks run on worker
// goroutines and must not block for long.
type Observer interface {
	OnRunStarted(progress models.RunProgress)
	OnItemStarted(index int)
	OnItemFinished(item models.WorkItem)
	OnProgress(progress models.RunProgress)
	OnCredentialsInvalid(index int, err error)
	OnRunFinished(record models.RunRecord)
}

// NoopObserver ignores every notification. Embed it to implement a subset.
type NoopObserver struct{}

func (NoopObserver) OnRunStarted(models.RunProgress) {}
func (NoopObserver) OnItemStarted(int) {}
func (NoopObserver) OnItemFinished(models.WorkItem) {}
func (NoopObserver) OnProgress(models.RunProgress) {}
func (NoopObserver) OnCredentialsInvalid(int, error) {}
func (NoopObserver) OnRunFinished(models.RunRecord) {}

// MultiObserver fans notifications out to several observers in order
type MultiObserver []Observer

func (m MultiObserver) OnRunStarted(p models.RunProgress) {
	for _, o := range m {
		o.OnRunStarted(p)
	}
}

func (m MultiObserver) OnItemStarted(index int) {
	for _, o := range m {
		o.OnItemStarted(index)
	}
}

func (m MultiObserver) OnItemFinished(item models.WorkItem) {
	for _, o := range m {
		o.OnItemFinished(item)
	}
}

func (m MultiObserver) OnProgress(p models.RunProgress) {
	for _, o := range m {
		o.OnProgress(p)
	}
}

func (m MultiObserver) OnCredentialsInvalid(index int, err error) {
	for _, o := range m {
		o.OnCredentialsInvalid(index, err)
	}
}

func (m MultiObserver) OnRunFinished(r models.RunRecord) {
	for _, o := range m {
		o.OnRunFinished(r)
	}
}
