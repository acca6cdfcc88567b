package services

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/senyabanana/assignment-desk/internal/models"
)

// TrackedSource перечисляет проекты, за которыми нужно следить, и
// выгружает те, что давно не открывали.
type TrackedSource interface {
	Tracked() []TrackedProject
	EvictIdle(ctx context.Context) int
}

// Watcher периодически перезапрашивает проекты с открытыми мастерами и
// публикует AssignmentEvent, когда бэкенд закрепляет исполнителя.
type Watcher struct {
	market   Marketplace
	source   TrackedSource
	interval time.Duration
	logger   *logrus.Logger
	now      func() time.Time

	mu          sync.Mutex
	subscribers []func(models.AssignmentEvent)

	wg       sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewWatcher создает новый экземпляр Watcher.
func NewWatcher(market Marketplace, source TrackedSource, interval time.Duration, logger *logrus.Logger) *Watcher {
	return &Watcher{
		market:   market,
		source:   source,
		interval: interval,
		logger:   logger,
		now:      time.Now,
		stopChan: make(chan struct{}),
	}
}

// Subscribe добавляет получателя событий.
func (w *Watcher) Subscribe(fn func(models.AssignmentEvent)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.subscribers = append(w.subscribers, fn)
}

// Start запускает опрос в отдельной горутине.
func (w *Watcher) Start(ctx context.Context) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		w.logger.Infof("Event ID: WATCHER_STARTED, Description: polling every %s", w.interval)
		for {
			select {
			case <-ctx.Done():
				return
			case <-w.stopChan:
				return
			case <-ticker.C:
				w.Poll(ctx)
			}
		}
	}()
}

// Stop останавливает опрос и ждет завершения текущего прохода.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() { close(w.stopChan) })
	w.wg.Wait()
	w.logger.Info("Event ID: WATCHER_STOPPED, Description: watcher stopped")
}

// Poll проверяет каждый отслеживаемый проект один раз и возвращает
// количество опубликованных событий.
func (w *Watcher) Poll(ctx context.Context) int {
	w.source.EvictIdle(ctx)

	seen := make(map[string]bool)
	published := 0
	for _, t := range w.source.Tracked() {
		if seen[t.ProjectID] {
			continue
		}
		seen[t.ProjectID] = true

		project, err := w.market.GetProject(ctx, t.Caller, t.ProjectID)
		if err != nil {
			w.logger.WithField("project", t.ProjectID).Warnf("Event ID: WATCHER_FETCH_FAILED, Description: %v", err)
			continue
		}
		if !project.IsAssigned() {
			continue
		}
		w.publish(models.AssignmentEvent{
			ProjectID:           t.ProjectID,
			AssignedFreelancers: project.AssignedFreelancers,
			ObservedAt:          w.now().UTC(),
		})
		published++
	}
	return published
}

func (w *Watcher) publish(ev models.AssignmentEvent) {
	w.mu.Lock()
	subscribers := append(([]func(models.AssignmentEvent))(nil), w.subscribers...)
	w.mu.Unlock()
	for _, fn := range subscribers {
		fn(ev)
	}
}
