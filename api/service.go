package api

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"eproba-editor/domain"
	"eproba-editor/storage"
)

const maxSaveAttempts = 3

var errTaskNotFound = errors.New("task not found")

// mutation changes d in place and reports whether anything changed. It may run
// more than once when a save loses a race, each time against a fresh copy.
type mutation func(d *domain.Draft) (bool, error)

type editorService struct {
	store       Storage
	logger      *log.Logger
	perCategory int
	now         func() time.Time
	newID       func() string
}

func newEditorService(store Storage, logger *log.Logger, opts Options) *editorService {
	per := opts.DefaultTasksPerCategory
	if per <= 0 {
		per = defaultTasksPerCategory
	}
	return &editorService{
		store:       store,
		logger:      logger,
		perCategory: per,
		now:         time.Now,
		newID:       uuid.NewString,
	}
}

// open creates a draft, either blank or seeded from an existing document.
func (s *editorService) open(ctx context.Context, ownerID string, kind domain.DraftKind, doc *domain.WireDocument) (domain.Draft, error) {
	now := s.now().UTC()
	var d domain.Draft
	if doc != nil {
		d = domain.DraftFromWire(s.newID(), ownerID, kind, *doc, s.perCategory, now)
	} else {
		d = domain.NewDraft(s.newID(), ownerID, kind, s.perCategory, now)
	}
	if err := d.ValidateLimits(); err != nil {
		return domain.Draft{}, err
	}
	return s.store.CreateDraft(ctx, d)
}

// mutate runs load, apply and save, reloading and reapplying fn when the
// stored draft changed underneath.
func (s *editorService) mutate(ctx context.Context, m *editorRequestMetrics, ownerID, draftID string, fn mutation) (domain.Draft, bool, error) {
	for attempt := 1; ; attempt++ {
		loadStart := time.Now()
		d, err := s.store.FetchDraft(ctx, ownerID, draftID)
		m.ObserveLoad(time.Since(loadStart))
		if err != nil {
			m.Fail("load", err)
			return domain.Draft{}, false, err
		}

		applyStart := time.Now()
		changed, err := fn(&d)
		m.ObserveApply(time.Since(applyStart))
		if err != nil {
			m.Fail("apply", err)
			return domain.Draft{}, false, err
		}
		if !changed {
			return d, false, nil
		}
		d.UpdatedAt = s.now().UTC()

		saveStart := time.Now()
		saved, err := s.store.SaveDraft(ctx, d)
		m.ObserveSave(time.Since(saveStart))
		if err == nil {
			return saved, true, nil
		}
		if !errors.Is(err, storage.ErrConcurrencyConflict) || attempt >= maxSaveAttempts {
			m.Fail("save", err)
			return domain.Draft{}, false, err
		}
		s.logger.WithFields(log.Fields{
			"draft":   draftID,
			"attempt": attempt,
		}).Debug("draft save conflict; retrying")
	}
}

// reorderTasks adapts an ordering operation to a mutation that reports a
// change only when a task moved or changed category.
func reorderTasks(op func([]domain.Task) []domain.Task) mutation {
	return func(d *domain.Draft) (bool, error) {
		store := domain.NewTaskStore(d.Tasks)
		changed := store.Apply(op)
		d.Tasks = store.Tasks()
		return changed, nil
	}
}

// dropTasks routes ev through a drag monitor bound to the draft's task store.
func dropTasks(ev domain.DropEvent) mutation {
	return func(d *domain.Draft) (bool, error) {
		before := d.Tasks
		store := domain.NewTaskStore(d.Tasks)
		monitor := domain.NewDragMonitor()
		release := store.WatchDrops(monitor)
		monitor.Publish(ev)
		release()
		d.Tasks = store.Tasks()
		return !domain.Equal(before, d.Tasks), nil
	}
}
