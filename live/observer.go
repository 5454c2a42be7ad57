package live

import (
	"time"

	"github.com/headonpro/viktoria-wertheim-backend-sub022/models"
)

// QueueObserver pushes a TABLE_UPDATED message to the competition's room
// whenever a recalculation lands. The other queue events carry nothing a
// table viewer cares about.
type QueueObserver struct {
	hub *Hub
}

func NewQueueObserver(hub *Hub) *QueueObserver {
	return &QueueObserver{hub: hub}
}

func (o *QueueObserver) JobEnqueued(job *models.Job, depth int) {}

func (o *QueueObserver) JobStarted(job *models.Job, depth, inFlight int) {}

func (o *QueueObserver) JobSucceeded(job *models.Job, duration time.Duration, entries []*models.TableEntry, warnings int) {
	o.hub.BroadcastTableUpdate(job.CompetitionID, MessageTypeTableUpdated, entries)
}

func (o *QueueObserver) JobFailed(job *models.Job, duration time.Duration, err error, terminal bool) {}
