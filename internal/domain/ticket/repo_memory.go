package ticket

import (
	"context"
	"fmt"
	"sync"
)

// MemoryRepo keeps the queue in process memory. One mutex guards both the
// tickets and the id counter so ids and queue numbers advance together.
type MemoryRepo struct {
	mu      sync.Mutex
	tickets []Ticket
	nextID  int
}

// NewMemoryRepo returns a repository holding a copy of seed. The next id
// follows the highest seeded id.
func NewMemoryRepo(seed []Ticket) *MemoryRepo {
	r := &MemoryRepo{tickets: append([]Ticket(nil), seed...), nextID: 1}
	for _, t := range seed {
		if t.ID >= r.nextID {
			r.nextID = t.ID + 1
		}
	}
	return r
}

func (r *MemoryRepo) ListActive(_ context.Context) ([]Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Ticket, 0, len(r.tickets))
	for _, t := range r.tickets {
		if t.Active() {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *MemoryRepo) Create(_ context.Context, t *Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	queue := FirstQueueNumber - 1
	for _, existing := range r.tickets {
		queue = max(queue, existing.QueueNumber)
	}
	t.ID = r.nextID
	t.QueueNumber = queue + 1
	r.nextID++
	r.tickets = append(r.tickets, *t)
	return nil
}

func (r *MemoryRepo) UpdateStatus(_ context.Context, id int, status string) (*Ticket, string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.tickets {
		if r.tickets[i].ID == id {
			prev := r.tickets[i].Status
			r.tickets[i].Status = status
			t := r.tickets[i]
			return &t, prev, nil
		}
	}
	return nil, "", fmt.Errorf("%w: id %d", ErrNotFound, id)
}
