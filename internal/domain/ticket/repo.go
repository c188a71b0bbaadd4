package ticket

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("ticket not found")

type Repository interface {
	// ListActive returns every ticket not yet completed, in issue order.
	ListActive(ctx context.Context) ([]Ticket, error)
	// Create assigns the next id and queue number to t and stores it.
	Create(ctx context.Context, t *Ticket) error
	// UpdateStatus sets the status of ticket id and returns the updated
	// ticket along with its previous status.
	UpdateStatus(ctx context.Context, id int, status string) (*Ticket, string, error)
}
