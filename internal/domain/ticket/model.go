package ticket

// Ticket statuses. Every status except completed counts as active.
const (
	StatusWaiting   = "waiting"
	StatusCalled    = "called"
	StatusInService = "in-service"
	StatusCompleted = "completed"
)

var Statuses = []string{StatusWaiting, StatusCalled, StatusInService, StatusCompleted}

const (
	DefaultDepartment = "Emergency Room"
	IssueTimeLayout   = "2006-01-02 15:04"
	FirstQueueNumber  = 101

	MinEstimatedWait = 15
	MaxEstimatedWait = 60
)

type Ticket struct {
	ID                int    `json:"id"`
	QueueNumber       int    `json:"queueNumber"`
	PatientName       string `json:"patientName"`
	Department        string `json:"department"`
	TriageLevel       int    `json:"triageLevel"`
	Status            string `json:"status"`
	IssueTime         string `json:"issueTime"`
	EstimatedWaitTime int    `json:"estimatedWaitTime"`
}

// Active reports whether the ticket still shows on the queue display.
func (t Ticket) Active() bool {
	return t.Status != StatusCompleted
}

// CreateRequest is the body of POST /tickets.
type CreateRequest struct {
	PatientName *string `json:"patientName"`
	Department  *string `json:"department"`
	TriageLevel *int    `json:"triageLevel"`
}

type statusBody struct {
	Status string `json:"status"`
}

// StatusChange is the payload of the ticket.status_changed event.
type StatusChange struct {
	Ticket Ticket `json:"ticket"`
	From   string `json:"from"`
}

// Seed returns the tickets the queue starts with.
func Seed() []Ticket {
	return []Ticket{
		{ID: 1, QueueNumber: 101, PatientName: "John Doe", Department: DefaultDepartment, TriageLevel: 2, Status: StatusWaiting, IssueTime: "2025-11-09 14:05", EstimatedWaitTime: 25},
		{ID: 2, QueueNumber: 102, PatientName: "Jane Smith", Department: DefaultDepartment, TriageLevel: 4, Status: StatusWaiting, IssueTime: "2025-11-09 14:10", EstimatedWaitTime: 45},
		{ID: 3, QueueNumber: 103, PatientName: "Peter Jones", Department: DefaultDepartment, TriageLevel: 3, Status: StatusInService, IssueTime: "2025-11-09 14:12", EstimatedWaitTime: 30},
	}
}
