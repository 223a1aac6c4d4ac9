package scheduler

// Status is the displayed timer state for a profile.
type Status string

// Timer statuses published to subscribers.
const (
	StatusRunning Status = "Running"
	StatusStopped Status = "Stopped"
)

// Event notifies subscribers that a profile's timer status changed or that a
// reconciliation pass completed. Subscribers use it to refresh displayed
// status and remaining time, not to learn per-record outcomes.
type Event struct {
	Profile string
	Status  Status
}

// Subscribe registers a new event subscriber and returns its channel plus an
// unsubscribe function. The channel is buffered; events are dropped for
// subscribers that fall behind rather than blocking the scheduler.
func (s *Scheduler) Subscribe() (<-chan Event, func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	id := s.nextSubID
	s.nextSubID++
	ch := make(chan Event, 16)
	s.subs[id] = ch

	unsubscribe := func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		if _, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(ch)
		}
	}

	return ch, unsubscribe
}

// publish delivers an event to every subscriber without blocking.
func (s *Scheduler) publish(name string, status Status) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	for _, ch := range s.subs {
		select {
		case ch <- Event{Profile: name, Status: status}:
		default:
		}
	}
}
