package progress

// Update carries the run counters at the moment of the notification
type Update struct {
	RunID     string
	Processed int
	Total     int
	Status    string
}

// Notifier receives fire-and-forget run notifications. Implementations
// must not block the export loop; there is no delivery guarantee.
type Notifier interface {
	Started(Update)
	Progress(Update)
	Completed(Update)
}

// Nop is a Notifier that drops every notification
type Nop struct{}

func (Nop) Started(Update)   {}
func (Nop) Progress(Update)  {}
func (Nop) Completed(Update) {}

// Multi fans notifications out to several notifiers
type Multi []Notifier

func (m Multi) Started(u Update) {
	for _, n := range m {
		n.Started(u)
	}
}

func (m Multi) Progress(u Update) {
	for _, n := range m {
		n.Progress(u)
	}
}

func (m Multi) Completed(u Update) {
	for _, n := range m {
		n.Completed(u)
	}
}
