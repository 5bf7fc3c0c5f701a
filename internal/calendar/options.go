package calendar

type Header struct {
	Left   string
	Center string
	Right  string
}

// Options - настройки виджета календаря.
type Options struct {
	Header    Header
	Views     []string
	Editable  bool
	Droppable bool
	EventsURL string
}

func DefaultOptions() Options {
	return Options{
		Header: Header{
			Left:   "prev,next today",
			Center: "title",
			Right:  "month,agendaWeek,agendaDay",
		},
		Views:     []string{"month", "agendaWeek", "agendaDay"},
		Editable:  true,
		Droppable: true,
		EventsURL: "/fetch_tasks",
	}
}
