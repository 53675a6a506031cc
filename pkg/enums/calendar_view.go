package enums

// CalendarView is a calendar layout the UI may render. Week and month views
// are premium-gated.
type CalendarView string

const (
	CalendarViewDay   CalendarView = "day"
	CalendarViewWeek  CalendarView = "week"
	CalendarViewMonth CalendarView = "month"
)

// String implements fmt.Stringer.
func (v CalendarView) String() string {
	return string(v)
}
