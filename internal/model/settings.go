package model

// WorkSettings holds the administrator-configured booking calendar:
// which weekdays accept sessions, the daily working window in whole
// 24-hour clock hours, and the buffer blocked after every session.
//
// A single current row (id=1) is authoritative; every update also
// appends to work_settings_history so older configurations remain
// auditable without an ORDER BY scan deciding which row wins.
type WorkSettings struct {
	WorkDays      []int `json:"work_days"`      // 0=Sunday .. 6=Saturday
	WorkStart     int   `json:"work_start"`     // first bookable hour (24h clock)
	WorkEnd       int   `json:"work_end"`       // last bookable hour (exclusive)
	BufferMinutes int   `json:"buffer_minutes"` // minutes blocked after each session
}

// DefaultWorkSettings is returned when no settings row has ever been
// saved: Monday–Friday, 9:00–17:00, one hour between sessions.
func DefaultWorkSettings() WorkSettings {
	return WorkSettings{
		WorkDays:      []int{1, 2, 3, 4, 5},
		WorkStart:     9,
		WorkEnd:       17,
		BufferMinutes: 60,
	}
}
