package nexusmap

import (
	"fmt"

	"tidbyt.dev/nexusmap/model"
)

const (
	DefaultFirstHour  = 6
	DefaultLastHour   = 24
	DefaultWindowSize = 3
)

// The service day, 06:00 to midnight, in three hour windows.
func DefaultWindows() []model.Window {
	windows, _ := Windows(DefaultFirstHour, DefaultLastHour, DefaultWindowSize)
	return windows
}

// Windows of step hours, the first starting at start. The last
// window starts before end and may extend past it, as in
// range(start, end, step).
func Windows(start int, end int, step int) ([]model.Window, error) {
	if step <= 0 {
		return nil, fmt.Errorf("window step must be positive, got %d", step)
	}
	if start < 0 || end > 24 || start >= end {
		return nil, fmt.Errorf("invalid window range %d-%d", start, end)
	}

	windows := []model.Window{}
	for hour := start; hour < end; hour += step {
		windows = append(windows, model.Window{Start: hour, End: hour + step})
	}
	return windows, nil
}
