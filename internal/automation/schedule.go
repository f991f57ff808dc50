package automation

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// NextSlot maps the Nth scheduled job of a run to a concrete publish time,
// rotating through the configured HH:MM slots and rolling over to the next
// calendar day once a day's slots are used up. Slots that already passed
// today are not skipped; the first jobs still land on today's slots.
func NextSlot(sequenceIndex int, slots []string, now time.Time) (time.Time, error) {
	if sequenceIndex < 0 {
		return time.Time{}, fmt.Errorf("sequence index must be non-negative, got %d", sequenceIndex)
	}
	if len(slots) == 0 {
		return time.Time{}, fmt.Errorf("at least one publish time is required")
	}

	day := sequenceIndex / len(slots)
	hour, minute, err := parseSlot(slots[sequenceIndex%len(slots)])
	if err != nil {
		return time.Time{}, err
	}

	base := now.AddDate(0, 0, day)
	return time.Date(base.Year(), base.Month(), base.Day(), hour, minute, 0, 0, now.Location()), nil
}

// ValidateSlots checks every configured publish time up front so a run never
// discovers a malformed slot halfway through the queue.
func ValidateSlots(slots []string) error {
	if len(slots) == 0 {
		return fmt.Errorf("at least one publish time is required")
	}
	for _, slot := range slots {
		if _, _, err := parseSlot(slot); err != nil {
			return err
		}
	}
	return nil
}

func parseSlot(slot string) (int, int, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(slot), ":")
	if !ok {
		return 0, 0, fmt.Errorf("invalid publish time %q: expected HH:MM", slot)
	}

	hour, err := strconv.Atoi(hh)
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid publish time %q: hour out of range", slot)
	}

	minute, err := strconv.Atoi(mm)
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid publish time %q: minute out of range", slot)
	}

	return hour, minute, nil
}
