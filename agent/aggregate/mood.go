package aggregate

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	contractx "github.com/rishi-noob/soulsyncmain/agent/contract"
)

// DayQuestion is the check-in question whose answer becomes the mood intensity.
const DayQuestion = "day"

var dayRatings = map[string]int{
	"😃": 5,
	"🙂": 4,
	"😐": 3,
	"😔": 2,
	"😢": 1,
}

// MoodCheckIn classifies a daily check-in into a 1-5 MoodEntry dated now. The day
// rating is mandatory; nothing downstream runs without it. The remaining answers are
// kept verbatim as responses.
func MoodCheckIn(log contractx.MoodLog, now time.Time) (contractx.MoodEntry, error) {
	rating := strings.TrimSpace(log[DayQuestion])
	if rating == "" {
		return contractx.MoodEntry{}, fmt.Errorf("%w: please rate how your day was before submitting", contractx.ErrValidation)
	}

	intensity, ok := dayRatings[rating]
	if !ok {
		n, err := strconv.Atoi(rating)
		if err != nil || n < 1 || n > 5 {
			return contractx.MoodEntry{}, fmt.Errorf("%w: unknown day rating %q", contractx.ErrValidation, rating)
		}
		intensity = n
	}

	responses := make(map[string]any, len(log))
	for k, v := range log {
		if k == DayQuestion || strings.TrimSpace(v) == "" {
			continue
		}
		responses[k] = v
	}

	return contractx.MoodEntry{
		Date:      now.Format(time.DateOnly),
		Intensity: intensity,
		Responses: responses,
	}, nil
}
