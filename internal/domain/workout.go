package domain

type WorkoutRequest struct {
	Metrics        BodyMetrics       `json:"metrics" validate:"required"`
	Goal           string            `json:"goal" validate:"required"`
	Experience     string            `json:"experience" validate:"omitempty,oneof=beginner intermediate advanced"`
	DaysPerWeek    int               `json:"days_per_week" validate:"omitempty,min=1,max=7"`
	SessionMinutes int               `json:"session_minutes" validate:"omitempty,min=10,max=240"`
	Equipment      []string          `json:"equipment,omitempty"`
	Injuries       []string          `json:"injuries,omitempty"`
	Survey         map[string]string `json:"survey,omitempty"`
}

// Exercise is a single movement in a workout day.
type Exercise struct {
	Name        string   `json:"name"`
	Sets        FlexText `json:"sets"`
	Reps        FlexText `json:"reps"`
	Rest        FlexText `json:"rest"`
	SearchQuery string   `json:"searchQuery,omitempty"`
	VideoURL    string   `json:"videoUrl,omitempty"`
}

// WorkoutPlan maps a day of the week to the exercises scheduled on it.
type WorkoutPlan struct {
	Summary    string                `json:"summary"`
	WeeklyPlan map[string][]Exercise `json:"weeklyPlan"`
	Cautions   FlexText              `json:"cautions"`
	Intensity  FlexText              `json:"intensity"`
}

// Clone returns a deep copy so a plan can be rewritten without touching the
// original.
func (p *WorkoutPlan) Clone() *WorkoutPlan {
	if p == nil {
		return nil
	}
	out := *p
	if p.WeeklyPlan != nil {
		out.WeeklyPlan = make(map[string][]Exercise, len(p.WeeklyPlan))
		for day, exercises := range p.WeeklyPlan {
			out.WeeklyPlan[day] = append([]Exercise(nil), exercises...)
		}
	}
	return &out
}
