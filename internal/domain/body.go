package domain

// BodyMetrics is a single body-composition measurement.
type BodyMetrics struct {
	Gender           string  `json:"gender" validate:"required,oneof=male female"`
	Age              int     `json:"age" validate:"required,min=10,max=120"`
	HeightCm         float64 `json:"height_cm" validate:"required,gt=0,lt=300"`
	WeightKg         float64 `json:"weight_kg" validate:"required,gt=0,lt=500"`
	BodyFatPercent   float64 `json:"body_fat_percent" validate:"gte=0,lt=100"`
	SkeletalMuscleKg float64 `json:"skeletal_muscle_kg" validate:"gte=0"`
}

// BMI derives the body-mass index from height and weight.
func (m BodyMetrics) BMI() float64 {
	if m.HeightCm <= 0 {
		return 0
	}
	h := m.HeightCm / 100
	return m.WeightKg / (h * h)
}

type BodyAnalysisRequest struct {
	Metrics BodyMetrics       `json:"metrics" validate:"required"`
	Goal    string            `json:"goal"`
	Survey  map[string]string `json:"survey,omitempty"`
}

// BodyAnalysis is the model's reading of a body-composition record.
type BodyAnalysis struct {
	Summary             string   `json:"summary"`
	BodyType            string   `json:"bodyType"`
	Strengths           []string `json:"strengths"`
	Improvements        []string `json:"improvements"`
	RecommendedCalories FlexText `json:"recommendedCalories"`
	TargetWeight        FlexText `json:"targetWeight"`
	Advice              FlexText `json:"advice"`
}
