package domain

type DietRequest struct {
	Metrics     BodyMetrics       `json:"metrics" validate:"required"`
	Goal        string            `json:"goal" validate:"required"`
	MealsPerDay int               `json:"meals_per_day" validate:"omitempty,min=1,max=6"`
	Allergies   []string          `json:"allergies,omitempty"`
	Preferences []string          `json:"preferences,omitempty"`
	Survey      map[string]string `json:"survey,omitempty"`
}

// Meals is one day of a diet plan. Each slot may be a plain description or
// a structured menu.
type Meals struct {
	Breakfast FlexText `json:"breakfast"`
	Lunch     FlexText `json:"lunch"`
	Dinner    FlexText `json:"dinner"`
	Snack     FlexText `json:"snack"`
}

type DietPlan struct {
	Summary       string           `json:"summary"`
	DailyCalories FlexText         `json:"dailyCalories"`
	Macros        FlexText         `json:"macros"`
	WeeklyMeals   map[string]Meals `json:"weeklyMeals"`
	Tips          []string         `json:"tips"`
}
