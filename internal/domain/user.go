package domain

import "time"

type User struct {
	ID        int64     `json:"id"`
	Nickname  string    `json:"nickname"`
	Gender    string    `json:"gender"`
	BirthYear int       `json:"birth_year"`
	CreatedAt time.Time `json:"created_at"`
}
