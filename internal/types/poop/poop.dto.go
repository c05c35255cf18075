package poop

import "time"

type CreateLogRequest struct {
	LoggedAt    *time.Time `json:"logged_at,omitempty"`
	Duration    int        `json:"duration" validate:"required,gt=0,lte=240"`
	Rating      Rating     `json:"rating" validate:"required,oneof=great good okay bad"`
	Consistency int        `json:"consistency" validate:"required,min=1,max=5"`
	Notes       string     `json:"notes" validate:"max=500"`
}

type LogListResponse struct {
	Logs     []*Log `json:"logs"`
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`
}
