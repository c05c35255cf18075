package reminder

type CreateReminderRequest struct {
	Title      string    `json:"title" validate:"required,max=100"`
	Message    string    `json:"message" validate:"max=300"`
	Frequency  Frequency `json:"frequency" validate:"required,oneof=daily weekly custom"`
	Time       string    `json:"time" validate:"required,datetime=15:04"`
	DaysOfWeek []int     `json:"days_of_week" validate:"omitempty,max=7,unique,dive,min=0,max=6"`
	IsActive   *bool     `json:"is_active,omitempty"`
}

type UpdateReminderRequest struct {
	Title      *string    `json:"title,omitempty" validate:"omitempty,min=1,max=100"`
	Message    *string    `json:"message,omitempty" validate:"omitempty,max=300"`
	Frequency  *Frequency `json:"frequency,omitempty" validate:"omitempty,oneof=daily weekly custom"`
	Time       *string    `json:"time,omitempty" validate:"omitempty,datetime=15:04"`
	DaysOfWeek []int      `json:"days_of_week,omitempty" validate:"omitempty,max=7,unique,dive,min=0,max=6"`
	IsActive   *bool      `json:"is_active,omitempty"`
}
