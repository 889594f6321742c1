package habit

type CreateHabitRequest struct {
	Title        string    `json:"title"`
	Description  *string   `json:"description,omitempty"`
	Frequency    Frequency `json:"frequency"`
	ReminderTime *string   `json:"reminderTime,omitempty"`
	Category     *string   `json:"category,omitempty"`
}

// UpdateHabitRequest only touches the fields that are set.
type UpdateHabitRequest struct {
	Title        *string    `json:"title,omitempty"`
	Description  *string    `json:"description,omitempty"`
	Frequency    *Frequency `json:"frequency,omitempty"`
	ReminderTime *string    `json:"reminderTime,omitempty"`
	Category     *string    `json:"category,omitempty"`
}
