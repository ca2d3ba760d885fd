package periods

// CreatePeriodRequest is the payload for opening a fiscal period.
// Dates use the YYYY-MM-DD form and are inclusive on both ends.
type CreatePeriodRequest struct {
	Code      string `json:"code" validate:"required,max=50"`
	Name      string `json:"name" validate:"required,max=255"`
	StartDate string `json:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate   string `json:"endDate" validate:"required,datetime=2006-01-02"`
}
