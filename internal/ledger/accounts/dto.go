package accounts

// CreateAccountRequest is the payload for creating a chart of accounts node.
type CreateAccountRequest struct {
	Code        string  `json:"code" validate:"required,max=50"`
	Name        string  `json:"name" validate:"required,max=255"`
	Type        string  `json:"type" validate:"required,oneof=ASSET LIABILITY EQUITY REVENUE EXPENSE"`
	SubType     *string `json:"subType" validate:"omitempty,max=50"`
	Description string  `json:"description" validate:"max=1024"`
}

// UpdateAccountRequest carries partial updates; nil fields are untouched.
type UpdateAccountRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=255"`
	Description *string `json:"description" validate:"omitempty,max=1024"`
	IsActive    *bool   `json:"isActive"`
}

// ListFilter narrows account listings.
type ListFilter struct {
	Type     *AccountType
	IsActive *bool
}
