package customer

// CreateRequest is the admin body for registering a customer.
type CreateRequest struct {
	RestaurantID int64  `json:"restaurant_id" validate:"required,gt=0"`
	Name         string `json:"name" validate:"required,max=200"`
	Email        string `json:"email" validate:"omitempty,email,max=320"`
	Phone        string `json:"phone" validate:"omitempty,phone"`
}

// UpdateRequest is the admin body for changing contact details.
type UpdateRequest struct {
	Name  string `json:"name" validate:"required,max=200"`
	Email string `json:"email" validate:"omitempty,email,max=320"`
	Phone string `json:"phone" validate:"omitempty,phone"`
}
