package users

// CreateUserPayload is the body of POST /users. Admins may pick any role.
type CreateUserPayload struct {
	Name     string `json:"name" mod:"trim" validate:"required,max=100"`
	Email    string `json:"email" mod:"trim,lcase" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Role     string `json:"role" validate:"omitempty,oneof=member librarian admin"`
}

// RegisterPayload is the body of the self-service and admin account creation
// routes. The role is fixed by the route.
type RegisterPayload struct {
	Name     string `json:"name" mod:"trim" validate:"required,max=100"`
	Email    string `json:"email" mod:"trim,lcase" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// UpdateUserPayload is a partial update; nil fields are left alone.
type UpdateUserPayload struct {
	Name     *string `json:"name" validate:"omitempty,min=1,max=100"`
	Email    *string `json:"email" validate:"omitempty,email,max=255"`
	Password *string `json:"password" validate:"omitempty,min=8,max=72"`
	Role     *string `json:"role" validate:"omitempty,oneof=member librarian admin"`
	IsActive *bool   `json:"is_active"`
}

// ListUsersQuery represents the query parameters for listing users.
type ListUsersQuery struct {
	Limit           int    `query:"limit" default:"50" validate:"min=1,max=100"`
	Offset          int    `query:"offset" validate:"min=0"`
	Role            string `query:"role" validate:"omitempty,oneof=member librarian admin"`
	Search          string `query:"search" mod:"trim"`
	IncludeInactive bool   `query:"include_inactive"`
}
