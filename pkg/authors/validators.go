package authors

type CreateAuthorPayload struct {
	Name string `json:"name" mod:"trim" validate:"required,max=100"`
}

type UpdateAuthorPayload struct {
	Name *string `json:"name" validate:"omitempty,min=1,max=100"`
}

type ListAuthorsQuery struct {
	Limit  int     `query:"limit" default:"50" validate:"min=1,max=100"`
	Offset int     `query:"offset" validate:"min=0"`
	Search *string `query:"search"`
}
