package categories

type CreateCategoryPayload struct {
	Name string `json:"name" mod:"trim" validate:"required,min=3,max=100"`
}

type UpdateCategoryPayload struct {
	Name *string `json:"name" validate:"omitempty,min=3,max=100"`
}

type ListCategoriesQuery struct {
	Limit  int     `query:"limit" default:"50" validate:"min=1,max=100"`
	Offset int     `query:"offset" validate:"min=0"`
	Search *string `query:"search"`
}
