package books

type CreateBookPayload struct {
	ISBN        string  `json:"isbn" mod:"trim" validate:"required,isbn"`
	Title       string  `json:"title" mod:"trim" validate:"required,max=200"`
	TotalCopies *int    `json:"total_copies" default:"1" validate:"required,min=1"`
	Cover       *string `json:"cover" mod:"trim" validate:"omitempty,link,max=500"`
	Description *string `json:"description"`
	AuthorID    int     `json:"author_id" validate:"required,min=1"`
	CategoryID  int     `json:"category_id" validate:"required,min=1"`
}

type UpdateBookPayload struct {
	Title       *string `json:"title" validate:"omitempty,min=1,max=200"`
	TotalCopies *int    `json:"total_copies" validate:"omitempty,min=1"`
	Cover       *string `json:"cover" validate:"omitempty,link,max=500"`
	Description *string `json:"description"`
	AuthorID    *int    `json:"author_id" validate:"omitempty,min=1"`
	CategoryID  *int    `json:"category_id" validate:"omitempty,min=1"`
}

type ListBooksQuery struct {
	Page     int     `query:"page" default:"1" validate:"min=1"`
	PerPage  int     `query:"per_page" default:"10" validate:"min=1,max=100"`
	Title    *string `query:"title" validate:"omitempty,max=200"`
	Author   *string `query:"author" validate:"omitempty,max=100"`
	Category *string `query:"category" validate:"omitempty,max=100"`
}

type ImportBookPayload struct {
	Volume
	TotalCopies *int `json:"total_copies" default:"1" validate:"required,min=1"`
}
