package borrows

type CreateBorrowPayload struct {
	BookISBN string `json:"book_isbn" mod:"trim" validate:"required,isbn"`
	UserID   *int   `json:"user_id" validate:"omitempty,min=1"`
}

type ListUnreturnedQuery struct {
	Page    int     `query:"page" default:"1" validate:"min=1"`
	PerPage int     `query:"per_page" default:"10" validate:"min=1,max=100"`
	Search  *string `query:"search" validate:"omitempty,max=100"`
}

type ListBorrowsQuery struct {
	Page    int   `query:"page" default:"1" validate:"min=1"`
	PerPage int   `query:"per_page" default:"10" validate:"min=1,max=100"`
	UserID  *int  `query:"user_id" validate:"omitempty,min=1"`
	Active  *bool `query:"active"`
}
