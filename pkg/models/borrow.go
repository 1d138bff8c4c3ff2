package models

import (
	"time"

	"github.com/uptrace/bun"
)

const day = 24 * time.Hour

type Borrow struct {
	bun.BaseModel `bun:"table:borrows,alias:br"`

	ID         int        `bun:",pk,nullzero" json:"id"`
	UserID     int        `json:"user_id"`
	User       *User      `bun:"rel:belongs-to,join:user_id=id" json:"-"`
	BookISBN   string     `bun:"book_isbn" json:"book_isbn"`
	Book       *Book      `bun:"rel:belongs-to,join:book_isbn=isbn" json:"-"`
	BorrowedAt time.Time  `json:"borrowed_at"`
	DueAt      time.Time  `json:"due_at"`
	ReturnedAt *time.Time `json:"returned_at"`

	// Filled in by Refresh before the borrow leaves the service layer.
	IsOverdue   bool    `bun:"-" json:"is_overdue"`
	DaysOverdue int     `bun:"-" json:"days_overdue"`
	BookTitle   *string `bun:"-" json:"book_title"`
	UserName    *string `bun:"-" json:"user_name"`
}

// DueDate computes the due timestamp for a loan started at borrowedAt.
func DueDate(borrowedAt time.Time, borrowingLimitDays int) time.Time {
	return borrowedAt.Add(time.Duration(borrowingLimitDays) * day)
}

// IsActive reports whether the book has not been given back yet.
func (b *Borrow) IsActive() bool {
	return b.ReturnedAt == nil
}

// OverdueAt reports whether the loan is still out past its due date at now.
func (b *Borrow) OverdueAt(now time.Time) bool {
	return b.IsActive() && now.After(b.DueAt)
}

// DaysOverdueAt is the number of whole days the loan is past due at now, or 0
// when it isn't overdue.
func (b *Borrow) DaysOverdueAt(now time.Time) int {
	if !b.OverdueAt(now) {
		return 0
	}
	return int(now.Sub(b.DueAt) / day)
}

// Refresh recomputes the derived fields for now and copies the display names
// from loaded relations.
func (b *Borrow) Refresh(now time.Time) {
	b.IsOverdue = b.OverdueAt(now)
	b.DaysOverdue = b.DaysOverdueAt(now)
	if b.Book != nil {
		b.BookTitle = &b.Book.Title
	}
	if b.User != nil {
		b.UserName = &b.User.Name
	}
}
