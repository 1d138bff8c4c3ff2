package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Book struct {
	bun.BaseModel `bun:"table:books,alias:b"`

	ISBN        string     `bun:"isbn,pk" json:"isbn"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	DeletedAt   *time.Time `json:"-"`
	Title       string     `bun:",nullzero" json:"title"`
	TotalCopies int        `json:"total_copies"`
	Cover       *string    `json:"cover"`
	Description *string    `json:"description"`
	AuthorID    int        `json:"author_id"`
	Author      *Author    `bun:"rel:belongs-to,join:author_id=id" json:"author,omitempty"`
	CategoryID  int        `json:"category_id"`
	Category    *Category  `bun:"rel:belongs-to,join:category_id=id" json:"category,omitempty"`

	// Derived from the loan ledger on every read, never persisted.
	ActiveLoans     int  `bun:"-" json:"active_loans"`
	AvailableCopies int  `bun:"-" json:"available_copies"`
	IsAvailable     bool `bun:"-" json:"is_available"`
}

// IsDeleted reports whether the book has been removed from the catalog. Soft
// deleted books keep their row so that loan history stays referentially valid.
func (b *Book) IsDeleted() bool {
	return b.DeletedAt != nil
}
