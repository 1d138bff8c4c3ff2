package books

import "github.com/quillbooks/quill/pkg/identifiers"

// UncategorizedName is the category given to imported volumes that don't list
// one.
const UncategorizedName = "Uncategorized"

// Volume is the subset of a Google Books API volume resource used to import a
// book.
type Volume struct {
	ID         string     `json:"id"`
	Kind       string     `json:"kind"`
	VolumeInfo VolumeInfo `json:"volumeInfo"`
}

type VolumeInfo struct {
	Title               string               `json:"title" mod:"trim" validate:"required,max=200"`
	Authors             []string             `json:"authors" validate:"required,min=1,dive,max=100"`
	Categories          []string             `json:"categories" validate:"omitempty,dive,max=100"`
	Description         string               `json:"description"`
	IndustryIdentifiers []IndustryIdentifier `json:"industryIdentifiers" validate:"required,min=1"`
	ImageLinks          *ImageLinks          `json:"imageLinks"`
	Publisher           string               `json:"publisher"`
	PublishedDate       string               `json:"publishedDate"`
	PageCount           int                  `json:"pageCount"`
	Language            string               `json:"language"`
}

type IndustryIdentifier struct {
	Type       string `json:"type"`
	Identifier string `json:"identifier"`
}

type ImageLinks struct {
	SmallThumbnail string `json:"smallThumbnail"`
	Thumbnail      string `json:"thumbnail" validate:"omitempty,link,max=500"`
}

// ISBN picks the ISBN-13 identifier, falling back to ISBN-10. It returns an
// empty string when the volume carries neither.
func (v VolumeInfo) ISBN() string {
	ids := make([]identifiers.Identifier, 0, len(v.IndustryIdentifiers))
	for _, id := range v.IndustryIdentifiers {
		ids = append(ids, identifiers.Identifier{Scheme: id.Type, Value: id.Identifier})
	}
	return identifiers.PreferredISBN(ids)
}
