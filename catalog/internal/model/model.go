package model

import "strings"

type CreateBook struct {
	Title     string `json:"title" validate:"required,max=200"`
	Author    string `json:"author" validate:"required,max=100"`
	Publisher string `json:"publisher" validate:"required,max=100"`
	ISBN      string `json:"isbn" validate:"required,isbn_digits"`
	Price     int64  `json:"price" validate:"min=1,max=1000000"`
}

func (b CreateBook) Trimmed() CreateBook {
	return CreateBook{
		Title:     strings.TrimSpace(b.Title),
		Author:    strings.TrimSpace(b.Author),
		Publisher: strings.TrimSpace(b.Publisher),
		ISBN:      strings.TrimSpace(b.ISBN),
		Price:     b.Price,
	}
}
