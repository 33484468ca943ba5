package catalog

type Book struct {
	ID        int64  `json:"id" db:"id"`
	Title     string `json:"title" db:"title"`
	Author    string `json:"author" db:"author"`
	Publisher string `json:"publisher" db:"publisher"`
	ISBN      string `json:"isbn" db:"isbn"`
	Price     int64  `json:"price" db:"price"`
}

type ListBooks struct {
	Items []Book `json:"items"`
}
