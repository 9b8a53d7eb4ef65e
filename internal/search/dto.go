package search

// Book is a single record of the library catalogue as returned by an Engine.
type Book struct {
	ID        uint64 `json:"id"`
	Title     string `json:"title"`
	Author    string `json:"author"`
	Publisher string `json:"publisher"`
	Extension string `json:"extension"`
	Filesize  uint64 `json:"filesize"`
	Language  string `json:"language"`
	Year      uint64 `json:"year"`
	Pages     uint64 `json:"pages"`
	ISBN      string `json:"isbn"`
	IPFSCID   string `json:"ipfs_cid"`
}

// DefaultLimit is the number of books returned when the client omits limit.
const DefaultLimit uint = 30

// Query is the bound form of a /search request.
type Query struct {
	Query string
	Limit uint
}

// Result is the body of a successful /search response.
type Result struct {
	Books []Book `json:"books"`
}
