package models

// DateLayout is the fixed format for a sighting's date field. The string is
// lexicographically sortable, so the store can order records by plain
// string comparison.
const DateLayout = "2006-01-02 15:04:05"

// Sighting is one persisted wildlife-sighting record. Field names match the
// JSON data file produced by earlier versions of this tool, so existing files
// load unchanged.
type Sighting struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Location string  `json:"location"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	Date     string  `json:"date"`
	Link     string  `json:"link"`
	Source   string  `json:"source"`
}

// Entry is a feed item that survived the dedup and keyword filters but has
// not yet been resolved to a coordinate.
type Entry struct {
	Title  string
	Link   string
	Date   string // normalized per DateLayout
	Source string
}
