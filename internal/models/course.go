package models

// Course mirrors a course record served by the backend.
type Course struct {
	ID       int64  `json:"id"`
	Code     string `json:"code"`
	Title    string `json:"title"`
	Credits  int    `json:"credits"`
	Capacity int    `json:"capacity"`
}

// Key returns the record identifier.
func (c Course) Key() int64 { return c.ID }
