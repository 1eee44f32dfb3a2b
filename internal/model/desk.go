package model

// Desk is one of the three named locations a user keeps stamps in.
type Desk struct {
	ID     int64  `json:"id"`
	UserID int64  `json:"user_id"`
	Type   string `json:"type"`

	// Stamps is the number of stamps on the desk (not always populated).
	Stamps int `json:"stamps"`
}

// Desk types.
const (
	DeskAvailable = "available"
	DeskPostcard  = "postcard"
	DeskRemoved   = "removed"
)

// DeskTypes lists every desk type, in the order they are created for a new user.
var DeskTypes = []string{DeskAvailable, DeskPostcard, DeskRemoved}

// ValidDeskType reports whether t names a desk type.
func ValidDeskType(t string) bool {
	return t == DeskAvailable || t == DeskPostcard || t == DeskRemoved
}
