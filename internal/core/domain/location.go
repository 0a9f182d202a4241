package domain

// Location is a household site that groups meters. OwnerID, when set, points
// at the consumer the location belongs to.
type Location struct {
	ID      int64   `json:"id"`
	Name    string  `json:"name"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	OwnerID *int64  `json:"owner_id,omitempty"`
}

// OwnedBy reports whether the location belongs to the given user.
func (l Location) OwnedBy(userID int64) bool {
	return l.OwnerID != nil && *l.OwnerID == userID
}
