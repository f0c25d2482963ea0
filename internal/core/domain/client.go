package domain

import "strings"

// Client is a directory entry mirroring a subset of a User's fields.
// Email is the natural key.
type Client struct {
	ID      string `json:"id" bson:"_id"`
	Name    string `json:"name" bson:"name"`
	Email   string `json:"email" bson:"email"`
	Phone   string `json:"phone,omitempty" bson:"phone,omitempty"`
	Company string `json:"company,omitempty" bson:"company,omitempty"`
}

// ClientFromUser builds the directory record for u. The id is left empty; the
// directory assigns or preserves it.
func ClientFromUser(u *User) Client {
	return Client{
		Name:  u.Name,
		Email: u.Email,
		Phone: u.Phone,
	}
}

// FilterClients returns the clients whose name, email or company contains
// query, ignoring case. An empty query matches everything; whitespace is
// matched literally.
func FilterClients(clients []Client, query string) []Client {
	q := strings.ToLower(query)
	if q == "" {
		return clients
	}

	out := make([]Client, 0, len(clients))
	for _, c := range clients {
		if strings.Contains(strings.ToLower(c.Name), q) ||
			strings.Contains(strings.ToLower(c.Email), q) ||
			strings.Contains(strings.ToLower(c.Company), q) {
			out = append(out, c)
		}
	}
	return out
}
