package core

// User is the authenticated account as reported by the auth service.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

func (u User) IsZero() bool { return u.ID == "" }
