package models

// User is the client-side copy of a server user.
type User struct {
	ID          int    `json:"id"`
	Email       string `json:"email"`
	Description string `json:"description"`
	Admin       bool   `json:"admin"`
}

// NewUser is the add-user body.
type NewUser struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	Description string `json:"description"`
	IsAdmin     bool   `json:"isAdmin"`
}

// UserUpdate is the edit-user body.
type UserUpdate struct {
	Email       string `json:"email"`
	Description string `json:"description"`
	Admin       bool   `json:"admin"`
}
