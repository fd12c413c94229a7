package models

// User is an account keyed by the identity provider's subject identifier.
type User struct {
	ID   string  `json:"id"`
	Name *string `json:"name"`
}

// Identity is the verified result of an identity token.
type Identity struct {
	ID   string
	Name *string
}

// User converts the identity into the account it logs in as.
func (i Identity) User() User {
	return User{ID: i.ID, Name: i.Name}
}
