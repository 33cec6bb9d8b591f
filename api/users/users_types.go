package users

// UserInput is the create/update body. Password is read only on create.
type UserInput struct {
	Username  string `json:"username"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	JobTitle  string `json:"jobTitle"`
	Role      string `json:"role"`
	Password  string `json:"password"`
}

// PasswordInput is the change-password body.
type PasswordInput struct {
	Password string `json:"password"`
}
