package library

// User is the authenticated account plus its bearer token.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Token    string `json:"token"`
}
