package models

// Identity is the authenticated caller as resolved from the bearer token.
type Identity struct {
	ID     string
	Name   string
	Email  string
	Avatar string
}
