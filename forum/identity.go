package forum

import "strings"

// Identity is the authenticated caller of an operation. It is passed
// explicitly; the zero value is an anonymous caller.
type Identity struct {
	UserID   uint
	Username string
}

// Anonymous reports whether no user is attached.
func (id Identity) Anonymous() bool {
	return id.UserID == 0 || strings.TrimSpace(id.Username) == ""
}

func requireIdentity(id Identity) error {
	if id.Anonymous() {
		return AuthError("Unauthorized")
	}
	return nil
}

// requireAuthor is the single ownership rule for questions and replies:
// only the original author may change or remove them.
func requireAuthor(id Identity, author string) error {
	if err := requireIdentity(id); err != nil {
		return err
	}
	if id.Username != author {
		return ForbiddenError("Forbidden")
	}
	return nil
}
