package pkl

import "fmt"

// A Status is a reply status of the login exchange.
type Status int

const (
	StatusOK          Status = 200
	StatusRedirect    Status = 373
	StatusMalformed   Status = 400
	StatusNoSession   Status = 401
	StatusAuthFailed  Status = 403
	StatusUnknownUser Status = 474
	StatusDuplicate   Status = 475
)

// An Error is a login failure with the status to reply with.
type Error struct {
	Status   Status
	Msg      string
	Redirect string
}

func (e *Error) Error() string {
	if e.Redirect != "" {
		return fmt.Sprintf("[pkl] %s: %s", e.Msg, e.Redirect)
	}
	return "[pkl] " + e.Msg
}

var (
	ErrMalformed   = &Error{Status: StatusMalformed, Msg: "Malformed request"}
	ErrNoSession   = &Error{Status: StatusNoSession, Msg: "Session not found"}
	ErrAuthFailed  = &Error{Status: StatusAuthFailed, Msg: "Authentication failed"}
	ErrUnknownUser = &Error{Status: StatusUnknownUser, Msg: "Unknown user"}
	ErrDuplicate   = &Error{Status: StatusDuplicate, Msg: "Duplicate request"}
)

// Redirect returns an Error telling the client to log in elsewhere.
func Redirect(location string) *Error {
	return &Error{Status: StatusRedirect, Msg: "Redirect", Redirect: location}
}
