package dto

type Request struct {
	UserID string
	Text   string
}

type Reply struct {
	Kind     string
	Text     string
	Image    []byte
	MIMEType string
}

// Response carries the replies to one message. Handled is false when the
// message was neither a command nor part of a pending flow.
type Response struct {
	Handled bool
	Replies []Reply
}

type CommandInfo struct {
	Name     string
	Usage    string
	Summary  string
	Admin    bool
	Shortcut bool
	Pack     string
	Active   bool
}
