package domain

type ReplyKind string

const (
	ReplyText  ReplyKind = "text"
	ReplyImage ReplyKind = "image"
)

type Reply struct {
	Kind     ReplyKind
	Text     string
	Image    []byte
	MIMEType string
}

func Text(text string) Reply {
	return Reply{Kind: ReplyText, Text: text}
}

func Image(payload []byte, mimeType string) Reply {
	return Reply{Kind: ReplyImage, Image: payload, MIMEType: mimeType}
}
