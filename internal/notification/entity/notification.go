package entity

// Template is one catalogue entry. Subject is only used for email.
type Template struct {
	Subject string
	Email   string
	SMS     string
}

// Rendered is a message ready to hand to a sender.
type Rendered struct {
	Channel Channel
	To      string
	Subject string
	Body    string
}
