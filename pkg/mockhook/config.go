package mockhook

// Config is the mock responder configuration.
type Config struct {
	// Address to listen on (e.g., ":5678")
	ListenAddr string

	// Path the webhook is served on. Defaults to "/webhook".
	Path string

	// ReplyPrefix is prepended to echoed messages. Defaults to "echo: ".
	ReplyPrefix string
}
