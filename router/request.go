package router

// Request is the transport-neutral form of an incoming API call.
type Request struct {
	Method string
	Path   string

	// Origin is the value of the Origin header, if any.
	Origin string

	// Body is the decoded request body.
	Body string

	// RequestID correlates log lines. Optional.
	RequestID string
}

// Identity is the verified caller attached by the upstream authorizer.
type Identity struct {
	// Subject is the stable user identifier (the token's sub claim).
	Subject string
}

// Response is the transport-neutral form of an API answer.
type Response struct {
	Status  int
	Headers map[string]string
	Body    string
}

func (i *Identity) present() bool {
	return i != nil && i.Subject != ""
}
