package dispatch

// Version is the current library version.
const Version = "0.3.0"

// UserAgent identifies the client in outbound requests when no explicit
// User-Agent header is configured.
const UserAgent = "heart-dispatch/" + Version
