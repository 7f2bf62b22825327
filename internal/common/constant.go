package common

// AuthorizationHeaderName carries the bearer access token on outbound
// requests when one is configured.
const AuthorizationHeaderName = "Authorization"

// UserAgent identifies the uploader to the server.
const UserAgent = "dsuploader"
