package labsdk

// User-visible notices.
const (
	msgRequestFailed     = "request failed"
	msgBadRequestConfig  = "request configuration error"
	msgInvalidParams     = "invalid request parameters"
	msgBadCredentials    = "invalid username or password"
	msgForbidden         = "no permission to access this resource"
	msgNotFound          = "resource not found"
	msgInternalError     = "internal server error"
	msgBadGateway        = "bad gateway"
	msgUnavailable       = "service unavailable"
	msgGatewayTimeout    = "gateway timeout"
	msgStatusFailed      = "request failed (%d)"
	msgTimeout           = "request timed out, please check your network"
	msgNetwork           = "network connection failed, please check your network"
	msgTryLater          = "request failed, please try again later"
	msgSessionExpired    = "your session has expired, please log in again"
	msgLoginSucceeded    = "login successful"
	msgLoggedOut         = "logged out"
	msgProfileUnreadable = "could not read user profile"
	msgProfileSaved      = "profile updated"
)
