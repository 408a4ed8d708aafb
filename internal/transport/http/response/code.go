package response

// Status texts shared by the envelope and the middleware.
const (
	TextDataFound          = "DATA_FOUND"
	TextDataFoundSpaced    = "DATA FOUND"
	TextNoDataFound        = "NO DATA FOUND"
	TextNoRequestsRaised   = "NO REQUESTS RAISED"
	TextDataSaved          = "DATA SAVED"
	TextAuthorizationError = "AUTHORIZATION_ERROR"
	TextBadRequest         = "BAD_REQUEST"
	TextBodyTooLarge       = "REQUEST_BODY_TOO_LARGE"
	TextTooManyRequests    = "TOO_MANY_REQUESTS"
	TextServerBusy         = "SERVER_BUSY"
	TextTimeout            = "REQUEST_TIMEOUT"
	TextInternalError      = "INTERNAL_ERROR"
)
