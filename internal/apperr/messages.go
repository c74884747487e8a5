package apperr

import "errors"

const genericMessage = "An unexpected error occurred. Please try again."

var statusMessages = map[int]string{
	400: "The request parameters are invalid. Check the data and try again.",
	401: "You are not authorized to access this resource. Check your credentials.",
	403: "This application reached its maximum number of calls. Try again later.",
	404: "The requested resource was not found.",
	429: "Too many requests. Wait a moment and try again.",
	500: "The server failed to process the request. Try again later.",
	503: "The service is temporarily unavailable. Try again later.",
}

// Ads provider error codes.
var providerMessages = map[int]string{
	190: "Access expired or invalid. Authenticate again.",
	100: "One or more request parameters are missing or invalid.",
	4:   "The ads API request limit was reached. Wait a moment and try again.",
	200: "Permission denied. Check the permissions of your ads account.",
	2:   "The service is temporarily unavailable. Try again later.",
}

// UserMessage converts err into the message shown to the user. Remote errors
// prefer the server message, then the provider code, then the HTTP status.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var (
		ve *ValidationError
		pe *PreconditionError
		re *RemoteCallError
		se *PersistenceError
		ce *ConflictError
	)
	switch {
	case errors.As(err, &ve):
		return ve.Error()
	case errors.As(err, &pe):
		return pe.Error()
	case errors.As(err, &re):
		if re.Message != "" {
			return re.Message
		}
		if msg, ok := providerMessages[re.ProviderCode]; ok && re.ProviderCode != 0 {
			return msg
		}
		if msg, ok := statusMessages[re.StatusCode]; ok {
			return msg
		}
		if re.StatusCode == 0 {
			return "Could not reach the ads API. Check your connection."
		}
		return genericMessage
	case errors.As(err, &se):
		return genericMessage
	case errors.As(err, &ce):
		return ce.Message
	case errors.Is(err, ErrNotFound):
		return statusMessages[404]
	default:
		return genericMessage
	}
}
