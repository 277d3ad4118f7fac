package server

const (
	// Validation (1xxx)
	ErrCodeInvalidArgument = 1000
	ErrCodeInvalidJSON     = 1001
	ErrCodeRequestTooLarge = 1002
	ErrCodeInvalidQuery    = 1003
	ErrCodeInvalidID       = 1004
	ErrCodeInvalidState    = 1005
	ErrCodeInvalidRole     = 1006
	ErrCodeInvalidPriority = 1007
	ErrCodeMissingRequired = 1008

	// Domain state (2xxx)
	ErrCodeTaskNotFound    = 2001
	ErrCodeProjectNotFound = 2002
	ErrCodeKeyNotFound     = 2003
	ErrCodeProjectExists   = 2101
	ErrCodeStateConflict   = 2102
	ErrCodeClaimLost       = 2103

	// Auth & limits (3xxx)
	ErrCodeUnauthorized = 3001
	ErrCodeForbidden    = 3002
	ErrCodeBadSignature = 3003
	ErrCodeRateLimited  = 3004

	// Internal/system (4xxx)
	ErrCodeInternal     = 4001
	ErrCodeStoreFailure = 4002
	ErrCodeIDExhausted  = 4003
)

func defaultErrorCodeByStatus(status int) int {
	switch status {
	case 400:
		return ErrCodeInvalidArgument
	case 401:
		return ErrCodeUnauthorized
	case 403:
		return ErrCodeForbidden
	case 404:
		return ErrCodeTaskNotFound
	case 409:
		return ErrCodeStateConflict
	case 429:
		return ErrCodeRateLimited
	case 500:
		return ErrCodeInternal
	default:
		return 0
	}
}
