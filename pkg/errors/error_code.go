package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Validation errors (100-199)
	ErrCodeInvalidParameter     ErrorCode = 100
	ErrCodeInvalidConfiguration ErrorCode = 101
	ErrCodeInvalidOrderRequest  ErrorCode = 102
	ErrCodeInvalidOrderSize     ErrorCode = 103
	ErrCodeInvalidDateRange     ErrorCode = 104

	// Data errors (200-299)
	ErrCodeSeriesNotFound ErrorCode = 200
	ErrCodeEmptyCalendar  ErrorCode = 201
	ErrCodeQueryFailed    ErrorCode = 202
	ErrCodeDataNotFound   ErrorCode = 203

	// Broker errors (300-399)
	ErrCodeInsufficientCash ErrorCode = 300
	ErrCodeNoPosition       ErrorCode = 301
	ErrCodeEmptyPosition    ErrorCode = 302

	// Backtest errors (400-499)
	ErrCodeNoStrategy     ErrorCode = 400
	ErrCodeNoData         ErrorCode = 401
	ErrCodeStrategyFailed ErrorCode = 402
)
