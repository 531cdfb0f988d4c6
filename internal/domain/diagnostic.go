package domain

// Level is the severity of a diagnostic.
type Level string

// Diagnostic levels.
const (
	LevelInfo Level = "info"
	LevelWarn Level = "warn"
)

// Code identifies the condition behind a diagnostic.
type Code string

// Diagnostic codes.
const (
	CodeInsufficientCash      Code = "INSUFFICIENT_CASH"
	CodeNoPosition            Code = "NO_POSITION"
	CodeZeroSize              Code = "ZERO_SIZE"
	CodeInvalidSize           Code = "INVALID_SIZE"
	CodeInvalidPrice          Code = "INVALID_PRICE"
	CodeUnknownAsset          Code = "UNKNOWN_ASSET"
	CodeSellClamped           Code = "SELL_CLAMPED"
	CodeMissingPrice          Code = "MISSING_PRICE"
	CodeTruncated             Code = "TRUNCATED_ORDER"
	CodeNormalizationRequired Code = "NORMALIZATION_REQUIRED"
	CodeUnevenRows            Code = "UNEVEN_ROWS"
	CodeDuplicateDate         Code = "DUPLICATE_DATE"
)

// Diagnostic is one non-fatal anomaly observed during a run or a load.
// Bar is -1 when the condition is not tied to a bar.
type Diagnostic struct {
	Bar     int    `json:"bar"`
	Date    int64  `json:"date"`
	Asset   string `json:"asset,omitempty"`
	Level   Level  `json:"level"`
	Code    Code   `json:"code"`
	Message string `json:"message"`
}
