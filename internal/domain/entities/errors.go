package entities

import "errors"

// Error kinds. Adapters and the pipeline wrap these with %w; callers classify
// with errors.Is.
var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrNotFound          = errors.New("not found")
	ErrEmbeddingService  = errors.New("embedding service error")
	ErrDimensionMismatch = errors.New("dimension mismatch")
	ErrEmptyIndex        = errors.New("empty index")
	ErrGenerationService = errors.New("generation service error")
)

// ErrorCode is a stable machine-readable kind name for API responses.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidInput):
		return "INVALID_INPUT"
	case errors.Is(err, ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, ErrEmbeddingService):
		return "EMBEDDING_SERVICE_ERROR"
	case errors.Is(err, ErrDimensionMismatch):
		return "DIMENSION_MISMATCH"
	case errors.Is(err, ErrEmptyIndex):
		return "EMPTY_INDEX"
	case errors.Is(err, ErrGenerationService):
		return "GENERATION_SERVICE_ERROR"
	default:
		return "INTERNAL_ERROR"
	}
}

// UserMessage maps an error to the single message shown to the user.
// Service errors keep the cause text so authentication or quota problems are
// visible; the cause never contains the credential.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidInput):
		return "Please fill in a theme, a length, a style and your API key. (" + err.Error() + ")"
	case errors.Is(err, ErrNotFound):
		return "No poems found for theme."
	case errors.Is(err, ErrEmbeddingService):
		return "Could not embed the sample poems: " + err.Error()
	case errors.Is(err, ErrDimensionMismatch):
		return "The embedding model returned vectors of inconsistent size."
	case errors.Is(err, ErrEmptyIndex):
		return "No sample poems were indexed."
	case errors.Is(err, ErrGenerationService):
		return "Poem generation failed: " + err.Error()
	default:
		return "Unexpected error: " + err.Error()
	}
}
