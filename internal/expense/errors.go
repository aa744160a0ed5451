package expense

import "errors"

// Stable error categories exposed to the API layer. Provider-specific
// failure shapes never cross this boundary; each category carries one
// user-presentable message.
var (
	// ErrNoInput: extraction was called with neither text nor images.
	ErrNoInput = errors.New("no text or images provided")

	// ErrImageUpload: the image could not be processed before the model call.
	ErrImageUpload = errors.New("failed to process receipt image")

	// ErrExtraction: the model call failed or returned output that does not
	// conform to the receipt schema.
	ErrExtraction = errors.New("the model failed to respond")

	// ErrNoReceipt: extraction succeeded but no usable line items survived
	// normalization.
	ErrNoReceipt = errors.New("no receipt details detected")

	// ErrDuplicate: a prospective transaction matches an existing one within
	// tolerance. The store is left untouched; resolution is user
	// confirmation, not retry.
	ErrDuplicate = errors.New("duplicate transaction detected")

	// ErrProviderUnavailable: the Q&A model call failed or returned a
	// malformed response.
	ErrProviderUnavailable = errors.New("the model failed to respond")
)
