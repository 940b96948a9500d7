package coordinator

import (
	"context"
	"errors"

	"github.com/MegaGrindStone/market-web-ui/internal/models"
)

const (
	searchTimeoutMessage = "The quote provider took too long to respond. Please try again."
	chatTimeoutMessage   = "The AI advisor took too long to respond. Please try again."
	searchFormatMessage  = "Received an unexpected response format from the quote provider. Please try again."
	chatFormatMessage    = "Received an unexpected response format from the AI advisor. Please try again."
	cancelledMessage     = "The request was cancelled."
	unknownMessage       = "An unknown error occurred. Please try again."
)

// describe maps a failure to the short text shown to the user. Timeouts and unrecognized
// response shapes get fixed messages per surface; everything else surfaces its own message.
func describe(s Surface, err error) string {
	switch models.KindOf(err) {
	case models.KindTimeout:
		if s == SurfaceSearch {
			return searchTimeoutMessage
		}
		return chatTimeoutMessage
	case models.KindFormat:
		if s == SurfaceSearch {
			return searchFormatMessage
		}
		return chatFormatMessage
	}
	if errors.Is(err, context.Canceled) {
		return cancelledMessage
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return unknownMessage
}

// failure wraps err with the user-facing text so callers get both the classification and the
// message the surface now shows.
func failure(s Surface, err error) *models.Error {
	return &models.Error{Kind: models.KindOf(err), Msg: describe(s, err), Err: err}
}
