package domain

import (
	"errors"
	"net/http"
)

const (
	// ReservedProfilePath is the /users/<segment> path reserved for the
	// current user's own profile, so no account may claim it as a username.
	ReservedProfilePath = "me"

	MinCookingTime      = 1
	MinIngredientAmount = 1

	DefaultPageSize = 6
	MaxPageSize     = 100

	// DefaultRecipesLimit effectively disables truncation when the
	// recipes_limit query parameter is absent or unparsable.
	DefaultRecipesLimit = 10_000_000_000

	ShoppingListFilename = "shopping_list.txt"
)

var (
	MessageFailedBodyRequest    = "failed to parse request body"
	MessageFailedProcessRequest = "failed to process request"
	MessageFailedGetToken       = "failed to get token"
	MessageFailedTokenInvalid   = "failed to token invalid"

	ErrParseUUID      = errors.New("failed to parse UUID")
	ErrUnauthorized   = errors.New("authentication required")
	ErrTokenNotFound  = errors.New("failed to token not found")
	ErrTokenExpired   = errors.New("token expired")
	ErrTokenInvalid   = errors.New("token invalid")
	ErrUserNotAllowed = errors.New("user not allowed")
)

// ErrorStatusCode maps a domain error to the HTTP status it should be
// reported with. Anything unrecognized is treated as a bad request so raw
// storage errors never pick a 5xx on a client-correctable condition.
func ErrorStatusCode(err error) int {
	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, ErrTokenNotFound),
		errors.Is(err, ErrTokenExpired),
		errors.Is(err, ErrTokenInvalid):
		return http.StatusUnauthorized
	case errors.Is(err, ErrUserNotAllowed),
		errors.Is(err, ErrNotRecipeAuthor):
		return http.StatusForbidden
	case errors.Is(err, ErrUserNotFound),
		errors.Is(err, ErrRecipeNotFound),
		errors.Is(err, ErrIngredientNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrEmailTaken),
		errors.Is(err, ErrUsernameTaken),
		errors.Is(err, ErrRecipeExists),
		errors.Is(err, ErrAlreadyFavorited),
		errors.Is(err, ErrAlreadyInCart),
		errors.Is(err, ErrAlreadySubscribed):
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}
