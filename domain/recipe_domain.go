package domain

import (
	"errors"
)

var (
	MessageSuccessGetRecipes       = "success get recipes"
	MessageSuccessGetRecipeDetail  = "success get recipe detail"
	MessageSuccessCreateRecipe     = "recipe created successfully"
	MessageSuccessUpdateRecipe     = "recipe updated successfully"
	MessageSuccessDeleteRecipe     = "recipe deleted successfully"
	MessageSuccessAddFavorite      = "recipe added to favorites"
	MessageSuccessRemoveFavorite   = "recipe removed from favorites"
	MessageSuccessAddToCart        = "recipe added to shopping cart"
	MessageSuccessRemoveFromCart   = "recipe removed from shopping cart"
	MessageSuccessGetShortLink     = "success get short link"
	MessageSuccessDownloadCart     = "shopping list generated"

	MessageFailedGetRecipes      = "failed to get recipes"
	MessageFailedGetRecipeDetail = "failed to get recipe detail"
	MessageFailedCreateRecipe    = "failed to create recipe"
	MessageFailedUpdateRecipe    = "failed to update recipe"
	MessageFailedDeleteRecipe    = "failed to delete recipe"
	MessageFailedAddFavorite     = "failed to add recipe to favorites"
	MessageFailedRemoveFavorite  = "failed to remove recipe from favorites"
	MessageFailedAddToCart       = "failed to add recipe to shopping cart"
	MessageFailedRemoveFromCart  = "failed to remove recipe from shopping cart"
	MessageFailedGetShortLink    = "failed to get short link"
	MessageFailedDownloadCart    = "failed to generate shopping list"

	ErrRecipeNotFound        = errors.New("recipe not found")
	ErrRecipeExists          = errors.New("recipe with this name already exists for the author")
	ErrNotRecipeAuthor       = errors.New("only the author may modify this recipe")
	ErrInvalidCookingTime    = errors.New("cooking time is below the minimum")
	ErrInvalidAmount         = errors.New("ingredient amount is below the minimum")
	ErrEmptyIngredientList   = errors.New("ingredient list cannot be empty")
	ErrUnknownIngredient     = errors.New("ingredient does not exist")
	ErrDuplicateIngredient   = errors.New("ingredient listed more than once")
	ErrMissingImage          = errors.New("image payload is required")
	ErrInvalidImagePayload   = errors.New("image payload is not valid base64 image data")
	ErrAlreadyFavorited      = errors.New("recipe already in favorites")
	ErrNotFavorited          = errors.New("recipe is not in favorites")
	ErrAlreadyInCart         = errors.New("recipe already in shopping cart")
	ErrNotInCart             = errors.New("recipe is not in shopping cart")
)

type (
	RecipeIngredientRequest struct {
		ID     string `json:"id" validate:"required,uuid"`
		Amount int    `json:"amount" validate:"required,min=1"`
	}

	CreateRecipeRequest struct {
		Name        string                    `json:"name" validate:"required,max=256"`
		Text        string                    `json:"text" validate:"required"`
		Image       string                    `json:"image"`
		CookingTime int                       `json:"cooking_time" validate:"required,min=1"`
		Ingredients []RecipeIngredientRequest `json:"ingredients"`
	}

	UpdateRecipeRequest struct {
		Name        string                    `json:"name" validate:"required,max=256"`
		Text        string                    `json:"text" validate:"required"`
		Image       string                    `json:"image"`
		CookingTime int                       `json:"cooking_time" validate:"required,min=1"`
		Ingredients []RecipeIngredientRequest `json:"ingredients"`
	}

	RecipeIngredientResponse struct {
		ID              string `json:"id"`
		Name            string `json:"name"`
		MeasurementUnit string `json:"measurement_unit"`
		Amount          int    `json:"amount"`
	}

	RecipeResponse struct {
		ID               string                     `json:"id"`
		Name             string                     `json:"name"`
		Text             string                     `json:"text"`
		Image            string                     `json:"image"`
		CookingTime      int                        `json:"cooking_time"`
		Author           UserResponse               `json:"author"`
		Ingredients      []RecipeIngredientResponse `json:"ingredients"`
		IsFavorited      bool                       `json:"is_favorited"`
		IsInShoppingCart bool                       `json:"is_in_shopping_cart"`
	}

	RecipeSummary struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		Image       string `json:"image"`
		CookingTime int    `json:"cooking_time"`
	}

	RecipeFilter struct {
		AuthorID         string
		OnlyFavorited    bool
		OnlyShoppingCart bool
	}

	ShortLinkResponse struct {
		ShortLink string `json:"short-link"`
	}

	ShoppingListItem struct {
		Name            string `json:"name"`
		MeasurementUnit string `json:"measurement_unit"`
		Amount          int    `json:"amount"`
	}
)
