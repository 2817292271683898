package recipe

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"recipebook-backend/domain"
	"recipebook-backend/entities"
	"recipebook-backend/internal/utils"
	"recipebook-backend/internal/utils/storage"
	"recipebook-backend/pkg/user"
)

type (
	RecipeService interface {
		CreateRecipe(ctx context.Context, req domain.CreateRecipeRequest, userID string) (domain.RecipeResponse, error)
		UpdateRecipe(ctx context.Context, id string, req domain.UpdateRecipeRequest, userID string) (domain.RecipeResponse, error)
		GetRecipeDetail(ctx context.Context, id string, viewerID string) (domain.RecipeResponse, error)
		GetRecipes(ctx context.Context, filter domain.RecipeFilter, viewerID string, page, limit int) ([]domain.RecipeResponse, int64, error)
		DeleteRecipe(ctx context.Context, id string, userID string) error

		AddFavorite(ctx context.Context, recipeID, userID string) (domain.RecipeSummary, error)
		RemoveFavorite(ctx context.Context, recipeID, userID string) error
		AddToCart(ctx context.Context, recipeID, userID string) (domain.RecipeSummary, error)
		RemoveFromCart(ctx context.Context, recipeID, userID string) error

		GetShortLink(ctx context.Context, recipeID string) (domain.ShortLinkResponse, error)
		ResolveShortLink(ctx context.Context, recipeID string) (string, error)
		DownloadShoppingList(ctx context.Context, userID string) ([]byte, error)
	}

	recipeService struct {
		recipeRepository RecipeRepository
		userRepository   user.UserRepository
		s3               storage.AwsS3
	}
)

func NewRecipeService(recipeRepository RecipeRepository, userRepository user.UserRepository, s3 storage.AwsS3) RecipeService {
	return &recipeService{
		recipeRepository: recipeRepository,
		userRepository:   userRepository,
		s3:               s3,
	}
}

func (s *recipeService) CreateRecipe(ctx context.Context, req domain.CreateRecipeRequest, userID string) (domain.RecipeResponse, error) {
	authorID, err := uuid.Parse(userID)
	if err != nil {
		return domain.RecipeResponse{}, domain.ErrParseUUID
	}

	if req.Image == "" {
		return domain.RecipeResponse{}, domain.ErrMissingImage
	}

	if err := s.validateRecipeFields(ctx, req.CookingTime, req.Ingredients); err != nil {
		return domain.RecipeResponse{}, err
	}

	imageData, contentType, err := decodeImagePayload(req.Image)
	if err != nil {
		return domain.RecipeResponse{}, err
	}

	recipeID := uuid.New()
	objectKey, err := s.s3.UploadBytes(recipeID.String(), imageData, contentType, "recipes", storage.AllowImage...)
	if err != nil {
		return domain.RecipeResponse{}, err
	}

	recipe := &entities.Recipe{
		ID:          recipeID,
		Name:        req.Name,
		AuthorID:    authorID,
		Text:        req.Text,
		ImageURL:    s.s3.GetPublicLinkKey(objectKey),
		CookingTime: req.CookingTime,
	}

	if err := s.recipeRepository.CreateRecipeWithIngredients(ctx, recipe, buildIngredientRows(recipeID, req.Ingredients)); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.RecipeResponse{}, domain.ErrRecipeExists
		}
		return domain.RecipeResponse{}, err
	}

	return s.GetRecipeDetail(ctx, recipeID.String(), userID)
}

func (s *recipeService) UpdateRecipe(ctx context.Context, id string, req domain.UpdateRecipeRequest, userID string) (domain.RecipeResponse, error) {
	recipe, err := s.getOwnedRecipe(ctx, id, userID)
	if err != nil {
		return domain.RecipeResponse{}, err
	}

	if err := s.validateRecipeFields(ctx, req.CookingTime, req.Ingredients); err != nil {
		return domain.RecipeResponse{}, err
	}

	// An omitted image keeps the stored one; a new payload replaces it under
	// the same object key.
	if req.Image != "" {
		imageData, contentType, err := decodeImagePayload(req.Image)
		if err != nil {
			return domain.RecipeResponse{}, err
		}
		objectKey, err := s.s3.UploadBytes(recipe.ID.String(), imageData, contentType, "recipes", storage.AllowImage...)
		if err != nil {
			return domain.RecipeResponse{}, err
		}
		recipe.ImageURL = s.s3.GetPublicLinkKey(objectKey)
	}

	recipe.Name = req.Name
	recipe.Text = req.Text
	recipe.CookingTime = req.CookingTime
	recipe.Author = nil
	recipe.Ingredients = nil

	if err := s.recipeRepository.UpdateRecipeWithIngredients(ctx, recipe, buildIngredientRows(recipe.ID, req.Ingredients)); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.RecipeResponse{}, domain.ErrRecipeExists
		}
		return domain.RecipeResponse{}, err
	}

	return s.GetRecipeDetail(ctx, id, userID)
}

func (s *recipeService) GetRecipeDetail(ctx context.Context, id string, viewerID string) (domain.RecipeResponse, error) {
	recipe, err := s.recipeRepository.GetRecipeByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.RecipeResponse{}, domain.ErrRecipeNotFound
		}
		return domain.RecipeResponse{}, err
	}
	return s.toRecipeResponse(ctx, recipe, viewerID), nil
}

func (s *recipeService) GetRecipes(ctx context.Context, filter domain.RecipeFilter, viewerID string, page, limit int) ([]domain.RecipeResponse, int64, error) {
	// Relation filters are meaningless without a viewer; anonymous requests
	// get the unfiltered listing instead of an empty page.
	if viewerID == "" {
		filter.OnlyFavorited = false
		filter.OnlyShoppingCart = false
	}

	recipes, count, err := s.recipeRepository.GetRecipes(ctx, filter, viewerID, page, limit)
	if err != nil {
		return nil, 0, err
	}

	result := make([]domain.RecipeResponse, 0, len(recipes))
	for _, r := range recipes {
		result = append(result, s.toRecipeResponse(ctx, r, viewerID))
	}
	return result, count, nil
}

func (s *recipeService) DeleteRecipe(ctx context.Context, id string, userID string) error {
	recipe, err := s.getOwnedRecipe(ctx, id, userID)
	if err != nil {
		return err
	}

	if recipe.ImageURL != "" {
		if objectKey := s.s3.GetObjectKeyFromLink(recipe.ImageURL); objectKey != "" {
			_ = s.s3.DeleteFile(objectKey)
		}
	}

	return s.recipeRepository.DeleteRecipe(ctx, id)
}

func (s *recipeService) AddFavorite(ctx context.Context, recipeID, userID string) (domain.RecipeSummary, error) {
	recipe, userUUID, err := s.getRecipeAndUser(ctx, recipeID, userID)
	if err != nil {
		return domain.RecipeSummary{}, err
	}

	if err := s.recipeRepository.AddFavorite(ctx, userUUID, recipe.ID); err != nil {
		return domain.RecipeSummary{}, err
	}
	return toRecipeSummary(recipe), nil
}

func (s *recipeService) RemoveFavorite(ctx context.Context, recipeID, userID string) error {
	if _, err := s.recipeRepository.GetRecipeByID(ctx, recipeID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrRecipeNotFound
		}
		return err
	}
	return s.recipeRepository.RemoveFavorite(ctx, userID, recipeID)
}

func (s *recipeService) AddToCart(ctx context.Context, recipeID, userID string) (domain.RecipeSummary, error) {
	recipe, userUUID, err := s.getRecipeAndUser(ctx, recipeID, userID)
	if err != nil {
		return domain.RecipeSummary{}, err
	}

	if err := s.recipeRepository.AddToCart(ctx, userUUID, recipe.ID); err != nil {
		return domain.RecipeSummary{}, err
	}
	return toRecipeSummary(recipe), nil
}

func (s *recipeService) RemoveFromCart(ctx context.Context, recipeID, userID string) error {
	if _, err := s.recipeRepository.GetRecipeByID(ctx, recipeID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrRecipeNotFound
		}
		return err
	}
	return s.recipeRepository.RemoveFromCart(ctx, userID, recipeID)
}

func (s *recipeService) GetShortLink(ctx context.Context, recipeID string) (domain.ShortLinkResponse, error) {
	if _, err := s.recipeRepository.GetRecipeByID(ctx, recipeID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ShortLinkResponse{}, domain.ErrRecipeNotFound
		}
		return domain.ShortLinkResponse{}, err
	}

	base := strings.TrimRight(utils.GetConfig("APP_URL"), "/")
	return domain.ShortLinkResponse{
		ShortLink: fmt.Sprintf("%s/s/%s", base, recipeID),
	}, nil
}

// ResolveShortLink returns the canonical recipe location for a short id so
// the handler can issue a redirect.
func (s *recipeService) ResolveShortLink(ctx context.Context, recipeID string) (string, error) {
	if _, err := uuid.Parse(recipeID); err != nil {
		return "", domain.ErrParseUUID
	}
	if _, err := s.recipeRepository.GetRecipeByID(ctx, recipeID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", domain.ErrRecipeNotFound
		}
		return "", err
	}
	return "/recipes/" + recipeID, nil
}

func (s *recipeService) DownloadShoppingList(ctx context.Context, userID string) ([]byte, error) {
	names, err := s.recipeRepository.GetShoppingCartRecipeNames(ctx, userID)
	if err != nil {
		return nil, err
	}

	items, err := s.recipeRepository.GetShoppingListItems(ctx, userID)
	if err != nil {
		return nil, err
	}

	return []byte(GenerateShoppingListText(time.Now(), names, items)), nil
}

func (s *recipeService) getOwnedRecipe(ctx context.Context, id string, userID string) (*entities.Recipe, error) {
	recipe, err := s.recipeRepository.GetRecipeByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrRecipeNotFound
		}
		return nil, err
	}
	if recipe.AuthorID.String() != userID {
		return nil, domain.ErrNotRecipeAuthor
	}
	return recipe, nil
}

func (s *recipeService) getRecipeAndUser(ctx context.Context, recipeID, userID string) (*entities.Recipe, uuid.UUID, error) {
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return nil, uuid.Nil, domain.ErrParseUUID
	}

	recipe, err := s.recipeRepository.GetRecipeByID(ctx, recipeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, uuid.Nil, domain.ErrRecipeNotFound
		}
		return nil, uuid.Nil, err
	}
	return recipe, userUUID, nil
}

// validateRecipeFields checks the cooking time and the whole ingredient list
// at once. Independent problems are joined so a response can name every
// unknown id, every duplicate and every bad amount in one pass.
func (s *recipeService) validateRecipeFields(ctx context.Context, cookingTime int, ingredients []domain.RecipeIngredientRequest) error {
	var errs []error

	if cookingTime < domain.MinCookingTime {
		errs = append(errs, fmt.Errorf("%w: got %d, minimum is %d", domain.ErrInvalidCookingTime, cookingTime, domain.MinCookingTime))
	}

	if len(ingredients) == 0 {
		errs = append(errs, domain.ErrEmptyIngredientList)
		return errors.Join(errs...)
	}

	ids := make([]uuid.UUID, 0, len(ingredients))
	seen := make(map[uuid.UUID]bool, len(ingredients))
	var duplicates, badAmounts []string

	for _, ing := range ingredients {
		id, err := uuid.Parse(ing.ID)
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: %q", domain.ErrParseUUID, ing.ID))
			continue
		}
		if seen[id] {
			duplicates = append(duplicates, id.String())
		}
		seen[id] = true
		ids = append(ids, id)

		if ing.Amount < domain.MinIngredientAmount {
			badAmounts = append(badAmounts, fmt.Sprintf("%s (%d)", id, ing.Amount))
		}
	}

	if len(duplicates) > 0 {
		sort.Strings(duplicates)
		errs = append(errs, fmt.Errorf("%w: %s", domain.ErrDuplicateIngredient, strings.Join(duplicates, ", ")))
	}
	if len(badAmounts) > 0 {
		sort.Strings(badAmounts)
		errs = append(errs, fmt.Errorf("%w: %s", domain.ErrInvalidAmount, strings.Join(badAmounts, ", ")))
	}

	if len(ids) > 0 {
		existing, err := s.recipeRepository.ExistingIngredientIDs(ctx, ids)
		if err != nil {
			return err
		}
		var unknown []string
		for id := range seen {
			if !existing[id] {
				unknown = append(unknown, id.String())
			}
		}
		if len(unknown) > 0 {
			sort.Strings(unknown)
			errs = append(errs, fmt.Errorf("%w: %s", domain.ErrUnknownIngredient, strings.Join(unknown, ", ")))
		}
	}

	return errors.Join(errs...)
}

func buildIngredientRows(recipeID uuid.UUID, ingredients []domain.RecipeIngredientRequest) []*entities.RecipeIngredient {
	rows := make([]*entities.RecipeIngredient, 0, len(ingredients))
	for _, ing := range ingredients {
		rows = append(rows, &entities.RecipeIngredient{
			ID:           uuid.New(),
			RecipeID:     recipeID,
			IngredientID: uuid.MustParse(ing.ID),
			Amount:       ing.Amount,
		})
	}
	return rows
}

// decodeImagePayload accepts either a bare base64 string or a data URI of
// the form data:image/<type>;base64,<payload>.
func decodeImagePayload(payload string) ([]byte, string, error) {
	raw := payload
	if strings.HasPrefix(payload, "data:") {
		idx := strings.Index(payload, ";base64,")
		if idx < 0 {
			return nil, "", domain.ErrInvalidImagePayload
		}
		raw = payload[idx+len(";base64,"):]
	}

	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, "", domain.ErrInvalidImagePayload
	}
	if len(data) == 0 {
		return nil, "", domain.ErrInvalidImagePayload
	}

	contentType := http.DetectContentType(data)
	if !strings.HasPrefix(contentType, "image/") {
		return nil, "", domain.ErrInvalidImagePayload
	}
	return data, contentType, nil
}

func toRecipeSummary(recipe *entities.Recipe) domain.RecipeSummary {
	return domain.RecipeSummary{
		ID:          recipe.ID.String(),
		Name:        recipe.Name,
		Image:       recipe.ImageURL,
		CookingTime: recipe.CookingTime,
	}
}

func (s *recipeService) toRecipeResponse(ctx context.Context, recipe *entities.Recipe, viewerID string) domain.RecipeResponse {
	res := domain.RecipeResponse{
		ID:          recipe.ID.String(),
		Name:        recipe.Name,
		Text:        recipe.Text,
		Image:       recipe.ImageURL,
		CookingTime: recipe.CookingTime,
	}

	if recipe.Author != nil {
		res.Author = domain.UserResponse{
			ID:        recipe.Author.ID.String(),
			Email:     recipe.Author.Email,
			Username:  recipe.Author.Username,
			FirstName: recipe.Author.FirstName,
			LastName:  recipe.Author.LastName,
			Avatar:    recipe.Author.AvatarURL,
		}
		if viewerID != "" && viewerID != res.Author.ID {
			if subscribed, err := s.userRepository.IsSubscribed(ctx, viewerID, res.Author.ID); err == nil {
				res.Author.IsSubscribed = subscribed
			}
		}
	}

	res.Ingredients = make([]domain.RecipeIngredientResponse, 0, len(recipe.Ingredients))
	for _, ri := range recipe.Ingredients {
		item := domain.RecipeIngredientResponse{
			ID:     ri.IngredientID.String(),
			Amount: ri.Amount,
		}
		if ri.Ingredient != nil {
			item.Name = ri.Ingredient.Name
			item.MeasurementUnit = ri.Ingredient.MeasurementUnit
		}
		res.Ingredients = append(res.Ingredients, item)
	}

	// Anonymous viewers always see the flags as false without touching the
	// relation tables.
	if viewerID != "" {
		if favorited, err := s.recipeRepository.IsFavorited(ctx, viewerID, res.ID); err == nil {
			res.IsFavorited = favorited
		}
		if inCart, err := s.recipeRepository.IsInCart(ctx, viewerID, res.ID); err == nil {
			res.IsInShoppingCart = inCart
		}
	}

	return res
}
