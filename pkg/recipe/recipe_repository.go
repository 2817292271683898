package recipe

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"recipebook-backend/domain"
	"recipebook-backend/entities"
	"recipebook-backend/pkg/relation"
)

type (
	RecipeRepository interface {
		CreateRecipeWithIngredients(ctx context.Context, recipe *entities.Recipe, ingredients []*entities.RecipeIngredient) error
		UpdateRecipeWithIngredients(ctx context.Context, recipe *entities.Recipe, ingredients []*entities.RecipeIngredient) error
		GetRecipeByID(ctx context.Context, id string) (*entities.Recipe, error)
		GetRecipes(ctx context.Context, filter domain.RecipeFilter, viewerID string, page, limit int) ([]*entities.Recipe, int64, error)
		DeleteRecipe(ctx context.Context, id string) error
		ExistingIngredientIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]bool, error)

		AddFavorite(ctx context.Context, userID, recipeID uuid.UUID) error
		RemoveFavorite(ctx context.Context, userID, recipeID string) error
		IsFavorited(ctx context.Context, userID, recipeID string) (bool, error)

		AddToCart(ctx context.Context, userID, recipeID uuid.UUID) error
		RemoveFromCart(ctx context.Context, userID, recipeID string) error
		IsInCart(ctx context.Context, userID, recipeID string) (bool, error)

		GetShoppingListItems(ctx context.Context, userID string) ([]domain.ShoppingListItem, error)
		GetShoppingCartRecipeNames(ctx context.Context, userID string) ([]string, error)
	}

	recipeRepository struct {
		db *gorm.DB
	}
)

func NewRecipeRepository(db *gorm.DB) RecipeRepository {
	return &recipeRepository{db: db}
}

func (r *recipeRepository) CreateRecipeWithIngredients(ctx context.Context, recipe *entities.Recipe, ingredients []*entities.RecipeIngredient) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(recipe).Error; err != nil {
			return err
		}
		if len(ingredients) > 0 {
			if err := tx.Create(ingredients).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// UpdateRecipeWithIngredients replaces the recipe row and its entire
// ingredient list in one transaction. Rows are cleared and reinserted, not
// diffed, so the stored list always matches the submitted one exactly.
func (r *recipeRepository) UpdateRecipeWithIngredients(ctx context.Context, recipe *entities.Recipe, ingredients []*entities.RecipeIngredient) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(recipe).Error; err != nil {
			return err
		}
		if err := tx.Where("recipe_id = ?", recipe.ID).Delete(&entities.RecipeIngredient{}).Error; err != nil {
			return err
		}
		if len(ingredients) > 0 {
			if err := tx.Create(ingredients).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *recipeRepository) GetRecipeByID(ctx context.Context, id string) (*entities.Recipe, error) {
	var recipe entities.Recipe
	if err := r.db.WithContext(ctx).
		Preload("Author").
		Preload("Ingredients.Ingredient").
		Where("id = ?", id).
		First(&recipe).Error; err != nil {
		return nil, err
	}
	return &recipe, nil
}

func (r *recipeRepository) GetRecipes(ctx context.Context, filter domain.RecipeFilter, viewerID string, page, limit int) ([]*entities.Recipe, int64, error) {
	var recipes []*entities.Recipe
	var count int64
	offset := (page - 1) * limit

	base := func() *gorm.DB {
		query := r.db.WithContext(ctx).Model(&entities.Recipe{})
		if filter.AuthorID != "" {
			query = query.Where("recipes.author_id = ?", filter.AuthorID)
		}
		if filter.OnlyFavorited {
			query = query.
				Joins("JOIN favorites ON favorites.recipe_id = recipes.id").
				Where("favorites.user_id = ?", viewerID)
		}
		if filter.OnlyShoppingCart {
			query = query.
				Joins("JOIN shopping_carts ON shopping_carts.recipe_id = recipes.id").
				Where("shopping_carts.user_id = ?", viewerID)
		}
		return query
	}

	if err := base().Count(&count).Error; err != nil {
		return nil, 0, err
	}

	if err := base().
		Preload("Author").
		Preload("Ingredients.Ingredient").
		Offset(offset).
		Limit(limit).
		Order("recipes.created_at desc").
		Find(&recipes).Error; err != nil {
		return nil, 0, err
	}

	return recipes, count, nil
}

func (r *recipeRepository) DeleteRecipe(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("recipe_id = ?", id).Delete(&entities.RecipeIngredient{}).Error; err != nil {
			return err
		}
		if err := tx.Where("recipe_id = ?", id).Delete(&entities.Favorite{}).Error; err != nil {
			return err
		}
		if err := tx.Where("recipe_id = ?", id).Delete(&entities.ShoppingCart{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&entities.Recipe{}).Error
	})
}

func (r *recipeRepository) ExistingIngredientIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]bool, error) {
	var found []uuid.UUID
	if err := r.db.WithContext(ctx).
		Model(&entities.Ingredient{}).
		Where("id IN ?", ids).
		Pluck("id", &found).Error; err != nil {
		return nil, err
	}

	existing := make(map[uuid.UUID]bool, len(found))
	for _, id := range found {
		existing[id] = true
	}
	return existing, nil
}

func (r *recipeRepository) AddFavorite(ctx context.Context, userID, recipeID uuid.UUID) error {
	return relation.Add(ctx, r.db,
		map[string]interface{}{"user_id": userID, "recipe_id": recipeID},
		&entities.Favorite{
			ID:        uuid.New(),
			UserID:    userID,
			RecipeID:  recipeID,
			CreatedAt: time.Now(),
		},
		domain.ErrAlreadyFavorited,
	)
}

func (r *recipeRepository) RemoveFavorite(ctx context.Context, userID, recipeID string) error {
	return relation.Remove[entities.Favorite](ctx, r.db,
		map[string]interface{}{"user_id": userID, "recipe_id": recipeID},
		domain.ErrNotFavorited,
	)
}

func (r *recipeRepository) IsFavorited(ctx context.Context, userID, recipeID string) (bool, error) {
	return relation.Exists[entities.Favorite](ctx, r.db,
		map[string]interface{}{"user_id": userID, "recipe_id": recipeID},
	)
}

func (r *recipeRepository) AddToCart(ctx context.Context, userID, recipeID uuid.UUID) error {
	return relation.Add(ctx, r.db,
		map[string]interface{}{"user_id": userID, "recipe_id": recipeID},
		&entities.ShoppingCart{
			ID:        uuid.New(),
			UserID:    userID,
			RecipeID:  recipeID,
			CreatedAt: time.Now(),
		},
		domain.ErrAlreadyInCart,
	)
}

func (r *recipeRepository) RemoveFromCart(ctx context.Context, userID, recipeID string) error {
	return relation.Remove[entities.ShoppingCart](ctx, r.db,
		map[string]interface{}{"user_id": userID, "recipe_id": recipeID},
		domain.ErrNotInCart,
	)
}

func (r *recipeRepository) IsInCart(ctx context.Context, userID, recipeID string) (bool, error) {
	return relation.Exists[entities.ShoppingCart](ctx, r.db,
		map[string]interface{}{"user_id": userID, "recipe_id": recipeID},
	)
}

// GetShoppingListItems aggregates every ingredient across the user's cart in
// a single grouped query. The same ingredient appearing in several recipes
// comes back as one row with the amounts summed.
func (r *recipeRepository) GetShoppingListItems(ctx context.Context, userID string) ([]domain.ShoppingListItem, error) {
	var items []domain.ShoppingListItem
	if err := r.db.WithContext(ctx).
		Model(&entities.RecipeIngredient{}).
		Select("ingredients.name AS name, ingredients.measurement_unit AS measurement_unit, SUM(recipe_ingredients.amount) AS amount").
		Joins("JOIN ingredients ON ingredients.id = recipe_ingredients.ingredient_id").
		Joins("JOIN shopping_carts ON shopping_carts.recipe_id = recipe_ingredients.recipe_id").
		Where("shopping_carts.user_id = ?", userID).
		Group("ingredients.name, ingredients.measurement_unit").
		Order("ingredients.name asc").
		Scan(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *recipeRepository) GetShoppingCartRecipeNames(ctx context.Context, userID string) ([]string, error) {
	var names []string
	if err := r.db.WithContext(ctx).
		Model(&entities.Recipe{}).
		Joins("JOIN shopping_carts ON shopping_carts.recipe_id = recipes.id").
		Where("shopping_carts.user_id = ?", userID).
		Order("recipes.name asc").
		Pluck("recipes.name", &names).Error; err != nil {
		return nil, err
	}
	return names, nil
}
