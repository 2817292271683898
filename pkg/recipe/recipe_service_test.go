package recipe

import (
	"context"
	"encoding/base64"
	"mime/multipart"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"recipebook-backend/domain"
	"recipebook-backend/entities"
	"recipebook-backend/internal/utils/storage"
	"recipebook-backend/pkg/user"
)

type fakeS3 struct{}

func (fakeS3) UploadFile(fileName string, _ *multipart.FileHeader, folder string, _ ...string) (string, error) {
	return folder + "/" + fileName + ".png", nil
}

func (fakeS3) UploadBytes(fileName string, _ []byte, contentType string, folder string, _ ...string) (string, error) {
	return folder + "/" + fileName + ".png", nil
}

func (fakeS3) UpdateFile(objectKey string, _ *multipart.FileHeader, _ ...string) (string, error) {
	return objectKey, nil
}

func (fakeS3) DeleteFile(string) error { return nil }

func (fakeS3) GetPublicLinkKey(objectKey string) string {
	return "https://cdn.test/" + objectKey
}

func (fakeS3) GetObjectKeyFromLink(link string) string {
	return strings.TrimPrefix(link, "https://cdn.test/")
}

var _ storage.AwsS3 = fakeS3{}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&entities.User{},
		&entities.Ingredient{},
		&entities.Recipe{},
		&entities.RecipeIngredient{},
		&entities.Favorite{},
		&entities.ShoppingCart{},
		&entities.Subscription{},
	))
	return db
}

func newTestRecipeService(t *testing.T) (RecipeService, *gorm.DB) {
	t.Helper()
	db := setupTestDB(t)
	svc := NewRecipeService(NewRecipeRepository(db), user.NewUserRepository(db), fakeS3{})
	return svc, db
}

func createTestUser(t *testing.T, db *gorm.DB, username string) *entities.User {
	t.Helper()
	u := &entities.User{
		ID:        uuid.New(),
		Username:  username,
		Email:     username + "@example.com",
		FirstName: "Test",
		LastName:  "User",
		Password:  "irrelevant",
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

func createTestIngredient(t *testing.T, db *gorm.DB, name, unit string) *entities.Ingredient {
	t.Helper()
	ing := &entities.Ingredient{
		ID:              uuid.New(),
		Name:            name,
		MeasurementUnit: unit,
	}
	require.NoError(t, db.Create(ing).Error)
	return ing
}

func pngPayload() string {
	header := []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(header)
}

func createTestRecipe(t *testing.T, svc RecipeService, authorID, name string, ingredients ...domain.RecipeIngredientRequest) domain.RecipeResponse {
	t.Helper()
	res, err := svc.CreateRecipe(context.Background(), domain.CreateRecipeRequest{
		Name:        name,
		Text:        "step by step",
		Image:       pngPayload(),
		CookingTime: 15,
		Ingredients: ingredients,
	}, authorID)
	require.NoError(t, err)
	return res
}

func TestCreateRecipe(t *testing.T) {
	svc, db := newTestRecipeService(t)
	author := createTestUser(t, db, "alice")
	salt := createTestIngredient(t, db, "salt", "g")
	pepper := createTestIngredient(t, db, "pepper", "g")

	res := createTestRecipe(t, svc, author.ID.String(), "Soup",
		domain.RecipeIngredientRequest{ID: salt.ID.String(), Amount: 2},
		domain.RecipeIngredientRequest{ID: pepper.ID.String(), Amount: 1},
	)

	assert.Equal(t, "Soup", res.Name)
	assert.Equal(t, "alice", res.Author.Username)
	assert.Len(t, res.Ingredients, 2)
	assert.False(t, res.IsFavorited)
	assert.False(t, res.IsInShoppingCart)
	assert.Contains(t, res.Image, "recipes/")
}

func TestCreateRecipeValidation(t *testing.T) {
	svc, db := newTestRecipeService(t)
	author := createTestUser(t, db, "alice")
	salt := createTestIngredient(t, db, "salt", "g")

	t.Run("missing image", func(t *testing.T) {
		_, err := svc.CreateRecipe(context.Background(), domain.CreateRecipeRequest{
			Name:        "Soup",
			Text:        "text",
			CookingTime: 5,
			Ingredients: []domain.RecipeIngredientRequest{{ID: salt.ID.String(), Amount: 1}},
		}, author.ID.String())
		assert.ErrorIs(t, err, domain.ErrMissingImage)
	})

	t.Run("empty ingredient list", func(t *testing.T) {
		_, err := svc.CreateRecipe(context.Background(), domain.CreateRecipeRequest{
			Name:        "Soup",
			Text:        "text",
			Image:       pngPayload(),
			CookingTime: 5,
		}, author.ID.String())
		assert.ErrorIs(t, err, domain.ErrEmptyIngredientList)
	})

	t.Run("all problems reported together", func(t *testing.T) {
		unknown := uuid.NewString()
		_, err := svc.CreateRecipe(context.Background(), domain.CreateRecipeRequest{
			Name:        "Soup",
			Text:        "text",
			Image:       pngPayload(),
			CookingTime: 0,
			Ingredients: []domain.RecipeIngredientRequest{
				{ID: salt.ID.String(), Amount: 0},
				{ID: salt.ID.String(), Amount: 2},
				{ID: unknown, Amount: 1},
			},
		}, author.ID.String())
		assert.ErrorIs(t, err, domain.ErrInvalidCookingTime)
		assert.ErrorIs(t, err, domain.ErrDuplicateIngredient)
		assert.ErrorIs(t, err, domain.ErrInvalidAmount)
		assert.ErrorIs(t, err, domain.ErrUnknownIngredient)
		assert.Contains(t, err.Error(), unknown)
	})

	t.Run("garbage image payload", func(t *testing.T) {
		_, err := svc.CreateRecipe(context.Background(), domain.CreateRecipeRequest{
			Name:        "Soup",
			Text:        "text",
			Image:       "not base64 at all",
			CookingTime: 5,
			Ingredients: []domain.RecipeIngredientRequest{{ID: salt.ID.String(), Amount: 1}},
		}, author.ID.String())
		assert.ErrorIs(t, err, domain.ErrInvalidImagePayload)
	})
}

func TestCreateRecipeDuplicateName(t *testing.T) {
	svc, db := newTestRecipeService(t)
	author := createTestUser(t, db, "alice")
	other := createTestUser(t, db, "bob")
	salt := createTestIngredient(t, db, "salt", "g")
	req := domain.RecipeIngredientRequest{ID: salt.ID.String(), Amount: 1}

	createTestRecipe(t, svc, author.ID.String(), "Soup", req)

	_, err := svc.CreateRecipe(context.Background(), domain.CreateRecipeRequest{
		Name:        "Soup",
		Text:        "text",
		Image:       pngPayload(),
		CookingTime: 5,
		Ingredients: []domain.RecipeIngredientRequest{req},
	}, author.ID.String())
	assert.ErrorIs(t, err, domain.ErrRecipeExists)

	// a different author may reuse the name
	createTestRecipe(t, svc, other.ID.String(), "Soup", req)
}

func TestUpdateRecipeReplacesIngredients(t *testing.T) {
	svc, db := newTestRecipeService(t)
	author := createTestUser(t, db, "alice")
	salt := createTestIngredient(t, db, "salt", "g")
	pepper := createTestIngredient(t, db, "pepper", "g")

	created := createTestRecipe(t, svc, author.ID.String(), "Soup",
		domain.RecipeIngredientRequest{ID: salt.ID.String(), Amount: 2},
		domain.RecipeIngredientRequest{ID: pepper.ID.String(), Amount: 1},
	)

	updated, err := svc.UpdateRecipe(context.Background(), created.ID, domain.UpdateRecipeRequest{
		Name:        "Better Soup",
		Text:        "revised",
		CookingTime: 20,
		Ingredients: []domain.RecipeIngredientRequest{
			{ID: pepper.ID.String(), Amount: 5},
		},
	}, author.ID.String())
	require.NoError(t, err)

	assert.Equal(t, "Better Soup", updated.Name)
	require.Len(t, updated.Ingredients, 1)
	assert.Equal(t, pepper.ID.String(), updated.Ingredients[0].ID)
	assert.Equal(t, 5, updated.Ingredients[0].Amount)

	var rows int64
	require.NoError(t, db.Model(&entities.RecipeIngredient{}).Count(&rows).Error)
	assert.Equal(t, int64(1), rows)
}

func TestUpdateRecipeAuthorOnly(t *testing.T) {
	svc, db := newTestRecipeService(t)
	author := createTestUser(t, db, "alice")
	intruder := createTestUser(t, db, "bob")
	salt := createTestIngredient(t, db, "salt", "g")

	created := createTestRecipe(t, svc, author.ID.String(), "Soup",
		domain.RecipeIngredientRequest{ID: salt.ID.String(), Amount: 1})

	_, err := svc.UpdateRecipe(context.Background(), created.ID, domain.UpdateRecipeRequest{
		Name:        "Stolen Soup",
		Text:        "text",
		CookingTime: 5,
		Ingredients: []domain.RecipeIngredientRequest{{ID: salt.ID.String(), Amount: 1}},
	}, intruder.ID.String())
	assert.ErrorIs(t, err, domain.ErrNotRecipeAuthor)

	err = svc.DeleteRecipe(context.Background(), created.ID, intruder.ID.String())
	assert.ErrorIs(t, err, domain.ErrNotRecipeAuthor)
}

func TestDeleteRecipeCleansRelations(t *testing.T) {
	svc, db := newTestRecipeService(t)
	author := createTestUser(t, db, "alice")
	fan := createTestUser(t, db, "bob")
	salt := createTestIngredient(t, db, "salt", "g")

	created := createTestRecipe(t, svc, author.ID.String(), "Soup",
		domain.RecipeIngredientRequest{ID: salt.ID.String(), Amount: 1})

	_, err := svc.AddFavorite(context.Background(), created.ID, fan.ID.String())
	require.NoError(t, err)
	_, err = svc.AddToCart(context.Background(), created.ID, fan.ID.String())
	require.NoError(t, err)

	require.NoError(t, svc.DeleteRecipe(context.Background(), created.ID, author.ID.String()))

	for _, model := range []interface{}{
		&entities.Recipe{}, &entities.RecipeIngredient{}, &entities.Favorite{}, &entities.ShoppingCart{},
	} {
		var count int64
		require.NoError(t, db.Model(model).Count(&count).Error)
		assert.Zero(t, count)
	}
}

func TestFavoriteToggle(t *testing.T) {
	svc, db := newTestRecipeService(t)
	author := createTestUser(t, db, "alice")
	fan := createTestUser(t, db, "bob")
	salt := createTestIngredient(t, db, "salt", "g")

	created := createTestRecipe(t, svc, author.ID.String(), "Soup",
		domain.RecipeIngredientRequest{ID: salt.ID.String(), Amount: 1})

	summary, err := svc.AddFavorite(context.Background(), created.ID, fan.ID.String())
	require.NoError(t, err)
	assert.Equal(t, created.ID, summary.ID)
	assert.Equal(t, "Soup", summary.Name)

	_, err = svc.AddFavorite(context.Background(), created.ID, fan.ID.String())
	assert.ErrorIs(t, err, domain.ErrAlreadyFavorited)

	detail, err := svc.GetRecipeDetail(context.Background(), created.ID, fan.ID.String())
	require.NoError(t, err)
	assert.True(t, detail.IsFavorited)

	require.NoError(t, svc.RemoveFavorite(context.Background(), created.ID, fan.ID.String()))
	err = svc.RemoveFavorite(context.Background(), created.ID, fan.ID.String())
	assert.ErrorIs(t, err, domain.ErrNotFavorited)

	_, err = svc.AddFavorite(context.Background(), uuid.NewString(), fan.ID.String())
	assert.ErrorIs(t, err, domain.ErrRecipeNotFound)
}

func TestCartToggle(t *testing.T) {
	svc, db := newTestRecipeService(t)
	author := createTestUser(t, db, "alice")
	fan := createTestUser(t, db, "bob")
	salt := createTestIngredient(t, db, "salt", "g")

	created := createTestRecipe(t, svc, author.ID.String(), "Soup",
		domain.RecipeIngredientRequest{ID: salt.ID.String(), Amount: 1})

	_, err := svc.AddToCart(context.Background(), created.ID, fan.ID.String())
	require.NoError(t, err)
	_, err = svc.AddToCart(context.Background(), created.ID, fan.ID.String())
	assert.ErrorIs(t, err, domain.ErrAlreadyInCart)

	detail, err := svc.GetRecipeDetail(context.Background(), created.ID, fan.ID.String())
	require.NoError(t, err)
	assert.True(t, detail.IsInShoppingCart)

	require.NoError(t, svc.RemoveFromCart(context.Background(), created.ID, fan.ID.String()))
	err = svc.RemoveFromCart(context.Background(), created.ID, fan.ID.String())
	assert.ErrorIs(t, err, domain.ErrNotInCart)
}

func TestAnonymousViewerFlags(t *testing.T) {
	svc, db := newTestRecipeService(t)
	author := createTestUser(t, db, "alice")
	fan := createTestUser(t, db, "bob")
	salt := createTestIngredient(t, db, "salt", "g")

	created := createTestRecipe(t, svc, author.ID.String(), "Soup",
		domain.RecipeIngredientRequest{ID: salt.ID.String(), Amount: 1})

	_, err := svc.AddFavorite(context.Background(), created.ID, fan.ID.String())
	require.NoError(t, err)
	_, err = svc.AddToCart(context.Background(), created.ID, fan.ID.String())
	require.NoError(t, err)

	detail, err := svc.GetRecipeDetail(context.Background(), created.ID, "")
	require.NoError(t, err)
	assert.False(t, detail.IsFavorited)
	assert.False(t, detail.IsInShoppingCart)
	assert.False(t, detail.Author.IsSubscribed)
}

func TestGetRecipesFilters(t *testing.T) {
	svc, db := newTestRecipeService(t)
	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")
	salt := createTestIngredient(t, db, "salt", "g")
	req := domain.RecipeIngredientRequest{ID: salt.ID.String(), Amount: 1}

	soup := createTestRecipe(t, svc, alice.ID.String(), "Soup", req)
	createTestRecipe(t, svc, bob.ID.String(), "Stew", req)

	_, err := svc.AddFavorite(context.Background(), soup.ID, bob.ID.String())
	require.NoError(t, err)

	all, count, err := svc.GetRecipes(context.Background(), domain.RecipeFilter{}, "", 1, domain.DefaultPageSize)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
	assert.Len(t, all, 2)

	byAuthor, count, err := svc.GetRecipes(context.Background(), domain.RecipeFilter{AuthorID: alice.ID.String()}, "", 1, domain.DefaultPageSize)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	require.Len(t, byAuthor, 1)
	assert.Equal(t, "Soup", byAuthor[0].Name)

	favorited, count, err := svc.GetRecipes(context.Background(), domain.RecipeFilter{OnlyFavorited: true}, bob.ID.String(), 1, domain.DefaultPageSize)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	require.Len(t, favorited, 1)
	assert.Equal(t, "Soup", favorited[0].Name)

	// anonymous viewers get the unfiltered listing
	anon, count, err := svc.GetRecipes(context.Background(), domain.RecipeFilter{OnlyFavorited: true}, "", 1, domain.DefaultPageSize)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
	assert.Len(t, anon, 2)
}

func TestShoppingListAggregation(t *testing.T) {
	svc, db := newTestRecipeService(t)
	author := createTestUser(t, db, "alice")
	shopper := createTestUser(t, db, "bob")
	salt := createTestIngredient(t, db, "salt", "g")
	pepper := createTestIngredient(t, db, "pepper", "pcs")

	soup := createTestRecipe(t, svc, author.ID.String(), "Soup",
		domain.RecipeIngredientRequest{ID: salt.ID.String(), Amount: 2},
		domain.RecipeIngredientRequest{ID: pepper.ID.String(), Amount: 1},
	)
	stew := createTestRecipe(t, svc, author.ID.String(), "Stew",
		domain.RecipeIngredientRequest{ID: salt.ID.String(), Amount: 3},
	)

	_, err := svc.AddToCart(context.Background(), soup.ID, shopper.ID.String())
	require.NoError(t, err)
	_, err = svc.AddToCart(context.Background(), stew.ID, shopper.ID.String())
	require.NoError(t, err)

	data, err := svc.DownloadShoppingList(context.Background(), shopper.ID.String())
	require.NoError(t, err)

	text := string(data)
	assert.Contains(t, text, "Shopping list from ")
	assert.Contains(t, text, "1. Soup")
	assert.Contains(t, text, "2. Stew")
	assert.Contains(t, text, "Salt: 5 g")
	assert.Contains(t, text, "Pepper: 1 pcs")
}

func TestShortLink(t *testing.T) {
	svc, db := newTestRecipeService(t)
	author := createTestUser(t, db, "alice")
	salt := createTestIngredient(t, db, "salt", "g")

	created := createTestRecipe(t, svc, author.ID.String(), "Soup",
		domain.RecipeIngredientRequest{ID: salt.ID.String(), Amount: 1})

	link, err := svc.GetShortLink(context.Background(), created.ID)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(link.ShortLink, "/s/"+created.ID))

	target, err := svc.ResolveShortLink(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "/recipes/"+created.ID, target)

	_, err = svc.ResolveShortLink(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrRecipeNotFound)

	_, err = svc.ResolveShortLink(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, domain.ErrParseUUID)
}
