package handlers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"recipebook-backend/entities"
	"recipebook-backend/internal/api/handlers"
	"recipebook-backend/internal/api/routes"
	"recipebook-backend/internal/middleware"
	"recipebook-backend/internal/utils"
	"recipebook-backend/internal/utils/storage"
	"recipebook-backend/pkg/ingredient"
	"recipebook-backend/pkg/jwt"
	"recipebook-backend/pkg/recipe"
	"recipebook-backend/pkg/user"
)

type stubS3 struct{}

func (stubS3) UploadFile(fileName string, _ *multipart.FileHeader, folder string, _ ...string) (string, error) {
	return folder + "/" + fileName + ".png", nil
}

func (stubS3) UploadBytes(fileName string, _ []byte, contentType string, folder string, _ ...string) (string, error) {
	return folder + "/" + fileName + ".png", nil
}

func (stubS3) UpdateFile(objectKey string, _ *multipart.FileHeader, _ ...string) (string, error) {
	return objectKey, nil
}

func (stubS3) DeleteFile(string) error { return nil }

func (stubS3) GetPublicLinkKey(objectKey string) string { return "https://cdn.test/" + objectKey }

func (stubS3) GetObjectKeyFromLink(link string) string {
	return strings.TrimPrefix(link, "https://cdn.test/")
}

var _ storage.AwsS3 = stubS3{}

func newTestApp(t *testing.T) (*fiber.App, *gorm.DB) {
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

	utils.InitValidator()
	app := fiber.New()

	s3 := stubS3{}
	userRepository := user.NewUserRepository(db)
	ingredientRepository := ingredient.NewIngredientRepository(db)
	recipeRepository := recipe.NewRecipeRepository(db)

	jwtService := jwt.NewJWTService()
	userService := user.NewUserService(userRepository, jwtService, s3)
	ingredientService := ingredient.NewIngredientService(ingredientRepository)
	recipeService := recipe.NewRecipeService(recipeRepository, userRepository, s3)

	routesConfig := routes.Config{
		App:               app,
		UserHandler:       handlers.NewUserHandler(userService, utils.Validate),
		IngredientHandler: handlers.NewIngredientHandler(ingredientService),
		RecipeHandler:     handlers.NewRecipeHandler(recipeService, utils.Validate),
		Middleware:        middleware.NewMiddleware(),
		JWTService:        jwtService,
	}
	routesConfig.Setup()

	return app, db
}

func doJSON(t *testing.T, app *fiber.App, method, path, token string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	var parsed map[string]interface{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &parsed)
	}
	return resp, parsed
}

func TestRegisterLoginMeFlow(t *testing.T) {
	app, _ := newTestApp(t)

	resp, _ := doJSON(t, app, fiber.MethodPost, "/api/v1/users/register", "", fiber.Map{
		"email":      "alice@example.com",
		"username":   "alice",
		"first_name": "Alice",
		"last_name":  "Cook",
		"password":   "secret-password",
	})
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	resp, body := doJSON(t, app, fiber.MethodPost, "/api/v1/users/login", "", fiber.Map{
		"email":    "alice@example.com",
		"password": "secret-password",
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	token, _ := body["data"].(map[string]interface{})["auth_token"].(string)
	require.NotEmpty(t, token)

	resp, body = doJSON(t, app, fiber.MethodGet, "/api/v1/users/me", token, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "alice", body["data"].(map[string]interface{})["username"])

	resp, _ = doJSON(t, app, fiber.MethodGet, "/api/v1/users/me", "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestRegisterValidationFailures(t *testing.T) {
	app, _ := newTestApp(t)

	resp, _ := doJSON(t, app, fiber.MethodPost, "/api/v1/users/register", "", fiber.Map{
		"email":      "not-an-email",
		"username":   "alice",
		"first_name": "Alice",
		"last_name":  "Cook",
		"password":   "secret-password",
	})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, body := doJSON(t, app, fiber.MethodPost, "/api/v1/users/register", "", fiber.Map{
		"email":      "alice@example.com",
		"username":   "bad user!",
		"first_name": "Alice",
		"last_name":  "Cook",
		"password":   "secret-password",
	})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body["error"], "!")
}

func TestIngredientEndpoints(t *testing.T) {
	app, db := newTestApp(t)

	salt := &entities.Ingredient{ID: uuid.New(), Name: "salt", MeasurementUnit: "g"}
	require.NoError(t, db.Create(salt).Error)
	require.NoError(t, db.Create(&entities.Ingredient{ID: uuid.New(), Name: "pepper", MeasurementUnit: "g"}).Error)

	resp, body := doJSON(t, app, fiber.MethodGet, "/api/v1/ingredients?name=sa", "", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	items := body["data"].([]interface{})
	require.Len(t, items, 1)
	assert.Equal(t, "salt", items[0].(map[string]interface{})["name"])

	resp, body = doJSON(t, app, fiber.MethodGet, "/api/v1/ingredients/"+salt.ID.String(), "", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "g", body["data"].(map[string]interface{})["measurement_unit"])

	resp, _ = doJSON(t, app, fiber.MethodGet, "/api/v1/ingredients/"+uuid.NewString(), "", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestShortLinkUnknownIDIsBadRequest(t *testing.T) {
	app, _ := newTestApp(t)

	resp, _ := doJSON(t, app, fiber.MethodGet, "/s/"+uuid.NewString(), "", nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, _ = doJSON(t, app, fiber.MethodGet, "/s/garbage", "", nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
