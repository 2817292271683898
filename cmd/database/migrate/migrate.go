package migration

import (
	"fmt"
	"log"

	"gorm.io/gorm"

	"recipebook-backend/entities"
)

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&entities.User{}); err != nil {
		log.Fatalf("Error migrating user table: %v", err)
		return err
	}
	if err := db.AutoMigrate(&entities.Ingredient{}); err != nil {
		log.Fatalf("Error migrating ingredient table: %v", err)
		return err
	}
	if err := db.AutoMigrate(&entities.Recipe{}, &entities.RecipeIngredient{}); err != nil {
		log.Fatalf("Error migrating recipe tables: %v", err)
		return err
	}
	if err := db.AutoMigrate(&entities.Favorite{}, &entities.ShoppingCart{}, &entities.Subscription{}); err != nil {
		log.Fatalf("Error migrating relation tables: %v", err)
		return err
	}

	fmt.Println("Database migration complete")
	return nil
}
