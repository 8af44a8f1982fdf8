package database

import (
	"log"

	"gorm.io/gorm"
)

// RunMigrations runs any custom data migrations after schema changes
func RunMigrations(db *gorm.DB, operatorLanguage string) error {
	if err := migrateTranslatedColumn(db); err != nil {
		return err
	}
	if err := backfillOperatorLanguage(db, operatorLanguage); err != nil {
		return err
	}
	return nil
}

// migrateTranslatedColumn copies the legacy messages.translated column into
// translated_text. Safe to run multiple times: it only touches rows where the
// new column is still NULL.
func migrateTranslatedColumn(db *gorm.DB) error {
	if !db.Migrator().HasColumn("messages", "translated") {
		return nil
	}

	log.Println("Migrating messages: translated -> translated_text")

	result := db.Exec(`
		UPDATE messages
		SET translated_text = translated
		WHERE translated_text IS NULL
		  AND translated IS NOT NULL
		  AND translated != ''
	`)
	if result.Error != nil {
		log.Printf("Warning: failed to migrate messages translated column: %v", result.Error)
	} else {
		log.Printf("Migrated %d message rows", result.RowsAffected)
	}
	return nil
}

// backfillOperatorLanguage sets the configured operator language on
// conversations created before the column existed.
func backfillOperatorLanguage(db *gorm.DB, operatorLanguage string) error {
	result := db.Exec(`
		UPDATE conversations
		SET operator_language = ?
		WHERE operator_language IS NULL OR operator_language = ''
	`, operatorLanguage)
	if result.Error != nil {
		log.Printf("Warning: failed to backfill operator_language: %v", result.Error)
		return nil
	}
	if result.RowsAffected > 0 {
		log.Printf("Backfilled operator_language on %d conversations", result.RowsAffected)
	}
	return nil
}
