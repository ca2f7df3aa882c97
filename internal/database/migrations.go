package database

import (
	"errors"
	"time"

	"github.com/MarcoPoloResearchLab/notepad/internal/notes"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	migrationRepairNoteTimestamps = "2026-10-18_repair_note_timestamps"
	migrationTrimNoteText         = "2026-10-18_trim_note_text"

	// space, tab, newline, carriage return
	whitespaceChars = "char(32, 9, 10, 13)"
)

type migrationRecord struct {
	Name             string `gorm:"column:name;primaryKey;size:190;not null"`
	AppliedAtSeconds int64  `gorm:"column:applied_at_s;not null"`
}

func (migrationRecord) TableName() string {
	return "db_migrations"
}

type migrationDefinition struct {
	name  string
	apply func(*gorm.DB) error
}

func applyMigrations(db *gorm.DB, logger *zap.Logger) error {
	migrations := []migrationDefinition{
		{name: migrationRepairNoteTimestamps, apply: repairNoteTimestamps},
		{name: migrationTrimNoteText, apply: trimNoteText},
	}

	for _, migration := range migrations {
		var record migrationRecord
		err := db.Where("name = ?", migration.name).Take(&record).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := migration.apply(db); err != nil {
			return err
		}
		appliedAt := time.Now().UTC().Unix()
		if err := db.Create(&migrationRecord{Name: migration.name, AppliedAtSeconds: appliedAt}).Error; err != nil {
			return err
		}
		if logger != nil {
			logger.Info("database migration applied", zap.String("migration", migration.name))
		}
	}
	return nil
}

// repairNoteTimestamps lifts updated_at to created_at where an import left it earlier.
func repairNoteTimestamps(db *gorm.DB) error {
	return db.Model(&notes.Note{}).
		Where("updated_at < created_at").
		Update("updated_at", gorm.Expr("created_at")).Error
}

// trimNoteText strips surrounding whitespace from rows written before text was normalized.
func trimNoteText(db *gorm.DB) error {
	return db.Model(&notes.Note{}).
		Where("title <> trim(title, "+whitespaceChars+") OR content <> trim(content, "+whitespaceChars+")").
		Updates(map[string]any{
			"title":   gorm.Expr("trim(title, " + whitespaceChars + ")"),
			"content": gorm.Expr("trim(content, " + whitespaceChars + ")"),
		}).Error
}
