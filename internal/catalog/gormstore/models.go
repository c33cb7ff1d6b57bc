package gormstore

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// BookRecord mirrors the books table. Sequence records insertion order.
type BookRecord struct {
	BookID    string         `gorm:"primaryKey"`
	Title     string         `gorm:"not null"`
	Author    string         `gorm:"not null"`
	ISBN      *string        `gorm:"uniqueIndex:uniq_books_isbn"`
	Year      string         `gorm:"not null;default:''"`
	Genre     string         `gorm:"not null;default:''"`
	Borrowed  bool           `gorm:"not null;default:false"`
	Metadata  datatypes.JSON `gorm:"not null"`
	Sequence  int64          `gorm:"not null;default:0;index:idx_books_sequence"`
	CreatedAt time.Time      `gorm:"not null;index:idx_books_created"`
	UpdatedAt time.Time      `gorm:"not null"`
}

func (BookRecord) TableName() string { return "books" }

func (record *BookRecord) BeforeCreate(tx *gorm.DB) error {
	if record.BookID == "" {
		record.BookID = uuid.NewString()
	}
	return nil
}
