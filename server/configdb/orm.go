package configdb

import (
	"strings"

	"github.com/cyclopcam/dbh"
)

// BaseModel is our base class for a GORM model.
// The default GORM Model uses int, but we prefer int64
type BaseModel struct {
	ID int64 `gorm:"primaryKey" json:"id"`
}

// Subject is a person whose premises are being watched.
// Alerts about their camera go to ChatID, using BotToken if they have their own bot.
// SYNC-RECORD-SUBJECT
type Subject struct {
	BaseModel
	Name      string      `json:"name"`
	Location  string      `json:"location"`                      // Street address, shown in alerts
	ChatID    string      `json:"chatID" gorm:"default:null"`    // Telegram chat that receives alerts
	BotToken  string      `json:"-" gorm:"default:null"`         // Per-subject bot. Empty means use the system bot.
	CreatedAt dbh.IntTime `json:"createdAt" gorm:"default:null"` // Unix milliseconds
}

func (Subject) TableName() string {
	return "subject"
}

// HasRecipient is true if the subject has somewhere to send alerts
func (s *Subject) HasRecipient() bool {
	return strings.TrimSpace(s.ChatID) != ""
}
