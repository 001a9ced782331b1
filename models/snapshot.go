package models

import (
	"database/sql/driver"
	"strings"
	"time"

	"gorm.io/gorm"
)

type StringList []string

func (l StringList) Value() (driver.Value, error) { return jsonValue(l) }
func (l *StringList) Scan(value interface{}) error { return jsonScan(value, l) }

// SessionSnapshot is the crash-recovery copy of un-submitted composer input,
// one per project. It protects form state only; it has nothing to do with run
// state and is never sent to the generation backend.
type SessionSnapshot struct {
	ProjectID    string     `gorm:"primaryKey;type:varchar(64)" json:"projectId"`
	Title        string     `json:"title"`
	Logline      string     `gorm:"type:text" json:"logline"`
	ScriptText   string     `gorm:"type:longtext" json:"scriptText"`
	Genre        string     `json:"genre"`
	Style        string     `json:"style"`
	CharacterIDs StringList `gorm:"type:json" json:"characterIds"`
	Dirty        bool       `json:"dirty"`
	SavedAt      time.Time  `json:"savedAt"`
}

func (SessionSnapshot) TableName() string {
	return "session_snapshot"
}

// HasContent reports whether there is anything worth offering to recover.
func (s *SessionSnapshot) HasContent() bool {
	return strings.TrimSpace(s.Title) != "" ||
		strings.TrimSpace(s.Logline) != "" ||
		strings.TrimSpace(s.ScriptText) != ""
}

func UpsertSessionSnapshot(db *gorm.DB, s *SessionSnapshot) error {
	return db.Save(s).Error
}

func GetSessionSnapshot(db *gorm.DB, projectID string) (*SessionSnapshot, error) {
	var snap SessionSnapshot
	if err := db.First(&snap, "project_id = ?", projectID).Error; err != nil {
		return nil, err
	}
	return &snap, nil
}

func DeleteSessionSnapshot(db *gorm.DB, projectID string) error {
	return db.Delete(&SessionSnapshot{}, "project_id = ?", projectID).Error
}
