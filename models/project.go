package models

import (
	"time"

	"gorm.io/gorm"
)

// Project is the workspace a user's stories live in. Stories reference it by
// project_id; deleting a project takes its stories and session snapshot with
// it.
type Project struct {
	ID          string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	Name        string    `json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (Project) TableName() string {
	return "project"
}

func CreateProject(db *gorm.DB, p *Project) error {
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now
	return db.Create(p).Error
}

func GetProjectByID(db *gorm.DB, projectID string) (*Project, error) {
	var project Project
	if err := db.First(&project, "id = ?", projectID).Error; err != nil {
		return nil, err
	}
	return &project, nil
}

func ListProjects(db *gorm.DB) ([]Project, error) {
	var projects []Project
	if err := db.Order("updated_at DESC").Find(&projects).Error; err != nil {
		return nil, err
	}
	return projects, nil
}

func UpdateProject(db *gorm.DB, p *Project) error {
	p.UpdatedAt = time.Now()
	return db.Save(p).Error
}

// DeleteProjectByID removes the project row along with its stories and any
// session snapshot.
func DeleteProjectByID(db *gorm.DB, projectID string) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&Story{}, "project_id = ?", projectID).Error; err != nil {
			return err
		}
		if err := tx.Delete(&SessionSnapshot{}, "project_id = ?", projectID).Error; err != nil {
			return err
		}
		return tx.Delete(&Project{}, "id = ?", projectID).Error
	})
}
