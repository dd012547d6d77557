package configdb

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cyclopcam/dbh"
)

var ErrSubjectNameRequired = errors.New("Subject name may not be empty")

// Returns nil, nil if the subject does not exist
func (c *ConfigDB) GetSubjectFromID(id int64) (*Subject, error) {
	subjects := []Subject{}
	if err := c.DB.Where("id = ?", id).Limit(1).Find(&subjects).Error; err != nil {
		return nil, err
	}
	if len(subjects) == 0 {
		return nil, nil
	}
	return &subjects[0], nil
}

// ResolveSubject is GetSubjectFromID, but logs and swallows database errors.
// Callers only care whether there is someone to bind to.
func (c *ConfigDB) ResolveSubject(id int64) *Subject {
	subject, err := c.GetSubjectFromID(id)
	if err != nil {
		c.Log.Errorf("Failed to read subject %v: %v", id, err)
		return nil
	}
	return subject
}

func (c *ConfigDB) ListSubjects() ([]Subject, error) {
	subjects := []Subject{}
	if err := c.DB.Order("id").Find(&subjects).Error; err != nil {
		return nil, err
	}
	return subjects, nil
}

// Create a new subject. The ID of s is populated on success.
func (c *ConfigDB) CreateSubject(s *Subject) error {
	s.Name = strings.TrimSpace(s.Name)
	s.Location = strings.TrimSpace(s.Location)
	s.ChatID = strings.TrimSpace(s.ChatID)
	if s.Name == "" {
		return ErrSubjectNameRequired
	}
	s.ID = 0
	s.CreatedAt = dbh.MakeIntTime(time.Now())
	if err := c.DB.Create(s).Error; err != nil {
		return fmt.Errorf("Failed to create subject: %w", err)
	}
	c.Log.Infof("Created subject %v (%v)", s.ID, s.Name)
	return nil
}

func (c *ConfigDB) DeleteSubject(id int64) error {
	return c.DB.Delete(&Subject{}, id).Error
}
