package models

import "gorm.io/gorm"

// Editor is an account allowed to change the network.
type Editor struct {
	gorm.Model
	Name     string `json:"name"`
	Email    string `json:"email" gorm:"unique"`
	Password string `json:"-"`
}
