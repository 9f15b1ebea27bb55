package models

// Category groups posts. Order is stored as sort_order since order is reserved.
type Category struct {
	Record
	Name        string `gorm:"size:100;uniqueIndex;not null" json:"name"`
	Description string `gorm:"type:text" json:"description"`
	Order       int    `gorm:"column:sort_order;not null;default:0" json:"order"`
	Icon        string `gorm:"size:100" json:"icon"`
}
