package model

import "time"

// Game is one entry in the store catalog.
type Game struct {
	ID            int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	Title         string     `gorm:"size:255;not null" json:"title"`
	Description   string     `gorm:"type:text" json:"description"`
	Developer     string     `gorm:"size:128" json:"developer"`
	Publisher     string     `gorm:"size:128" json:"publisher"`
	ReleaseDate   *time.Time `json:"release_date"`
	Price         float64    `json:"price"`
	SalePrice     float64    `json:"sale_price"`
	OnSale        bool       `gorm:"default:false" json:"on_sale"`
	CoverImageURL string     `gorm:"size:512" json:"cover_image_url"`
	AverageRating float64    `json:"average_rating"`
	Featured      bool       `gorm:"default:false" json:"featured"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

// GameGenre is one genre tag on a game. Genre lookups join against this
// table instead of parsing a serialized list on the Game row.
type GameGenre struct {
	ID     int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	GameID int64  `gorm:"index:idx_genre_game;uniqueIndex:idx_game_genre;not null" json:"game_id"`
	Genre  string `gorm:"index:idx_genre;uniqueIndex:idx_game_genre;size:32;not null" json:"genre"`
}
