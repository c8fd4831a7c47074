package models

import "time"

// Conversion is one persisted text-to-speech conversion.
type Conversion struct {
	ID        string    `gorm:"column:id;type:uuid;primaryKey" bson:"_id" json:"id"`
	UserID    string    `gorm:"column:user_id;type:uuid;index" bson:"user_id" json:"user_id"`
	InputText string    `gorm:"column:input_text;type:text" bson:"input_text" json:"input_text"`
	AudioURL  string    `gorm:"column:audio_url;type:text" bson:"audio_url" json:"audio_url"`
	CreatedAt time.Time `gorm:"column:created_at;type:timestamptz;index" bson:"created_at" json:"created_at"`
}

func (Conversion) TableName() string { return "tts_conversions" }

// ConversionResult is the playable artifact returned for the latest submission.
type ConversionResult struct {
	AudioURL string `json:"audio_url"`
}
