package database

import "time"

type RequestLog struct {
	ID          int64     `db:"id" json:"id"`
	IPAddress   string    `db:"ip_address" json:"ip_address"`
	RequestTime time.Time `db:"request_time" json:"request_time"`
	Filename    string    `db:"filename" json:"filename"`
	Prediction  string    `db:"prediction" json:"prediction"`
	Confidence  float64   `db:"confidence" json:"confidence"`
	IsValidCase bool      `db:"is_valid_case" json:"is_valid_case"`
}

type FeedbackRecord struct {
	ID        int64     `db:"id" json:"id"`
	ImageData []byte    `db:"image_data" json:"image_data"` // encoded as base64 by encoding/json
	Label     string    `db:"label" json:"label"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
