package model

import "time"

// TrainedModel is the catalog record of a deletable model.
type TrainedModel struct {
	Id          string    `json:"model_id" yaml:"model_id"`
	Description string    `json:"description,omitempty" yaml:"description"`
	CreatedAt   time.Time `json:"created_at" yaml:"created_at"`
	Tags        []string  `json:"tags,omitempty" yaml:"tags"`
}
