package models

import "time"

type Testimonial struct {
	ID        string    `json:"id" bson:"_id"`
	Author    string    `json:"author" bson:"author" validate:"required,max=80"`
	Location  string    `json:"location,omitempty" bson:"location,omitempty" validate:"max=80"`
	Rating    int       `json:"rating" bson:"rating" validate:"gte=1,lte=5"`
	Message   string    `json:"message" bson:"message" validate:"required,max=2000"`
	Approved  bool      `json:"approved" bson:"approved"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}
