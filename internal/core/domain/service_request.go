package domain

import "time"

// ServiceRequest is a customer contact registered by an attendant.
// Protocol is the public, unique reference handed to the customer.
type ServiceRequest struct {
	ID               string    `json:"id" bson:"-"`
	Protocol         string    `json:"protocol" bson:"protocol"`
	CustomerName     string    `json:"customer_name" bson:"customer_name"`
	CustomerDocument string    `json:"customer_document" bson:"customer_document"`
	Description      string    `json:"description" bson:"description"`
	Type             string    `json:"type" bson:"type"`
	Attendant        string    `json:"attendant" bson:"attendant"`
	OpenedAt         time.Time `json:"opened_at" bson:"opened_at"`
	CreatedAt        time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt        time.Time `json:"updated_at" bson:"updated_at"`
}
