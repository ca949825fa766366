package domain

type Product struct {
	ID       int64  `json:"id" bson:"id"`
	Name     string `json:"name" bson:"name"`
	Price    int64  `json:"price" bson:"price"`
	ImageURL string `json:"imageUrl" bson:"image_url"`
}
