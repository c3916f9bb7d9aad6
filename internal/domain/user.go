package domain

type User struct {
	ID        string `db:"id"`
	Email     string `db:"email"`
	FullName  string `db:"full_name"`
	AvatarURL string `db:"avatar_url"`
	Phone     string `db:"phone"`
	Hash      string `db:"password_hash"`
	IsAdmin   bool   `db:"is_admin"`
}

// Order statuses follow the fulfillment pipeline; only admins move an order
// forward, cancellation is terminal.
const (
	OrderPending    = "pending"
	OrderProcessing = "processing"
	OrderShipped    = "shipped"
	OrderDelivered  = "delivered"
	OrderCancelled  = "cancelled"
)

type Order struct {
	ID           string  `db:"id"`
	UserID       string  `db:"user_id"`
	Total        float64 `db:"total"`
	Status       string  `db:"status"`
	ShippingJSON string  `db:"shipping_json"`
	CreatedAt    string  `db:"created_at"`
}

type Address struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	Zip     string `json:"zip"`
	Country string `json:"country"`
}
