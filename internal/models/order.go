package models

import "time"

// Order is one purchase with its line items.
type Order struct {
	ID             int64       `json:"orderId" db:"id"`
	Status         string      `json:"status" db:"status"`
	OrderDate      time.Time   `json:"orderDate" db:"order_date"`
	TotalAmount    float64     `json:"totalAmount" db:"total_amount"`
	TrackingNumber string      `json:"trackingNumber" db:"tracking_number"`
	Items          []OrderItem `json:"items"`
}

// OrderItem links an order line to a catalog product by ProductID.
type OrderItem struct {
	ProductName string  `json:"productName" db:"product_name"`
	ProductID   string  `json:"productId" db:"product_id"`
	Quantity    int     `json:"quantity" db:"quantity"`
	Price       float64 `json:"price" db:"price"`
}

