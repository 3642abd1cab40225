package store

import (
	"context"
	"time"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id SERIAL PRIMARY KEY,
		name VARCHAR(100) NOT NULL,
		email VARCHAR(255) UNIQUE NOT NULL,
		phone VARCHAR(20),
		created_at TIMESTAMP DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		id SERIAL PRIMARY KEY,
		user_id INTEGER NOT NULL REFERENCES users(id),
		order_date TIMESTAMP NOT NULL,
		status VARCHAR(50) NOT NULL,
		total_amount NUMERIC(10, 2) NOT NULL,
		tracking_number VARCHAR(100)
	)`,
	`CREATE TABLE IF NOT EXISTS order_items (
		id SERIAL PRIMARY KEY,
		order_id INTEGER NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
		product_id VARCHAR(50) NOT NULL,
		product_name VARCHAR(255) NOT NULL,
		quantity INTEGER NOT NULL,
		price NUMERIC(10, 2) NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS conversations (
		id SERIAL PRIMARY KEY,
		session_id VARCHAR(100) UNIQUE NOT NULL,
		user_email VARCHAR(255),
		created_at TIMESTAMP DEFAULT NOW(),
		updated_at TIMESTAMP DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS messages (
		id SERIAL PRIMARY KEY,
		conversation_id INTEGER NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
		role VARCHAR(20) NOT NULL,
		content TEXT NOT NULL,
		intent VARCHAR(50),
		data_source VARCHAR(20),
		created_at TIMESTAMP DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_user_id ON orders(user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_tracking ON orders(tracking_number)`,
	`CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, created_at)`,
}

// Migrate creates the tables and indexes if they are missing.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return queryError("migrate", err)
		}
	}
	s.logger.Info("schema ready", map[string]interface{}{"statements": len(schema)})
	return nil
}

type sampleItem struct {
	productID, name string
	quantity        int
	price           float64
}

type sampleOrder struct {
	email    string
	date     time.Time
	status   string
	total    float64
	tracking string
	items    []sampleItem
}

var sampleUsers = []struct{ name, email, phone string }{
	{"John Doe", "john@example.com", "+1234567890"},
	{"Jane Smith", "jane@example.com", "+0987654321"},
}

var sampleOrders = []sampleOrder{
	{
		email: "john@example.com", date: time.Date(2024, 11, 15, 0, 0, 0, 0, time.UTC),
		status: "Delivered", total: 1299.99, tracking: "TRACK123456",
		items: []sampleItem{{"PROD001", "Samsung Galaxy S23 Ultra", 1, 1199.99}},
	},
	{
		email: "john@example.com", date: time.Date(2024, 12, 10, 0, 0, 0, 0, time.UTC),
		status: "Shipped", total: 899.99, tracking: "TRACK789012",
		items: []sampleItem{
			{"PROD003", "Sony WH-1000XM5 Headphones", 1, 399.99},
			{"PROD005", "Apple iPad Pro 12.9-inch (M2)", 1, 1099.99},
		},
	},
	{
		email: "jane@example.com", date: time.Date(2024, 12, 5, 0, 0, 0, 0, time.UTC),
		status: "Processing", total: 599.99, tracking: "TRACK345678",
		items: []sampleItem{{"PROD008", "Dell XPS 15", 1, 1799.99}},
	},
}

// SeedSampleData inserts the demo users and orders when the users table is
// empty. It reports whether anything was written.
func (s *Store) SeedSampleData(ctx context.Context) (bool, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return false, queryError("seed sample data", err)
	}
	if count > 0 {
		return false, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, queryError("seed sample data", err)
	}
	defer rollback(tx)

	userIDs := make(map[string]int64, len(sampleUsers))
	for _, u := range sampleUsers {
		var id int64
		err := tx.QueryRowContext(ctx,
			`INSERT INTO users (name, email, phone) VALUES ($1, $2, $3) RETURNING id`,
			u.name, u.email, u.phone).Scan(&id)
		if err != nil {
			return false, queryError("seed sample data", err)
		}
		userIDs[u.email] = id
	}

	for _, o := range sampleOrders {
		var orderID int64
		err := tx.QueryRowContext(ctx, `
			INSERT INTO orders (user_id, order_date, status, total_amount, tracking_number)
			VALUES ($1, $2, $3, $4, $5) RETURNING id`,
			userIDs[o.email], o.date, o.status, o.total, o.tracking).Scan(&orderID)
		if err != nil {
			return false, queryError("seed sample data", err)
		}
		for _, it := range o.items {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO order_items (order_id, product_id, product_name, quantity, price)
				VALUES ($1, $2, $3, $4, $5)`,
				orderID, it.productID, it.name, it.quantity, it.price)
			if err != nil {
				return false, queryError("seed sample data", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return false, queryError("seed sample data", err)
	}
	s.logger.Info("sample data inserted", map[string]interface{}{
		"users":  len(sampleUsers),
		"orders": len(sampleOrders),
	})
	return true, nil
}
