package store

import (
	"context"
	"database/sql"
	"time"

	"support-agent/internal/models"
)

const orderColumns = `
		SELECT o.id, o.status, o.order_date, o.total_amount, COALESCE(o.tracking_number, ''),
		       i.product_name, i.product_id, i.quantity, i.price
		FROM orders o
		LEFT JOIN order_items i ON i.order_id = o.id`

// GetOrdersForUser returns every order of the user, oldest first, with items.
func (s *Store) GetOrdersForUser(ctx context.Context, email string) ([]models.Order, error) {
	rows, err := s.db.QueryContext(ctx, orderColumns+`
		JOIN users u ON u.id = o.user_id
		WHERE u.email = $1
		ORDER BY o.order_date, o.id, i.id`, email)
	if err != nil {
		return nil, queryError("get orders for user", err)
	}
	defer rows.Close()

	orders, err := scanOrders(rows)
	if err != nil {
		return nil, queryError("get orders for user", err)
	}
	return orders, nil
}

// GetOrderByTracking returns nil, nil when no order has that tracking number.
func (s *Store) GetOrderByTracking(ctx context.Context, tracking string) (*models.Order, error) {
	rows, err := s.db.QueryContext(ctx, orderColumns+`
		WHERE o.tracking_number = $1
		ORDER BY o.id, i.id`, tracking)
	if err != nil {
		return nil, queryError("get order by tracking", err)
	}
	defer rows.Close()

	orders, err := scanOrders(rows)
	if err != nil {
		return nil, queryError("get order by tracking", err)
	}
	if len(orders) == 0 {
		return nil, nil
	}
	return &orders[0], nil
}

// GetMostRecentOrderItemIDs returns the product IDs on the user's newest order.
func (s *Store) GetMostRecentOrderItemIDs(ctx context.Context, email string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT i.product_id
		FROM order_items i
		WHERE i.order_id = (
			SELECT o.id FROM orders o
			JOIN users u ON u.id = o.user_id
			WHERE u.email = $1
			ORDER BY o.order_date DESC, o.id DESC
			LIMIT 1
		)
		ORDER BY i.id`, email)
	if err != nil {
		return nil, queryError("get most recent order items", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, queryError("get most recent order items", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, queryError("get most recent order items", err)
	}
	return ids, nil
}

// scanOrders folds the order/item join into orders. Rows of one order are
// adjacent because every query orders by o.id within its sort key.
func scanOrders(rows *sql.Rows) ([]models.Order, error) {
	var orders []models.Order
	for rows.Next() {
		var (
			id          int64
			status      string
			orderDate   time.Time
			total       float64
			tracking    string
			productName sql.NullString
			productID   sql.NullString
			quantity    sql.NullInt64
			price       sql.NullFloat64
		)
		if err := rows.Scan(&id, &status, &orderDate, &total, &tracking,
			&productName, &productID, &quantity, &price); err != nil {
			return nil, err
		}

		if len(orders) == 0 || orders[len(orders)-1].ID != id {
			orders = append(orders, models.Order{
				ID:             id,
				Status:         status,
				OrderDate:      orderDate,
				TotalAmount:    total,
				TrackingNumber: tracking,
				Items:          []models.OrderItem{},
			})
		}
		if productID.Valid {
			o := &orders[len(orders)-1]
			o.Items = append(o.Items, models.OrderItem{
				ProductName: productName.String,
				ProductID:   productID.String,
				Quantity:    int(quantity.Int64),
				Price:       price.Float64,
			})
		}
	}
	return orders, rows.Err()
}
