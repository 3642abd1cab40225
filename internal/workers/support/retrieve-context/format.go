// internal/workers/support/retrieve-context/format.go
package retrievecontext

import (
	"fmt"
	"strings"

	"support-agent/internal/index"
	"support-agent/internal/models"
)

const (
	dateLayout         = "2006-01-02"
	maxListedFeatures  = 5
	unknownIntentText  = "I couldn't understand your query. Please rephrase."
	noProductsText     = "No products found matching your query."
	catalogUnavailable = "Product catalog search is temporarily unavailable, so no product details could be retrieved for this question."
	noCatalogForOrder  = "Product information not found for recent orders."
)

func money(v float64) string {
	return fmt.Sprintf("$%.2f", v)
}

func formatTrackedOrder(o *models.Order) string {
	var b strings.Builder
	b.WriteString("Order Details:\n")
	fmt.Fprintf(&b, "- Order ID: %d\n", o.ID)
	fmt.Fprintf(&b, "- Status: %s\n", o.Status)
	fmt.Fprintf(&b, "- Order Date: %s\n", o.OrderDate.Format(dateLayout))
	fmt.Fprintf(&b, "- Total Amount: %s\n", money(o.TotalAmount))
	fmt.Fprintf(&b, "- Tracking Number: %s\n", o.TrackingNumber)
	b.WriteString("\nItems in this order:\n")
	for _, item := range o.Items {
		fmt.Fprintf(&b, "- %s (Quantity: %d, Price: %s)\n", item.ProductName, item.Quantity, money(item.Price))
	}
	return strings.TrimSpace(b.String())
}

func formatTrackingMiss(tracking string) string {
	return "No order found with tracking number " + tracking
}

func formatOrderHistory(email string, orders []models.Order) string {
	if len(orders) == 0 {
		return "No orders found for " + email
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Orders for %s:\n", email)
	for _, o := range orders {
		names := make([]string, len(o.Items))
		for i, item := range o.Items {
			names[i] = item.ProductName
		}
		fmt.Fprintf(&b, "\nOrder #%d:\n", o.ID)
		fmt.Fprintf(&b, "- Status: %s\n", o.Status)
		fmt.Fprintf(&b, "- Date: %s\n", o.OrderDate.Format(dateLayout))
		fmt.Fprintf(&b, "- Total: %s\n", money(o.TotalAmount))
		fmt.Fprintf(&b, "- Tracking: %s\n", o.TrackingNumber)
		fmt.Fprintf(&b, "- Items: %s\n", strings.Join(names, ", "))
	}
	return strings.TrimSpace(b.String())
}

// relevance maps a squared L2 distance onto (0, 1], higher is closer.
func relevance(distance float32) float64 {
	return 1 / (1 + float64(distance))
}

func formatProductHits(hits []index.Hit) string {
	if len(hits) == 0 {
		return noProductsText
	}

	var b strings.Builder
	b.WriteString("Here are the relevant products:\n")
	for i, h := range hits {
		p := h.Product
		features := p.Features
		if len(features) > maxListedFeatures {
			features = features[:maxListedFeatures]
		}
		fmt.Fprintf(&b, "\nProduct %d: %s\n", i+1, p.Name)
		fmt.Fprintf(&b, "- Category: %s\n", p.Category)
		fmt.Fprintf(&b, "- Price: %s\n", money(p.Price))
		fmt.Fprintf(&b, "- Description: %s\n", p.Description)
		fmt.Fprintf(&b, "- Key Features: %s\n", strings.Join(features, ", "))
		fmt.Fprintf(&b, "- Relevance Score: %.2f\n", relevance(h.Distance))
	}
	return strings.TrimSpace(b.String())
}

func formatNoPurchaseHistory(email string) string {
	return fmt.Sprintf("No recent orders found for %s. Cannot answer questions about past purchases.", email)
}

func formatHybrid(recent *models.Order, products []models.Product) string {
	if len(products) == 0 {
		return noCatalogForOrder
	}

	var b strings.Builder
	b.WriteString("Based on your recent order:\n")
	if recent != nil {
		fmt.Fprintf(&b, "\nYour Recent Order (Order #%d):\n", recent.ID)
		fmt.Fprintf(&b, "- Date: %s\n", recent.OrderDate.Format(dateLayout))
		fmt.Fprintf(&b, "- Status: %s\n", recent.Status)
		b.WriteString("- Items purchased:\n")
		for _, item := range recent.Items {
			fmt.Fprintf(&b, "  - %s (%s)\n", item.ProductName, money(item.Price))
		}
	}

	b.WriteString("\nCurrent Product Information:\n")
	for _, p := range products {
		fmt.Fprintf(&b, "\n%s:\n", p.Name)
		fmt.Fprintf(&b, "- Current Price: %s\n", money(p.Price))
		fmt.Fprintf(&b, "- Category: %s\n", p.Category)
		fmt.Fprintf(&b, "- Description: %s\n", p.Description)
		fmt.Fprintf(&b, "- Features: %s\n", strings.Join(p.Features, ", "))
	}
	return strings.TrimSpace(b.String())
}
