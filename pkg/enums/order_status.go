package enums

// OrderStatus tracks whether an order record is still a draft or confirmed paid.
type OrderStatus string

const (
	OrderStatusDraft OrderStatus = "draft"
	OrderStatusPaid  OrderStatus = "paid"
)

// String implements fmt.Stringer.
func (o OrderStatus) String() string {
	return string(o)
}
