package enums

// PrintMethod names the production technique selected for a print area.
type PrintMethod string

const (
	PrintMethodPrint      PrintMethod = "print"
	PrintMethodEmbroidery PrintMethod = "embroidery"
	PrintMethodTransfer   PrintMethod = "transfer"
)

// String implements fmt.Stringer.
func (p PrintMethod) String() string {
	return string(p)
}
