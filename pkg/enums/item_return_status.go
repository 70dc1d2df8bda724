package enums

// ItemReturnStatus is stamped on an order line snapshot as its return claim
// progresses. It never affects the rest of the immutable snapshot.
type ItemReturnStatus string

const (
	ItemReturnStatusNone      ItemReturnStatus = "none"
	ItemReturnStatusRequested ItemReturnStatus = "requested"
	ItemReturnStatusReturned  ItemReturnStatus = "returned"
	ItemReturnStatusRejected  ItemReturnStatus = "rejected"
)

// String implements fmt.Stringer.
func (i ItemReturnStatus) String() string {
	return string(i)
}
