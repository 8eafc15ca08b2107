package report

// OrderSet is an immutable id-keyed view of orders that keeps insertion order.
type OrderSet struct {
	byID  map[int64]Order
	order []int64
}

// IndexOrders builds an OrderSet. Later duplicates replace earlier ones in place.
func IndexOrders(orders []Order) OrderSet {
	set := OrderSet{byID: make(map[int64]Order, len(orders)), order: make([]int64, 0, len(orders))}
	for _, o := range orders {
		if _, ok := set.byID[o.ID]; !ok {
			set.order = append(set.order, o.ID)
		}
		set.byID[o.ID] = o
	}
	return set
}

// Len returns the number of orders.
func (s OrderSet) Len() int {
	return len(s.order)
}

// Get returns the order with id.
func (s OrderSet) Get(id int64) (Order, bool) {
	o, ok := s.byID[id]
	return o, ok
}

// Orders returns the orders in insertion order.
func (s OrderSet) Orders() []Order {
	out := make([]Order, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	return out
}

// UpsertOrder returns a new set with o added or replaced. The receiver is not modified.
func (s OrderSet) UpsertOrder(o Order) OrderSet {
	next := s.clone(1)
	if _, ok := next.byID[o.ID]; !ok {
		next.order = append(next.order, o.ID)
	}
	next.byID[o.ID] = o
	return next
}

// RemoveOrder returns a new set without the order id. The receiver is not modified.
func (s OrderSet) RemoveOrder(id int64) OrderSet {
	if _, ok := s.byID[id]; !ok {
		return s
	}
	next := s.clone(0)
	delete(next.byID, id)
	kept := next.order[:0]
	for _, existing := range next.order {
		if existing != id {
			kept = append(kept, existing)
		}
	}
	next.order = kept
	return next
}

func (s OrderSet) clone(extra int) OrderSet {
	next := OrderSet{
		byID:  make(map[int64]Order, len(s.byID)+extra),
		order: make([]int64, len(s.order), len(s.order)+extra),
	}
	for id, o := range s.byID {
		next.byID[id] = o
	}
	copy(next.order, s.order)
	return next
}
