package book

// match applies the price-time matching algorithm from an incoming
// order against the opposite half-book, per §4.3: while the incoming
// order still has quantity and crosses the opposite side's best order,
// trade the minimum of the two remaining quantities, popping the
// opposite order once it is fully filled. It is identical for both book
// representations; each Process implementation supplies the opposite
// side's side value and rests any residual on its own side itself.
//
// match mutates incoming and any resting orders it trades against in
// place (both are already owned by the book: incoming is either about
// to be inserted into own or has just been fully filled). It returns
// the fills incoming participated in and the set of orders — resting
// counterparties, and incoming itself if fully filled — that should be
// archived to the book's fulfilled list.
func match(incoming *Order, opposite side) (fills []Fill, fulfilled []*Order) {
	for incoming.Quantity > 0 && opposite.Len() > 0 {
		resting := opposite.Best()
		if !crosses(incoming, resting) {
			break
		}

		quantity := incoming.Quantity
		if resting.Quantity < quantity {
			quantity = resting.Quantity
		}

		incoming.Quantity -= quantity
		resting.Quantity -= quantity
		incoming.MatchingOrders = append(incoming.MatchingOrders, Fill{CounterpartyOrderID: resting.ID, Quantity: quantity})
		resting.MatchingOrders = append(resting.MatchingOrders, Fill{CounterpartyOrderID: incoming.ID, Quantity: quantity})
		fills = append(fills, Fill{CounterpartyOrderID: resting.ID, Quantity: quantity})

		if resting.Quantity == 0 {
			opposite.PopBest()
			fulfilled = append(fulfilled, resting)
		}

		if incoming.Quantity == 0 {
			fulfilled = append(fulfilled, incoming)
			break
		}
	}

	return fills, fulfilled
}
