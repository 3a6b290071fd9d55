package position

import "github.com/Turbo503/EchoNode/internal/model"

// step is one order in a position transition, tagged with the side the
// position is in once the order fills.
type step struct {
	side  model.OrderSide
	after model.Decision
}

// planTransition computes the minimal order sequence to move the position
// from current to target. Changing sign always flattens first, then reopens
// as a second order; matching sides need no order at all.
func planTransition(current, target model.Decision) []step {
	if current == target {
		return nil
	}
	switch {
	case current == model.Flat && target == model.Long:
		return []step{{model.Buy, model.Long}}
	case current == model.Flat && target == model.Short:
		return []step{{model.Sell, model.Short}}
	case current == model.Long && target == model.Flat:
		return []step{{model.Sell, model.Flat}}
	case current == model.Short && target == model.Flat:
		return []step{{model.Buy, model.Flat}}
	case current == model.Long && target == model.Short:
		return []step{{model.Sell, model.Flat}, {model.Sell, model.Short}}
	case current == model.Short && target == model.Long:
		return []step{{model.Buy, model.Flat}, {model.Buy, model.Long}}
	}
	return nil
}
