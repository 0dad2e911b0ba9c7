package content

// Variant is one weighted alternative of a subject line or body.
type Variant struct {
	Content string  `json:"content"`
	Weight  float64 `json:"weight"`
}

// PickVariant draws a variant with probability proportional to its weight.
// With degenerate weights (all zero or negative) or when rounding leaves the
// draw unconsumed, the first variant is returned. ok is false only when
// variants is empty.
func PickVariant(variants []Variant, rnd Rand) (v Variant, ok bool) {
	if len(variants) == 0 {
		return Variant{}, false
	}
	if rnd == nil {
		rnd = DefaultRand
	}

	var total float64
	for _, v := range variants {
		if v.Weight > 0 {
			total += v.Weight
		}
	}
	if total <= 0 {
		return variants[0], true
	}

	r := rnd.Float64() * total
	for _, v := range variants {
		if v.Weight <= 0 {
			continue
		}
		r -= v.Weight
		if r <= 0 {
			return v, true
		}
	}
	return variants[0], true
}
