package domain

// HousePlacement records the house a body falls in.
type HousePlacement struct {
	Body  Body
	House int
}

// HouseMapping lists house placements in the order of the input PositionSet.
type HouseMapping []HousePlacement

// House returns the house for b and whether b was placed.
func (m HouseMapping) House(b Body) (int, bool) {
	for _, p := range m {
		if p.Body == b {
			return p.House, true
		}
	}
	return 0, false
}

// AssignHouses places every body of ps into one of the twelve houses defined
// by cusps.
func AssignHouses(ps PositionSet, cusps HouseCusps) HouseMapping {
	m := make(HouseMapping, 0, len(ps))
	for _, pos := range ps {
		m = append(m, HousePlacement{Body: pos.Body, House: HouseOf(pos.Longitude, cusps)})
	}
	return m
}

// HouseOf returns the house (1..12) containing longitude. House i spans
// [cusp[i-1], cusp[i mod 12]); arcs whose start exceeds their end wrap
// through 0°. The first matching house wins and house 1 is the fallback.
func HouseOf(longitude float64, cusps HouseCusps) int {
	lon := Normalize(longitude)
	for i := 0; i < 12; i++ {
		start := cusps.Cusps[i]
		end := cusps.Cusps[(i+1)%12]
		if start > end {
			if lon >= start || lon < end {
				return i + 1
			}
			continue
		}
		if start <= lon && lon < end {
			return i + 1
		}
	}
	return 1
}
