package jdf

// RouteDependent is implemented by every record type keyed by a
// (license number, distinction) route reference. The merge engine uses it
// to cascade distinction rewrites, deletions and duplications without a
// separate code path per table.
type RouteDependent interface {
	RouteDistinction() int
	SetRouteDistinction(distinction int)
}

func (r *RouteStop) RouteDistinction() int          { return r.Distinction }
func (r *RouteStop) SetRouteDistinction(d int)      { r.Distinction = d }
func (t *Trip) RouteDistinction() int               { return t.Distinction }
func (t *Trip) SetRouteDistinction(d int)           { t.Distinction = d }
func (g *TripGroup) RouteDistinction() int          { return g.Distinction }
func (g *TripGroup) SetRouteDistinction(d int)      { g.Distinction = d }
func (t *TripStop) RouteDistinction() int           { return t.Distinction }
func (t *TripStop) SetRouteDistinction(d int)       { t.Distinction = d }
func (i *RouteInfo) RouteDistinction() int          { return i.Distinction }
func (i *RouteInfo) SetRouteDistinction(d int)      { i.Distinction = d }
func (n *ServiceNote) RouteDistinction() int        { return n.Distinction }
func (n *ServiceNote) SetRouteDistinction(d int)    { n.Distinction = d }
func (t *Transfer) RouteDistinction() int           { return t.Distinction }
func (t *Transfer) SetRouteDistinction(d int)       { t.Distinction = d }
func (a *AgencyAlternation) RouteDistinction() int  { return a.Distinction }
func (a *AgencyAlternation) SetRouteDistinction(d int) {
	a.Distinction = d
}
func (a *AlternateRouteName) RouteDistinction() int { return a.Distinction }
func (a *AlternateRouteName) SetRouteDistinction(d int) {
	a.Distinction = d
}
func (r *ReservationOptions) RouteDistinction() int { return r.Distinction }
func (r *ReservationOptions) SetRouteDistinction(d int) {
	r.Distinction = d
}
