package domain

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"
)

// Location is a code from the fixed catalogue of pickup and drop-off points.
type Location string

const (
	LocationClarkMain    Location = "CLARK_MAIN"
	LocationSMClark      Location = "SM_CLARK"
	LocationClarkParade  Location = "CLARK_PARADE"
	LocationWidusHotel   Location = "WIDUS_HOTEL"
	LocationMarqueeMall  Location = "MARQUEE_MALL"
	LocationClarkMuseum  Location = "CLARK_MUSEUM"
	LocationAquaPlanet   Location = "AQUA_PLANET"
	LocationClarkAirport Location = "CLARK_AIRPORT"
	LocationCDC          Location = "CDC"
	LocationFontana      Location = "FONTANA"
	LocationClarkSun     Location = "CLARK_SUN"
	LocationMidoriHotel  Location = "MIDORI_HOTEL"
	LocationRoyceHotel   Location = "ROYCE_HOTEL"
)

// PointOfInterest describes a catalogue entry.
type PointOfInterest struct {
	Code Location
	Name string
	Lat  float64
	Lng  float64
}

var pointsOfInterest = map[Location]PointOfInterest{
	LocationClarkMain:    {LocationClarkMain, "Clark Main Gate", 15.1686, 120.5863},
	LocationSMClark:      {LocationSMClark, "SM City Clark", 15.1700, 120.5800},
	LocationClarkParade:  {LocationClarkParade, "Clark Parade Grounds", 15.1816, 120.5508},
	LocationWidusHotel:   {LocationWidusHotel, "Widus Hotel & Casino", 15.1784, 120.5383},
	LocationMarqueeMall:  {LocationMarqueeMall, "Marquee Mall", 15.1624, 120.6066},
	LocationClarkMuseum:  {LocationClarkMuseum, "Clark Museum", 15.1835, 120.5467},
	LocationAquaPlanet:   {LocationAquaPlanet, "Aqua Planet", 15.2063, 120.5368},
	LocationClarkAirport: {LocationClarkAirport, "Clark International Airport", 15.1860, 120.5603},
	LocationCDC:          {LocationCDC, "Clark Development Corporation", 15.1803, 120.5480},
	LocationFontana:      {LocationFontana, "Fontana Leisure Park", 15.1985, 120.5240},
	LocationClarkSun:     {LocationClarkSun, "Clark Sun Valley", 15.2180, 120.5105},
	LocationMidoriHotel:  {LocationMidoriHotel, "Midori Clark Hotel", 15.1708, 120.5255},
	LocationRoyceHotel:   {LocationRoyceHotel, "Royce Hotel & Casino", 15.1749, 120.5319},
}

// Valid reports whether l is in the catalogue.
func (l Location) Valid() bool {
	_, ok := pointsOfInterest[l]
	return ok
}

// DisplayName returns the human readable name, or the raw code if unknown.
func (l Location) DisplayName() string {
	if poi, ok := pointsOfInterest[l]; ok {
		return poi.Name
	}
	return string(l)
}

// Locations returns the catalogue ordered by code.
func Locations() []PointOfInterest {
	out := make([]PointOfInterest, 0, len(pointsOfInterest))
	for _, poi := range pointsOfInterest {
		out = append(out, poi)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

const earthRadiusKm = 6371.0

// EstimateDistance returns the great-circle distance in kilometres between two
// catalogue locations, rounded to two places. Unknown codes yield zero.
func EstimateDistance(from, to Location) decimal.Decimal {
	a, okA := pointsOfInterest[from]
	b, okB := pointsOfInterest[to]
	if !okA || !okB {
		return decimal.Zero
	}

	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	km := 2 * earthRadiusKm * math.Asin(math.Sqrt(h))

	return decimal.NewFromFloat(km).Round(2)
}
