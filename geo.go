package kuloydis

import (
	"math"

	"github.com/kirov7/kuloydis/public"
	"golang.org/x/exp/slices"
)

const (
	geoLonMin = -180.0
	geoLonMax = 180.0
	geoLatMin = -85.05112878
	geoLatMax = 85.05112878

	geoStepBits = 26
	geoEarthRadiusM = 6372797.560856
)

// GeoAdd validates coordinates and stores member in key's sorted set under
// a score computed by interleaving the longitude/latitude bits.
func (ks *Keyspace) GeoAdd(key []byte, lon, lat float64, member []byte) (int, error) {
	if lon < geoLonMin || lon > geoLonMax || lat < geoLatMin || lat > geoLatMax {
		return 0, public.ErrInvalidGeo
	}
	score := geoEncode(lon, lat)
	return ks.ZAdd(key, []ScoreMember{{Score: score, Member: member}})
}

// GeoPos decodes member's score back to (lon, lat). ok=false if absent.
func (ks *Keyspace) GeoPos(key, member []byte) (lon, lat float64, ok bool, err error) {
	score, present, err := ks.ZScore(key, member)
	if err != nil || !present {
		return 0, 0, false, err
	}
	lon, lat = geoDecode(score)
	return lon, lat, true, nil
}

// GeoDist returns the great-circle distance between two members in the
// requested unit ("m" default, "km", "mi", "ft"), or ok=false if either
// member is absent.
func (ks *Keyspace) GeoDist(key, memberA, memberB []byte, unit string) (float64, bool, error) {
	lonA, latA, okA, err := ks.GeoPos(key, memberA)
	if err != nil || !okA {
		return 0, false, err
	}
	lonB, latB, okB, err := ks.GeoPos(key, memberB)
	if err != nil || !okB {
		return 0, false, err
	}
	meters := haversine(lonA, latA, lonB, latB)
	return convertDistance(meters, unit), true, nil
}

// GeoSearchResult is one hit from GEOSEARCH.
type GeoSearchResult struct {
	Member       []byte
	DistanceM    float64
	Lon, Lat     float64
}

// GeoSearch returns every member within radius (meters) of (lon, lat),
// found by a full scan over the set. No spatial index is required for
// correctness at the scale this server targets.
func (ks *Keyspace) GeoSearch(key []byte, lon, lat, radiusM float64) ([]GeoSearchResult, error) {
	all, err := ks.zsetAll(key)
	if err != nil {
		return nil, err
	}
	var out []GeoSearchResult
	for _, sm := range all {
		mLon, mLat := geoDecode(sm.Score)
		d := haversine(lon, lat, mLon, mLat)
		if d <= radiusM {
			out = append(out, GeoSearchResult{Member: sm.Member, DistanceM: d, Lon: mLon, Lat: mLat})
		}
	}
	slices.SortFunc(out, func(a, b GeoSearchResult) bool { return a.DistanceM < b.DistanceM })
	return out, nil
}

func convertDistance(meters float64, unit string) float64 {
	switch unit {
	case "km":
		return meters / 1000
	case "mi":
		return meters / 1609.34
	case "ft":
		return meters * 3.28084
	default:
		return meters
	}
}

// haversine computes great-circle distance in meters using the Earth
// radius (6372797.560856m) real Redis's GEODIST uses.
func haversine(lon1, lat1, lon2, lat2 float64) float64 {
	rad := math.Pi / 180
	lat1r, lat2r := lat1*rad, lat2*rad
	dLat := (lat2 - lat1) * rad
	dLon := (lon2 - lon1) * rad

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1r)*math.Cos(lat2r)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Asin(math.Sqrt(a))
	return geoEarthRadiusM * c
}

// geoEncode maps (lon, lat) linearly to 26-bit unsigned integers over
// their valid ranges and interleaves the bits into a 52-bit Morton code
//. The result is returned as a float64 since that is
// the score type every sorted-set slot holds.
func geoEncode(lon, lat float64) float64 {
	lonBits := scaleTo26(lon, geoLonMin, geoLonMax)
	latBits := scaleTo26(lat, geoLatMin, geoLatMax)
	return float64(interleave64(lonBits, latBits))
}

func geoDecode(score float64) (lon, lat float64) {
	code := uint64(score)
	lonBits, latBits := deinterleave64(code)
	lon = unscaleFrom26(lonBits, geoLonMin, geoLonMax)
	lat = unscaleFrom26(latBits, geoLatMin, geoLatMax)
	return lon, lat
}

func scaleTo26(v, min, max float64) uint32 {
	const span = float64(uint32(1) << geoStepBits)
	ratio := (v - min) / (max - min)
	scaled := uint32(ratio * span)
	if scaled >= 1<<geoStepBits {
		scaled = 1<<geoStepBits - 1
	}
	return scaled
}

func unscaleFrom26(bits uint32, min, max float64) float64 {
	const span = float64(uint32(1) << geoStepBits)
	ratio := (float64(bits) + 0.5) / span
	return min + ratio*(max-min)
}

// interleave64 bit-interleaves two 26-bit values, x in even bit
// positions and y in odd, producing a 52-bit Morton code.
func interleave64(x, y uint32) uint64 {
	return spreadBits(x) | (spreadBits(y) << 1)
}

func deinterleave64(code uint64) (x, y uint32) {
	return compactBits(code), compactBits(code >> 1)
}

func spreadBits(v uint32) uint64 {
	x := uint64(v) & 0x3FFFFFF
	x = (x | (x << 16)) & 0x0000FFFF0000FFFF
	x = (x | (x << 8)) & 0x00FF00FF00FF00FF
	x = (x | (x << 4)) & 0x0F0F0F0F0F0F0F0F
	x = (x | (x << 2)) & 0x3333333333333333
	x = (x | (x << 1)) & 0x5555555555555555
	return x
}

func compactBits(x uint64) uint32 {
	x &= 0x5555555555555555
	x = (x | (x >> 1)) & 0x3333333333333333
	x = (x | (x >> 2)) & 0x0F0F0F0F0F0F0F0F
	x = (x | (x >> 4)) & 0x00FF00FF00FF00FF
	x = (x | (x >> 8)) & 0x0000FFFF0000FFFF
	x = (x | (x >> 16)) & 0x00000000FFFFFFFF
	return uint32(x)
}
