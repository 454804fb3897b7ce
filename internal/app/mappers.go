package app

import (
	"math"
	"strconv"
	"strings"
	"time"

	"lodging/internal/domain"
)

/********** alias registries **********/

var lodgingAliases = map[string][]string{
	"name":      {"name", "title", "lodging_name", "property_name"},
	"latitude":  {"latitude", "lat", "location.lat", "location.latitude", "coordinates.lat"},
	"longitude": {"longitude", "lon", "lng", "location.lon", "location.lng", "location.longitude", "coordinates.lng"},
	"street":    {"address.street", "address.line1", "address.addressLine1", "street", "street_address"},
	"city":      {"address.city", "city", "locality", "town"},
	"state":     {"address.stateProvince", "address.state", "address.province", "state", "province", "region"},
	"country":   {"address.country", "country", "countryCode", "country_code"},
	"postal":    {"address.postalCode", "address.postcode", "address.zip", "postal_code", "postcode", "zip"},
}

var rentalAliases = map[string][]string{
	"lot":        {"lotNumber", "lot_number", "lot", "number"},
	"status":     {"status", "availability"},
	"unit_name":  {"unit.name", "unit_name", "name", "type"},
	"capacity":   {"unit.capacity", "capacity", "max_occupancy", "occupancy", "sleeps"},
	"price":      {"price", "rate", "nightly_price"},
	"discounted": {"discountedPrice", "discounted_price", "sale_price"},
}

var reviewAliases = map[string][]string{
	"account": {"accountId", "account_id", "user_id", "author_id"},
	"comment": {"comment", "text", "review_text", "review", "content", "body"},
	"rating":  {"rating", "rate", "score", "rating.value", "scores.overall"},
	"date":    {"dateCreated", "date_created", "created_at", "date", "published_at"},
}

/********** tiny helpers **********/

// lookupAny: safe nested lookup with dot paths on maps.
func lookupAny(m map[string]any, path string) any {
	cur := any(m)
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		v, ok := obj[part]
		if !ok {
			return nil
		}
		cur = v
	}
	return cur
}

// firstStr returns the first non-empty string (or number rendered as text) among paths.
func firstStr(m map[string]any, paths ...string) string {
	for _, p := range paths {
		switch v := lookupAny(m, p).(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

// getFloatFlexible: number from several paths (float64/int/string like "8,0").
func getFloatFlexible(m map[string]any, paths ...string) *float64 {
	for _, k := range paths {
		switch v := lookupAny(m, k).(type) {
		case float64:
			f := v
			return &f
		case int:
			f := float64(v)
			return &f
		case string:
			s := strings.TrimSpace(strings.ReplaceAll(v, ",", "."))
			if s == "" {
				continue
			}
			if f, err := strconv.ParseFloat(s, 64); err == nil {
				return &f
			}
		}
	}
	return nil
}

func firstIntFlexible(m map[string]any, paths ...string) int {
	if f := getFloatFlexible(m, paths...); f != nil {
		return int(*f)
	}
	return 0
}

// firstSliceStrings: accept []any with either strings or {url/src/uri}.
func firstSliceStrings(m map[string]any, paths ...string) []string {
	for _, k := range paths {
		if raw, ok := lookupAny(m, k).([]any); ok {
			out := make([]string, 0, len(raw))
			for _, it := range raw {
				switch t := it.(type) {
				case string:
					if t != "" {
						out = append(out, t)
					}
				case map[string]any:
					if u := firstStr(t, "url", "src", "uri", "imageUri"); u != "" {
						out = append(out, u)
					}
				}
			}
			if len(out) > 0 {
				return out
			}
		}
	}
	return nil
}

func firstSliceMaps(m map[string]any, paths ...string) []map[string]any {
	for _, k := range paths {
		raw, ok := lookupAny(m, k).([]any)
		if !ok {
			continue
		}
		out := make([]map[string]any, 0, len(raw))
		for _, it := range raw {
			if mm, ok := it.(map[string]any); ok {
				out = append(out, mm)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return nil
}

/********** lodging mapper **********/

func mapLodging(ref string, p map[string]any) domain.Lodging {
	l := domain.Lodging{
		ExternalRef: &ref,
		Name:        firstStr(p, lodgingAliases["name"]...),
		Bathrooms:   firstIntFlexible(p, "bathrooms", "bathroom_count", "baths", "details.bathrooms"),
		Location:    mapLocation(p),
	}
	for _, r := range firstSliceMaps(p, "rentals", "units", "rooms") {
		l.Rentals = append(l.Rentals, mapRental(r))
	}
	for _, u := range firstSliceStrings(p, "images", "photos") {
		l.Images = append(l.Images, domain.Image{ImageURI: u})
	}
	return l
}

func mapLocation(p map[string]any) *domain.Location {
	loc := domain.Location{
		Latitude:  firstStr(p, lodgingAliases["latitude"]...),
		Longitude: firstStr(p, lodgingAliases["longitude"]...),
	}
	addr := domain.Address{
		Street:        firstStr(p, lodgingAliases["street"]...),
		City:          firstStr(p, lodgingAliases["city"]...),
		StateProvince: firstStr(p, lodgingAliases["state"]...),
		Country:       firstStr(p, lodgingAliases["country"]...),
		PostalCode:    firstStr(p, lodgingAliases["postal"]...),
	}
	if addr != (domain.Address{}) {
		loc.Address = &addr
	}
	if loc.Address == nil && loc.Latitude == "" && loc.Longitude == "" {
		return nil
	}
	return &loc
}

// mapRental keeps the feed's status text verbatim; only "available" is bookable.
func mapRental(r map[string]any) domain.Rental {
	out := domain.Rental{
		LotNumber: firstStr(r, rentalAliases["lot"]...),
		Status:    firstStr(r, rentalAliases["status"]...),
		Unit: domain.RentalUnit{
			Name:     firstStr(r, rentalAliases["unit_name"]...),
			Capacity: firstIntFlexible(r, rentalAliases["capacity"]...),
		},
	}
	if f := getFloatFlexible(r, rentalAliases["price"]...); f != nil {
		out.Price = *f
	}
	if f := getFloatFlexible(r, rentalAliases["discounted"]...); f != nil {
		out.DiscountedPrice = *f
	} else {
		out.DiscountedPrice = out.Price
	}
	return out
}

/********** reviews mapper **********/

func mapReviews(in []map[string]any) []domain.Review {
	out := make([]domain.Review, 0, len(in))
	for _, r := range in {
		rv := domain.Review{
			AccountID:   int64(firstIntFlexible(r, reviewAliases["account"]...)),
			Comment:     firstStr(r, reviewAliases["comment"]...),
			DateCreated: time.Now().UTC(),
		}
		if f := getFloatFlexible(r, reviewAliases["rating"]...); f != nil {
			rv.Rating = clampRating(*f)
		}
		if s := firstStr(r, reviewAliases["date"]...); s != "" {
			if t, err := time.Parse(time.RFC3339, s); err == nil {
				rv.DateCreated = t.UTC()
			}
		}
		out = append(out, rv)
	}
	return out
}

// clampRating rounds feed scores onto the 1..10 scale reviews are stored with.
func clampRating(f float64) int {
	n := int(math.Round(f))
	if n < 1 {
		return 1
	}
	if n > 10 {
		return 10
	}
	return n
}
