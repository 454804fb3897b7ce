package domain

import "time"

// RentalStatusAvailable is the only status that makes a rental bookable.
// Comparison is literal: "Available" does not count.
const RentalStatusAvailable = "available"

type Address struct {
	ID            int64  `json:"id"`
	Street        string `json:"street"`
	City          string `json:"city"`
	StateProvince string `json:"stateProvince"`
	Country       string `json:"country"`
	PostalCode    string `json:"postalCode"`
}

type Location struct {
	ID        int64    `json:"id"`
	Latitude  string   `json:"latitude"`
	Longitude string   `json:"longitude"`
	Address   *Address `json:"address"`
}

type RentalUnit struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Capacity int    `json:"capacity"`
}

type Rental struct {
	ID              int64      `json:"id"`
	LodgingID       int64      `json:"lodgingId"`
	LotNumber       string     `json:"lotNumber"`
	Status          string     `json:"status"`
	Price           float64    `json:"price"`
	DiscountedPrice float64    `json:"discountedPrice"`
	Unit            RentalUnit `json:"unit"`
}

// Available reports whether the rental is bookable for the given party size.
func (r Rental) Available(occupancy int) bool {
	return r.Status == RentalStatusAvailable && r.Unit.Capacity >= occupancy
}

type Review struct {
	ID          int64     `json:"id"`
	LodgingID   int64     `json:"lodgingId"`
	AccountID   int64     `json:"accountId"`
	Comment     string    `json:"comment"`
	Rating      int       `json:"rating"`
	DateCreated time.Time `json:"dateCreated"`
}

type Image struct {
	ID        int64  `json:"id"`
	LodgingID int64  `json:"lodgingId"`
	ImageURI  string `json:"imageUri"`
}

type Lodging struct {
	ID          int64     `json:"id"`
	ExternalRef *string   `json:"externalRef,omitempty"` // feed identity, set by the importer
	Name        string    `json:"name"`
	Bathrooms   int       `json:"bathrooms"`
	Location    *Location `json:"location"`
	Rentals     []Rental  `json:"rentals"`
	Reviews     []Review  `json:"reviews"`
	Images      []Image   `json:"images"`
}

// Address returns the lodging's address or nil when the location graph is incomplete.
func (l Lodging) Address() *Address {
	if l.Location == nil {
		return nil
	}
	return l.Location.Address
}
