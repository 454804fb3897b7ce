package httpserver

import "lodging/internal/domain"

// Request bodies. Nested rentals and images of a lodging carry no lodgingId;
// the standalone variants require one.

type addressRequest struct {
	Street        string `json:"street" validate:"max=255"`
	City          string `json:"city" validate:"max=100"`
	StateProvince string `json:"stateProvince" validate:"max=100"`
	Country       string `json:"country" validate:"max=100"`
	PostalCode    string `json:"postalCode" validate:"max=20"`
}

type locationRequest struct {
	Latitude  string          `json:"latitude" validate:"required,latitude"`
	Longitude string          `json:"longitude" validate:"required,longitude"`
	Address   *addressRequest `json:"address"`
}

type unitRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Capacity int    `json:"capacity" validate:"min=1"`
}

type rentalFields struct {
	LotNumber       string      `json:"lotNumber" validate:"max=50"`
	Status          string      `json:"status" validate:"required,max=50"`
	Price           float64     `json:"price" validate:"min=0"`
	DiscountedPrice float64     `json:"discountedPrice" validate:"min=0"`
	Unit            unitRequest `json:"unit"`
}

type imageFields struct {
	ImageURI string `json:"imageUri" validate:"required,http_url,max=2048"`
}

type lodgingRequest struct {
	Name      string           `json:"name" validate:"required,max=100"`
	Bathrooms int              `json:"bathrooms" validate:"min=1,max=100"`
	Location  *locationRequest `json:"location"`
	Rentals   []rentalFields   `json:"rentals" validate:"dive"`
	Images    []imageFields    `json:"images" validate:"dive"`
}

type rentalRequest struct {
	LodgingID       int64       `json:"lodgingId" validate:"required,min=1"`
	LotNumber       string      `json:"lotNumber" validate:"max=50"`
	Status          string      `json:"status" validate:"required,max=50"`
	Price           float64     `json:"price" validate:"min=0"`
	DiscountedPrice float64     `json:"discountedPrice" validate:"min=0"`
	Unit            unitRequest `json:"unit"`
}

type reviewRequest struct {
	LodgingID int64  `json:"lodgingId" validate:"required,min=1"`
	AccountID int64  `json:"accountId" validate:"min=0"`
	Comment   string `json:"comment" validate:"max=2000"`
	Rating    int    `json:"rating" validate:"min=1,max=10"`
}

type imageRequest struct {
	LodgingID int64  `json:"lodgingId" validate:"required,min=1"`
	ImageURI  string `json:"imageUri" validate:"required,http_url,max=2048"`
}

// ---- mapping ----

func (r lodgingRequest) toDomain(id int64) domain.Lodging {
	l := domain.Lodging{ID: id, Name: r.Name, Bathrooms: r.Bathrooms}
	if r.Location != nil {
		l.Location = &domain.Location{Latitude: r.Location.Latitude, Longitude: r.Location.Longitude}
		if a := r.Location.Address; a != nil {
			l.Location.Address = &domain.Address{
				Street:        a.Street,
				City:          a.City,
				StateProvince: a.StateProvince,
				Country:       a.Country,
				PostalCode:    a.PostalCode,
			}
		}
	}
	for _, rt := range r.Rentals {
		l.Rentals = append(l.Rentals, rt.toDomain(0, 0))
	}
	for _, img := range r.Images {
		l.Images = append(l.Images, domain.Image{ImageURI: img.ImageURI})
	}
	return l
}

func (f rentalFields) toDomain(id, lodgingID int64) domain.Rental {
	return domain.Rental{
		ID:              id,
		LodgingID:       lodgingID,
		LotNumber:       f.LotNumber,
		Status:          f.Status,
		Price:           f.Price,
		DiscountedPrice: f.DiscountedPrice,
		Unit:            domain.RentalUnit{Name: f.Unit.Name, Capacity: f.Unit.Capacity},
	}
}

func (r rentalRequest) toDomain(id int64) domain.Rental {
	return rentalFields{
		LotNumber:       r.LotNumber,
		Status:          r.Status,
		Price:           r.Price,
		DiscountedPrice: r.DiscountedPrice,
		Unit:            r.Unit,
	}.toDomain(id, r.LodgingID)
}

func (r reviewRequest) toDomain(id int64) domain.Review {
	return domain.Review{ID: id, LodgingID: r.LodgingID, AccountID: r.AccountID, Comment: r.Comment, Rating: r.Rating}
}

func (r imageRequest) toDomain() domain.Image {
	return domain.Image{LodgingID: r.LodgingID, ImageURI: r.ImageURI}
}
