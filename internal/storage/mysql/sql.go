package mysql

// -----------------------------------------------------------------------------
// WRITES
// -----------------------------------------------------------------------------

const insertAddressSQL = `
INSERT INTO addresses (street, city, state_province, country, postal_code)
VALUES (?, ?, ?, ?, ?)
`

const updateAddressSQL = `
UPDATE addresses
SET street = ?, city = ?, state_province = ?, country = ?, postal_code = ?
WHERE id = ?
`

const insertLocationSQL = `
INSERT INTO locations (address_id, latitude, longitude)
VALUES (?, ?, ?)
`

const updateLocationSQL = `
UPDATE locations
SET address_id = ?, latitude = ?, longitude = ?
WHERE id = ?
`

const insertLodgingSQL = `
INSERT INTO lodgings (external_ref, location_id, name, bathrooms)
VALUES (?, ?, ?, ?)
`

const updateLodgingSQL = `
UPDATE lodgings
SET location_id = ?, name = ?, bathrooms = ?
WHERE id = ?
`

const insertRentalUnitSQL = `
INSERT INTO rental_units (name, capacity)
VALUES (?, ?)
`

const updateRentalUnitSQL = `
UPDATE rental_units SET name = ?, capacity = ? WHERE id = ?
`

const insertRentalSQL = `
INSERT INTO rentals (lodging_id, rental_unit_id, lot_number, status, price, discounted_price)
VALUES (?, ?, ?, ?, ?, ?)
`

const updateRentalSQL = `
UPDATE rentals
SET lodging_id = ?, lot_number = ?, status = ?, price = ?, discounted_price = ?
WHERE id = ?
`

const insertReviewSQL = `
INSERT INTO reviews (lodging_id, account_id, comment, rating, date_created)
VALUES (?, ?, ?, ?, COALESCE(?, CURRENT_TIMESTAMP))
`

const updateReviewSQL = `
UPDATE reviews
SET lodging_id = ?, account_id = ?, comment = ?, rating = ?
WHERE id = ?
`

const insertImageSQL = `
INSERT INTO images (lodging_id, image_uri)
VALUES (?, ?)
`

// -----------------------------------------------------------------------------
// READS
// -----------------------------------------------------------------------------

// Location and address are LEFT JOINed: a lodging without them still comes
// back, and a NULL column never equals a location filter value.
const selectLodgingsSQL = `
SELECT
  l.id,
  l.external_ref,
  l.name,
  l.bathrooms,
  loc.id,
  loc.latitude,
  loc.longitude,
  a.id,
  a.street,
  a.city,
  a.state_province,
  a.country,
  a.postal_code
FROM lodgings l
LEFT JOIN locations loc ON loc.id = l.location_id
LEFT JOIN addresses a   ON a.id = loc.address_id
`

const selectLodgingRefsSQL = `
SELECT l.location_id, loc.address_id
FROM lodgings l
LEFT JOIN locations loc ON loc.id = l.location_id
WHERE l.id = ?
`

const selectRentalsSQL = `
SELECT
  r.id,
  r.lodging_id,
  r.lot_number,
  r.status,
  r.price,
  r.discounted_price,
  u.id,
  u.name,
  u.capacity
FROM rentals r
JOIN rental_units u ON u.id = r.rental_unit_id
`

const selectReviewsSQL = `
SELECT id, lodging_id, account_id, comment, rating, date_created
FROM reviews
`

const selectImagesSQL = `
SELECT id, lodging_id, image_uri
FROM images
`
