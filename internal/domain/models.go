// Package domain defines the persistence models for the POI backend: the
// cross-user global link cache, per-user accumulation records, and the
// processed-message ledger used for inbound deduplication. These types are
// mapped to MongoDB documents and form the core data layer of the
// application. Field names are part of the wire contract with downstream
// consumers and must not change.
package domain

import "time"

// PhotoLink is a single place photo: the provider's opaque reference plus a
// fully-formed fetch URL and the source dimensions.
type PhotoLink struct {
	PhotoReference string `json:"photo_reference" bson:"photo_reference"`
	URL            string `json:"url"             bson:"url"`
	Width          int    `json:"width"           bson:"width"`
	Height         int    `json:"height"          bson:"height"`
}

// Location is an enriched point of interest, the unit persisted in both the
// global link cache and per-user accumulation.
//
// GeoLocation is longitude-first ([lng, lat]) because the documents are
// covered by a 2dsphere index. [0, 0] is the sentinel for "no valid geocode
// obtained"; such entries may appear in the global cache but are filtered
// out of user records.
//
// TGID points into a third-party experiences catalog. It is always nil when
// a location is first extracted and is filled by a separate backfill pass.
type Location struct {
	POIName     string      `json:"poi_name"     bson:"poi_name"`
	Category    Category    `json:"category"     bson:"category"`
	GeoLocation []float64   `json:"geo_location" bson:"geo_location"`
	MapsURL     string      `json:"maps_url"     bson:"maps_url"`
	WebsiteURL  string      `json:"website_url"  bson:"website_url"`
	PhotosLinks []PhotoLink `json:"photos_links" bson:"photos_links"`
	City        string      `json:"city"         bson:"city"`
	TGID        *string     `json:"tgid"         bson:"tgid"`
}

// HasGeo reports whether the location carries real coordinates, i.e. is not
// the [0, 0] sentinel.
func (l Location) HasGeo() bool {
	return len(l.GeoLocation) == 2 && !(l.GeoLocation[0] == 0 && l.GeoLocation[1] == 0)
}

// GlobalLink is the cross-user cache entry for one social-media URL.
// Locations are immutable after creation: a cache hit reuses them verbatim
// and only bumps ProcessedCount.
type GlobalLink struct {
	Link           string     `json:"link"            bson:"link"`
	Author         *string    `json:"author"          bson:"author"`
	Locations      []Location `json:"locations"       bson:"locations"`
	ProcessedAt    time.Time  `json:"processed_at"    bson:"processed_at"`
	ProcessedCount int        `json:"processed_count" bson:"processed_count"`
}

// UserLink is one submitted URL in a user's links array. The array is a set
// semantically: no duplicate URL per user.
type UserLink struct {
	URL     string    `json:"url"      bson:"url"`
	AddedAt time.Time `json:"added_at" bson:"added_at"`
}

// UserLocation is a Location accumulated into a user record, tagged with the
// link it came from and when it was added.
type UserLocation struct {
	Location   `bson:",inline"`
	SourceLink string    `json:"source_link" bson:"source_link"`
	AddedAt    time.Time `json:"added_at"    bson:"added_at"`
}

// User is the per-user accumulation record, keyed by phone number. Created
// lazily on first link submission or explicit login.
type User struct {
	Name      string         `json:"name"       bson:"name"`
	PhoneNo   string         `json:"phoneNo"    bson:"phoneNo"`
	Links     []UserLink     `json:"links"      bson:"links"`
	Locations []UserLocation `json:"locations"  bson:"locations"`
	CreatedAt time.Time      `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time      `json:"updated_at" bson:"updated_at"`
}
