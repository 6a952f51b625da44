// Package domain models alumni locations, natural-hazard events from NASA's
// Earth Observatory Natural Event Tracker (EONET), and the proximity alerts
// derived from them.
//
// # Address Resolution
//
// Person addresses arrive as six loosely-typed components:
//
//	Street1, Street2, City, Region, Postal, Country
//
// [Resolver.Resolve] joins the trimmed non-empty components with ", " and
// walks a fixed fallback chain. The first step that succeeds wins:
//
//  1. Region table: when Country names Japan ("Japan", "JPN", "日本"),
//     the formatted address is matched case-insensitively against a small
//     table of prefecture centroids. A hit never reaches the network.
//  2. Geocoder: the formatted address is sent to the external geocoding
//     service, retried with exponential backoff on transient errors, and
//     retried once more with unit/apartment fragments stripped.
//  3. Default: the Tokyo centroid (35.6762, 139.6503) with IsValid=false.
//
// The validity flag is the data-quality signal carried to the map layer and
// the proximity engine. A default coordinate is a placeholder, not a place,
// so persons with IsValid=false never produce alerts.
//
// Postal codes exported from spreadsheets often arrive as floats ("12345.0").
// [NormalizePostal] strips the spurious fraction before formatting.
//
// # EONET Conventions
//
// An EONET v3 event carries a list of categories and a list of geometries:
//
//	{"id": "EONET_6543", "title": "Wildfire - Kern County",
//	 "categories": [{"id": "wildfires", "title": "Wildfires"}],
//	 "geometry": [{"date": "2024-08-02T00:00:00Z", "type": "Point",
//	               "coordinates": [-118.6, 35.3]}]}
//
// Coordinates are GeoJSON ordered: [longitude, latitude]. The first geometry
// and the first category are treated as authoritative. Events missing either,
// or whose first geometry is not a two-number point, are dropped and counted
// in [FeedBatch.Dropped].
//
// # Distance
//
// Distances are geodesics on the WGS-84 ellipsoid in kilometers, rounded to
// one decimal after the threshold comparison.
package domain
