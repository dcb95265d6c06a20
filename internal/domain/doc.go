// Package domain models hazard events, forecast sites, and the shared
// vocabulary of the risk forecasting pipeline.
//
// # Data Sources
//
// Fire detections come from NASA FIRMS (VIIRS/MODIS) CSV archives. Each row is
// a thermal anomaly pixel with a brightness temperature in Kelvin and a fire
// radiative power (FRP) in megawatts. Acquisition time is split across
// "acq_date" (YYYY-MM-DD) and "acq_time" (HHMM, UTC, not zero-padded).
//
// Earthquakes come from the USGS FDSN event catalog CSV export. Each row has an
// ISO-8601 UTC "time", a moment or local magnitude "mag", an optional "depth"
// in kilometers, and an optional free-text "place".
//
// Weather aggregates come from the Open-Meteo archive API as one record per
// day: mean/max/min 2m temperature (°C), mean/min relative humidity (%), max
// 10m wind speed (km/h), and precipitation sum (mm).
//
// # Intensity
//
// Every event exposes a single scalar [HazardEvent.Intensity] used for
// thresholding: FRP for fire, magnitude for quakes. Brightness and depth are
// carried as secondary attributes for feature aggregation and display.
//
// # Time Windows
//
// For a reference timestamp t:
//
//	lookback  [t-W, t)    events strictly before t feed the features
//	lookahead (t, t+H]    events strictly after t, up to and including t+H, decide the label
//
// The two intervals never overlap, so a sample's features cannot see its own label.
//
// # Distances
//
// All spatial filters use great-circle distance on a sphere of radius
// [EarthRadiusKM]. Radius boundaries are inclusive.
package domain
