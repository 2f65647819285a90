// Package services contains the application services behind the transport
// layer. HousingService is the single shared ingestion and read component:
// both the interactive upload handler and the scheduled fetcher go through
// it, and all reads are pure functions of the loaded history.
package services
