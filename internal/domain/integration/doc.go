// Package integration holds the vocabulary shared by every adapter that talks
// to the store platform (WooCommerce and WordPress).
//
// Key concepts:
//   - Platform sentinel errors, returned by every adapter and wrapped with detail
//   - PlatformError: the HTTP status and error code the platform answered with
//   - ToDomainError: translation of platform failures into domain errors
//
// Design Pattern: Ports & Adapters
//   - Ports (interfaces) live in the catalog, sales and marketing domain packages
//   - Adapters (implementations) are in the infrastructure layer
package integration
