// Package integration contains the Integration bounded context.
// It models how a normalized batch is projected onto the two sync targets.
//
// Key concepts:
//   - ERPPlatform / ShopPlatform: port interfaces for the invoicing ERP and the web store
//   - ERPReferenceData: company-wide category, supplier, unit and tax lookups of the ERP
//   - Consolidate: regroups per-color lines into store products with size options
//   - DetectERPConflicts / DetectShopConflicts: pre-sync duplicate detection
//   - SyncResult: per-item outcomes and aggregate metrics of one sync run
//   - RefreshProgress: status record of the background ERP catalog refresh
//
// Design Pattern: Ports & Adapters
//   - Ports (interfaces) are defined here in the domain layer
//   - Adapters (implementations) are in the infrastructure layer
package integration
