package integration

import (
	"fmt"
	"strings"
	"time"
)

// SyncStatus is the overall outcome of a sync run
type SyncStatus string

const (
	SyncStatusSuccess SyncStatus = "SUCCESS"
	SyncStatusPartial SyncStatus = "PARTIAL"
	SyncStatusFailed  SyncStatus = "FAILED"
	SyncStatusAborted SyncStatus = "ABORTED"
)

// Item actions
const (
	ActionCreated      = "created"
	ActionCreateFailed = "create_failed"
	ActionException    = "exception"
)

// ItemResult is the outcome of one remote write
type ItemResult struct {
	// Reference is the variant reference (ERP) or the consolidation key (store)
	Reference    string `json:"reference"`
	Name         string `json:"name,omitempty"`
	ProductIndex int    `json:"product_index"`
	RemoteID     int64  `json:"id,omitempty"`
	Action       string `json:"action"`
	Success      bool   `json:"success"`
	Variants     int    `json:"variants_count,omitempty"`
	ErrorCode    string `json:"error_code,omitempty"`
	Error        string `json:"error,omitempty"`
	// Warnings collects non-fatal follow-up failures such as stock updates
	Warnings []string `json:"warnings,omitempty"`
}

// SyncMetrics aggregates the item results of a run.
// ERP runs fill the first block; store runs fill the consolidation block.
type SyncMetrics struct {
	Total         int `json:"total"`
	Created       int `json:"created"`
	Updated       int `json:"updated"`
	Skipped       int `json:"skipped"`
	Failed        int `json:"failed"`
	TotalVariants int `json:"total_variants"`

	OriginalProducts     int `json:"original_products,omitempty"`
	ConsolidatedProducts int `json:"consolidated_products,omitempty"`
	ProductsMerged       int `json:"products_merged,omitempty"`
	OriginalVariants     int `json:"original_variants,omitempty"`
	ConsolidatedVariants int `json:"consolidated_variants,omitempty"`
}

// SyncResult is the outcome of one sync run against one platform
type SyncResult struct {
	Platform PlatformCode `json:"platform"`
	Status   SyncStatus   `json:"status"`
	Success  bool         `json:"success"`
	Message  string       `json:"message"`
	Metrics  SyncMetrics  `json:"metrics"`
	Items    []ItemResult `json:"results"`
	SyncedAt time.Time    `json:"synced_at"`
}

// NewSyncResult starts an empty result for a platform
func NewSyncResult(platform PlatformCode) *SyncResult {
	return &SyncResult{Platform: platform, Items: []ItemResult{}}
}

// Record appends an item outcome and updates the counters
func (r *SyncResult) Record(item ItemResult) {
	r.Items = append(r.Items, item)
	if item.Success {
		r.Metrics.Created++
	} else {
		r.Metrics.Failed++
	}
}

// Finish sets status, success flag and message.
// aborted marks a run stopped early by an authentication failure.
func (r *SyncResult) Finish(aborted bool) *SyncResult {
	r.SyncedAt = time.Now()
	r.Success = r.Metrics.Created > 0 || r.Metrics.Updated > 0
	switch {
	case aborted:
		r.Status = SyncStatusAborted
	case r.Metrics.Failed == 0:
		r.Status = SyncStatusSuccess
	case r.Success:
		r.Status = SyncStatusPartial
	default:
		r.Status = SyncStatusFailed
	}
	if r.Platform == PlatformCodeShopify {
		r.Message = ShopSyncMessage(r.Metrics)
	} else {
		r.Message = ERPSyncMessage(r.Metrics)
	}
	return r
}

// Complete reports whether every item was written
func (r *SyncResult) Complete() bool {
	return r.Status == SyncStatusSuccess
}

// ERPSyncMessage renders the summary line of an ERP run
func ERPSyncMessage(m SyncMetrics) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Sync completed: %d created, %d updated", m.Created, m.Updated)
	if m.Failed > 0 {
		fmt.Fprintf(&b, ", %d failures", m.Failed)
	}
	if m.Skipped > 0 {
		fmt.Fprintf(&b, ", %d skipped", m.Skipped)
	}
	if m.TotalVariants > 0 {
		fmt.Fprintf(&b, ". Total of %d variants processed.", m.TotalVariants)
	}
	return b.String()
}

// ShopSyncMessage renders the summary line of a store run
func ShopSyncMessage(m SyncMetrics) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Shopify sync completed: %d products created", m.Created)
	if m.ProductsMerged > 0 {
		fmt.Fprintf(&b, " (%d products consolidated by color)", m.ProductsMerged)
	}
	if m.Failed > 0 {
		fmt.Fprintf(&b, ", %d failures", m.Failed)
	}
	fmt.Fprintf(&b, ". Total of %d variants processed.", m.ConsolidatedVariants)
	return b.String()
}

// CombinedResult is the outcome of syncing both platforms in sequence
type CombinedResult struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	ERP     *SyncResult `json:"moloni,omitempty"`
	Shop    *SyncResult `json:"shopify,omitempty"`
}

// NewCombinedResult joins the per-platform results
func NewCombinedResult(erp, shop *SyncResult) *CombinedResult {
	c := &CombinedResult{ERP: erp, Shop: shop}
	var parts []string
	for _, r := range []*SyncResult{erp, shop} {
		if r == nil {
			continue
		}
		c.Success = c.Success || r.Success
		parts = append(parts, r.Platform.DisplayName()+": "+r.Message)
	}
	c.Message = strings.Join(parts, " | ")
	return c
}
