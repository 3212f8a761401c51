package domain

import "time"

// Persisted key names. Values are plain strings in the host KV store.
const (
	KeyDeviceID           = "InsertAffiliate_ShortUniqueDeviceID"
	KeyIdentifier         = "InsertAffiliate_Identifier"
	KeyStoredDate         = "InsertAffiliate_StoredDate"
	KeyOfferCode          = "InsertAffiliate_OfferCode"
	KeyAccountToken       = "InsertAffiliate_AppAccountToken"
	KeyAffiliateName      = "InsertAffiliate_AffiliateName"
	KeyAffiliateShortCode = "InsertAffiliate_AffiliateShortCode"
	KeyCompanyName        = "InsertAffiliate_CompanyName"
	KeyDeepLinkPayload    = "InsertAffiliate_DeepLinkPayload"
)

// Short code constraints.
const (
	MinShortCodeLen = 3
	MaxShortCodeLen = 25
)

// StoredDateLayout is the ISO-8601 layout used for the stored timestamp.
const StoredDateLayout = time.RFC3339Nano

// EventPayload is the body of POST /v1/trackEvent.
type EventPayload struct {
	EventName     string `json:"eventName"`
	DeepLinkParam string `json:"deepLinkParam"`
	CompanyID     string `json:"companyId"`
}

// ExpectedTransaction is the body of the create-expected-transaction webhook call.
type ExpectedTransaction struct {
	CompanyID           string `json:"companyId"`
	AffiliateIdentifier string `json:"affiliateIdentifier"`
	AppAccountToken     string `json:"appAccountToken"`
}

// AffiliateCheckRequest is the body of POST /V1/checkAffiliateExists.
type AffiliateCheckRequest struct {
	CompanyID     string `json:"companyId"`
	AffiliateCode string `json:"affiliateCode"`
}

// AffiliateCheckResponse is the decoded reply of the affiliate lookup.
type AffiliateCheckResponse struct {
	Exists    bool           `json:"exists"`
	Affiliate *AffiliateInfo `json:"affiliate,omitempty"`
}

// AffiliateInfo describes an affiliate known to the backend.
type AffiliateInfo struct {
	AffiliateName      string `json:"affiliateName"`
	AffiliateShortCode string `json:"affiliateShortCode"`
	DeepLinkURL        string `json:"deeplinkurl"`
}

// ShortLinkResponse is the object form of the deep-link conversion reply.
type ShortLinkResponse struct {
	ShortLink string `json:"shortLink"`
}

// EnrichmentRecord is the affiliate metadata persisted after a confirmed lookup.
// It is not subject to the attribution window.
type EnrichmentRecord struct {
	AffiliateName      string `json:"affiliate_name"`
	AffiliateShortCode string `json:"affiliate_short_code"`
	CompanyName        string `json:"company_name"`
	RawPayload         string `json:"raw_payload"`
}

// Empty reports whether no enrichment has been persisted.
func (r EnrichmentRecord) Empty() bool {
	return r.AffiliateName == "" && r.AffiliateShortCode == "" && r.RawPayload == ""
}
