package domain

import "slices"

// Category is the kind of real estate being listed.
type Category string

// Listing categories.
const (
	CategoryHouse      Category = "house"
	CategoryApartment  Category = "apartment"
	CategoryCondo      Category = "condo"
	CategoryLand       Category = "land"
	CategoryCommercial Category = "commercial"
)

// Categories lists every valid category in display order.
var Categories = []Category{CategoryHouse, CategoryApartment, CategoryCondo, CategoryLand, CategoryCommercial}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	return slices.Contains(Categories, c)
}

// Status is the moderation state of a listing.
type Status string

// Moderation states.
const (
	StatusPending   Status = "pending"
	StatusAvailable Status = "available"
	StatusRejected  Status = "rejected"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s == StatusPending || s == StatusAvailable || s == StatusRejected
}

// transitions is the complete set of admin-triggered status changes.
var transitions = map[Status][]Status{
	StatusPending:   {StatusAvailable, StatusRejected},
	StatusAvailable: {StatusPending},
	StatusRejected:  {StatusPending},
}

// CanTransition reports whether an admin may move a listing from one status to another.
func CanTransition(from, to Status) bool {
	return slices.Contains(transitions[from], to)
}

// Action is a moderation action offered on a dashboard row.
type Action string

// Moderation actions.
const (
	ActionApprove   Action = "approve"
	ActionReject    Action = "reject"
	ActionSuspend   Action = "suspend"
	ActionReReview  Action = "re_review"
	ActionFeature   Action = "feature"
	ActionUnfeature Action = "unfeature"
)

// TargetStatus returns the status an action moves a listing to.
// ok is false for the featured actions, which do not change status.
func (a Action) TargetStatus() (Status, bool) {
	switch a {
	case ActionApprove:
		return StatusAvailable, true
	case ActionReject:
		return StatusRejected, true
	case ActionSuspend, ActionReReview:
		return StatusPending, true
	default:
		return "", false
	}
}

// Property is a real-estate listing.
type Property struct {
	Syncable
	SellerID    string   `json:"seller_id"`
	Title       string   `json:"title"`
	Price       int64    `json:"price"`
	Category    Category `json:"property_type"`
	Bedrooms    int      `json:"bedrooms"`
	Bathrooms   int      `json:"bathrooms"`
	Area        int      `json:"area"`
	Address     string   `json:"address"`
	City        string   `json:"city"`
	State       string   `json:"state"`
	ZipCode     string   `json:"zip_code"`
	Description string   `json:"description"`
	// Images keeps upload order; the first image is the cover.
	Images []string `json:"images"`
	// ImagePlaceholders maps an image URL to its blurhash.
	ImagePlaceholders map[string]string `json:"image_placeholders,omitempty"`
	TaxReceiptURL     string            `json:"tax_receipt_url,omitempty"`
	Status            Status            `json:"status"`
	Featured          bool              `json:"featured"`
}

// HasVerificationDocument reports whether a tax receipt is attached.
func (p *Property) HasVerificationDocument() bool {
	return p.TaxReceiptURL != ""
}

// IsPublic reports whether the listing is visible to anonymous visitors.
func (p *Property) IsPublic() bool {
	return p.Status == StatusAvailable
}

// SetStatus moves the listing to status. Leaving available clears the
// featured flag, which only has meaning on available listings.
func (p *Property) SetStatus(status Status) {
	p.Status = status
	if status != StatusAvailable {
		p.Featured = false
	}
}

// CanToggleFeatured reports whether the featured flag may be flipped.
func (p *Property) CanToggleFeatured() bool {
	return p.Status == StatusAvailable
}

// Actions returns the moderation actions currently permitted on the listing.
func (p *Property) Actions() []Action {
	var actions []Action
	switch p.Status {
	case StatusPending:
		actions = append(actions, ActionApprove, ActionReject)
	case StatusAvailable:
		actions = append(actions, ActionSuspend)
		if p.Featured {
			actions = append(actions, ActionUnfeature)
		} else {
			actions = append(actions, ActionFeature)
		}
	case StatusRejected:
		actions = append(actions, ActionReReview)
	}
	return actions
}

// AppendImages appends new image URLs after the existing ones, skipping duplicates.
func (p *Property) AppendImages(urls ...string) {
	for _, u := range urls {
		if !slices.Contains(p.Images, u) {
			p.Images = append(p.Images, u)
		}
	}
}

// SetPlaceholder records the blurhash for an image URL.
func (p *Property) SetPlaceholder(url, hash string) {
	if hash == "" {
		return
	}
	if p.ImagePlaceholders == nil {
		p.ImagePlaceholders = make(map[string]string)
	}
	p.ImagePlaceholders[url] = hash
}

// PropertyWithSeller is a dashboard row: a listing left-joined to its seller's profile.
// Seller is nil when no profile exists for the listing's seller.
type PropertyWithSeller struct {
	*Property
	Seller  *Profile `json:"seller"`
	Actions []Action `json:"actions"`
}
