package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusAvailable, true},
		{StatusPending, StatusRejected, true},
		{StatusAvailable, StatusPending, true},
		{StatusRejected, StatusPending, true},
		{StatusAvailable, StatusRejected, false},
		{StatusRejected, StatusAvailable, false},
		{StatusPending, StatusPending, false},
		{StatusAvailable, StatusAvailable, false},
		{Status("archived"), StatusPending, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestProperty_Actions(t *testing.T) {
	tests := []struct {
		name     string
		property Property
		want     []Action
	}{
		{"pending", Property{Status: StatusPending}, []Action{ActionApprove, ActionReject}},
		{"available", Property{Status: StatusAvailable}, []Action{ActionSuspend, ActionFeature}},
		{"available featured", Property{Status: StatusAvailable, Featured: true}, []Action{ActionSuspend, ActionUnfeature}},
		{"rejected", Property{Status: StatusRejected}, []Action{ActionReReview}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.property.Actions())
		})
	}
}

func TestProperty_FeaturedOnlyWhenAvailable(t *testing.T) {
	for _, s := range []Status{StatusPending, StatusRejected} {
		p := Property{Status: s}
		assert.False(t, p.CanToggleFeatured())
		assert.NotContains(t, p.Actions(), ActionFeature)
		assert.NotContains(t, p.Actions(), ActionUnfeature)
	}
}

func TestProperty_SetStatusClearsFeatured(t *testing.T) {
	p := Property{Status: StatusAvailable, Featured: true}

	p.SetStatus(StatusPending)
	assert.Equal(t, StatusPending, p.Status)
	assert.False(t, p.Featured)
}

func TestAction_TargetStatus(t *testing.T) {
	for action, want := range map[Action]Status{
		ActionApprove:  StatusAvailable,
		ActionReject:   StatusRejected,
		ActionSuspend:  StatusPending,
		ActionReReview: StatusPending,
	} {
		got, ok := action.TargetStatus()
		assert.True(t, ok)
		assert.Equal(t, want, got)
	}

	_, ok := ActionFeature.TargetStatus()
	assert.False(t, ok)
}

func TestProperty_AppendImagesKeepsOrder(t *testing.T) {
	p := Property{Images: []string{"a", "b"}}
	p.AppendImages("c", "a", "d")

	assert.Equal(t, []string{"a", "b", "c", "d"}, p.Images)
}

func TestCategory_Valid(t *testing.T) {
	assert.True(t, CategoryCondo.Valid())
	assert.False(t, Category("castle").Valid())
}

func TestCheckImage(t *testing.T) {
	limit := DefaultMaxAttachmentBytes

	assert.Empty(t, CheckImage("porch.jpg", "image/jpeg", 1024, limit))
	assert.Equal(t, "deed.pdf is not an image file", CheckImage("deed.pdf", "application/pdf", 1024, limit))
	assert.Equal(t, "huge.png exceeds 10MB size limit", CheckImage("huge.png", "image/png", 12<<20, limit))
	assert.Empty(t, CheckImage("edge.png", "image/png", limit, limit))
}

func TestCheckTaxReceipt(t *testing.T) {
	limit := DefaultMaxAttachmentBytes

	assert.Empty(t, CheckTaxReceipt("application/pdf", 2048, limit))
	assert.Empty(t, CheckTaxReceipt("image/webp", 2048, limit))
	assert.Empty(t, CheckTaxReceipt("application/PDF; charset=binary", 2048, limit))
	assert.Equal(t, "Tax receipt must be an image or PDF file", CheckTaxReceipt("text/plain", 10, limit))
	assert.Equal(t, "File exceeds 10MB size limit", CheckTaxReceipt("application/pdf", limit+1, limit))
}
