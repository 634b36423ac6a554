package rules

import (
	"strings"

	"github.com/greenwayvn/welllabbot/internal/models"
)

// Fixed keyword sets for the need classifier. Each set embeds both accented
// and unaccented variants, so a plain lowercase comparison is enough.
var (
	healthKeywords = []string{
		"đau", "dau ", "bệnh", "benh", "mệt mỏi", "met moi", "triệu chứng", "trieu chung",
		"huyết áp", "huyet ap", "tiểu đường", "tieu duong", "mất ngủ", "mat ngu",
		"khó tiêu", "kho tieu", "dạ dày", "da day", "xương khớp", "xuong khop",
		"sức khỏe", "suc khoe", "đề kháng", "de khang", "cholesterol", "mỡ máu", "mo mau",
	}
	productKeywords = []string{
		"sản phẩm", "san pham", "combo", "liệu trình", "lieu trinh", "welllab",
		"thành phần", "thanh phan", "công dụng", "cong dung", "cách dùng", "cach dung",
		"giá", "gia bao nhieu", "mua", "viên uống", "vien uong",
	}
	policyKeywords = []string{
		"giao hàng", "giao hang", "vận chuyển", "van chuyen", "đặt hàng", "dat hang",
		"thanh toán", "thanh toan", "đổi trả", "doi tra", "hoàn tiền", "hoan tien",
		"ship", "chiết khấu", "chiet khau", "đại lý", "dai ly",
	}
)

// Strong signal cue words that override the classifier when present. These are
// narrower than the classifier sets: only unambiguous phrases qualify.
var (
	explicitProductCues = []string{"combo", "sản phẩm", "san pham", "liệu trình", "lieu trinh", "welllab"}
	explicitPolicyCues  = []string{"giao hàng", "giao hang", "đặt hàng", "dat hang", "thanh toán", "thanh toan", "đổi trả", "doi tra", "ship"}
	explicitHealthCues  = []string{"huyết áp", "huyet ap", "tiểu đường", "tieu duong", "mất ngủ", "mat ngu", "đau", "dau ", "bệnh", "benh"}
)

// ClassifyNeed tests the message against the fixed keyword sets in priority
// order: health first (health signals are the most specific and urgent), then
// product, then policy. Other is the default when nothing matches.
func ClassifyNeed(text string) models.Need {
	msg := strings.ToLower(text)
	if strings.TrimSpace(msg) == "" {
		return models.NeedOther
	}
	switch {
	case anySubstring(msg, healthKeywords):
		return models.NeedHealth
	case anySubstring(msg, productKeywords):
		return models.NeedProduct
	case anySubstring(msg, policyKeywords):
		return models.NeedPolicy
	default:
		return models.NeedOther
	}
}

// ExplicitNeed reports a need only when the message carries an unambiguous cue
// word for it. A hit here beats the classifier output for the turn.
func ExplicitNeed(text string) (models.Need, bool) {
	msg := strings.ToLower(text)
	switch {
	case anySubstring(msg, explicitProductCues):
		return models.NeedProduct, true
	case anySubstring(msg, explicitPolicyCues):
		return models.NeedPolicy, true
	case anySubstring(msg, explicitHealthCues):
		return models.NeedHealth, true
	default:
		return models.NeedUnset, false
	}
}

func anySubstring(msg string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(msg, kw) {
			return true
		}
	}
	return false
}
