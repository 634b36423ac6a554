package flow

import (
	"fmt"
	"strings"

	"github.com/greenwayvn/welllabbot/internal/models"
)

// BuildContext assembles the deterministic plain-text block handed to the
// completion gateway: the grounding instruction, the resolved intent, the
// profile summary, and the selected combo/product fields. Absent data renders
// as an explicit placeholder sentence so the model cannot confuse missing
// information with a negative answer.
func BuildContext(s *models.Session, combo *models.Combo, product *models.Product) string {
	var b strings.Builder
	b.WriteString(groundingInstruction)
	b.WriteString("\n")

	b.WriteString("\nVấn đề khách quan tâm: ")
	if s.Intent != "" {
		b.WriteString(s.Intent)
	} else {
		b.WriteString("chưa xác định được vấn đề cụ thể.")
	}
	if s.IssueSummary != "" {
		b.WriteString("\nMô tả của khách: " + s.IssueSummary)
	} else if s.FirstIssue != "" {
		b.WriteString("\nMô tả của khách: " + s.FirstIssue)
	}

	b.WriteString("\n\nThông tin khách hàng: ")
	b.WriteString(profileSummary(s.Profile))

	b.WriteString("\n\n")
	if combo != nil {
		writeCombo(&b, combo)
	} else {
		b.WriteString("Không tìm thấy combo cụ thể nào trong danh mục nội bộ. " +
			"Hãy nói rõ với khách rằng chưa có combo phù hợp được xác định, không tự bịa ra combo.")
	}

	if product != nil {
		b.WriteString("\n\n")
		writeProduct(&b, product)
	}

	return b.String()
}

// profileSummary renders human-readable fragments only for the fields that are
// set, with an explicit placeholder when nothing is known yet.
func profileSummary(p models.Profile) string {
	var parts []string
	if p.Age > 0 {
		parts = append(parts, fmt.Sprintf("%d tuổi", p.Age))
	}
	switch p.Gender {
	case models.GenderMale:
		parts = append(parts, "giới tính nam")
	case models.GenderFemale:
		parts = append(parts, "giới tính nữ")
	}
	if p.HasChronicCondition != nil {
		if *p.HasChronicCondition {
			parts = append(parts, "có bệnh nền hoặc đang dùng thuốc")
		} else {
			parts = append(parts, "không có bệnh nền")
		}
	}
	if len(parts) == 0 {
		return "chưa có thông tin về tuổi, giới tính hay bệnh nền."
	}
	return strings.Join(parts, ", ") + "."
}

func writeCombo(b *strings.Builder, c *models.Combo) {
	fmt.Fprintf(b, "Combo được chọn: %s\n", c.Name)
	if c.HeaderText != "" {
		fmt.Fprintf(b, "- Giới thiệu: %s\n", c.HeaderText)
	}
	if c.DurationText != "" {
		fmt.Fprintf(b, "- Liệu trình: %s\n", c.DurationText)
	}
	for _, p := range c.Products {
		fmt.Fprintf(b, "  • %s", p.Name)
		if p.Code != "" {
			fmt.Fprintf(b, " (%s)", p.Code)
		}
		if p.Text != "" {
			fmt.Fprintf(b, " – %s", p.Text)
		}
		if p.Link != "" {
			fmt.Fprintf(b, " – Link: %s", p.Link)
		}
		b.WriteString("\n")
	}
	if c.URL != "" {
		fmt.Fprintf(b, "- Link combo: %s\n", c.URL)
	}
}

func writeProduct(b *strings.Builder, p *models.Product) {
	fmt.Fprintf(b, "Sản phẩm được chọn: %s\n", p.Name)
	if p.Code != "" {
		fmt.Fprintf(b, "- Mã: %s\n", p.Code)
	}
	if p.Price != "" {
		fmt.Fprintf(b, "- Giá: %s\n", p.Price)
	}
	if p.Ingredients != "" {
		fmt.Fprintf(b, "- Thành phần: %s\n", p.Ingredients)
	}
	if p.Benefits != "" {
		fmt.Fprintf(b, "- Công dụng: %s\n", p.Benefits)
	}
	if p.Usage != "" {
		fmt.Fprintf(b, "- Cách dùng: %s\n", p.Usage)
	}
	if p.Link != "" {
		fmt.Fprintf(b, "- Link: %s\n", p.Link)
	}
}
