package flow

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/greenwayvn/welllabbot/internal/models"
)

// agePattern matches a one- or two-digit age followed by a "years old" word,
// with or without diacritics.
var agePattern = regexp.MustCompile(`(\d{1,2})\s*(?:tuổi|tuoi)`)

// Gender keywords; accented and plain variants both listed.
var (
	maleKeywords   = []string{"nam giới", "nam gioi", "là nam", "la nam", "đàn ông", "dan ong"}
	femaleKeywords = []string{"nữ giới", "nu gioi", "là nữ", "la nu", "phụ nữ", "phu nu"}
)

// Chronic-condition phrases. Negatives are checked before positives so
// "không có bệnh nền" is not read as having one.
var (
	chronicNegative = []string{
		"không có bệnh nền", "khong co benh nen", "không bệnh nền", "khong benh nen",
		"không dùng thuốc", "khong dung thuoc", "no chronic",
	}
	chronicPositive = []string{
		"bệnh nền", "benh nen", "bệnh mãn tính", "benh man tinh",
		"đang dùng thuốc", "dang dung thuoc", "đang điều trị", "dang dieu tri",
	}
)

// ExtractProfile pulls age, gender, and chronic-condition hints from free
// text. It returns only the fields it could extract; the caller merges the
// result into the session profile without overwriting existing values.
func ExtractProfile(text string) models.Profile {
	var p models.Profile
	msg := strings.ToLower(text)

	if m := agePattern.FindStringSubmatch(msg); m != nil {
		if age, err := strconv.Atoi(m[1]); err == nil && age > 0 {
			p.Age = age
		}
	}

	for _, kw := range maleKeywords {
		if strings.Contains(msg, kw) {
			p.Gender = models.GenderMale
			break
		}
	}
	if p.Gender == models.GenderUnknown {
		for _, kw := range femaleKeywords {
			if strings.Contains(msg, kw) {
				p.Gender = models.GenderFemale
				break
			}
		}
	}

	for _, kw := range chronicNegative {
		if strings.Contains(msg, kw) {
			v := false
			p.HasChronicCondition = &v
			return p
		}
	}
	for _, kw := range chronicPositive {
		if strings.Contains(msg, kw) {
			v := true
			p.HasChronicCondition = &v
			break
		}
	}
	return p
}
