package flow

import "github.com/greenwayvn/welllabbot/internal/models"

// Fixed reply texts and system instructions. All user-facing strings are
// Vietnamese in the polite anh/chị register.
const (
	// WelcomeMessage greets a new or reset conversation.
	WelcomeMessage = "Chào anh/chị 👋\n" +
		"Em là trợ lý AI hỗ trợ tư vấn & chăm sóc sức khỏe bằng sản phẩm WELLLAB.\n" +
		"Anh/chị cứ gửi nhu cầu, triệu chứng hoặc câu hỏi về sản phẩm, liệu trình... để em hỗ trợ nhé."

	// ApologyMessage replaces the reply whenever the completion service fails.
	ApologyMessage = "Hiện hệ thống AI đang bận, anh/chị vui lòng thử lại sau 1 chút nhé."

	// GreetingAck acknowledges a greeting once a need is already resolved.
	GreetingAck = "Dạ em chào anh/chị ạ. Anh/chị cần em hỗ trợ thêm gì không ạ?"

	// RedirectMenu is sent when the user signals no health concern.
	RedirectMenu = "Dạ vâng ạ. Nếu anh/chị quan tâm, em có thể hỗ trợ:\n" +
		"1. Tư vấn sức khỏe theo triệu chứng\n" +
		"2. Thông tin sản phẩm & combo WELLLAB\n" +
		"3. Chính sách đặt hàng, giao hàng, thanh toán\n" +
		"Anh/chị cứ nhắn nội dung cần hỗ trợ nhé."

	// DefaultClarifyQuestion is asked when no intent-specific question exists.
	DefaultClarifyQuestion = "Dạ, để tư vấn chính xác hơn, anh/chị cho em biết thêm: tình trạng này kéo dài bao lâu rồi, " +
		"anh/chị bao nhiêu tuổi và có đang dùng thuốc hay có bệnh nền gì không ạ?"

	// ProductClarifyQuestion is asked when no product or combo could be matched.
	ProductClarifyQuestion = "Dạ, anh/chị đang quan tâm sản phẩm hoặc combo nào của WELLLAB ạ? " +
		"Anh/chị nhắn giúp em tên sản phẩm hoặc mô tả nhu cầu để em tìm đúng sản phẩm nhé."

	// GenericDisambiguation is asked when nothing else could be made of the message.
	GenericDisambiguation = "Dạ, em chưa rõ anh/chị đang cần hỗ trợ về vấn đề gì ạ. " +
		"Anh/chị có thể mô tả rõ hơn về sức khỏe, sản phẩm hay chính sách đặt hàng để em tư vấn nhé."

	// ModeAckInternalAgent confirms switching to consultant vocabulary.
	ModeAckInternalAgent = "Đã chuyển sang chế độ tư vấn viên nội bộ. Các câu trả lời sẽ dùng thuật ngữ dành cho tư vấn viên Green Way."

	// ModeAckEndCustomer confirms switching back to customer vocabulary.
	ModeAckEndCustomer = "Đã chuyển về chế độ khách hàng. Các câu trả lời sẽ dùng cách xưng hô anh/chị thông thường."
)

// systemPromptEndCustomer is the role instruction for customer-facing replies.
const systemPromptEndCustomer = `Bạn là trợ lý tư vấn sức khỏe & thực phẩm chức năng WELLLAB cho công ty Green Way.

Nguyên tắc:
- Trả lời bằng TIẾNG VIỆT, xưng hô lịch sự (anh/chị, em).
- Luôn dựa trên danh mục combo/sản phẩm WELLLAB được cung cấp trong ngữ cảnh.
- Giải thích cho khách hiểu đơn giản: sản phẩm giúp gì, phù hợp ai, dùng bao lâu, lưu ý gì.
- Không cam kết chữa khỏi bệnh, không thay thế đơn thuốc hoặc chẩn đoán của bác sĩ.
- Nếu khách có bệnh nền, đang mang thai, cho con bú, dùng thuốc tây → luôn khuyến cáo hỏi ý kiến bác sĩ/chuyên gia.
- Nếu câu hỏi nằm ngoài lĩnh vực sản phẩm (chuyện đời sống, tài chính…) vẫn có thể trả lời ngắn nhưng nên kéo khách quay lại chủ đề sức khỏe & sản phẩm của công ty.`

// systemPromptInternalAgent is the role instruction when talking to a Green Way consultant.
const systemPromptInternalAgent = `Bạn là trợ lý nội bộ hỗ trợ tư vấn viên Green Way về sản phẩm WELLLAB.

Nguyên tắc:
- Trả lời bằng TIẾNG VIỆT, ngắn gọn, đúng thuật ngữ nội bộ, xưng hô "bạn".
- Luôn dựa trên danh mục combo/sản phẩm WELLLAB được cung cấp trong ngữ cảnh.
- Nêu rõ điểm bán hàng chính, đối tượng phù hợp, liệu trình khuyến nghị và các lưu ý khi tư vấn.
- Không cam kết chữa khỏi bệnh; nhắc tư vấn viên luôn khuyến cáo khách hỏi ý kiến bác sĩ khi có bệnh nền.`

// policyInstruction constrains policy-branch completions to ordering topics.
const policyInstruction = `Chỉ trả lời về chính sách đặt hàng, giao hàng, thanh toán, đổi trả của công ty.
TUYỆT ĐỐI không tư vấn sức khỏe hay gợi ý sản phẩm trong câu trả lời này.
Nếu không chắc về chi tiết chính sách, hướng dẫn khách liên hệ tư vấn viên Green Way.`

// groundingInstruction forbids inventing products outside the supplied catalog context.
const groundingInstruction = "Bạn đang tư vấn dựa trên danh mục sản phẩm WELLLAB của công ty. " +
	"TUYỆT ĐỐI không bịa ra sản phẩm mới, chỉ dùng các combo/sản phẩm xuất hiện trong danh mục dưới đây."

// SystemInstructions returns the role instruction text for the session mode.
func SystemInstructions(mode models.Mode) string {
	if mode == models.ModeInternalAgent {
		return systemPromptInternalAgent
	}
	return systemPromptEndCustomer
}
