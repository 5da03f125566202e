package guard

import (
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Moderator", func() {
	var moderator Moderator

	It("passes ordinary messages", func() {
		safe, category, _ := moderator.Moderate("my gums are bleeding")
		Expect(safe).To(BeTrue())
		Expect(category).To(Equal("safe"))
	})

	It("passes empty messages", func() {
		safe, _, _ := moderator.Moderate("")
		Expect(safe).To(BeTrue())
	})

	It("flags crisis content with the emergency resources message", func() {
		safe, category, msg := moderator.Moderate("sometimes I want to die")
		Expect(safe).To(BeFalse())
		Expect(category).To(Equal("emergency"))
		Expect(msg).To(Equal(EmergencyResponse))
	})

	It("detects crisis content regardless of case", func() {
		safe, category, _ := moderator.Moderate("I will HURT MYSELF")
		Expect(safe).To(BeFalse())
		Expect(category).To(Equal("emergency"))
	})

	It("rejects oversized messages", func() {
		safe, category, msg := moderator.Moderate(strings.Repeat("a ", 4001))
		Expect(safe).To(BeFalse())
		Expect(category).To(Equal("validation"))
		Expect(msg).To(ContainSubstring("8000"))
	})

	It("rejects degenerate repetition", func() {
		safe, category, _ := moderator.Moderate(strings.Repeat("spam spam ", 10))
		Expect(safe).To(BeFalse())
		Expect(category).To(Equal("validation"))
	})

	It("prefers the emergency category over length validation", func() {
		long := "I want to die " + strings.Repeat("x", 9000)
		_, category, _ := moderator.Moderate(long)
		Expect(category).To(Equal("emergency"))
	})
})

var _ = Describe("Sanitize", func() {
	It("escapes HTML", func() {
		Expect(Sanitize(`<script>alert("x")</script>`)).
			To(Equal("&lt;script&gt;alert(&#34;x&#34;)&lt;/script&gt;"))
	})

	It("strips control characters", func() {
		Expect(Sanitize("hel\x00lo\x1f world\x7f")).To(Equal("hello world"))
	})

	It("trims surrounding whitespace", func() {
		Expect(Sanitize("  padded  ")).To(Equal("padded"))
	})

	It("is idempotent", func() {
		inputs := []string{
			`<b>bold & "quoted"</b>`,
			"plain text",
			"  mixed <tags> & entities &amp; here  ",
			"",
		}
		for _, in := range inputs {
			once := Sanitize(in)
			Expect(Sanitize(once)).To(Equal(once))
		}
	})
})
