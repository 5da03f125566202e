package guard

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/caremesh/medgate/pkg/chat"
)

var _ = Describe("DomainClassifier", func() {
	var classifier *DomainClassifier

	BeforeEach(func() {
		classifier = NewDomainClassifier(nil)
	})

	history := func(contents ...string) []chat.Message {
		msgs := make([]chat.Message, len(contents))
		for i, c := range contents {
			msgs[i] = chat.Message{Role: "user", Content: c}
		}
		return msgs
	}

	Describe("cold start (empty history)", func() {
		It("accepts a message with a medical keyword", func() {
			ok, _ := classifier.IsInDomain("I have a rash on my arm", chat.SpecialtySkin, nil)
			Expect(ok).To(BeTrue())
		})

		It("accepts a message mentioning a body part", func() {
			ok, _ := classifier.IsInDomain("something weird on my elbow", chat.SpecialtySkin, nil)
			Expect(ok).To(BeTrue())
		})

		It("accepts a short message dense with descriptors", func() {
			ok, _ := classifier.IsInDomain("started about three days ago", chat.SpecialtySkin, nil)
			Expect(ok).To(BeTrue())
		})

		It("accepts short personal medical information", func() {
			ok, _ := classifier.IsInDomain("35 years of age, allergic to penicillin", chat.SpecialtySkin, nil)
			Expect(ok).To(BeTrue())
		})

		It("rejects an off-topic question with guidance", func() {
			ok, msg := classifier.IsInDomain("How do I fix my computer?", chat.SpecialtySkin, nil)
			Expect(ok).To(BeFalse())
			Expect(msg).To(Equal(OffTopicGuidance))
		})

		It("rejects explicit unrelated topics", func() {
			ok, msg := classifier.IsInDomain("what do you think of the weather and sports", chat.SpecialtyOral, nil)
			Expect(ok).To(BeFalse())
			Expect(msg).To(Equal(OffTopicGuidance))
		})

		It("default-denies an ambiguous cold message", func() {
			ok, _ := classifier.IsInDomain("qwerty asdf zxcv lorem ipsum dolor sit amet consectetur adipiscing elit sed do eiusmod tempor incididunt ut labore magna", "", nil)
			Expect(ok).To(BeFalse())
		})

		It("never rejects empty text", func() {
			ok, _ := classifier.IsInDomain("", chat.SpecialtySkin, nil)
			Expect(ok).To(BeTrue())
		})
	})

	Describe("established conversation context", func() {
		It("accepts a bare conversational follow-up", func() {
			ok, _ := classifier.IsInDomain("yes", chat.SpecialtySkin,
				history("I have a rash on my arm"))
			Expect(ok).To(BeTrue())
		})

		It("accepts any short reply once medical context exists", func() {
			ok, _ := classifier.IsInDomain("I'm 35, male", chat.SpecialtySkin,
				history("I have a rash on my arm"))
			Expect(ok).To(BeTrue())
		})

		It("establishes context from specialty terms in history", func() {
			ok, _ := classifier.IsInDomain("getting darker lately maybe", chat.SpecialtyOral,
				history("my tongue feels strange"))
			Expect(ok).To(BeTrue())
		})

		It("only inspects the last ten history messages", func() {
			old := history("I have a rash on my arm")
			padding := history("aaa", "bbb", "ccc", "ddd", "eee", "fff", "ggg", "hhh", "iii", "jjj")
			msgs := append(old, padding...)

			ok, _ := classifier.IsInDomain("recipe for pancakes please and thanks so much indeed truly honestly absolutely certainly definitely positively surely verily genuinely undoubtedly unquestionably emphatically wholeheartedly", chat.Specialty(""), msgs)
			Expect(ok).To(BeFalse())
		})
	})

	Describe("specialty selection", func() {
		It("accepts specialty hint words", func() {
			ok, _ := classifier.IsInDomain("there is a mark near the surface", chat.SpecialtySkin, nil)
			Expect(ok).To(BeTrue())
		})

		It("accepts very short descriptor answers within a specialty", func() {
			ok, _ := classifier.IsInDomain("since yesterday", chat.SpecialtyOral, nil)
			Expect(ok).To(BeTrue())
		})

		It("does not extend specialty leniency to unknown specialties", func() {
			ok, _ := classifier.IsInDomain("purely mysterious sensations everywhere honestly speaking frankly truthfully genuinely actually seriously really obviously clearly evidently", chat.Specialty("veterinary"), nil)
			Expect(ok).To(BeFalse())
		})
	})

	Describe("tokenization", func() {
		It("case-folds and splits on non-letters", func() {
			tokens := tokenize("RASH!!! on-my_ARM 123")
			Expect(tokens).To(HaveKey("rash"))
			Expect(tokens).To(HaveKey("arm"))
			Expect(tokens).NotTo(HaveKey("123"))
		})
	})
})
